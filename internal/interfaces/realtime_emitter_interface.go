package interfaces

import (
	"context"

	"emrSocket/internal/realtime"
)

// RealtimeEmitter is satisfied by *realtime.Emitter.
type RealtimeEmitter interface {
	Emit(ctx context.Context, target realtime.Target, event string, payload any) error
	EmitToHospital(ctx context.Context, hospitalID uint, event string, payload any) error
	EmitToUser(ctx context.Context, userID uint, event string, payload any) error
	EmitToRole(ctx context.Context, role string, event string, payload any) error
}
