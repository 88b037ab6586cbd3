package interfaces

import (
	"context"
	"time"
)

// PresenceStore counts live connections per user within a hospital.
type PresenceStore interface {
	// Increment returns the user's connection count after the increment.
	Increment(ctx context.Context, hospitalID, userID uint) (int64, error)
	// Decrement returns the remaining count; the entry is removed at zero.
	Decrement(ctx context.Context, hospitalID, userID uint) (int64, error)
	Online(ctx context.Context, hospitalID uint) ([]uint, error)
	// Reap drops counts held by instances that stopped heartbeating and
	// returns the users of hospitalID left with no live connection.
	Reap(ctx context.Context, hospitalID uint) ([]uint, error)
	Hospitals(ctx context.Context) ([]uint, error)
	TouchLastSeen(ctx context.Context, userID uint, at time.Time) error
}
