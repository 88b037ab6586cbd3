package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"emrSocket/internal/errs"
	"emrSocket/internal/logger"
)

// Target addresses a room. A non-zero HospitalScope restricts delivery to
// members of that hospital, which matters for user and role rooms.
type Target struct {
	Room          string
	HospitalScope uint
}

func HospitalTarget(hospitalID uint) Target { return Target{Room: HospitalRoom(hospitalID)} }

func UserTarget(userID uint) Target { return Target{Room: UserRoom(userID)} }

func RoleTarget(role string) Target { return Target{Room: RoleRoom(role)} }

// Emitter is the only way events enter the fan-out layer. It is built once
// at startup and passed to every component that needs to push.
type Emitter struct {
	bus Bus
	log *logger.Logger
	now func() time.Time
}

func NewEmitter(bus Bus, log *logger.Logger) (*Emitter, error) {
	if bus == nil {
		return nil, errs.ErrBusNotStarted
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Emitter{
		bus: bus,
		log: log.With("component", "RealtimeEmitter"),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (e *Emitter) EmitToHospital(ctx context.Context, hospitalID uint, event string, payload any) error {
	if e == nil {
		return errs.ErrEmitterNotReady
	}
	if hospitalID == 0 {
		return e.fail(event, "", errs.ErrInvalidTarget)
	}
	return e.Emit(ctx, HospitalTarget(hospitalID), event, payload)
}

func (e *Emitter) EmitToUser(ctx context.Context, userID uint, event string, payload any) error {
	if e == nil {
		return errs.ErrEmitterNotReady
	}
	if userID == 0 {
		return e.fail(event, "", errs.ErrInvalidTarget)
	}
	return e.Emit(ctx, UserTarget(userID), event, payload)
}

func (e *Emitter) EmitToRole(ctx context.Context, role string, event string, payload any) error {
	if e == nil {
		return errs.ErrEmitterNotReady
	}
	if strings.TrimSpace(role) == "" {
		return e.fail(event, "", errs.ErrInvalidTarget)
	}
	return e.Emit(ctx, RoleTarget(role), event, payload)
}

// Emit publishes payload as event to target. Payloads that encode to a JSON
// object get a server timestamp unless they already carry one.
func (e *Emitter) Emit(ctx context.Context, target Target, event string, payload any) error {
	if e == nil || e.bus == nil {
		return errs.ErrEmitterNotReady
	}
	if strings.TrimSpace(event) == "" {
		return e.fail(event, target.Room, errs.ErrInvalidEvent)
	}
	if !validRoom(target.Room) {
		return e.fail(event, target.Room, errs.ErrInvalidTarget)
	}

	now := e.now()
	raw, err := encodePayload(payload, now)
	if err != nil {
		return e.fail(event, target.Room, fmt.Errorf("%w: %v", errs.ErrInvalidPayload, err))
	}

	env := Envelope{
		ID:            uuid.New(),
		Room:          target.Room,
		Event:         event,
		Payload:       raw,
		HospitalScope: target.HospitalScope,
		EmittedAt:     now,
	}
	if err := e.bus.Publish(ctx, env); err != nil {
		return e.fail(event, target.Room, fmt.Errorf("publish: %w", err))
	}
	return nil
}

func (e *Emitter) fail(event, room string, err error) error {
	if e != nil && e.log != nil {
		e.log.Warn("emit failed", "event", event, "room", room, "error", err)
	}
	return err
}

func encodePayload(payload any, now time.Time) (json.RawMessage, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil || object == nil {
		// not an object; relay as-is
		return raw, nil
	}
	if _, ok := object["timestamp"]; ok {
		return raw, nil
	}
	stamp, err := json.Marshal(now)
	if err != nil {
		return nil, err
	}
	object["timestamp"] = stamp
	return json.Marshal(object)
}
