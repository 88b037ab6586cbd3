package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emrSocket/internal/errs"
)

func TestLocalBus_RequiresForwarder(t *testing.T) {
	bus := NewLocalBus()
	err := bus.Publish(context.Background(), Envelope{Room: "hospital-1"})
	assert.ErrorIs(t, err, errs.ErrBusNotStarted)
}

func TestLocalBus_DeliversToHub(t *testing.T) {
	bus := NewLocalBus()
	hub := newTestHub()
	client := NewClient(Identity{UserID: 1, HospitalID: 1, Role: "doctor"}, nil, 2)
	require.NoError(t, hub.Register(client))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, bus.StartForwarder(ctx, func(env Envelope) { hub.Deliver(env) }))

	require.NoError(t, bus.Publish(ctx, Envelope{Room: "hospital-1", Event: "queue:updated", Payload: json.RawMessage(`{}`)}))
	assert.Equal(t, "queue:updated", readFrame(t, client).Event)
}

func TestLocalBus_ClosedRejectsPublish(t *testing.T) {
	bus := NewLocalBus()
	require.NoError(t, bus.StartForwarder(context.Background(), func(Envelope) {}))
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), Envelope{}), errs.ErrBusClosed)
	assert.ErrorIs(t, bus.StartForwarder(context.Background(), func(Envelope) {}), errs.ErrBusClosed)
}

func TestLocalBus_CancelledContext(t *testing.T) {
	bus := NewLocalBus()
	require.NoError(t, bus.StartForwarder(context.Background(), func(Envelope) {}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, bus.Publish(ctx, Envelope{}), context.Canceled)
}

func TestValidRoom(t *testing.T) {
	assert.True(t, validRoom("hospital-1"))
	assert.True(t, validRoom("role-doctor"))
	assert.True(t, validRoom("user-42"))
	assert.False(t, validRoom("hospital-0"))
	assert.False(t, validRoom("user-"))
	assert.False(t, validRoom("ward-3"))
	assert.Equal(t, []string{"hospital-2", "role-nurse", "user-8"}, Identity{UserID: 8, HospitalID: 2, Role: "nurse"}.Rooms())
}
