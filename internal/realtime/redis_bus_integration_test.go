//go:build integration

package realtime

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emrSocket/internal/logger"
)

func TestRedisBus_FansOutAcrossForwarders(t *testing.T) {
	addr := os.Getenv("EMR_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, rdb.Ping(ctx).Err())
	t.Cleanup(func() { _ = rdb.Close() })

	channel := "emr:realtime:test:" + t.Name()
	first, err := NewRedisBus(rdb, channel, logger.NewNop())
	require.NoError(t, err)
	second, err := NewRedisBus(rdb, channel, logger.NewNop())
	require.NoError(t, err)

	gotFirst := make(chan Envelope, 1)
	gotSecond := make(chan Envelope, 1)
	require.NoError(t, first.StartForwarder(ctx, func(env Envelope) { gotFirst <- env }))
	require.NoError(t, second.StartForwarder(ctx, func(env Envelope) { gotSecond <- env }))

	sent := Envelope{Room: "hospital-1", Event: "queue:updated", Payload: json.RawMessage(`{"appointmentId":3}`), HospitalScope: 1}
	require.NoError(t, first.Publish(ctx, sent))

	for _, ch := range []chan Envelope{gotFirst, gotSecond} {
		select {
		case env := <-ch:
			assert.Equal(t, sent.Room, env.Room)
			assert.Equal(t, sent.Event, env.Event)
			assert.Equal(t, uint(1), env.HospitalScope)
			assert.JSONEq(t, string(sent.Payload), string(env.Payload))
		case <-ctx.Done():
			t.Fatal("envelope not forwarded")
		}
	}
}
