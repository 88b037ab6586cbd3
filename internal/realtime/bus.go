package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"emrSocket/internal/errs"
)

// Envelope is one emission on its way to a room, possibly via another
// instance.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	Room          string          `json:"room"`
	Event         string          `json:"event"`
	Payload       json.RawMessage `json:"payload"`
	HospitalScope uint            `json:"hospitalScope,omitempty"`
	EmittedAt     time.Time       `json:"emittedAt"`
}

type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	StartForwarder(ctx context.Context, onMsg func(env Envelope)) error
	Close() error
}

// LocalBus hands envelopes straight to the forwarder of this process.
type LocalBus struct {
	mu     sync.RWMutex
	onMsg  func(env Envelope)
	gen    int
	closed bool
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Publish(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errs.ErrBusClosed
	}
	if b.onMsg == nil {
		return errs.ErrBusNotStarted
	}
	b.onMsg(env)
	return nil
}

func (b *LocalBus) StartForwarder(ctx context.Context, onMsg func(env Envelope)) error {
	if onMsg == nil {
		return errs.ErrBusNotStarted
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errs.ErrBusClosed
	}
	b.onMsg = onMsg
	b.gen++
	gen := b.gen

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if b.gen == gen {
			b.onMsg = nil
		}
		b.mu.Unlock()
	}()
	return nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.onMsg = nil
	return nil
}
