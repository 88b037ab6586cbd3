package repositories

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryPresenceRepository is the single-instance presence store used with
// the local bus.
type MemoryPresenceRepository struct {
	mu       sync.Mutex
	counts   map[uint]map[uint]int64
	lastSeen map[uint]time.Time
}

func NewMemoryPresenceRepository() *MemoryPresenceRepository {
	return &MemoryPresenceRepository{
		counts:   make(map[uint]map[uint]int64),
		lastSeen: make(map[uint]time.Time),
	}
}

func (mr *MemoryPresenceRepository) Increment(_ context.Context, hospitalID, userID uint) (int64, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	users, ok := mr.counts[hospitalID]
	if !ok {
		users = make(map[uint]int64)
		mr.counts[hospitalID] = users
	}
	users[userID]++
	return users[userID], nil
}

func (mr *MemoryPresenceRepository) Decrement(_ context.Context, hospitalID, userID uint) (int64, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	users := mr.counts[hospitalID]
	if users == nil {
		return 0, nil
	}
	users[userID]--
	if users[userID] <= 0 {
		delete(users, userID)
		if len(users) == 0 {
			delete(mr.counts, hospitalID)
		}
		return 0, nil
	}
	return users[userID], nil
}

func (mr *MemoryPresenceRepository) Online(_ context.Context, hospitalID uint) ([]uint, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	ids := make([]uint, 0, len(mr.counts[hospitalID]))
	for id := range mr.counts[hospitalID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Reap has nothing to do: counts die with the process that holds them.
func (mr *MemoryPresenceRepository) Reap(_ context.Context, _ uint) ([]uint, error) {
	return nil, nil
}

func (mr *MemoryPresenceRepository) Hospitals(_ context.Context) ([]uint, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	ids := make([]uint, 0, len(mr.counts))
	for id := range mr.counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (mr *MemoryPresenceRepository) TouchLastSeen(_ context.Context, userID uint, at time.Time) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.lastSeen[userID] = at
	return nil
}

func (mr *MemoryPresenceRepository) LastSeen(userID uint) (time.Time, bool) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	at, ok := mr.lastSeen[userID]
	return at, ok
}
