package repositories

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lastSeenTTL        = 24 * time.Hour
	hospitalKeyPattern = "presence:hospital:*"
)

// PresenceRepository keeps connection counts in Redis so every instance sees
// the same online set. Counts are kept per instance: a hospital hash maps
// "{userId}:{instanceId}" to the number of connections that instance holds,
// and a per-user hash maps instance to count. An instance is alive while its
// heartbeat key exists, so counts left behind by a crashed instance stop
// counting once the key expires and are removed by Reap.
type PresenceRepository struct {
	rdb         *redis.Client
	instanceID  string
	instanceTTL time.Duration
}

func NewPresenceRepository(rdb *redis.Client, instanceID string, instanceTTL time.Duration) *PresenceRepository {
	if instanceTTL <= 0 {
		instanceTTL = 30 * time.Second
	}
	return &PresenceRepository{
		rdb:         rdb,
		instanceID:  instanceID,
		instanceTTL: instanceTTL,
	}
}

func presenceKey(hospitalID uint) string {
	return fmt.Sprintf("presence:hospital:%d", hospitalID)
}

func userPresenceKey(userID uint) string {
	return fmt.Sprintf("presence:user:%d", userID)
}

func instanceKey(instanceID string) string {
	return "presence:instance:" + instanceID
}

func lastSeenKey(userID uint) string {
	return fmt.Sprintf("presence:last_seen:%d", userID)
}

func presenceField(userID uint, instanceID string) string {
	return strconv.FormatUint(uint64(userID), 10) + ":" + instanceID
}

func parsePresenceField(field string) (uint, string, bool) {
	rawUser, instanceID, ok := strings.Cut(field, ":")
	if !ok || instanceID == "" {
		return 0, "", false
	}
	userID, err := strconv.ParseUint(rawUser, 10, 64)
	if err != nil || userID == 0 {
		return 0, "", false
	}
	return uint(userID), instanceID, true
}

// Heartbeat marks this instance alive for instanceTTL.
func (pr *PresenceRepository) Heartbeat(ctx context.Context) error {
	return pr.rdb.Set(ctx, instanceKey(pr.instanceID), time.Now().UTC().Format(time.RFC3339), pr.instanceTTL).Err()
}

// Run refreshes the heartbeat until ctx is cancelled, then removes it.
func (pr *PresenceRepository) Run(ctx context.Context) error {
	if err := pr.Heartbeat(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("presence heartbeat: %w", err)
	}
	ticker := time.NewTicker(pr.instanceTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			_ = pr.rdb.Del(cleanupCtx, instanceKey(pr.instanceID)).Err()
			return nil
		case <-ticker.C:
			// a missed beat is retried on the next tick; the TTL covers two misses
			_ = pr.Heartbeat(ctx)
		}
	}
}

var incrementScript = redis.NewScript(`
redis.call("HINCRBY", KEYS[1], ARGV[1], 1)
redis.call("HINCRBY", KEYS[2], ARGV[2], 1)
return redis.call("HGETALL", KEYS[2])
`)

// decrementScript removes fields once their count drops to zero so the
// hashes only list live connections.
var decrementScript = redis.NewScript(`
local n = redis.call("HINCRBY", KEYS[1], ARGV[1], -1)
if n <= 0 then
	redis.call("HDEL", KEYS[1], ARGV[1])
end
local m = redis.call("HINCRBY", KEYS[2], ARGV[2], -1)
if m <= 0 then
	redis.call("HDEL", KEYS[2], ARGV[2])
end
return redis.call("HGETALL", KEYS[2])
`)

// Increment returns the user's connection count across live instances.
func (pr *PresenceRepository) Increment(ctx context.Context, hospitalID, userID uint) (int64, error) {
	return pr.runCounter(ctx, incrementScript, hospitalID, userID)
}

// Decrement returns the user's remaining connection count across live
// instances.
func (pr *PresenceRepository) Decrement(ctx context.Context, hospitalID, userID uint) (int64, error) {
	return pr.runCounter(ctx, decrementScript, hospitalID, userID)
}

func (pr *PresenceRepository) runCounter(ctx context.Context, script *redis.Script, hospitalID, userID uint) (int64, error) {
	keys := []string{presenceKey(hospitalID), userPresenceKey(userID)}
	pairs, err := script.Run(ctx, pr.rdb, keys, presenceField(userID, pr.instanceID), pr.instanceID).StringSlice()
	if err != nil {
		return 0, err
	}

	counts := make(map[string]int64, len(pairs)/2)
	instances := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		n, err := strconv.ParseInt(pairs[i+1], 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		counts[pairs[i]] = n
		instances = append(instances, pairs[i])
	}

	alive, err := pr.aliveInstances(ctx, instances)
	if err != nil {
		return 0, err
	}
	var total int64
	for instanceID, n := range counts {
		if alive[instanceID] {
			total += n
		}
	}
	return total, nil
}

// aliveInstances reports which of ids still have a heartbeat. This instance
// is always alive.
func (pr *PresenceRepository) aliveInstances(ctx context.Context, ids []string) (map[string]bool, error) {
	alive := map[string]bool{pr.instanceID: true}
	pending := make(map[string]*redis.IntCmd)
	pipe := pr.rdb.Pipeline()
	for _, id := range ids {
		if _, seen := alive[id]; seen {
			continue
		}
		if _, queued := pending[id]; queued {
			continue
		}
		pending[id] = pipe.Exists(ctx, instanceKey(id))
	}
	if len(pending) == 0 {
		return alive, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	for id, cmd := range pending {
		alive[id] = cmd.Val() > 0
	}
	return alive, nil
}

type presenceEntry struct {
	field      string
	userID     uint
	instanceID string
}

func (pr *PresenceRepository) entries(ctx context.Context, hospitalID uint) ([]presenceEntry, map[string]bool, error) {
	fields, err := pr.rdb.HKeys(ctx, presenceKey(hospitalID)).Result()
	if err != nil {
		return nil, nil, err
	}
	entries := make([]presenceEntry, 0, len(fields))
	instances := make([]string, 0, len(fields))
	for _, field := range fields {
		userID, instanceID, ok := parsePresenceField(field)
		if !ok {
			continue
		}
		entries = append(entries, presenceEntry{field: field, userID: userID, instanceID: instanceID})
		instances = append(instances, instanceID)
	}
	alive, err := pr.aliveInstances(ctx, instances)
	if err != nil {
		return nil, nil, err
	}
	return entries, alive, nil
}

// Online returns the users of hospitalID with a connection on a live instance.
func (pr *PresenceRepository) Online(ctx context.Context, hospitalID uint) ([]uint, error) {
	entries, alive, err := pr.entries(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]struct{}, len(entries))
	ids := make([]uint, 0, len(entries))
	for _, entry := range entries {
		if !alive[entry.instanceID] {
			continue
		}
		if _, dup := seen[entry.userID]; dup {
			continue
		}
		seen[entry.userID] = struct{}{}
		ids = append(ids, entry.userID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Reap deletes counts held by dead instances in hospitalID and returns the
// users left with no live connection.
func (pr *PresenceRepository) Reap(ctx context.Context, hospitalID uint) ([]uint, error) {
	entries, alive, err := pr.entries(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	stillOnline := make(map[uint]bool)
	pipe := pr.rdb.TxPipeline()
	reaped := 0
	for _, entry := range entries {
		if alive[entry.instanceID] {
			stillOnline[entry.userID] = true
			continue
		}
		pipe.HDel(ctx, presenceKey(hospitalID), entry.field)
		pipe.HDel(ctx, userPresenceKey(entry.userID), entry.instanceID)
		if _, ok := stillOnline[entry.userID]; !ok {
			stillOnline[entry.userID] = false
		}
		reaped++
	}
	if reaped == 0 {
		return nil, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	gone := make([]uint, 0, len(stillOnline))
	for userID, online := range stillOnline {
		if !online {
			gone = append(gone, userID)
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
	return gone, nil
}

// Hospitals lists the hospitals that have presence entries.
func (pr *PresenceRepository) Hospitals(ctx context.Context) ([]uint, error) {
	var ids []uint
	iter := pr.rdb.Scan(ctx, 0, hospitalKeyPattern, 100).Iterator()
	for iter.Next(ctx) {
		raw := strings.TrimPrefix(iter.Val(), "presence:hospital:")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, uint(id))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (pr *PresenceRepository) TouchLastSeen(ctx context.Context, userID uint, at time.Time) error {
	return pr.rdb.Set(ctx, lastSeenKey(userID), at.UTC().Format(time.RFC3339), lastSeenTTL).Err()
}
