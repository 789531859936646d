package trust

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
)

const claimKeyPrefix = "trust:claim:"

// ClaimStore guards the external dispatch: at most one approval request may
// be in flight per identity, across every server instance. The in-process
// pending table already dedupes within one process; the claim extends that
// guarantee across processes and restarts.
type ClaimStore interface {
	// Acquire returns true when the caller won the right to dispatch for
	// id. The claim auto-expires after ttl so a crashed instance cannot
	// wedge an identity forever.
	Acquire(ctx context.Context, id identity.PlayerID, ttl time.Duration) (bool, error)

	// Release frees the claim early (on resolution).
	Release(ctx context.Context, id identity.PlayerID) error
}

// RedisClaimStore implements ClaimStore with SET NX and a TTL, the same
// shape as a token-revocation marker: key existence is the whole payload.
type RedisClaimStore struct {
	client *redis.Client
}

func NewRedisClaimStore(client *redis.Client) *RedisClaimStore {
	return &RedisClaimStore{client: client}
}

func (s *RedisClaimStore) Acquire(ctx context.Context, id identity.PlayerID, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, claimKeyPrefix+id.String(), "1", ttl).Result()
}

func (s *RedisClaimStore) Release(ctx context.Context, id identity.PlayerID) error {
	return s.client.Del(ctx, claimKeyPrefix+id.String()).Err()
}

// InMemoryClaimStore backs single-node runs and tests.
type InMemoryClaimStore struct {
	mu     sync.Mutex
	claims map[identity.PlayerID]time.Time
}

func NewInMemoryClaimStore() *InMemoryClaimStore {
	return &InMemoryClaimStore{claims: make(map[identity.PlayerID]time.Time)}
}

func (s *InMemoryClaimStore) Acquire(_ context.Context, id identity.PlayerID, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if expiry, ok := s.claims[id]; ok && expiry.After(now) {
		return false, nil
	}
	s.claims[id] = now.Add(ttl)
	return true, nil
}

func (s *InMemoryClaimStore) Release(_ context.Context, id identity.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, id)
	return nil
}
