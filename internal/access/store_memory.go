package access

import (
	"context"
	"sync"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/platform/sentinel"
)

// InMemoryStore keeps records in a map. It favors clarity over performance
// and backs unit tests and single-node local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[identity.PlayerID]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[identity.PlayerID]*Record)}
}

func (s *InMemoryStore) Get(_ context.Context, id identity.PlayerID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemoryStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.PlayerID]; ok {
		return sentinel.ErrConflict
	}
	now := time.Now()
	stored := rec.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.records[rec.PlayerID] = stored
	return nil
}

func (s *InMemoryStore) UpdateFingerprint(_ context.Context, id identity.PlayerID, prev, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if rec.OriginFingerprint != prev {
		return sentinel.ErrConflict
	}
	rec.OriginFingerprint = next
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) BindApprovalChannel(_ context.Context, id identity.PlayerID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.ApprovalChannelID = channelID
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) ExtendAccess(_ context.Context, id identity.PlayerID, expiresAt *time.Time, state PaymentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if expiresAt != nil {
		t := *expiresAt
		rec.AccessExpiresAt = &t
	} else {
		rec.AccessExpiresAt = nil
	}
	rec.PaymentState = state
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) DemoteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	demoted := 0
	for _, rec := range s.records {
		if rec.AccessExpiresAt == nil || rec.PaymentState == PaymentExpired {
			continue
		}
		if rec.AccessExpiresAt.Before(now) {
			rec.PaymentState = PaymentExpired
			rec.UpdatedAt = now
			demoted++
		}
	}
	return demoted, nil
}
