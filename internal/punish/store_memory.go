package punish

import (
	"context"
	"sync"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/platform/sentinel"
)

// InMemoryStore keeps punishments in a slice; fine for tests and small
// single-node deployments where the set of active punishments is short.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records []*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

func (s *InMemoryStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := rec.Clone()
	stored.ID = s.nextID
	s.nextID++
	if stored.IssuedAt.IsZero() {
		stored.IssuedAt = time.Now()
	}
	s.records = append(s.records, stored)
	rec.ID = stored.ID
	return nil
}

func (s *InMemoryStore) Deactivate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			rec.Active = false
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) ActiveFor(_ context.Context, subject identity.PlayerID, originFP string, kind Kind, now time.Time) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.Kind != kind || !rec.InEffectAt(now) {
			continue
		}
		if !rec.SubjectID.IsZero() && rec.SubjectID == subject {
			return rec.Clone(), nil
		}
		if rec.SubjectFingerprint != "" && originFP != "" && rec.SubjectFingerprint == originFP {
			return rec.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}
