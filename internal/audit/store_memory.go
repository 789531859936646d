package audit

import (
	"context"
	"sync"
)

// Retention cap for the in-process trail. The store lives for the whole
// process, so growth must be bounded; kafka is the durable trail.
const defaultRetained = 4096

// InMemoryStore keeps the most recent events in order of arrival. Used by
// tests and as the default sink when no kafka brokers are configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	max    int
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{max: defaultRetained}
}

func (s *InMemoryStore) Append(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if len(s.events) > s.max {
		copy(s.events, s.events[len(s.events)-s.max:])
		s.events = s.events[:s.max]
	}
	return nil
}

// ListByPlayer returns events for one player, oldest first.
func (s *InMemoryStore) ListByPlayer(_ context.Context, playerID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, ev := range s.events {
		if ev.PlayerID == playerID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// All returns a snapshot of every event.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
