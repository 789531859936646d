package enforce

import (
	"context"
	"strings"
	"sync"
	"time"

	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
)

// CooldownFilter is the content-based spam check that runs after the mute
// interceptor. It charges a sliding window per identity, so its counters are
// only touched by messages that survived the mute check.
type CooldownFilter struct {
	mu      sync.Mutex
	windows map[identity.PlayerID]*chatWindow

	limit  int
	window time.Duration
}

type chatWindow struct {
	timestamps  []time.Time
	lastMessage string
	repeats     int
}

func NewCooldownFilter(limit int, window time.Duration) *CooldownFilter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return &CooldownFilter{
		windows: make(map[identity.PlayerID]*chatWindow),
		limit:   limit,
		window:  window,
	}
}

func (f *CooldownFilter) Name() string { return "cooldown" }

func (f *CooldownFilter) InterceptChat(_ context.Context, ev *ChatEvent) Verdict {
	f.mu.Lock()
	defer f.mu.Unlock()

	w := f.windows[ev.PlayerID]
	if w == nil {
		w = &chatWindow{}
		f.windows[ev.PlayerID] = w
	}

	cutoff := ev.At.Add(-f.window)
	i := 0
	for ; i < len(w.timestamps); i++ {
		if w.timestamps[i].After(cutoff) {
			break
		}
	}
	w.timestamps = w.timestamps[i:]

	if len(w.timestamps) >= f.limit {
		return veto(dErrors.CodeBadRequest, "You are chatting too fast.")
	}

	if ev.Message == w.lastMessage {
		w.repeats++
	} else {
		w.lastMessage = ev.Message
		w.repeats = 0
	}
	if w.repeats >= 2 {
		return veto(dErrors.CodeBadRequest, "Stop repeating yourself.")
	}

	w.timestamps = append(w.timestamps, ev.At)
	return allow()
}

// Counters exposes the current window size and repeat count for an identity.
// Used by tests to assert that suppressed messages never charged the filter.
func (f *CooldownFilter) Counters(id identity.PlayerID) (messages, repeats int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := f.windows[id]
	if w == nil {
		return 0, 0
	}
	return len(w.timestamps), w.repeats
}

// ProfanityFilter vetoes messages containing blocked words. Runs last; by
// then the message has already survived mute and cooldown checks.
type ProfanityFilter struct {
	blocked []string
}

func NewProfanityFilter(blocked []string) *ProfanityFilter {
	lowered := make([]string, 0, len(blocked))
	for _, w := range blocked {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			lowered = append(lowered, w)
		}
	}
	return &ProfanityFilter{blocked: lowered}
}

func (f *ProfanityFilter) Name() string { return "profanity" }

func (f *ProfanityFilter) InterceptChat(_ context.Context, ev *ChatEvent) Verdict {
	msg := strings.ToLower(ev.Message)
	for _, w := range f.blocked {
		if strings.Contains(msg, w) {
			return veto(dErrors.CodeBadRequest, "Watch your language.")
		}
	}
	return allow()
}
