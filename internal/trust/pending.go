package trust

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
)

// Resolution is the terminal outcome of a pending approval.
type Resolution string

const (
	ResolutionApproved Resolution = "approved"
	ResolutionDenied   Resolution = "denied"
	ResolutionTimeout  Resolution = "timeout"
)

// Pending is one parked join waiting on an out-of-band approval. The entry
// owns a one-shot result channel: whichever of {approve, deny, timeout} fires
// first wins, later resolutions are discarded as no-ops.
type Pending struct {
	PlayerID    identity.PlayerID
	CandidateFP string
	PreviousFP  string
	Token       string
	RequestedAt time.Time

	resolved atomic.Bool
	done     chan Resolution
	timer    *time.Timer
}

// Done delivers the resolution exactly once to the parked join. The channel
// is buffered so the resolver never blocks on a host that already gave up.
func (p *Pending) Done() <-chan Resolution { return p.done }

// claim wins the resolution race without publishing a result. Returns whether
// this caller won; the winner must follow up with deliver.
func (p *Pending) claim() bool {
	if !p.resolved.CompareAndSwap(false, true) {
		return false
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	return true
}

// deliver publishes the resolution to the parked join. Only the caller that
// won the claim may deliver, exactly once.
func (p *Pending) deliver(r Resolution) {
	p.done <- r
	close(p.done)
}

// PendingTable tracks at most one Pending per identity. Creation and
// resolution are serialized under one lock; the invariant "no second external
// request while one is outstanding" falls out of GetOrCreate.
type PendingTable struct {
	mu      sync.Mutex
	entries map[identity.PlayerID]*Pending
}

func NewPendingTable() *PendingTable {
	return &PendingTable{entries: make(map[identity.PlayerID]*Pending)}
}

// GetOrCreate returns the outstanding entry for id, or creates one. created
// reports whether this call made the entry (and therefore owns dispatching
// the external request).
func (t *PendingTable) GetOrCreate(id identity.PlayerID, candidateFP, previousFP, token string, at time.Time) (p *Pending, created bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.entries[id]; ok {
		return existing, false
	}
	p = &Pending{
		PlayerID:    id,
		CandidateFP: candidateFP,
		PreviousFP:  previousFP,
		Token:       token,
		RequestedAt: at,
		done:        make(chan Resolution, 1),
	}
	t.entries[id] = p
	return p, true
}

// Get returns the outstanding entry for id, or nil.
func (t *PendingTable) Get(id identity.PlayerID) *Pending {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[id]
}

// Claim removes the entry whose correlation token matches and wins the
// resolution race without delivering a result yet. The caller persists
// whatever the resolution depends on, then delivers; any arm that loses the
// claim is a no-op before it touches anything, so a losing resolution can
// never leave side effects behind. The token check happens under the table
// lock so a stale callback can never claim a newer pending for the same
// identity.
func (t *PendingTable) Claim(id identity.PlayerID, token string) (*Pending, bool) {
	t.mu.Lock()
	p, ok := t.entries[id]
	if ok && p.Token == token {
		delete(t.entries, id)
	} else {
		ok = false
	}
	t.mu.Unlock()
	if !ok || !p.claim() {
		return nil, false
	}
	return p, true
}

// Resolve claims and delivers in one step, for arms whose resolution needs no
// persistence first. Returns the entry and whether this call won; (nil, false)
// when nothing matched or another arm already won.
func (t *PendingTable) Resolve(id identity.PlayerID, token string, r Resolution) (*Pending, bool) {
	p, won := t.Claim(id, token)
	if !won {
		return nil, false
	}
	p.deliver(r)
	return p, true
}

// Len reports the number of outstanding entries.
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
