package trust

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
)

type PendingTableSuite struct {
	suite.Suite
	table *PendingTable
}

func TestPendingTableSuite(t *testing.T) {
	suite.Run(t, new(PendingTableSuite))
}

func (s *PendingTableSuite) SetupTest() {
	s.table = NewPendingTable()
}

func (s *PendingTableSuite) TestGetOrCreate() {
	id := identity.Resolve("Alice")

	p1, created := s.table.GetOrCreate(id, "fp-new", "fp-old", "tok-1", time.Now())
	s.True(created)
	s.Equal(1, s.table.Len())

	p2, created := s.table.GetOrCreate(id, "fp-other", "fp-old", "tok-2", time.Now())
	s.False(created, "second create must reuse the outstanding entry")
	s.Same(p1, p2)
	s.Equal("tok-1", p2.Token, "the original request keeps its token")
}

func (s *PendingTableSuite) TestResolve() {
	id := identity.Resolve("Bob")

	s.Run("matching token wins and removes the entry", func() {
		p, _ := s.table.GetOrCreate(id, "fp", "prev", "tok", time.Now())

		entry, won := s.table.Resolve(id, "tok", ResolutionApproved)
		s.True(won)
		s.Same(p, entry)
		s.Zero(s.table.Len())
		s.Equal(ResolutionApproved, <-p.Done())
	})

	s.Run("wrong token is a no-op", func() {
		s.table.GetOrCreate(id, "fp", "prev", "tok-current", time.Now())

		_, won := s.table.Resolve(id, "tok-stale", ResolutionDenied)
		s.False(won)
		s.Equal(1, s.table.Len(), "entry survives a stale callback")
	})

	s.Run("unknown identity is a no-op", func() {
		_, won := s.table.Resolve(identity.Resolve("Ghost"), "tok", ResolutionDenied)
		s.False(won)
	})
}

func (s *PendingTableSuite) TestClaim() {
	id := identity.Resolve("Held")
	p, _ := s.table.GetOrCreate(id, "fp", "prev", "tok", time.Now())

	entry, won := s.table.Claim(id, "tok")
	s.True(won)
	s.Same(p, entry)
	s.Zero(s.table.Len())

	// Claimed but not yet delivered: the parked join is still waiting.
	select {
	case <-p.Done():
		s.Fail("claim must not deliver a resolution")
	default:
	}

	_, won = s.table.Resolve(id, "tok", ResolutionTimeout)
	s.False(won, "a claimed entry cannot be resolved by another arm")

	entry.deliver(ResolutionApproved)
	s.Equal(ResolutionApproved, <-p.Done())
}

func (s *PendingTableSuite) TestExactlyOnceUnderRace() {
	id := identity.Resolve("Contested")
	p, _ := s.table.GetOrCreate(id, "fp", "prev", "tok", time.Now())

	const racers = 30
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		r := ResolutionApproved
		if i%2 == 0 {
			r = ResolutionTimeout
		}
		go func(r Resolution) {
			defer wg.Done()
			if _, won := s.table.Resolve(id, "tok", r); won {
				wins.Add(1)
			}
		}(r)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one resolution may win")

	// The parked join observes exactly one value and then a closed channel.
	_, ok := <-p.Done()
	s.True(ok)
	_, ok = <-p.Done()
	s.False(ok)
}
