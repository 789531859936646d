package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
)

type SweeperSuite struct {
	suite.Suite
	store *access.InMemoryStore
	ctx   context.Context
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) SetupTest() {
	s.store = access.NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *SweeperSuite) seed(name string, expiresAt *time.Time, state access.PaymentState) identity.PlayerID {
	id := identity.Resolve(name)
	s.Require().NoError(s.store.Create(s.ctx, &access.Record{
		PlayerID:        id,
		DisplayName:     name,
		PaymentState:    state,
		AccessExpiresAt: expiresAt,
	}))
	return id
}

func (s *SweeperSuite) TestSweep() {
	now := time.Now()
	justLapsed := now.Add(-time.Second)
	justAhead := now.Add(time.Second)

	lapsedID := s.seed("Lapsed", &justLapsed, access.PaymentActive)
	aheadID := s.seed("Ahead", &justAhead, access.PaymentActive)
	unlimitedID := s.seed("Unlimited", nil, access.PaymentActive)

	sw := New(s.store, time.Hour)

	s.Run("demotes records past their expiry", func() {
		n, err := sw.Sweep(s.ctx, now)
		s.Require().NoError(err)
		s.Equal(1, n)

		rec, _ := s.store.Get(s.ctx, lapsedID)
		s.Equal(access.PaymentExpired, rec.PaymentState)
	})

	s.Run("leaves future and unlimited records alone", func() {
		rec, _ := s.store.Get(s.ctx, aheadID)
		s.Equal(access.PaymentActive, rec.PaymentState)

		rec, _ = s.store.Get(s.ctx, unlimitedID)
		s.Equal(access.PaymentActive, rec.PaymentState)
		s.Nil(rec.AccessExpiresAt)
	})

	s.Run("an immediate re-run is a no-op", func() {
		n, err := sw.Sweep(s.ctx, now)
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("the boundary record falls on the next pass", func() {
		n, err := sw.Sweep(s.ctx, now.Add(2*time.Second))
		s.Require().NoError(err)
		s.Equal(1, n)

		rec, _ := s.store.Get(s.ctx, aheadID)
		s.Equal(access.PaymentExpired, rec.PaymentState)
	})
}

func (s *SweeperSuite) TestLifecycle() {
	lapsed := time.Now().Add(-time.Minute)
	id := s.seed("Overdue", &lapsed, access.PaymentActive)

	sw := New(s.store, time.Hour)
	sw.Start(s.ctx)
	defer sw.Stop()

	// The first sweep runs immediately on startup, not after one interval.
	s.Eventually(func() bool {
		rec, err := s.store.Get(s.ctx, id)
		return err == nil && rec.PaymentState == access.PaymentExpired
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *SweeperSuite) TestStopIsClean() {
	sw := New(s.store, time.Hour)
	sw.Start(s.ctx)
	sw.Stop() // must not hang or panic
}
