package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/audit"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
)

type GateSuite struct {
	suite.Suite
	store *access.InMemoryStore
	gate  *Service
	ctx   context.Context
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.store = access.NewInMemoryStore()
	s.ctx = context.Background()

	g, err := New(s.store, identity.NewFingerprinter("test-salt"), []string{"VIP2024", "LAUNCH"})
	s.Require().NoError(err)
	s.gate = g
}

func (s *GateSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, identity.NewFingerprinter("x"), nil)
		s.Error(err)
	})

	s.Run("nil fingerprinter returns error", func() {
		_, err := New(access.NewInMemoryStore(), nil, nil)
		s.Error(err)
	})
}

func (s *GateSuite) TestRedeem() {
	s.Run("valid code provisions a record bound to the joining origin", func() {
		rec, err := s.gate.Redeem(s.ctx, "Alice", "1.2.3.4", "VIP2024")
		s.Require().NoError(err)
		s.Equal(identity.Resolve("Alice"), rec.PlayerID)
		s.Equal("VIP2024", rec.RedeemedCode)
		s.Equal(access.PaymentUnset, rec.PaymentState)

		fp := identity.NewFingerprinter("test-salt").Fingerprint("Alice", "1.2.3.4")
		s.Equal(fp, rec.OriginFingerprint)
	})

	s.Run("empty code is rejected", func() {
		_, err := s.gate.Redeem(s.ctx, "Bob", "1.2.3.4", "")
		s.Equal(dErrors.CodeInvalidCode, dErrors.CodeOf(err))
	})

	s.Run("unknown code is rejected", func() {
		_, err := s.gate.Redeem(s.ctx, "Bob", "1.2.3.4", "WRONG")
		s.Equal(dErrors.CodeInvalidCode, dErrors.CodeOf(err))
	})

	s.Run("matching is exact, not case-folded", func() {
		_, err := s.gate.Redeem(s.ctx, "Bob", "1.2.3.4", "vip2024")
		s.Equal(dErrors.CodeInvalidCode, dErrors.CodeOf(err))
	})

	s.Run("oversized code is rejected without lookup", func() {
		long := make([]byte, 33)
		for i := range long {
			long[i] = 'A'
		}
		_, err := s.gate.Redeem(s.ctx, "Bob", "1.2.3.4", string(long))
		s.Equal(dErrors.CodeInvalidCode, dErrors.CodeOf(err))
	})

	s.Run("one shared code provisions many identities", func() {
		_, err := s.gate.Redeem(s.ctx, "PlayerOne", "9.9.9.9", "LAUNCH")
		s.Require().NoError(err)

		_, err = s.gate.Redeem(s.ctx, "PlayerTwo", "8.8.8.8", "LAUNCH")
		s.Require().NoError(err)
	})

	s.Run("already-bound identity is rejected regardless of code", func() {
		_, err := s.gate.Redeem(s.ctx, "Carol", "1.1.1.1", "VIP2024")
		s.Require().NoError(err)

		_, err = s.gate.Redeem(s.ctx, "Carol", "2.2.2.2", "LAUNCH")
		s.Equal(dErrors.CodeAlreadyBound, dErrors.CodeOf(err))
	})

	s.Run("store failure fails closed", func() {
		g, err := New(failingStore{}, identity.NewFingerprinter("test-salt"), []string{"VIP2024"})
		s.Require().NoError(err)

		_, err = g.Redeem(s.ctx, "Dave", "1.2.3.4", "VIP2024")
		s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
	})
}

func (s *GateSuite) TestReplaceCodes() {
	s.gate.ReplaceCodes([]string{"NEWCODE"})

	_, err := s.gate.Redeem(s.ctx, "Erin", "1.2.3.4", "VIP2024")
	s.Equal(dErrors.CodeInvalidCode, dErrors.CodeOf(err))

	_, err = s.gate.Redeem(s.ctx, "Erin", "1.2.3.4", "NEWCODE")
	s.NoError(err)
}

// Code swaps from the admin surface race live logins; both sides must be
// safe to run concurrently.
func (s *GateSuite) TestReplaceCodesConcurrentWithRedeem() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		name := fmt.Sprintf("Player%d", i)
		go func() {
			defer wg.Done()
			_, _ = s.gate.Redeem(s.ctx, name, "1.2.3.4", "VIP2024")
		}()
		go func() {
			defer wg.Done()
			s.gate.ReplaceCodes([]string{"VIP2024", "LAUNCH"})
		}()
	}
	wg.Wait()

	// The set ends in a known state and still gates correctly.
	_, err := s.gate.Redeem(s.ctx, "Straggler", "1.2.3.4", "WRONG")
	s.Equal(dErrors.CodeInvalidCode, dErrors.CodeOf(err))
	_, err = s.gate.Redeem(s.ctx, "Straggler", "1.2.3.4", "VIP2024")
	s.NoError(err)
}

func (s *GateSuite) TestRejectionAuditTrail() {
	trail := audit.NewInMemoryStore()
	auditor := audit.NewPublisher([]audit.Sink{trail})
	g, err := New(s.store, identity.NewFingerprinter("test-salt"), []string{"VIP2024"},
		WithAuditPublisher(auditor))
	s.Require().NoError(err)

	_, err = g.Redeem(s.ctx, "Mallory", "1.2.3.4", "WRONG")
	s.Require().Error(err)
	auditor.Close()

	events, err := trail.ListByPlayer(s.ctx, identity.Resolve("Mallory").String())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionCodeRejected, events[0].Action)
	s.Equal("invalid", events[0].Reason)
}

// failingStore errors on every operation, standing in for a dead backend.
type failingStore struct {
	access.Store
}

func (failingStore) Create(context.Context, *access.Record) error {
	return errors.New("backend down")
}
