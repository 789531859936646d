//go:build integration

package access_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/platform/sentinel"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/testutil/containers"
)

type PostgresAccessSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *access.PostgresStore
}

func TestPostgresAccessSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAccessSuite))
}

func (s *PostgresAccessSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = access.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresAccessSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "access_records"))
}

func newRecord(name string) *access.Record {
	return &access.Record{
		PlayerID:          identity.Resolve(name),
		DisplayName:       name,
		OriginFingerprint: "fp-" + name,
		PaymentState:      access.PaymentUnset,
	}
}

func (s *PostgresAccessSuite) TestRoundTrip() {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)

	rec := newRecord("Alice")
	rec.ApprovalChannelID = "discord:1"
	rec.RedeemedCode = "VIP2024"
	rec.AccessExpiresAt = &expires
	rec.PaymentState = access.PaymentActive
	s.Require().NoError(s.store.Create(ctx, rec))

	found, err := s.store.Get(ctx, rec.PlayerID)
	s.Require().NoError(err)
	s.Equal(rec.PlayerID, found.PlayerID)
	s.Equal("Alice", found.DisplayName)
	s.Equal("fp-Alice", found.OriginFingerprint)
	s.Equal("discord:1", found.ApprovalChannelID)
	s.Equal("VIP2024", found.RedeemedCode)
	s.Equal(access.PaymentActive, found.PaymentState)
	s.Require().NotNil(found.AccessExpiresAt)
	s.WithinDuration(expires, *found.AccessExpiresAt, time.Millisecond)
}

func (s *PostgresAccessSuite) TestConcurrentCreateOneWinner() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newRecord("Contested"))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should win")
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresAccessSuite) TestUpdateFingerprintCAS() {
	ctx := context.Background()
	rec := newRecord("Bob")
	s.Require().NoError(s.store.Create(ctx, rec))

	s.Run("matching prev swaps", func() {
		s.Require().NoError(s.store.UpdateFingerprint(ctx, rec.PlayerID, "fp-Bob", "fp-new"))
		found, _ := s.store.Get(ctx, rec.PlayerID)
		s.Equal("fp-new", found.OriginFingerprint)
	})

	s.Run("stale prev is a conflict", func() {
		err := s.store.UpdateFingerprint(ctx, rec.PlayerID, "fp-Bob", "fp-other")
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("missing record is not found", func() {
		err := s.store.UpdateFingerprint(ctx, identity.Resolve("Ghost"), "a", "b")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresAccessSuite) TestDemoteExpired() {
	ctx := context.Background()
	now := time.Now().UTC()
	lapsed := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	expired := newRecord("Expired")
	expired.AccessExpiresAt = &lapsed
	expired.PaymentState = access.PaymentActive
	s.Require().NoError(s.store.Create(ctx, expired))

	active := newRecord("Active")
	active.AccessExpiresAt = &future
	active.PaymentState = access.PaymentActive
	s.Require().NoError(s.store.Create(ctx, active))

	unlimited := newRecord("Unlimited")
	s.Require().NoError(s.store.Create(ctx, unlimited))

	n, err := s.store.DemoteExpired(ctx, now)
	s.Require().NoError(err)
	s.Equal(1, n)

	found, _ := s.store.Get(ctx, expired.PlayerID)
	s.Equal(access.PaymentExpired, found.PaymentState)
	found, _ = s.store.Get(ctx, active.PlayerID)
	s.Equal(access.PaymentActive, found.PaymentState)
	found, _ = s.store.Get(ctx, unlimited.PlayerID)
	s.Equal(access.PaymentUnset, found.PaymentState)

	n, err = s.store.DemoteExpired(ctx, now)
	s.Require().NoError(err)
	s.Zero(n, "demotion is idempotent")
}

func (s *PostgresAccessSuite) TestBindAndExtend() {
	ctx := context.Background()
	rec := newRecord("Carol")
	s.Require().NoError(s.store.Create(ctx, rec))

	s.Require().NoError(s.store.BindApprovalChannel(ctx, rec.PlayerID, "discord:3"))

	future := time.Now().Add(30 * 24 * time.Hour).UTC()
	s.Require().NoError(s.store.ExtendAccess(ctx, rec.PlayerID, &future, access.PaymentActive))

	found, err := s.store.Get(ctx, rec.PlayerID)
	s.Require().NoError(err)
	s.Equal("discord:3", found.ApprovalChannelID)
	s.Equal(access.PaymentActive, found.PaymentState)
	s.NotNil(found.AccessExpiresAt)

	s.Require().ErrorIs(s.store.BindApprovalChannel(ctx, identity.Resolve("Ghost"), "x"), sentinel.ErrNotFound)
	s.Require().ErrorIs(s.store.ExtendAccess(ctx, identity.Resolve("Ghost"), nil, access.PaymentActive), sentinel.ErrNotFound)
}
