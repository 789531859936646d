//go:build integration

package punish_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/punish"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/platform/sentinel"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/testutil/containers"
)

type PostgresPunishSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *punish.PostgresStore
}

func TestPostgresPunishSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresPunishSuite))
}

func (s *PostgresPunishSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = punish.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresPunishSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "punishments"))
}

func (s *PostgresPunishSuite) TestCreateAssignsIDs() {
	ctx := context.Background()

	first := &punish.Record{SubjectID: identity.Resolve("A"), Kind: punish.KindBan, Active: true}
	second := &punish.Record{SubjectID: identity.Resolve("B"), Kind: punish.KindMute, Active: true}
	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, second))

	s.NotZero(first.ID)
	s.NotZero(second.ID)
	s.NotEqual(first.ID, second.ID)
	s.False(first.IssuedAt.IsZero())
}

func (s *PostgresPunishSuite) TestActiveFor() {
	ctx := context.Background()
	now := time.Now().UTC()
	subject := identity.Resolve("Target")

	s.Run("matches by identity", func() {
		rec := &punish.Record{SubjectID: subject, Kind: punish.KindBan, Reason: "r", Active: true}
		s.Require().NoError(s.store.Create(ctx, rec))

		found, err := s.store.ActiveFor(ctx, subject, "", punish.KindBan, now)
		s.Require().NoError(err)
		s.Equal(subject, found.SubjectID)
		s.Equal("r", found.Reason)
	})

	s.Run("matches an alt by origin fingerprint", func() {
		rec := &punish.Record{SubjectFingerprint: "fp-shared", Kind: punish.KindBan, Active: true}
		s.Require().NoError(s.store.Create(ctx, rec))

		found, err := s.store.ActiveFor(ctx, identity.Resolve("Alt"), "fp-shared", punish.KindBan, now)
		s.Require().NoError(err)
		s.True(found.SubjectID.IsZero())
		s.Equal("fp-shared", found.SubjectFingerprint)
	})

	s.Run("expired record does not veto", func() {
		past := now.Add(-time.Minute)
		rec := &punish.Record{SubjectID: identity.Resolve("Old"), Kind: punish.KindBan, Active: true, ExpiresAt: &past}
		s.Require().NoError(s.store.Create(ctx, rec))

		_, err := s.store.ActiveFor(ctx, identity.Resolve("Old"), "", punish.KindBan, now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("kind filter applies", func() {
		_, err := s.store.ActiveFor(ctx, subject, "", punish.KindMute, now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresPunishSuite) TestDeactivate() {
	ctx := context.Background()
	now := time.Now().UTC()
	subject := identity.Resolve("Pardoned")

	rec := &punish.Record{SubjectID: subject, Kind: punish.KindBan, Active: true}
	s.Require().NoError(s.store.Create(ctx, rec))

	s.Require().NoError(s.store.Deactivate(ctx, rec.ID))

	_, err := s.store.ActiveFor(ctx, subject, "", punish.KindBan, now)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().ErrorIs(s.store.Deactivate(ctx, 999999), sentinel.ErrNotFound)
}
