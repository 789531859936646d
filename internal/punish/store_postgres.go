package punish

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/platform/sentinel"
)

// PostgresStore persists punishments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS punishments (
			id                  BIGSERIAL PRIMARY KEY,
			subject_id          UUID,
			subject_fingerprint TEXT NOT NULL DEFAULT '',
			kind                TEXT NOT NULL,
			reason              TEXT NOT NULL DEFAULT '',
			issued_by           TEXT NOT NULL DEFAULT '',
			issued_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at          TIMESTAMPTZ,
			active              BOOLEAN NOT NULL DEFAULT TRUE,
			appealed            BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_punishments_subject
			ON punishments (kind, subject_id) WHERE active;
		CREATE INDEX IF NOT EXISTS idx_punishments_fingerprint
			ON punishments (kind, subject_fingerprint) WHERE active
	`)
	if err != nil {
		return fmt.Errorf("ensure punishments schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, rec *Record) error {
	issuedAt := rec.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO punishments
			(subject_id, subject_fingerprint, kind, reason, issued_by,
			 issued_at, expires_at, active, appealed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, nullPlayerID(rec.SubjectID), rec.SubjectFingerprint, string(rec.Kind),
		rec.Reason, rec.IssuedBy, issuedAt, nullTime(rec.ExpiresAt),
		rec.Active, rec.Appealed).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("create punishment: %w", err)
	}
	rec.IssuedAt = issuedAt
	return nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE punishments SET active = FALSE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("deactivate punishment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ActiveFor(ctx context.Context, subject identity.PlayerID, originFP string, kind Kind, now time.Time) (*Record, error) {
	rec := &Record{}
	var subjectID sql.NullString
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, subject_fingerprint, kind, reason, issued_by,
		       issued_at, expires_at, active, appealed
		FROM punishments
		WHERE kind = $1
		  AND active
		  AND (expires_at IS NULL OR expires_at > $2)
		  AND ((subject_id IS NOT NULL AND subject_id = $3)
		       OR (subject_fingerprint <> '' AND $4 <> '' AND subject_fingerprint = $4))
		LIMIT 1
	`, string(kind), now, subject.String(), originFP).Scan(
		&rec.ID, &subjectID, &rec.SubjectFingerprint, (*string)(&rec.Kind),
		&rec.Reason, &rec.IssuedBy, &rec.IssuedAt, &expiresAt, &rec.Active, &rec.Appealed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup active punishment: %w", err)
	}
	if subjectID.Valid {
		parsed, err := identity.ParsePlayerID(subjectID.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt subject_id %q: %w", subjectID.String, err)
		}
		rec.SubjectID = parsed
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		rec.ExpiresAt = &t
	}
	return rec, nil
}

func nullPlayerID(id identity.PlayerID) sql.NullString {
	if id.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
