package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/platform/sentinel"
)

// PostgresStore persists access records in PostgreSQL through database/sql
// (the pgx stdlib driver is registered in the db platform package).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the access_records table when it is missing. Kept
// simple enough that integration tests can run against a blank database.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS access_records (
			player_id           UUID PRIMARY KEY,
			display_name        TEXT NOT NULL,
			origin_fingerprint  TEXT NOT NULL,
			approval_channel_id TEXT NOT NULL DEFAULT '',
			redeemed_code       TEXT NOT NULL DEFAULT '',
			access_expires_at   TIMESTAMPTZ,
			payment_state       TEXT NOT NULL DEFAULT 'unset',
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure access_records schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id identity.PlayerID) (*Record, error) {
	rec := &Record{}
	var playerID string
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT player_id, display_name, origin_fingerprint, approval_channel_id,
		       redeemed_code, access_expires_at, payment_state, created_at, updated_at
		FROM access_records
		WHERE player_id = $1
	`, id.String()).Scan(
		&playerID, &rec.DisplayName, &rec.OriginFingerprint, &rec.ApprovalChannelID,
		&rec.RedeemedCode, &expiresAt, (*string)(&rec.PaymentState), &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get access record: %w", err)
	}
	parsed, err := identity.ParsePlayerID(playerID)
	if err != nil {
		return nil, fmt.Errorf("corrupt player_id %q: %w", playerID, err)
	}
	rec.PlayerID = parsed
	if expiresAt.Valid {
		t := expiresAt.Time
		rec.AccessExpiresAt = &t
	}
	return rec, nil
}

func (s *PostgresStore) Create(ctx context.Context, rec *Record) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO access_records
			(player_id, display_name, origin_fingerprint, approval_channel_id,
			 redeemed_code, access_expires_at, payment_state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (player_id) DO NOTHING
	`, rec.PlayerID.String(), rec.DisplayName, rec.OriginFingerprint,
		rec.ApprovalChannelID, rec.RedeemedCode, nullTime(rec.AccessExpiresAt), string(rec.PaymentState))
	if err != nil {
		return fmt.Errorf("create access record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) UpdateFingerprint(ctx context.Context, id identity.PlayerID, prev, next string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE access_records
		SET origin_fingerprint = $3, updated_at = NOW()
		WHERE player_id = $1 AND origin_fingerprint = $2
	`, id.String(), prev, next)
	if err != nil {
		return fmt.Errorf("update fingerprint: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Row missing or CAS lost; disambiguate for the caller.
		if _, getErr := s.Get(ctx, id); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) BindApprovalChannel(ctx context.Context, id identity.PlayerID, channelID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE access_records
		SET approval_channel_id = $2, updated_at = NOW()
		WHERE player_id = $1
	`, id.String(), channelID)
	if err != nil {
		return fmt.Errorf("bind approval channel: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ExtendAccess(ctx context.Context, id identity.PlayerID, expiresAt *time.Time, state PaymentState) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE access_records
		SET access_expires_at = $2, payment_state = $3, updated_at = NOW()
		WHERE player_id = $1
	`, id.String(), nullTime(expiresAt), string(state))
	if err != nil {
		return fmt.Errorf("extend access: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DemoteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE access_records
		SET payment_state = $1, updated_at = $2
		WHERE access_expires_at IS NOT NULL
		  AND access_expires_at < $2
		  AND payment_state <> $1
	`, string(PaymentExpired), now)
	if err != nil {
		return 0, fmt.Errorf("demote expired access: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("demote expired access: %w", err)
	}
	return int(n), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
