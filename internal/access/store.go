package access

import (
	"context"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
)

// Store holds access records keyed by player identity. Implementations
// return sentinel errors (pkg/platform/sentinel) for infrastructure facts:
// ErrNotFound for missing records, ErrConflict for lost compare-and-sets.
type Store interface {
	Get(ctx context.Context, id identity.PlayerID) (*Record, error)

	// Create provisions a new record. ErrConflict if the identity is
	// already bound.
	Create(ctx context.Context, rec *Record) error

	// UpdateFingerprint swaps the trusted origin fingerprint, but only if
	// the stored value still equals prev (compare-and-set, so a racing
	// sweep or second approval cannot tear the record).
	UpdateFingerprint(ctx context.Context, id identity.PlayerID, prev, next string) error

	// BindApprovalChannel attaches the out-of-band channel identity. Once
	// set, origin re-verification becomes possible for this player.
	BindApprovalChannel(ctx context.Context, id identity.PlayerID, channelID string) error

	// ExtendAccess is the payment collaborator's entry point: it replaces
	// the expiry timestamp and payment state together.
	ExtendAccess(ctx context.Context, id identity.PlayerID, expiresAt *time.Time, state PaymentState) error

	// DemoteExpired flips payment_state to expired for every record whose
	// non-nil expiry is before now and whose state is not already expired.
	// Returns the number of records demoted; idempotent.
	DemoteExpired(ctx context.Context, now time.Time) (int, error)
}
