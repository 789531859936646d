package access

import (
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
)

// PaymentState tracks the externally-driven payment lifecycle of a record.
type PaymentState string

const (
	PaymentUnset   PaymentState = "unset"
	PaymentActive  PaymentState = "active"
	PaymentExpired PaymentState = "expired"
)

// Record is the durable row per bound identity. PlayerID is immutable once
// created; everything else is mutated by exactly one owner (fingerprint by
// the trust workflow, payment state by the sweeper and the payment
// collaborator, channel binding by the out-of-band bind flow).
type Record struct {
	PlayerID          identity.PlayerID
	DisplayName       string
	OriginFingerprint string

	// ApprovalChannelID is the out-of-band messaging identity used to
	// confirm origin changes. Empty means no channel bound: joins from a
	// new origin are rejected outright with no fallback path.
	ApprovalChannelID string

	// RedeemedCode is the invite code consumed when the record was
	// provisioned. Kept for audit; the code itself stays valid for other
	// identities (shared invite semantics).
	RedeemedCode string

	// AccessExpiresAt is maintained by the payment collaborator. Nil means
	// unlimited access; the sweeper never touches nil.
	AccessExpiresAt *time.Time
	PaymentState    PaymentState

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so store callers never alias shared state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.AccessExpiresAt != nil {
		t := *r.AccessExpiresAt
		out.AccessExpiresAt = &t
	}
	return &out
}
