// Package punish holds the punishment records the enforcement interceptor
// reads. This subsystem never creates or retires punishments on its own;
// those are administrative actions arriving through the admin surface.
package punish

import (
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
)

// Kind distinguishes what a punishment blocks.
type Kind string

const (
	KindBan  Kind = "ban"
	KindMute Kind = "mute"
)

// Record is one enforcement action. A record may target an identity, an
// origin fingerprint, or both; enforcement takes the most restrictive union
// across matches.
type Record struct {
	ID                 int64
	SubjectID          identity.PlayerID // zero when the ban is origin-only
	SubjectFingerprint string            // empty when the ban is identity-only
	Kind               Kind
	Reason             string
	IssuedBy           string
	IssuedAt           time.Time
	ExpiresAt          *time.Time // nil = permanent
	Active             bool
	Appealed           bool
}

// InEffectAt reports whether the record should be enforced at the given time.
// More than one active record may exist for a subject; any in-effect record
// is enough to veto.
func (r *Record) InEffectAt(now time.Time) bool {
	if !r.Active {
		return false
	}
	if r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Clone returns a deep copy so store callers never alias shared state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		out.ExpiresAt = &t
	}
	return &out
}
