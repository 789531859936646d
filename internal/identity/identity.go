// Package identity derives the stable player identity and the origin
// fingerprint used to bind that identity to a trusted network origin.
package identity

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// PlayerID is the stable in-game identity. It is derived from the display
// name alone, never from the network origin, so it survives origin changes
// and payment lapses.
type PlayerID uuid.UUID

func (id PlayerID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the ID is the nil UUID.
func (id PlayerID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// ParsePlayerID parses the canonical string form.
func ParsePlayerID(s string) (PlayerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PlayerID{}, err
	}
	return PlayerID(u), nil
}

// Resolve maps a display name to its PlayerID using the legacy offline-mode
// scheme: an MD5 name-based UUID (version 3, RFC 4122 variant) over the
// literal bytes of "OfflinePlayer:" + name. The name is taken exactly as the
// platform supplied it - case-sensitive, no trimming - to stay bit-compatible
// with identities issued before this subsystem existed.
func Resolve(displayName string) PlayerID {
	sum := md5.Sum([]byte("OfflinePlayer:" + displayName))
	sum[6] = (sum[6] & 0x0f) | 0x30 // version 3
	sum[8] = (sum[8] & 0x3f) | 0x80 // RFC 4122 variant
	u, _ := uuid.FromBytes(sum[:])
	return PlayerID(u)
}

// Fingerprinter computes one-way digests of (display name, origin address)
// pairs. The salt is part of the durable schema: two processes must agree on
// it to agree on fingerprints, and rotating it invalidates all stored trust.
type Fingerprinter struct {
	salt string
}

func NewFingerprinter(salt string) *Fingerprinter {
	return &Fingerprinter{salt: salt}
}

// Fingerprint returns the lowercase-hex sha256 of name:addr:salt. Outputs are
// compared for equality only, never reversed, so the literal address is not
// retained anywhere.
func (f *Fingerprinter) Fingerprint(displayName, originAddr string) string {
	sum := sha256.Sum256([]byte(displayName + ":" + originAddr + ":" + f.salt))
	return hex.EncodeToString(sum[:])
}
