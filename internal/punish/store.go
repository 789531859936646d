package punish

import (
	"context"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
)

// Store persists punishment records. ActiveFor is the hot path: it runs on
// every join and every chat message, so implementations should keep it a
// single indexed lookup.
type Store interface {
	// Create inserts a record and fills in its assigned ID. Creating a new
	// active record never retires previous ones; enforcement evaluates
	// "does any in-effect record exist".
	Create(ctx context.Context, rec *Record) error

	// Deactivate marks a record inactive (pardon). ErrNotFound if missing.
	Deactivate(ctx context.Context, id int64) error

	// ActiveFor returns one in-effect record of the given kind matching the
	// subject identity or origin fingerprint, or ErrNotFound when no record
	// vetoes. Which matching record is returned is unspecified.
	ActiveFor(ctx context.Context, subject identity.PlayerID, originFP string, kind Kind, now time.Time) (*Record, error)
}
