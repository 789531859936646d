// Package approval is the port to the out-of-band channel that confirms
// origin changes. Delivery is synchronous from the caller's point of view:
// a dispatch error means the request was not sent and the workflow must
// degrade to denial rather than hang.
package approval

import "context"

// Request is one origin re-verification prompt for a bound channel identity.
type Request struct {
	ChannelID     string `json:"channel_id"`
	PlayerID      string `json:"player_id"`
	DisplayName   string `json:"display_name"`
	CandidateFP   string `json:"candidate_fp"`
	Token         string `json:"token"`
	ExpiresInSecs int    `json:"expires_in_secs"`
}

// Channel dispatches approval requests. Implementations must not block past
// their own delivery timeout.
type Channel interface {
	Dispatch(ctx context.Context, req Request) error
}
