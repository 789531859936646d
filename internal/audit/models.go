package audit

import "time"

// Action names for the events this subsystem emits.
const (
	ActionCodeRedeemed       = "access_code_redeemed"
	ActionCodeRejected       = "access_code_rejected"
	ActionBanEnforced        = "ban_enforced"
	ActionMuteEnforced       = "mute_enforced"
	ActionApprovalDispatched = "approval_dispatched"
	ActionApprovalResolved   = "approval_resolved"
	ActionJoinDenied         = "join_denied"
	ActionAccessDemoted      = "access_demoted"
	ActionPunishmentCreated  = "punishment_created"
	ActionPunishmentPardoned = "punishment_pardoned"
)

// Event is emitted from domain logic to capture key actions. Kept
// transport-agnostic so sinks can fan out (memory store, kafka topic).
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	PlayerID  string    `json:"player_id,omitempty"`
	Action    string    `json:"action"`
	OriginFP  string    `json:"origin_fp,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Device    string    `json:"device,omitempty"`
}
