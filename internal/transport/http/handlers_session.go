package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/gateway"
	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/requestcontext"
)

type joinRequest struct {
	DisplayName string `json:"display_name"`
	OriginAddr  string `json:"origin_addr,omitempty"`
	AccessCode  string `json:"access_code,omitempty"`
}

type joinResponse struct {
	Outcome  string `json:"outcome"`
	PlayerID string `json:"player_id"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// handleJoin runs the login pipeline on behalf of the host adapter. A
// deferred join blocks this request until the pending approval resolves; the
// adapter holds the player on the connection screen meanwhile.
func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.DisplayName == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "display_name is required"))
		return
	}
	origin := req.OriginAddr
	if origin == "" {
		origin = requestcontext.ClientIP(r.Context())
	}

	decision := h.gateway.HandleJoin(r.Context(), gateway.JoinRequest{
		DisplayName: req.DisplayName,
		OriginAddr:  origin,
		AccessCode:  req.AccessCode,
	})

	if decision.Outcome == gateway.JoinDefer {
		select {
		case res := <-decision.Pending.Done():
			decision = gateway.ResolveDeferred(decision.PlayerID, res)
		case <-r.Context().Done():
			// Caller went away; the pending entry keeps its own timeout.
			return
		}
	}

	status := http.StatusOK
	if decision.Outcome == gateway.JoinReject {
		status = dErrors.ToHTTPStatus(decision.Code)
	}
	writeJSON(w, status, joinResponse{
		Outcome:  string(decision.Outcome),
		PlayerID: decision.PlayerID.String(),
		Code:     string(decision.Code),
		Message:  decision.Message,
	})
}

type chatRequest struct {
	DisplayName string `json:"display_name"`
	Message     string `json:"message"`
}

type chatResponse struct {
	Suppressed bool   `json:"suppressed"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.DisplayName == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "display_name is required"))
		return
	}

	d := h.gateway.HandleChat(r.Context(), req.DisplayName, req.Message)
	writeJSON(w, http.StatusOK, chatResponse{
		Suppressed: d.Suppressed,
		Code:       string(d.Code),
		Message:    d.Message,
	})
}
