package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mssola/useragent"

	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/requestcontext"
)

type approvalResolveRequest struct {
	Token   string `json:"token"`
	Approve bool   `json:"approve"`
}

// handleApprovalResolve is the callback the out-of-band channel hits when the
// player answers the approval prompt. The token is the sole credential.
func (h *Handler) handleApprovalResolve(w http.ResponseWriter, r *http.Request) {
	var req approvalResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Token == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "token is required"))
		return
	}

	// Replace the raw UA string with a readable device name so the audit
	// trail records "Chrome on Android" rather than a full UA line.
	ctx := requestcontext.WithUserAgent(r.Context(), deviceName(requestcontext.UserAgent(r.Context())))

	resolution, err := h.trust.Resolve(ctx, req.Token, req.Approve)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"resolution": string(resolution)})
}

func deviceName(ua string) string {
	if ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	name, _ := parsed.Browser()
	if name == "" {
		return ua
	}
	if os := parsed.OS(); os != "" {
		return fmt.Sprintf("%s on %s", name, os)
	}
	return name
}
