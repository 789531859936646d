package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/audit"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/punish"
	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/platform/sentinel"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/requestcontext"
)

type punishmentCreateRequest struct {
	DisplayName        string `json:"display_name,omitempty"`
	SubjectFingerprint string `json:"subject_fingerprint,omitempty"`
	Kind               string `json:"kind"`
	Reason             string `json:"reason"`
	IssuedBy           string `json:"issued_by"`
	Duration           string `json:"duration,omitempty"` // Go duration; empty = permanent
}

func (h *Handler) handlePunishmentCreate(w http.ResponseWriter, r *http.Request) {
	var req punishmentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	kind := punish.Kind(req.Kind)
	if kind != punish.KindBan && kind != punish.KindMute {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "kind must be ban or mute"))
		return
	}
	if req.DisplayName == "" && req.SubjectFingerprint == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "display_name or subject_fingerprint is required"))
		return
	}

	now := requestcontext.Now(r.Context())
	rec := &punish.Record{
		SubjectFingerprint: req.SubjectFingerprint,
		Kind:               kind,
		Reason:             req.Reason,
		IssuedBy:           req.IssuedBy,
		IssuedAt:           now,
		Active:             true,
	}
	if req.DisplayName != "" {
		rec.SubjectID = identity.Resolve(req.DisplayName)
	}
	if req.Duration != "" {
		d, err := time.ParseDuration(req.Duration)
		if err != nil || d <= 0 {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid duration"))
			return
		}
		expires := now.Add(d)
		rec.ExpiresAt = &expires
	}

	if err := h.punishments.Create(r.Context(), rec); err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not store punishment"))
		return
	}
	if h.auditor != nil {
		h.auditor.Emit(r.Context(), audit.Event{
			PlayerID: rec.SubjectID.String(),
			Action:   audit.ActionPunishmentCreated,
			OriginFP: rec.SubjectFingerprint,
			Actor:    req.IssuedBy,
			Reason:   req.Reason,
		})
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": rec.ID})
}

func (h *Handler) handlePunishmentPardon(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid punishment id"))
		return
	}
	if err := h.punishments.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeError(w, dErrors.New(dErrors.CodeNotFound, "no such punishment"))
			return
		}
		writeError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not pardon punishment"))
		return
	}
	if h.auditor != nil {
		h.auditor.Emit(r.Context(), audit.Event{
			Action: audit.ActionPunishmentPardoned,
			Reason: "punishment " + strconv.FormatInt(id, 10),
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pardoned"})
}

type codesReplaceRequest struct {
	Codes []string `json:"codes"`
}

func (h *Handler) handleCodesReplace(w http.ResponseWriter, r *http.Request) {
	var req codesReplaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	h.gate.ReplaceCodes(req.Codes)
	writeJSON(w, http.StatusOK, map[string]any{"count": len(req.Codes)})
}

type accessExtendRequest struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // nil = unlimited
}

// handleAccessExtend is the payment collaborator's surface: it replaces the
// expiry window and re-activates a demoted record.
func (h *Handler) handleAccessExtend(w http.ResponseWriter, r *http.Request) {
	id, err := identity.ParsePlayerID(chi.URLParam(r, "player"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid player id"))
		return
	}
	var req accessExtendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(requestcontext.Now(r.Context())) {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "expires_at must be in the future"))
		return
	}

	if err := h.records.ExtendAccess(r.Context(), id, req.ExpiresAt, access.PaymentActive); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeError(w, dErrors.New(dErrors.CodeNotFound, "no such access record"))
			return
		}
		writeError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not extend access"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "extended"})
}

type channelBindRequest struct {
	ChannelID string `json:"channel_id"`
}

func (h *Handler) handleChannelBind(w http.ResponseWriter, r *http.Request) {
	id, err := identity.ParsePlayerID(chi.URLParam(r, "player"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid player id"))
		return
	}
	var req channelBindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "channel_id is required"))
		return
	}

	if err := h.records.BindApprovalChannel(r.Context(), id, req.ChannelID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeError(w, dErrors.New(dErrors.CodeNotFound, "no such access record"))
			return
		}
		writeError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not bind channel"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "bound"})
}
