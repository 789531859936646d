// Package httptransport is the thin HTTP edge. Handlers decode, delegate to
// domain services, and translate coded errors into JSON envelopes; no business
// logic lives here.
package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access/gate"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/audit"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/gateway"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/punish"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/trust"
	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
)

// Handler carries the domain services the routes delegate to.
type Handler struct {
	gateway     *gateway.Service
	trust       *trust.Service
	gate        *gate.Service
	records     access.Store
	punishments punish.Store
	auditor     *audit.Publisher
	adminKey    string // bcrypt hash; empty disables the admin surface
	logger      *slog.Logger
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(h *Handler) { h.auditor = p }
}

// WithAdminKeyHash enables the admin routes, guarded by the given bcrypt hash.
func WithAdminKeyHash(hash string) Option {
	return func(h *Handler) { h.adminKey = hash }
}

func NewHandler(gw *gateway.Service, trustSvc *trust.Service, gateSvc *gate.Service,
	records access.Store, punishments punish.Store, opts ...Option) *Handler {
	h := &Handler{
		gateway:     gw,
		trust:       trustSvc,
		gate:        gateSvc,
		records:     records,
		punishments: punishments,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter wires all endpoints. The session routes serve the host platform
// adapter; /approval/resolve serves the out-of-band channel callback; /admin
// is the operator surface and requires the admin key.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestMeta)

	r.Get("/healthz", h.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/session/join", h.handleJoin)
	r.Post("/session/chat", h.handleChat)
	r.Post("/approval/resolve", h.handleApprovalResolve)

	if h.adminKey != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.adminAuth)
			r.Post("/punishments", h.handlePunishmentCreate)
			r.Delete("/punishments/{id}", h.handlePunishmentPardon)
			r.Put("/access-codes", h.handleCodesReplace)
			r.Post("/access/{player}/extend", h.handleAccessExtend)
			r.Post("/access/{player}/channel", h.handleChannelBind)
		})
	}
	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"pending_approvals": h.trust.PendingCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates coded errors into the JSON error envelope. Uncoded
// errors are masked as internal.
func writeError(w http.ResponseWriter, err error) {
	var coded *dErrors.Error
	status := http.StatusInternalServerError
	code := string(dErrors.CodeInternal)
	message := "internal error"
	if errors.As(err, &coded) {
		status = dErrors.ToHTTPStatus(coded.Code)
		code = string(coded.Code)
		message = coded.Message
	}
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
