// Package gateway is the host session collaborator's entry point: every join
// and chat event flows through here in the host's ordered event domain. The
// pipeline is a fixed sequence - enforcement first, then provisioning or
// trust evaluation - and never blocks the calling goroutine; deferred joins
// hand back a pending continuation instead.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access/gate"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/audit"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/enforce"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/platform/metrics"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/trust"
	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/platform/sentinel"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/requestcontext"
)

// JoinRequest is a connection attempt as delivered by the host platform.
// AccessCode is set when the player supplied one with the join (first
// contact); returning players leave it empty.
type JoinRequest struct {
	DisplayName string
	OriginAddr  string
	AccessCode  string
}

// JoinOutcome tells the host what to do with the session.
type JoinOutcome string

const (
	JoinAllow  JoinOutcome = "allow"
	JoinDefer  JoinOutcome = "defer"
	JoinReject JoinOutcome = "reject"
)

// JoinDecision is the pipeline's verdict. For JoinDefer the host parks the
// session on Pending.Done() and finishes with ResolveDeferred.
type JoinDecision struct {
	Outcome  JoinOutcome
	PlayerID identity.PlayerID
	Code     dErrors.Code
	Message  string
	Pending  *trust.Pending
}

// ChatDecision is the chat pipeline's verdict. When suppressed, Message is
// delivered back to the sender and the event must not reach other filters
// or recipients.
type ChatDecision struct {
	Suppressed bool
	Code       dErrors.Code
	Message    string
}

type Service struct {
	records      access.Store
	gate         *gate.Service
	trust        *trust.Service
	fingerprints *identity.Fingerprinter
	joins        *enforce.JoinChain
	chats        *enforce.ChatChain
	metrics      *metrics.Metrics
	auditor      *audit.Publisher
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(records access.Store, gateSvc *gate.Service, trustSvc *trust.Service,
	fingerprints *identity.Fingerprinter, joins *enforce.JoinChain, chats *enforce.ChatChain,
	opts ...Option) (*Service, error) {
	if records == nil || gateSvc == nil || trustSvc == nil || fingerprints == nil {
		return nil, errors.New("records, gate, trust and fingerprinter are required")
	}
	svc := &Service{
		records:      records,
		gate:         gateSvc,
		trust:        trustSvc,
		fingerprints: fingerprints,
		joins:        joins,
		chats:        chats,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// HandleJoin runs the full login pipeline. Order is load-bearing:
// enforcement runs first so a banned identity is vetoed before anything else
// observes the attempt - in particular, a banned identity never triggers an
// approval dispatch.
func (s *Service) HandleJoin(ctx context.Context, req JoinRequest) JoinDecision {
	now := requestcontext.Now(ctx)
	playerID := identity.Resolve(req.DisplayName)
	originFP := s.fingerprints.Fingerprint(req.DisplayName, req.OriginAddr)

	ev := &enforce.JoinEvent{
		PlayerID:    playerID,
		DisplayName: req.DisplayName,
		OriginAddr:  req.OriginAddr,
		OriginFP:    originFP,
		At:          now,
	}
	if v := s.joins.Run(ctx, ev); v.Veto {
		return s.reject(ctx, playerID, v.Code, v.Message)
	}

	rec, err := s.records.Get(ctx, playerID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return s.firstContact(ctx, playerID, req)
	case err != nil:
		s.logger.Error("access record read failed, failing closed", "player_id", playerID, "error", err)
		return s.reject(ctx, playerID, dErrors.CodeUnavailable, "Verification is temporarily unavailable. Try again shortly.")
	}

	if expired(rec, now) {
		return s.reject(ctx, playerID, dErrors.CodeAccessExpired, "Your access has expired. Renew it to keep playing.")
	}

	eval := s.trust.EvaluateJoin(ctx, rec, req.DisplayName, req.OriginAddr)
	switch eval.State {
	case trust.StateTrusted:
		return s.allow(playerID)
	case trust.StateAwaitingApproval:
		s.countJoin("defer")
		return JoinDecision{Outcome: JoinDefer, PlayerID: playerID, Pending: eval.Pending}
	default:
		return s.reject(ctx, playerID, eval.Code, eval.Message)
	}
}

// firstContact provisions a brand-new identity through the access code gate.
func (s *Service) firstContact(ctx context.Context, playerID identity.PlayerID, req JoinRequest) JoinDecision {
	if req.AccessCode == "" {
		return s.reject(ctx, playerID, dErrors.CodeUnauthorized,
			"This name is not registered. Join with a valid access code.")
	}
	if _, err := s.gate.Redeem(ctx, req.DisplayName, req.OriginAddr, req.AccessCode); err != nil {
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return s.reject(ctx, playerID, coded.Code, coded.Message)
		}
		return s.reject(ctx, playerID, dErrors.CodeUnavailable, "Registration is temporarily unavailable.")
	}
	// The fingerprint just stored came from this origin; trusted by construction.
	return s.allow(playerID)
}

// HandleChat runs the chat pipeline: mute first, content filters after.
func (s *Service) HandleChat(ctx context.Context, displayName, message string) ChatDecision {
	ev := &enforce.ChatEvent{
		PlayerID:    identity.Resolve(displayName),
		DisplayName: displayName,
		Message:     message,
		At:          requestcontext.Now(ctx),
	}
	if v := s.chats.Run(ctx, ev); v.Veto {
		return ChatDecision{Suppressed: true, Code: v.Code, Message: v.Message}
	}
	return ChatDecision{}
}

// ResolveDeferred converts a pending resolution into the final decision the
// host applies when the parked session wakes.
func ResolveDeferred(playerID identity.PlayerID, r trust.Resolution) JoinDecision {
	switch r {
	case trust.ResolutionApproved:
		return JoinDecision{Outcome: JoinAllow, PlayerID: playerID}
	case trust.ResolutionTimeout:
		return JoinDecision{
			Outcome:  JoinReject,
			PlayerID: playerID,
			Code:     dErrors.CodeApprovalTimeout,
			Message:  "Origin approval timed out. Try again and answer the prompt on your linked channel.",
		}
	default:
		return JoinDecision{
			Outcome:  JoinReject,
			PlayerID: playerID,
			Code:     dErrors.CodeApprovalDenied,
			Message:  "Origin approval was denied.",
		}
	}
}

// expired reports whether the record's paid window has lapsed. The sweeper
// normally flips the state first; checking the timestamp too closes the gap
// between a lapse and the next sweep tick.
func expired(rec *access.Record, now time.Time) bool {
	if rec.PaymentState == access.PaymentExpired {
		return true
	}
	return rec.AccessExpiresAt != nil && rec.AccessExpiresAt.Before(now)
}

func (s *Service) allow(playerID identity.PlayerID) JoinDecision {
	s.countJoin("allow")
	return JoinDecision{Outcome: JoinAllow, PlayerID: playerID}
}

func (s *Service) reject(ctx context.Context, playerID identity.PlayerID, code dErrors.Code, message string) JoinDecision {
	s.countJoin("reject")
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			PlayerID: playerID.String(),
			Action:   audit.ActionJoinDenied,
			Reason:   string(code),
		})
	}
	return JoinDecision{Outcome: JoinReject, PlayerID: playerID, Code: code, Message: message}
}

func (s *Service) countJoin(outcome string) {
	if s.metrics != nil {
		s.metrics.JoinsChecked.WithLabelValues(outcome).Inc()
	}
}
