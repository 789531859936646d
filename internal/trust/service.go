// Package trust drives origin re-verification: it detects a join from an
// untrusted origin for an already-provisioned identity and parks the join on
// an asynchronous approve/deny round trip over the player's bound channel.
package trust

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/approval"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/audit"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/platform/metrics"
	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/platform/sentinel"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/requestcontext"
)

// State of one join attempt with respect to origin trust.
type State string

const (
	StateTrusted          State = "trusted"
	StateAwaitingApproval State = "awaiting_approval"
	StateDenied           State = "denied"
)

// Evaluation is the outcome of evaluating one join. When the state is
// AwaitingApproval the caller parks on Pending.Done(); otherwise the join
// proceeds or is rejected with Message.
type Evaluation struct {
	State   State
	Pending *Pending
	Code    dErrors.Code
	Message string
}

// claimGrace pads the dispatch claim TTL past the approval timeout so the
// claim always outlives the pending entry it guards.
const claimGrace = 30 * time.Second

type Service struct {
	records      access.Store
	fingerprints *identity.Fingerprinter
	channel      approval.Channel
	claims       ClaimStore
	table        *PendingTable
	tokens       *TokenIssuer
	timeout      time.Duration

	group   singleflight.Group
	tracer  trace.Tracer
	auditor *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
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

func New(records access.Store, fingerprints *identity.Fingerprinter, channel approval.Channel,
	claims ClaimStore, tokens *TokenIssuer, timeout time.Duration, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, errors.New("access store is required")
	}
	if fingerprints == nil {
		return nil, errors.New("fingerprinter is required")
	}
	if channel == nil {
		return nil, errors.New("approval channel is required")
	}
	if claims == nil {
		return nil, errors.New("claim store is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	svc := &Service{
		records:      records,
		fingerprints: fingerprints,
		channel:      channel,
		claims:       claims,
		table:        NewPendingTable(),
		tokens:       tokens,
		timeout:      timeout,
		tracer:       otel.Tracer("pl18/trust"),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// PendingCount reports outstanding approvals (health/debug surface).
func (s *Service) PendingCount() int { return s.table.Len() }

// EvaluateJoin classifies a join against the record's trusted origin. Never
// blocks: an untrusted origin yields either an immediate denial or a Pending
// the caller parks on. Concurrent evaluations for the same identity collapse
// onto one pending entry and at most one external dispatch.
func (s *Service) EvaluateJoin(ctx context.Context, rec *access.Record, displayName, originAddr string) Evaluation {
	ctx, span := s.tracer.Start(ctx, "trust.evaluate_join",
		trace.WithAttributes(attribute.String("player.id", rec.PlayerID.String())))
	defer span.End()

	candidate := s.fingerprints.Fingerprint(displayName, originAddr)
	if candidate == rec.OriginFingerprint {
		span.SetAttributes(attribute.String("trust.state", string(StateTrusted)))
		return Evaluation{State: StateTrusted}
	}

	if rec.ApprovalChannelID == "" {
		span.SetAttributes(attribute.String("trust.state", string(StateDenied)))
		return Evaluation{
			State:   StateDenied,
			Code:    dErrors.CodeUntrustedOrigin,
			Message: "Unrecognized network origin and no approval channel bound. Link one with /vincular before connecting from a new location.",
		}
	}

	result, _, _ := s.group.Do(rec.PlayerID.String(), func() (interface{}, error) {
		return s.beginReverification(ctx, rec, candidate), nil
	})
	eval := result.(Evaluation)
	span.SetAttributes(attribute.String("trust.state", string(eval.State)))
	return eval
}

func (s *Service) beginReverification(ctx context.Context, rec *access.Record, candidate string) Evaluation {
	id := rec.PlayerID

	// An outstanding request is reused as-is; the session parks on it.
	if existing := s.table.Get(id); existing != nil {
		return Evaluation{State: StateAwaitingApproval, Pending: existing}
	}

	won, err := s.claims.Acquire(ctx, id, s.timeout+claimGrace)
	if err != nil {
		s.logger.Error("dispatch claim unavailable, failing closed", "player_id", id, "error", err)
		return Evaluation{
			State:   StateDenied,
			Code:    dErrors.CodeUnavailable,
			Message: "Origin verification is temporarily unavailable. Try again shortly.",
		}
	}
	if !won {
		// Another instance already dispatched for this identity.
		return Evaluation{
			State:   StateDenied,
			Code:    dErrors.CodeConflict,
			Message: "An origin approval is already pending. Answer it or wait for it to expire.",
		}
	}

	token, jti, err := s.tokens.Issue(id.String(), candidate, s.timeout+claimGrace)
	if err != nil {
		s.releaseClaim(id)
		s.logger.Error("correlation token issue failed", "player_id", id, "error", err)
		return Evaluation{
			State:   StateDenied,
			Code:    dErrors.CodeUnavailable,
			Message: "Origin verification is temporarily unavailable. Try again shortly.",
		}
	}

	pending, created := s.table.GetOrCreate(id, candidate, rec.OriginFingerprint, jti, requestcontext.Now(ctx))
	if !created {
		// Lost a race inside this process; reuse, release our claim copy.
		s.releaseClaim(id)
		return Evaluation{State: StateAwaitingApproval, Pending: pending}
	}

	err = s.channel.Dispatch(ctx, approval.Request{
		ChannelID:     rec.ApprovalChannelID,
		PlayerID:      id.String(),
		DisplayName:   rec.DisplayName,
		CandidateFP:   candidate,
		Token:         token,
		ExpiresInSecs: int(s.timeout.Seconds()),
	})
	if err != nil {
		s.table.Resolve(id, jti, ResolutionDenied)
		s.releaseClaim(id)
		s.logger.Warn("approval channel dispatch failed", "player_id", id, "error", err)
		if errors.Is(err, sentinel.ErrUnavailable) {
			return Evaluation{
				State:   StateDenied,
				Code:    dErrors.CodeUntrustedOrigin,
				Message: "Could not reach your approval channel. Try again later or re-link it.",
			}
		}
		return Evaluation{
			State:   StateDenied,
			Code:    dErrors.CodeUnavailable,
			Message: "Origin verification is temporarily unavailable. Try again shortly.",
		}
	}

	pending.timer = time.AfterFunc(s.timeout, func() { s.expire(id, jti) })

	if s.metrics != nil {
		s.metrics.ApprovalsDispatched.Inc()
	}
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			PlayerID: id.String(),
			Action:   audit.ActionApprovalDispatched,
			OriginFP: candidate,
		})
	}
	return Evaluation{State: StateAwaitingApproval, Pending: pending}
}

// Resolve handles the external callback. The token is the sole credential:
// it identifies the player, the candidate fingerprint, and the exact pending
// entry. First writer wins against the timeout; a losing resolution is a
// no-op and reported as conflict.
func (s *Service) Resolve(ctx context.Context, token string, approve bool) (Resolution, error) {
	ctx, span := s.tracer.Start(ctx, "trust.resolve")
	defer span.End()

	playerStr, candidate, jti, err := s.tokens.Validate(token)
	if err != nil {
		return "", err
	}
	id, err := identity.ParsePlayerID(playerStr)
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid approval token")
	}

	// Win the resolution race before touching the store. Once claimed, a
	// timeout firing while the write is in flight is a no-op, so the
	// delivered resolution and the persisted record can never disagree.
	p, won := s.table.Claim(id, jti)
	if !won {
		return "", dErrors.New(dErrors.CodeConflict, "approval already resolved")
	}

	resolution := ResolutionDenied
	if approve {
		resolution = ResolutionApproved
		// Promote trust before waking the join so a granted session always
		// observes the updated record. Compare-and-set against the
		// fingerprint captured at evaluation time.
		if err := s.records.UpdateFingerprint(ctx, id, p.PreviousFP, candidate); err != nil {
			// Deny rather than trust a fingerprint we could not persist.
			resolution = ResolutionDenied
			if !errors.Is(err, sentinel.ErrConflict) && !errors.Is(err, sentinel.ErrNotFound) {
				s.logger.Error("fingerprint promote failed, denying", "player_id", id, "error", err)
				s.settle(ctx, p, ResolutionDenied, "")
				return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "could not persist approval")
			}
		}
	}

	s.settle(ctx, p, resolution, requestcontext.UserAgent(ctx))
	span.SetAttributes(attribute.String("trust.resolution", string(resolution)))
	return resolution, nil
}

// expire is the timeout arm: an unanswered approval is an implicit deny.
func (s *Service) expire(id identity.PlayerID, jti string) {
	p, won := s.table.Claim(id, jti)
	if !won {
		return
	}
	s.settle(context.Background(), p, ResolutionTimeout, "")
}

// settle delivers a claimed resolution to the parked join and runs the
// bookkeeping every resolution arm shares.
func (s *Service) settle(ctx context.Context, p *Pending, r Resolution, device string) {
	p.deliver(r)
	s.releaseClaim(p.PlayerID)
	if s.metrics != nil {
		s.metrics.ApprovalsResolved.WithLabelValues(string(r)).Inc()
	}
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			PlayerID: p.PlayerID.String(),
			Action:   audit.ActionApprovalResolved,
			Reason:   string(r),
			Device:   device,
		})
	}
}

func (s *Service) releaseClaim(id identity.PlayerID) {
	if err := s.claims.Release(context.Background(), id); err != nil {
		s.logger.Warn("dispatch claim release failed", "player_id", id, "error", err)
	}
}
