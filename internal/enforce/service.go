package enforce

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/audit"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/platform/metrics"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/punish"
	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/platform/sentinel"
)

// Service answers "is this identity banned / muted right now". It is a pure
// read-time check: it never mutates punishment records.
//
// An unreachable punishment store fails closed - the join or message is
// blocked rather than allowed - because enforcement outranks availability.
type Service struct {
	punishments punish.Store
	auditor     *audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
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

func New(punishments punish.Store, opts ...Option) (*Service, error) {
	if punishments == nil {
		return nil, errors.New("punishment store is required")
	}
	svc := &Service{punishments: punishments, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// lookup wraps the store call with latency observation and fail-closed error
// translation. The bool reports whether a record vetoes; err is non-nil only
// for infrastructure failures.
func (s *Service) lookup(ctx context.Context, subject identity.PlayerID, originFP string, kind punish.Kind, at time.Time) (*punish.Record, error) {
	start := time.Now()
	rec, err := s.punishments.ActiveFor(ctx, subject, originFP, kind, at)
	if s.metrics != nil {
		s.metrics.ObserveEnforcement(time.Since(start))
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// BanInterceptor vetoes joins for banned identities. It must be the first
// entry in the join chain.
type BanInterceptor struct {
	svc *Service
}

func NewBanInterceptor(svc *Service) *BanInterceptor { return &BanInterceptor{svc: svc} }

func (b *BanInterceptor) Name() string { return "ban" }

func (b *BanInterceptor) InterceptJoin(ctx context.Context, ev *JoinEvent) Verdict {
	rec, err := b.svc.lookup(ctx, ev.PlayerID, ev.OriginFP, punish.KindBan, ev.At)
	if err != nil {
		b.svc.logger.Error("ban lookup failed, failing closed",
			"player_id", ev.PlayerID, "error", err)
		return veto(dErrors.CodeUnavailable, "Verification is temporarily unavailable. Try again shortly.")
	}
	if rec == nil {
		return allow()
	}
	if b.svc.metrics != nil {
		b.svc.metrics.BansEnforced.Inc()
	}
	if b.svc.auditor != nil {
		b.svc.auditor.Emit(ctx, audit.Event{
			PlayerID: ev.PlayerID.String(),
			Action:   audit.ActionBanEnforced,
			OriginFP: ev.OriginFP,
			Reason:   rec.Reason,
		})
	}
	return veto(dErrors.CodeBanned, banMessage(rec))
}

// MuteInterceptor suppresses chat from muted identities. It must precede
// every content-based filter in the chat chain.
type MuteInterceptor struct {
	svc *Service
}

func NewMuteInterceptor(svc *Service) *MuteInterceptor { return &MuteInterceptor{svc: svc} }

func (m *MuteInterceptor) Name() string { return "mute" }

func (m *MuteInterceptor) InterceptChat(ctx context.Context, ev *ChatEvent) Verdict {
	rec, err := m.svc.lookup(ctx, ev.PlayerID, "", punish.KindMute, ev.At)
	if err != nil {
		m.svc.logger.Error("mute lookup failed, failing closed",
			"player_id", ev.PlayerID, "error", err)
		return veto(dErrors.CodeUnavailable, "Chat is temporarily unavailable. Try again shortly.")
	}
	if rec == nil {
		return allow()
	}
	if m.svc.metrics != nil {
		m.svc.metrics.MutesEnforced.Inc()
	}
	if m.svc.auditor != nil {
		m.svc.auditor.Emit(ctx, audit.Event{
			PlayerID: ev.PlayerID.String(),
			Action:   audit.ActionMuteEnforced,
			Reason:   rec.Reason,
		})
	}
	return veto(dErrors.CodeMuted, muteMessage(rec))
}

func banMessage(rec *punish.Record) string {
	msg := "You are banned from this server."
	if rec.Reason != "" {
		msg += " Reason: " + rec.Reason
	}
	if rec.ExpiresAt != nil {
		msg += " Expires: " + rec.ExpiresAt.UTC().Format(time.RFC1123)
	}
	return msg
}

func muteMessage(rec *punish.Record) string {
	msg := "You are muted."
	if rec.Reason != "" {
		msg += " Reason: " + rec.Reason
	}
	if rec.ExpiresAt != nil {
		msg += " Expires: " + rec.ExpiresAt.UTC().Format(time.RFC1123)
	}
	return msg
}
