// Package gate provisions new access records from one-time invite codes.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/audit"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/identity"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/platform/metrics"
	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/platform/sentinel"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/requestcontext"
)

const maxCodeLength = 32

// Service checks a candidate code against the currently-valid set and
// provisions the access record on success. The membership test is stateless:
// redeeming a code does not retire it, so one shared code can provision many
// identities. Retiring codes is the code-set owner's policy, not the gate's.
type Service struct {
	store        access.Store
	fingerprints *identity.Fingerprinter
	auditor      *audit.Publisher
	metrics      *metrics.Metrics
	logger       *slog.Logger

	// codesMu guards codes: the admin surface swaps the set while joins
	// read it.
	codesMu sync.RWMutex
	codes   map[string]struct{}
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

func New(store access.Store, fingerprints *identity.Fingerprinter, validCodes []string, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("access store is required")
	}
	if fingerprints == nil {
		return nil, errors.New("fingerprinter is required")
	}
	codes := make(map[string]struct{}, len(validCodes))
	for _, c := range validCodes {
		codes[c] = struct{}{}
	}
	svc := &Service{
		store:        store,
		fingerprints: fingerprints,
		codes:        codes,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ReplaceCodes swaps the valid code set (admin surface).
func (s *Service) ReplaceCodes(validCodes []string) {
	codes := make(map[string]struct{}, len(validCodes))
	for _, c := range validCodes {
		codes[c] = struct{}{}
	}
	s.codesMu.Lock()
	s.codes = codes
	s.codesMu.Unlock()
}

func (s *Service) validCode(code string) bool {
	s.codesMu.RLock()
	defer s.codesMu.RUnlock()
	_, ok := s.codes[code]
	return ok
}

// Redeem binds displayName to a new access record if the code is currently
// valid. Codes provision new identities only; an already-bound identity is
// rejected regardless of the code.
func (s *Service) Redeem(ctx context.Context, displayName, originAddr, code string) (*access.Record, error) {
	if code == "" || len(code) > maxCodeLength {
		s.rejectRedeem(ctx, displayName, "invalid")
		return nil, dErrors.New(dErrors.CodeInvalidCode, "That code is not valid.")
	}
	// Exact membership only; no prefix or case-folded matching.
	if !s.validCode(code) {
		s.rejectRedeem(ctx, displayName, "invalid")
		return nil, dErrors.New(dErrors.CodeInvalidCode, "That code is not valid.")
	}

	playerID := identity.Resolve(displayName)
	rec := &access.Record{
		PlayerID:          playerID,
		DisplayName:       displayName,
		OriginFingerprint: s.fingerprints.Fingerprint(displayName, originAddr),
		RedeemedCode:      code,
		PaymentState:      access.PaymentUnset,
		CreatedAt:         requestcontext.Now(ctx),
	}

	err := s.store.Create(ctx, rec)
	if errors.Is(err, sentinel.ErrConflict) {
		s.rejectRedeem(ctx, displayName, "already_bound")
		return nil, dErrors.New(dErrors.CodeAlreadyBound, "This name is already registered.")
	}
	if err != nil {
		s.countRedeem("error")
		s.logger.Error("access record create failed", "player_id", playerID, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "Registration is temporarily unavailable.")
	}

	s.countRedeem("created")
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			PlayerID: playerID.String(),
			Action:   audit.ActionCodeRedeemed,
			OriginFP: rec.OriginFingerprint,
		})
	}
	return rec, nil
}

func (s *Service) countRedeem(outcome string) {
	if s.metrics != nil {
		s.metrics.CodesRedeemed.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) rejectRedeem(ctx context.Context, displayName, reason string) {
	s.countRedeem(reason)
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			PlayerID: identity.Resolve(displayName).String(),
			Action:   audit.ActionCodeRejected,
			Reason:   reason,
		})
	}
}
