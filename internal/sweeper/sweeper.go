// Package sweeper demotes access records whose externally-supplied expiry
// has passed. It only reads and demotes; payment events never reach it.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/viniciuscfreitas/primeleague18-sub003/internal/access"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/audit"
	"github.com/viniciuscfreitas/primeleague18-sub003/internal/platform/metrics"
)

// Sweeper periodically flips payment_state to expired for lapsed records.
// It runs as a background goroutine and is safe to stop via its context or
// the Stop method. A sweep failure is logged and retried on the next tick;
// it is never fatal to the hosting process.
type Sweeper struct {
	store    access.Store
	interval time.Duration
	auditor  *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Sweeper) { s.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

// New creates a sweeper but does not start it. Call Start to begin the loop.
func New(store access.Store, interval time.Duration, opts ...Option) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	s := &Sweeper{
		store:    store,
		interval: interval,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the background loop: an immediate sweep on startup, then one
// per interval. The loop exits when ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	s.logger.Info("expiry sweeper started", "interval", s.interval.String())
}

// Stop signals the sweeper to exit and waits for it to finish.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)

	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	if _, err := s.Sweep(ctx, time.Now()); err != nil {
		s.logger.Error("expiry sweep failed, will retry next tick", "error", err)
	}
}

// Sweep demotes every record whose non-nil expiry is before now. Idempotent:
// an immediate re-run is a no-op for already-expired records, and records
// with no expiry are never touched.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	demoted, err := s.store.DemoteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if demoted > 0 {
		s.logger.Info("access records demoted", "count", demoted)
		if s.metrics != nil {
			s.metrics.AccessDemoted.Add(float64(demoted))
		}
		if s.auditor != nil {
			s.auditor.Emit(ctx, audit.Event{
				Action: audit.ActionAccessDemoted,
				Reason: "payment window elapsed",
			})
		}
	}
	return demoted, nil
}
