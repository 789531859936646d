package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Sink receives events. Implementations: InMemoryStore, KafkaSink.
type Sink interface {
	Append(ctx context.Context, ev Event) error
}

const defaultQueueSize = 256

// Publisher captures structured audit events. Emit enqueues and returns
// immediately; a background worker fans each event out to every sink, so a
// slow or unreachable sink never stalls the login or chat path. A failing
// sink is logged and skipped; a full queue drops the event and counts it.
type Publisher struct {
	sinks     []Sink
	logger    *slog.Logger
	queueSize int

	queue   chan Event
	drained chan struct{}
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

type PublisherOption func(*Publisher)

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// WithQueueSize bounds the emit queue.
func WithQueueSize(n int) PublisherOption {
	return func(p *Publisher) { p.queueSize = n }
}

func NewPublisher(sinks []Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sinks: sinks, logger: slog.Default(), queueSize: defaultQueueSize}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = make(chan Event, p.queueSize)
	p.drained = make(chan struct{})
	go p.run()
	return p
}

// Emit enqueues an event for delivery. Never blocks: when the queue is full
// the event is dropped and counted, because callers sit on login/chat hot
// paths.
func (p *Publisher) Emit(_ context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.dropped.Add(1)
		p.logger.Warn("audit queue full, event dropped",
			"action", ev.Action, "player_id", ev.PlayerID)
	}
}

// Dropped reports how many events were discarded because the queue was full
// or the publisher was already closed.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Close stops accepting events and waits for the queue to drain.
func (p *Publisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.drained
}

func (p *Publisher) run() {
	for ev := range p.queue {
		for _, sink := range p.sinks {
			if err := sink.Append(context.Background(), ev); err != nil {
				p.logger.Warn("audit sink append failed",
					"action", ev.Action, "player_id", ev.PlayerID, "error", err)
			}
		}
	}
	close(p.drained)
}
