package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DefaultBufferSize     = 1024
	DefaultDeliverTimeout = 5 * time.Second
)

// ErrBufferFull is returned by AsyncPublisher.Publish when the event was
// dropped because the delivery buffer is full.
var ErrBufferFull = errors.New("event buffer full, event dropped")

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("event publisher closed")

// AsyncPublisher hands events to a worker goroutine that delivers them to
// next. Publish never waits on next: when the buffer is full the event is
// dropped and counted.
type AsyncPublisher struct {
	next    Publisher
	inbox   chan Event
	timeout time.Duration
	logger  *slog.Logger
	dropped prometheus.Counter
	failed  prometheus.Counter

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type AsyncOption func(*asyncConfig)

type asyncConfig struct {
	size    int
	timeout time.Duration
	logger  *slog.Logger
	reg     prometheus.Registerer
}

func WithBufferSize(n int) AsyncOption {
	return func(c *asyncConfig) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithDeliverTimeout bounds each delivery to next.
func WithDeliverTimeout(d time.Duration) AsyncOption {
	return func(c *asyncConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithAsyncLogger(logger *slog.Logger) AsyncOption {
	return func(c *asyncConfig) {
		c.logger = logger
	}
}

// WithAsyncRegistry registers the drop and failure counters on reg.
func WithAsyncRegistry(reg prometheus.Registerer) AsyncOption {
	return func(c *asyncConfig) {
		c.reg = reg
	}
}

// NewAsyncPublisher starts the delivery worker. Close stops it.
func NewAsyncPublisher(next Publisher, opts ...AsyncOption) *AsyncPublisher {
	cfg := asyncConfig{size: DefaultBufferSize, timeout: DefaultDeliverTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.reg == nil {
		cfg.reg = prometheus.NewRegistry()
	}
	f := promauto.With(cfg.reg)
	p := &AsyncPublisher{
		next:    next,
		inbox:   make(chan Event, cfg.size),
		timeout: cfg.timeout,
		logger:  cfg.logger,
		dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "askdata_events_dropped_total",
			Help: "Events dropped because the delivery buffer was full",
		}),
		failed: f.NewCounter(prometheus.CounterOpts{
			Name: "askdata_events_delivery_failures_total",
			Help: "Events the downstream publisher failed to deliver",
		}),
		done: make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues event without blocking.
func (p *AsyncPublisher) Publish(_ context.Context, event Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		p.dropped.Inc()
		return ErrBufferFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.next.Publish(ctx, event)
		cancel()
		if err != nil {
			p.failed.Inc()
			p.logger.Warn("event delivery failed", "event_type", string(event.Type), "key", event.Key, "error", err)
		}
	}
}

// Close stops accepting events and waits for the buffered ones to be
// delivered or to time out.
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()
	<-p.done
}
