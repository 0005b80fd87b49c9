package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalledPublisher blocks every delivery until release is closed or the
// delivery context ends.
type stalledPublisher struct {
	release chan struct{}
	mu      sync.Mutex
	got     []Event
}

func (p *stalledPublisher) Publish(ctx context.Context, e Event) error {
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, e)
	return nil
}

func (p *stalledPublisher) delivered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

func TestAsyncPublisherDoesNotWaitOnDownstream(t *testing.T) {
	next := &stalledPublisher{release: make(chan struct{})}
	reg := prometheus.NewRegistry()
	p := NewAsyncPublisher(next, WithBufferSize(2), WithAsyncRegistry(reg), WithDeliverTimeout(time.Minute))

	start := time.Now()
	// One event is held by the worker, two fill the buffer; the rest are dropped.
	var dropped int
	for range 6 {
		if err := p.Publish(context.Background(), Event{Type: TypeQueryResolved, Key: "k"}); errors.Is(err, ErrBufferFull) {
			dropped++
		}
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.GreaterOrEqual(t, dropped, 3)
	assert.Equal(t, float64(dropped), testutil.ToFloat64(p.dropped))

	close(next.release)
	p.Close()
	assert.Equal(t, 6-dropped, next.delivered(), "buffered events are delivered on close")
}

func TestAsyncPublisherCountsFailedDeliveries(t *testing.T) {
	next := &stalledPublisher{release: make(chan struct{})}
	p := NewAsyncPublisher(next, WithDeliverTimeout(10*time.Millisecond))

	require.NoError(t, p.Publish(context.Background(), Event{Type: TypeQuotaExceeded, Key: "account:1"}))
	p.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(p.failed))
	assert.Zero(t, next.delivered())
}

func TestAsyncPublisherRejectsAfterClose(t *testing.T) {
	p := NewAsyncPublisher(&stalledPublisher{release: make(chan struct{})})
	p.Close()
	p.Close()

	err := p.Publish(context.Background(), Event{Type: TypeQueryResolved})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}
