package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	fail     bool
	wantOpen bool
	// wantFlip is the expected Change of this step: Opened for a failure,
	// Closed for a success.
	wantFlip bool
}

func run(t *testing.T, b *Breaker, steps []step) {
	t.Helper()
	for i, s := range steps {
		var flipped bool
		if s.fail {
			_, change := b.RecordFailure()
			flipped = change.Opened
		} else {
			_, change := b.RecordSuccess()
			flipped = change.Closed
		}
		require.Equal(t, s.wantOpen, b.IsOpen(), "open state after step %d", i)
		require.Equal(t, s.wantFlip, flipped, "transition reported at step %d", i)
	}
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		steps []step
	}{
		{
			name: "opens on the threshold failure",
			opts: []Option{WithFailureThreshold(3)},
			steps: []step{
				{fail: true},
				{fail: true},
				{fail: true, wantOpen: true, wantFlip: true},
				{fail: true, wantOpen: true},
			},
		},
		{
			name: "success clears the failure streak",
			opts: []Option{WithFailureThreshold(2)},
			steps: []step{
				{fail: true},
				{},
				{fail: true},
				{fail: true, wantOpen: true, wantFlip: true},
			},
		},
		{
			name: "closes after consecutive successes",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{fail: true, wantOpen: true, wantFlip: true},
				{wantOpen: true},
				{wantFlip: true},
			},
		},
		{
			name: "failure while open restarts the success count",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps: []step{
				{fail: true, wantOpen: true, wantFlip: true},
				{wantOpen: true},
				{fail: true, wantOpen: true},
				{wantOpen: true},
				{wantFlip: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run(t, New("interpreter", tt.opts...), tt.steps)
		})
	}
}

func TestBreakerFallbackFlags(t *testing.T) {
	b := New("interpreter", WithFailureThreshold(1))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "interpreter", b.Name())

	useFallback, _ := b.RecordFailure()
	assert.True(t, useFallback)

	usePrimary, _ := b.RecordSuccess()
	assert.False(t, usePrimary, "one success is below the default threshold")
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerAllowsOneTrialPerCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := New("interpreter",
		WithFailureThreshold(1),
		WithCooldown(10*time.Second),
		WithClock(func() time.Time { return now }),
	)
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.False(t, b.Allow(), "open circuit rejects calls inside the cooldown")

	now = now.Add(9 * time.Second)
	assert.False(t, b.Allow())

	now = now.Add(time.Second)
	assert.True(t, b.Allow(), "one trial call after the cooldown")
	assert.False(t, b.Allow(), "only one trial call per cooldown")

	now = now.Add(10 * time.Second)
	assert.True(t, b.Allow())
}
