package clients

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func breakerWithClock(cfg CircuitBreakerConfig, clk *fakeClock) *CircuitBreaker {
	cb := NewCircuitBreaker(cfg)
	cb.now = clk.Now

	return cb
}

func TestCircuitBreaker_InitialState(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 5, Timeout: 30 * time.Second, HalfOpenLimit: 3})

	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestNewCircuitBreaker_RaisesLimits(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State(), "zero MaxFailures behaves as 1")
}

func TestCircuitBreaker_ClosedToOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3, Timeout: 30 * time.Second, HalfOpenLimit: 2})

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3, Timeout: 30 * time.Second, HalfOpenLimit: 2})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	assert.Equal(t, 0, cb.Snapshot().Failures)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenTransitions(t *testing.T) {
	tests := []struct {
		name    string
		probes  func(cb *CircuitBreaker)
		want    State
		allowed bool
	}{
		{
			name:    "enough successes close",
			probes:  func(cb *CircuitBreaker) { cb.RecordSuccess(); cb.Allow(); cb.RecordSuccess() },
			want:    StateClosed,
			allowed: true,
		},
		{
			name:    "one success stays half-open",
			probes:  func(cb *CircuitBreaker) { cb.RecordSuccess() },
			want:    StateHalfOpen,
			allowed: true,
		},
		{
			name:    "any failure reopens",
			probes:  func(cb *CircuitBreaker) { cb.RecordSuccess(); cb.RecordFailure() },
			want:    StateOpen,
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := newFakeClock()
			cb := breakerWithClock(CircuitBreakerConfig{MaxFailures: 1, Timeout: 100 * time.Millisecond, HalfOpenLimit: 2}, clk)

			cb.RecordFailure()
			require.False(t, cb.Allow())

			clk.Advance(150 * time.Millisecond)
			require.True(t, cb.Allow())
			require.Equal(t, StateHalfOpen, cb.State())

			tt.probes(cb)

			assert.Equal(t, tt.want, cb.State())
			assert.Equal(t, tt.allowed, cb.Allow())
		})
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	clk := newFakeClock()
	cb := breakerWithClock(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second, HalfOpenLimit: 2}, clk)

	cb.RecordFailure()
	clk.Advance(time.Second)

	assert.True(t, cb.Allow())
	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow(), "third concurrent probe is rejected")
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	type transition struct{ from, to State }

	var got []transition

	clk := newFakeClock()
	cb := breakerWithClock(CircuitBreakerConfig{MaxFailures: 1, Timeout: 10 * time.Millisecond, HalfOpenLimit: 1}, clk)
	cb.OnStateChange(func(from, to State) {
		got = append(got, transition{from, to})
		_ = cb.State() // listener runs outside the lock
	})

	cb.RecordFailure()
	clk.Advance(20 * time.Millisecond)
	cb.Allow()
	cb.RecordSuccess()

	assert.Equal(t, []transition{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}, got)
}

func TestCircuitBreaker_Snapshot(t *testing.T) {
	clk := newFakeClock()
	cb := breakerWithClock(CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Second, HalfOpenLimit: 1}, clk)

	cb.RecordFailure()

	snap := cb.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 1, snap.Failures)
	assert.Equal(t, clk.now, snap.LastFailure)
}

func TestCircuitBreaker_Concurrent(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 100, Timeout: time.Second, HalfOpenLimit: 10})

	var (
		wg     sync.WaitGroup
		allows atomic.Int64
	)

	for range 1000 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if cb.Allow() {
				if allows.Add(1)%2 == 0 {
					cb.RecordSuccess()
				} else {
					cb.RecordFailure()
				}
			}
		}()
	}

	wg.Wait()

	assert.Contains(t, []State{StateClosed, StateOpen, StateHalfOpen}, cb.State())
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}
