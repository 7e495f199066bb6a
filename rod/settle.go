package rod

import (
	"context"
	"sync/atomic"
	"time"
)

// Default DOM stabilization timings.
const (
	DefaultSettleQuiet    = 1500 * time.Millisecond
	DefaultSettleDeadline = 5 * time.Second
)

// SettleReason records what ended a stabilization wait.
type SettleReason string

// Settle reasons.
const (
	SettledQuiet    SettleReason = "quiet"
	SettledDeadline SettleReason = "deadline"
)

// Settler decides when a page has stopped mutating. It starts observing;
// every Observe call restarts the quiet timer, and the page is settled when
// either the quiet timer or the hard deadline fires, whichever comes first.
// Once settled, further observations are ignored.
//
// Observe may be called from any goroutine. Wait must be called once.
type Settler struct {
	quiet    time.Duration
	deadline time.Duration
	events   chan struct{}
	settled  atomic.Bool
}

// NewSettler creates a Settler. Non-positive durations use the defaults.
func NewSettler(quiet, deadline time.Duration) *Settler {
	if quiet <= 0 {
		quiet = DefaultSettleQuiet
	}
	if deadline <= 0 {
		deadline = DefaultSettleDeadline
	}
	return &Settler{
		quiet:    quiet,
		deadline: deadline,
		events:   make(chan struct{}, 1),
	}
}

// Observe records a DOM mutation. It never blocks; bursts of mutations
// between two timer checks coalesce into one.
func (s *Settler) Observe() {
	if s.settled.Load() {
		return
	}
	select {
	case s.events <- struct{}{}:
	default:
	}
}

// Settled reports whether the wait has ended.
func (s *Settler) Settled() bool {
	return s.settled.Load()
}

// Wait blocks until the page settles and reports why. It returns the
// context's error if ctx ends first.
func (s *Settler) Wait(ctx context.Context) (SettleReason, error) {
	quiet := time.NewTimer(s.quiet)
	defer quiet.Stop()
	deadline := time.NewTimer(s.deadline)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-s.events:
			quiet.Reset(s.quiet)
		case <-quiet.C:
			s.settled.Store(true)
			return SettledQuiet, nil
		case <-deadline.C:
			s.settled.Store(true)
			return SettledDeadline, nil
		}
	}
}
