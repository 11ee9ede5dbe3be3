// Package circuitbreaker guards calls to external providers.
// A breaker opens after consecutive failures, rejects calls for a
// cooldown period, then lets a limited number of probes through
// before fully closing again.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpen is returned while the breaker is rejecting calls.
	ErrOpen = errors.New("circuit breaker is open")
	// ErrTooManyProbes is returned when the half-open probe quota is spent.
	ErrTooManyProbes = errors.New("too many requests while half-open")
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Settings tunes a breaker. Zero values fall back to defaults in New.
type Settings struct {
	Name string

	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold int

	// SuccessThreshold consecutive half-open successes close it.
	SuccessThreshold int

	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration

	// MaxProbes caps concurrent requests allowed while half-open.
	MaxProbes int

	// OnStateChange is invoked outside the breaker lock.
	OnStateChange func(name string, from, to State)
}

// Breaker is a consecutive-failure circuit breaker. Safe for
// concurrent use.
type Breaker struct {
	settings Settings

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time
}

// New builds a Breaker, filling unset Settings fields.
func New(settings Settings) *Breaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.SuccessThreshold <= 0 {
		settings.SuccessThreshold = 2
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 60 * time.Second
	}
	if settings.MaxProbes <= 0 {
		settings.MaxProbes = 1
	}
	return &Breaker{settings: settings}
}

// Name returns the breaker's configured name.
func (b *Breaker) Name() string { return b.settings.Name }

// State reports the current position, promoting open to half-open
// once the cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh(time.Now())
	return b.state
}

// Allow reserves a slot for one call. It returns ErrOpen or
// ErrTooManyProbes when the call must not proceed. On nil error the
// caller must report the outcome via Success or Failure.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(time.Now())

	switch b.state {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.probes >= b.settings.MaxProbes {
			return ErrTooManyProbes
		}
		b.probes++
	}
	return nil
}

// Success records a successful call.
func (b *Breaker) Success() {
	b.mu.Lock()
	var change func()
	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.probes--
		b.successes++
		if b.successes >= b.settings.SuccessThreshold {
			change = b.transition(StateClosed)
		}
	}
	b.mu.Unlock()
	if change != nil {
		change()
	}
}

// Failure records a failed call.
func (b *Breaker) Failure() {
	b.mu.Lock()
	var change func()
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			change = b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.probes--
		change = b.transition(StateOpen)
	}
	b.mu.Unlock()
	if change != nil {
		change()
	}
}

// refresh moves open to half-open after the cooldown. Caller holds mu.
func (b *Breaker) refresh(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.settings.Cooldown {
		if change := b.transition(StateHalfOpen); change != nil {
			// State change callbacks run without the lock; defer to
			// a goroutine so refresh stays callable under mu.
			go change()
		}
	}
}

// transition switches state and returns the notification thunk, or
// nil when no callback is configured. Caller holds mu.
func (b *Breaker) transition(to State) func() {
	from := b.state
	if from == to {
		return nil
	}
	b.state = to
	b.failures = 0
	b.successes = 0
	b.probes = 0
	if to == StateOpen {
		b.openedAt = time.Now()
	}
	cb := b.settings.OnStateChange
	if cb == nil {
		return nil
	}
	name := b.settings.Name
	return func() { cb(name, from, to) }
}

// IsOpen reports whether err came from a rejecting breaker.
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen) || errors.Is(err, ErrTooManyProbes)
}
