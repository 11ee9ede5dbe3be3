package circuitbreaker

import (
	"testing"
	"time"
)

func newTestBreaker() *Breaker {
	return New(Settings{
		Name:             "test",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Cooldown:         50 * time.Millisecond,
		MaxProbes:        1,
	})
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	// Arrange
	b := newTestBreaker()

	// Act
	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("Allow() before threshold returned %v", err)
		}
		b.Failure()
	}

	// Assert
	if got := b.State(); got != StateOpen {
		t.Errorf("State() = %v, want %v", got, StateOpen)
	}
	if err := b.Allow(); !IsOpen(err) {
		t.Errorf("Allow() while open returned %v, want open error", err)
	}
}

func TestBreaker_SuccessResetsFailureStreak(t *testing.T) {
	// Arrange
	b := newTestBreaker()

	// Act: two failures, a success, then two more failures
	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()
	b.Failure()

	// Assert
	if got := b.State(); got != StateClosed {
		t.Errorf("State() = %v, want %v", got, StateClosed)
	}
}

func TestBreaker_HalfOpenClosesAfterGoodProbes(t *testing.T) {
	// Arrange
	b := newTestBreaker()
	for i := 0; i < 3; i++ {
		b.Failure()
	}
	time.Sleep(60 * time.Millisecond)

	// Act: two successful probes meet the success threshold
	for i := 0; i < 2; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("probe %d rejected: %v", i, err)
		}
		b.Success()
	}

	// Assert
	if got := b.State(); got != StateClosed {
		t.Errorf("State() = %v, want %v", got, StateClosed)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	// Arrange
	b := newTestBreaker()
	for i := 0; i < 3; i++ {
		b.Failure()
	}
	time.Sleep(60 * time.Millisecond)

	// Act
	if err := b.Allow(); err != nil {
		t.Fatalf("probe rejected: %v", err)
	}
	b.Failure()

	// Assert
	if got := b.State(); got != StateOpen {
		t.Errorf("State() = %v, want %v", got, StateOpen)
	}
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	// Arrange
	b := newTestBreaker()
	for i := 0; i < 3; i++ {
		b.Failure()
	}
	time.Sleep(60 * time.Millisecond)

	// Act: first probe holds the only slot
	if err := b.Allow(); err != nil {
		t.Fatalf("first probe rejected: %v", err)
	}
	err := b.Allow()

	// Assert
	if err != ErrTooManyProbes {
		t.Errorf("second probe error = %v, want %v", err, ErrTooManyProbes)
	}
}
