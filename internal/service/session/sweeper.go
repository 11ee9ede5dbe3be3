package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nerava/arrival/internal/adapter/queue"
	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/observability/telemetry"
	"github.com/nerava/arrival/internal/ports"
)

// ExpiredSubject is the queue subject carrying one event per expired session
const ExpiredSubject = "arrival.session.expired"

// Sweeper periodically expires stale arrival sessions. It is a cancellable
// scheduled task with an explicit start/stop lifecycle tied to the process,
// not an ambient goroutine.
type Sweeper struct {
	repo     ports.SessionRepository
	mq       queue.MessageQueue
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a new expiry sweeper
func NewSweeper(repo ports.SessionRepository, mq queue.MessageQueue, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Sweeper{
		repo:     repo,
		mq:       mq,
		interval: interval,
		log:      log,
	}
}

// Start launches the sweep loop. Calling Start on a running sweeper is a
// no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)

	s.log.Info("Expiry sweeper started", zap.Duration("interval", s.interval))
}

// Stop cancels the loop and waits for the in-flight sweep to finish
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.log.Info("Expiry sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass. The bulk conditional update in the repository
// guarantees a session already moved to a terminal state by a concurrent
// request is not overwritten, and that re-sweeping the same rows is a no-op.
// A failed pass is logged and retried on the next tick.
func (s *Sweeper) Sweep(ctx context.Context) {
	expired, err := s.repo.ExpireStale(ctx, time.Now())
	if err != nil {
		s.log.Error("Expiry sweep failed", zap.Error(err))
		return
	}

	for i := range expired {
		s.emitExpired(&expired[i])
	}

	if n := len(expired); n > 0 {
		telemetry.SessionsExpired.Add(float64(n))
		telemetry.ActiveSessions.Sub(float64(n))
	}
}

// emitExpired publishes the observability event for one expired session.
// The transition has already committed; a publish failure never blocks it.
func (s *Sweeper) emitExpired(session *domain.ArrivalSession) {
	if s.mq == nil {
		return
	}

	event := map[string]interface{}{
		"session_id":   session.ID,
		"driver_id":    session.DriverID,
		"merchant_id":  session.MerchantID,
		"charger_id":   session.ChargerID,
		"created_at":   session.CreatedAt.UTC().Format(time.RFC3339),
		"expires_at":   session.ExpiresAt.UTC().Format(time.RFC3339),
		"completed_at": session.CompletedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.mq.Publish(ExpiredSubject, data); err != nil {
		s.log.Warn("Failed to publish session expired event",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}
