package billing

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerava/arrival/internal/adapter/queue"
	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/observability/telemetry"
	"github.com/nerava/arrival/internal/ports"
)

// EventSubject is the queue subject carrying newly written billing events,
// consumed by the invoice worker.
const EventSubject = "arrival.billing.event"

// Service implements ports.BillingService
type Service struct {
	repo   ports.BillingRepository
	mq     queue.MessageQueue
	config *domain.BillingConfig
	log    *zap.Logger
}

// NewService creates a new billing service
func NewService(repo ports.BillingRepository, mq queue.MessageQueue, config *domain.BillingConfig, log *zap.Logger) *Service {
	if config == nil {
		config = domain.DefaultBillingConfig()
	}
	return &Service{
		repo:   repo,
		mq:     mq,
		config: config,
		log:    log,
	}
}

// Record resolves the billable total for a completed session and writes the
// billing event. The unique index on session id makes a duplicate call a
// no-op; the first writer wins and later calls return the existing event.
func (s *Service) Record(ctx context.Context, session *domain.ArrivalSession, completedAt time.Time) (*domain.BillingEvent, error) {
	if session == nil {
		return nil, errors.New("session cannot be nil")
	}

	total, source, ok := session.ResolveTotal()
	if !ok {
		return nil, nil
	}

	ev := &domain.BillingEvent{
		ID:              uuid.New().String(),
		SessionID:       session.ID,
		MerchantID:      session.MerchantID,
		DriverID:        session.DriverID,
		OrderTotalCents: total,
		FeeBps:          s.config.FeeBps,
		BillableCents:   domain.BillableCents(total, s.config.FeeBps),
		TotalSource:     source,
		CompletedAt:     completedAt,
		CreatedAt:       time.Now(),
	}

	created, err := s.repo.Create(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("failed to write billing event: %w", err)
	}
	if !created {
		existing, err := s.repo.FindBySessionID(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing billing event: %w", err)
		}
		return existing, nil
	}

	telemetry.BillingEvents.WithLabelValues(string(source)).Inc()

	s.log.Info("Billing event recorded",
		zap.String("session_id", session.ID),
		zap.String("merchant_id", session.MerchantID),
		zap.Int64("order_total_cents", total),
		zap.Int64("billable_cents", ev.BillableCents),
		zap.String("total_source", string(source)),
	)

	s.publishEvent(ev)
	return ev, nil
}

// GetEvent retrieves the billing event for a session, if any
func (s *Service) GetEvent(ctx context.Context, sessionID string) (*domain.BillingEvent, error) {
	return s.repo.FindBySessionID(ctx, sessionID)
}

// Export returns all billing events completed within the period
func (s *Service) Export(ctx context.Context, from, to time.Time) ([]domain.BillingEvent, error) {
	return s.repo.FindByPeriod(ctx, from, to)
}

// ExportCSV renders the period's billing events as CSV, one row per event
func (s *Service) ExportCSV(ctx context.Context, from, to time.Time) ([]byte, error) {
	events, err := s.repo.FindByPeriod(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load billing events: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"event_id", "session_id", "merchant_id", "driver_id", "order_total_cents", "fee_bps", "billable_cents", "total_source", "completed_at"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}

	for _, ev := range events {
		row := []string{
			ev.ID,
			ev.SessionID,
			ev.MerchantID,
			ev.DriverID,
			strconv.FormatInt(ev.OrderTotalCents, 10),
			strconv.FormatInt(ev.FeeBps, 10),
			strconv.FormatInt(ev.BillableCents, 10),
			string(ev.TotalSource),
			ev.CompletedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// publishEvent hands the event to the invoice worker. Fire-and-forget: the
// billing record is already durable, delivery failures only log a warning.
func (s *Service) publishEvent(ev *domain.BillingEvent) {
	if s.mq == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.mq.Publish(EventSubject, data); err != nil {
		s.log.Warn("Failed to publish billing event",
			zap.String("session_id", ev.SessionID),
			zap.Error(err),
		)
	}
}
