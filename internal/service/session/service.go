package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerava/arrival/internal/adapter/queue"
	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/observability/telemetry"
	"github.com/nerava/arrival/internal/ports"
)

// StatusSubject is the queue subject carrying session status change events,
// consumed by the websocket bridge and the analytics sink.
const StatusSubject = "arrival.session.status"

// Service implements ports.SessionService
type Service struct {
	repo     ports.SessionRepository
	billing  ports.BillingService
	geo      ports.GeoService
	notifier ports.Notifier
	mq       queue.MessageQueue
	config   *domain.ArrivalConfig
	log      *zap.Logger
}

// NewService creates a new arrival session service
func NewService(
	repo ports.SessionRepository,
	billing ports.BillingService,
	geo ports.GeoService,
	notifier ports.Notifier,
	mq queue.MessageQueue,
	config *domain.ArrivalConfig,
	log *zap.Logger,
) *Service {
	if config == nil {
		config = domain.DefaultArrivalConfig()
	}

	return &Service{
		repo:     repo,
		billing:  billing,
		geo:      geo,
		notifier: notifier,
		mq:       mq,
		config:   config,
		log:      log,
	}
}

// Create opens a new arrival session in pending_order
func (s *Service) Create(ctx context.Context, req *ports.CreateSessionRequest) (*domain.ArrivalSession, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	charger, err := s.geo.GetCharger(ctx, req.ChargerID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up charger: %w", err)
	}
	if charger == nil {
		return nil, fmt.Errorf("charger not found: %s", req.ChargerID)
	}

	// One non-terminal session per driver. The uniqueness check is scoped
	// to (driver_id, non-terminal statuses) at creation time.
	active, err := s.repo.FindActiveByDriverID(ctx, req.DriverID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}
	if active != nil {
		return nil, domain.ErrConflict
	}

	// Daily cap, computed from existing rows since the configured
	// day-boundary midnight. Canceled and expired sessions do not count.
	now := time.Now()
	count, err := s.repo.CountCompletedSince(ctx, req.DriverID, s.config.DayStart(now))
	if err != nil {
		return nil, fmt.Errorf("failed to check daily cap: %w", err)
	}
	if count >= s.config.DailySessionCap {
		return nil, domain.ErrRateLimited
	}

	session := &domain.ArrivalSession{
		ID:          uuid.New().String(),
		DriverID:    req.DriverID,
		MerchantID:  req.MerchantID,
		ChargerID:   req.ChargerID,
		Status:      domain.ArrivalStatusPendingOrder,
		ArrivalType: req.ArrivalType,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.config.SessionTTL),
	}

	if err := s.repo.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	telemetry.SessionsCreated.WithLabelValues(string(req.ArrivalType)).Inc()
	telemetry.ActiveSessions.Inc()

	s.log.Info("Arrival session created",
		zap.String("session_id", session.ID),
		zap.String("driver_id", req.DriverID),
		zap.String("merchant_id", req.MerchantID),
		zap.String("charger_id", req.ChargerID),
		zap.Time("expires_at", session.ExpiresAt),
	)

	s.publishStatus(session)
	return session, nil
}

func (s *Service) validateCreate(req *ports.CreateSessionRequest) error {
	if req.DriverID == "" {
		return fmt.Errorf("driver ID is required")
	}
	if req.MerchantID == "" {
		return fmt.Errorf("merchant ID is required")
	}
	if req.ChargerID == "" {
		return fmt.Errorf("charger ID is required")
	}
	if req.ArrivalType != domain.ArrivalTypeCurbside && req.ArrivalType != domain.ArrivalTypeDineIn {
		return fmt.Errorf("invalid arrival type: %s", req.ArrivalType)
	}
	return nil
}

// BindOrder attaches an order to the session and moves it to awaiting_arrival
func (s *Service) BindOrder(ctx context.Context, sessionID, orderNumber string, estimatedTotalCents *int64) (*domain.ArrivalSession, error) {
	if orderNumber == "" {
		return nil, fmt.Errorf("order number is required")
	}

	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}

	ok, err := s.repo.TransitionStatus(ctx, sessionID,
		[]domain.ArrivalStatus{domain.ArrivalStatusPendingOrder},
		domain.ArrivalStatusAwaitingArrival,
		&ports.SessionUpdate{
			OrderNumber:         &orderNumber,
			EstimatedTotalCents: estimatedTotalCents,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bind order: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidState
	}

	session.Status = domain.ArrivalStatusAwaitingArrival
	session.OrderNumber = orderNumber
	session.EstimatedTotalCents = estimatedTotalCents

	s.log.Info("Order bound to arrival session",
		zap.String("session_id", sessionID),
		zap.String("order_number", orderNumber),
	)

	s.publishStatus(session)
	return session, nil
}

// ConfirmArrival validates the geofence per mode and advances the session to
// arrived, then merchant_notified once the notification dispatch is accepted.
func (s *Service) ConfirmArrival(ctx context.Context, req *ports.ConfirmArrivalRequest) (*domain.ArrivalSession, error) {
	session, err := s.repo.FindByID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}

	accuracy, err := s.checkGeofence(ctx, session, req)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.TransitionStatus(ctx, req.SessionID,
		[]domain.ArrivalStatus{domain.ArrivalStatusAwaitingArrival},
		domain.ArrivalStatusArrived,
		&ports.SessionUpdate{
			ConfirmMode:      &req.Mode,
			ArrivalAccuracyM: accuracy,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm arrival: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidState
	}

	session.Status = domain.ArrivalStatusArrived
	session.ConfirmMode = req.Mode
	session.ArrivalAccuracyM = accuracy

	if accuracy != nil {
		telemetry.ArrivalAccuracy.Observe(*accuracy)
	}

	s.log.Info("Arrival confirmed",
		zap.String("session_id", session.ID),
		zap.String("mode", string(req.Mode)),
		zap.Float64p("accuracy_m", accuracy),
	)
	s.publishStatus(session)

	// Notification is dispatched only after the arrived transition has
	// committed. A failed dispatch leaves the session at arrived; it is
	// never rolled back.
	s.notifyMerchant(ctx, session)
	return session, nil
}

// checkGeofence resolves the arrival accuracy for a confirmation request.
// A nil accuracy with a nil error means a user-attested confirmation with no
// usable location.
func (s *Service) checkGeofence(ctx context.Context, session *domain.ArrivalSession, req *ports.ConfirmArrivalRequest) (*float64, error) {
	switch req.Mode {
	case domain.ConfirmModeNative:
		if req.Location == nil {
			return nil, fmt.Errorf("location is required for native confirmation")
		}
		charger, err := s.geo.GetCharger(ctx, session.ChargerID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up charger: %w", err)
		}
		if charger == nil {
			return nil, fmt.Errorf("charger not found: %s", session.ChargerID)
		}
		dist := req.Location.DistanceToM(charger)
		if dist > s.config.ConfirmRadiusM {
			return nil, domain.ErrTooFar
		}
		return &dist, nil

	case domain.ConfirmModeWebManual:
		if req.Location == nil {
			return nil, nil
		}
		charger, err := s.geo.NearestCharger(ctx, req.Location.Latitude, req.Location.Longitude, s.config.LookupRadiusM)
		if err != nil {
			return nil, fmt.Errorf("failed to look up nearest charger: %w", err)
		}
		if charger == nil {
			// Location given but no charger in range: accept the
			// attestation, record accuracy as unknown.
			return nil, nil
		}
		dist := req.Location.DistanceToM(charger)
		if dist > s.config.ConfirmRadiusM {
			return nil, domain.ErrTooFar
		}
		return &dist, nil

	default:
		return nil, fmt.Errorf("invalid confirmation mode: %s", req.Mode)
	}
}

func (s *Service) notifyMerchant(ctx context.Context, session *domain.ArrivalSession) {
	if s.notifier != nil {
		if err := s.notifier.NotifyMerchantArrival(ctx, session); err != nil {
			s.log.Warn("Failed to dispatch merchant notification, session stays at arrived",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
			return
		}
	}

	ok, err := s.repo.TransitionStatus(ctx, session.ID,
		[]domain.ArrivalStatus{domain.ArrivalStatusArrived},
		domain.ArrivalStatusMerchantNotified,
		nil,
	)
	if err != nil {
		s.log.Warn("Failed to mark session merchant_notified",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return
	}
	if ok {
		session.Status = domain.ArrivalStatusMerchantNotified
		s.publishStatus(session)
	}
}

// MerchantConfirm records the merchant's decision and resolves billing.
// A rejection cancels the session; a confirmation completes it, billable or
// not depending on which total sources are present.
func (s *Service) MerchantConfirm(ctx context.Context, sessionID string, confirmed bool, merchantTotalCents *int64) (*domain.ArrivalSession, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}

	if !confirmed {
		return s.Cancel(ctx, sessionID)
	}

	if merchantTotalCents != nil {
		session.MerchantTotalCents = merchantTotalCents
	}

	target := domain.ArrivalStatusUnbillable
	_, _, billable := session.ResolveTotal()
	if billable {
		target = domain.ArrivalStatusCompleted
	}

	now := time.Now()
	ok, err := s.repo.TransitionStatus(ctx, sessionID,
		[]domain.ArrivalStatus{domain.ArrivalStatusArrived, domain.ArrivalStatusMerchantNotified},
		target,
		&ports.SessionUpdate{
			MerchantTotalCents: merchantTotalCents,
			CompletedAt:        &now,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidState
	}

	session.Status = target
	session.CompletedAt = &now
	telemetry.ActiveSessions.Dec()

	if billable {
		// The completion transition has committed; a billing write
		// failure degrades to a warning and a reconciliation pass, it
		// never reverses the completed status.
		if _, err := s.billing.Record(ctx, session, now); err != nil {
			s.log.Error("Failed to record billing event",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	s.log.Info("Merchant confirmed arrival session",
		zap.String("session_id", sessionID),
		zap.String("status", string(target)),
		zap.Bool("billable", billable),
	)

	s.publishStatus(session)
	return session, nil
}

// RecordPOSTotal binds a POS-reported total to a non-terminal session. The
// status is left unchanged; the conditional update only guards against the
// session having already reached a terminal state.
func (s *Service) RecordPOSTotal(ctx context.Context, sessionID string, totalCents int64) error {
	if totalCents < 0 {
		return fmt.Errorf("POS total must not be negative")
	}

	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return domain.ErrNotFound
	}
	if session.IsTerminal() {
		return domain.ErrInvalidState
	}

	ok, err := s.repo.TransitionStatus(ctx, sessionID,
		[]domain.ArrivalStatus{session.Status},
		session.Status,
		&ports.SessionUpdate{POSTotalCents: &totalCents},
	)
	if err != nil {
		return fmt.Errorf("failed to record POS total: %w", err)
	}
	if !ok {
		return domain.ErrInvalidState
	}

	s.log.Info("POS total recorded",
		zap.String("session_id", sessionID),
		zap.Int64("total_cents", totalCents),
	)
	return nil
}

// Cancel moves any non-terminal session to canceled. No billing event is
// ever produced for a canceled session.
func (s *Service) Cancel(ctx context.Context, sessionID string) (*domain.ArrivalSession, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound
	}

	now := time.Now()
	ok, err := s.repo.TransitionStatus(ctx, sessionID,
		domain.NonTerminalStatuses,
		domain.ArrivalStatusCanceled,
		&ports.SessionUpdate{CompletedAt: &now},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel session: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidState
	}

	session.Status = domain.ArrivalStatusCanceled
	session.CompletedAt = &now
	telemetry.ActiveSessions.Dec()

	s.log.Info("Arrival session canceled", zap.String("session_id", sessionID))

	s.publishStatus(session)
	return session, nil
}

// Get retrieves a session by ID
func (s *Service) Get(ctx context.Context, sessionID string) (*domain.ArrivalSession, error) {
	return s.repo.FindByID(ctx, sessionID)
}

// GetActive retrieves the driver's current non-terminal session
func (s *Service) GetActive(ctx context.Context, driverID string) (*domain.ArrivalSession, error) {
	return s.repo.FindActiveByDriverID(ctx, driverID)
}

// publishStatus emits a status change event for the websocket bridge and
// analytics sink. Fire-and-forget: a publish failure is logged and ignored.
func (s *Service) publishStatus(session *domain.ArrivalSession) {
	if s.mq == nil {
		return
	}

	event := map[string]interface{}{
		"session_id":  session.ID,
		"driver_id":   session.DriverID,
		"merchant_id": session.MerchantID,
		"status":      session.Status,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.mq.Publish(StatusSubject, data); err != nil {
		s.log.Warn("Failed to publish session status event",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}
