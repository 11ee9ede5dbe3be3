package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/mocks"
	"github.com/nerava/arrival/internal/ports"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func int64p(v int64) *int64 { return &v }

func testCharger() *domain.Charger {
	return &domain.Charger{
		ID:        "charger-1",
		Name:      "Plaza Supercharger",
		Latitude:  37.7749,
		Longitude: -122.4194,
	}
}

func chargerGeo() *mocks.MockGeoService {
	return &mocks.MockGeoService{
		GetChargerFunc: func(ctx context.Context, id string) (*domain.Charger, error) {
			if id == "charger-1" {
				return testCharger(), nil
			}
			return nil, nil
		},
	}
}

func TestCreate_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	var saved *domain.ArrivalSession

	repo := &mocks.MockSessionRepository{
		SaveFunc: func(ctx context.Context, s *domain.ArrivalSession) error {
			saved = s
			return nil
		},
	}
	mockQueue := mocks.NewMockMessageQueue()

	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mockQueue, nil, newTestLogger())

	// Act
	session, err := service.Create(ctx, &ports.CreateSessionRequest{
		DriverID:    "driver-1",
		MerchantID:  "merchant-1",
		ChargerID:   "charger-1",
		ArrivalType: domain.ArrivalTypeCurbside,
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.Status != domain.ArrivalStatusPendingOrder {
		t.Errorf("expected pending_order, got %s", session.Status)
	}
	if session.ExpiresAt.Before(session.CreatedAt) {
		t.Error("expected expiry after creation")
	}
	if saved == nil {
		t.Fatal("expected session to be saved")
	}
	if got := mockQueue.GetPublishedMessages(StatusSubject); len(got) != 1 {
		t.Errorf("expected 1 status event, got %d", len(got))
	}
}

func TestCreate_ConflictWithActiveSession(t *testing.T) {
	// Arrange
	repo := &mocks.MockSessionRepository{
		FindActiveByDriverIDFunc: func(ctx context.Context, driverID string) (*domain.ArrivalSession, error) {
			return &domain.ArrivalSession{ID: "existing", Status: domain.ArrivalStatusAwaitingArrival}, nil
		},
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	_, err := service.Create(context.Background(), &ports.CreateSessionRequest{
		DriverID:    "driver-1",
		MerchantID:  "merchant-1",
		ChargerID:   "charger-1",
		ArrivalType: domain.ArrivalTypeDineIn,
	})

	// Assert
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCreate_DailyCapReached(t *testing.T) {
	// Arrange
	repo := &mocks.MockSessionRepository{
		CountCompletedSinceFunc: func(ctx context.Context, driverID string, since time.Time) (int, error) {
			return 3, nil
		},
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	_, err := service.Create(context.Background(), &ports.CreateSessionRequest{
		DriverID:    "driver-1",
		MerchantID:  "merchant-1",
		ChargerID:   "charger-1",
		ArrivalType: domain.ArrivalTypeCurbside,
	})

	// Assert
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestCreate_UnknownCharger(t *testing.T) {
	service := NewService(&mocks.MockSessionRepository{}, &mocks.MockBillingService{}, &mocks.MockGeoService{}, &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	_, err := service.Create(context.Background(), &ports.CreateSessionRequest{
		DriverID:    "driver-1",
		MerchantID:  "merchant-1",
		ChargerID:   "charger-unknown",
		ArrivalType: domain.ArrivalTypeCurbside,
	})
	if err == nil {
		t.Fatal("expected an error for unknown charger")
	}
}

func TestBindOrder_Success(t *testing.T) {
	// Arrange
	var capturedUpdate *ports.SessionUpdate
	repo := &mocks.MockSessionRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.ArrivalSession, error) {
			return &domain.ArrivalSession{ID: id, Status: domain.ArrivalStatusPendingOrder}, nil
		},
		TransitionStatusFunc: func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
			if to != domain.ArrivalStatusAwaitingArrival {
				t.Errorf("expected transition to awaiting_arrival, got %s", to)
			}
			capturedUpdate = update
			return true, nil
		},
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	session, err := service.BindOrder(context.Background(), "session-1", "ORD-42", int64p(2500))

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.Status != domain.ArrivalStatusAwaitingArrival {
		t.Errorf("expected awaiting_arrival, got %s", session.Status)
	}
	if capturedUpdate == nil || capturedUpdate.OrderNumber == nil || *capturedUpdate.OrderNumber != "ORD-42" {
		t.Error("expected order number in the update")
	}
	if capturedUpdate.EstimatedTotalCents == nil || *capturedUpdate.EstimatedTotalCents != 2500 {
		t.Error("expected estimated total in the update")
	}
}

func TestBindOrder_WrongState(t *testing.T) {
	repo := &mocks.MockSessionRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.ArrivalSession, error) {
			return &domain.ArrivalSession{ID: id, Status: domain.ArrivalStatusArrived}, nil
		},
		TransitionStatusFunc: func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
			return false, nil
		},
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	_, err := service.BindOrder(context.Background(), "session-1", "ORD-42", nil)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestBindOrder_NotFound(t *testing.T) {
	service := NewService(&mocks.MockSessionRepository{}, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	_, err := service.BindOrder(context.Background(), "missing", "ORD-42", nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func awaitingSessionRepo(transitions *[]domain.ArrivalStatus) *mocks.MockSessionRepository {
	return &mocks.MockSessionRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.ArrivalSession, error) {
			return &domain.ArrivalSession{
				ID:        id,
				DriverID:  "driver-1",
				ChargerID: "charger-1",
				Status:    domain.ArrivalStatusAwaitingArrival,
			}, nil
		},
		TransitionStatusFunc: func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
			*transitions = append(*transitions, to)
			return true, nil
		},
	}
}

func TestConfirmArrival_NativeWithinRadius(t *testing.T) {
	// Arrange
	var transitions []domain.ArrivalStatus
	notified := false

	repo := awaitingSessionRepo(&transitions)
	notifier := &mocks.MockNotifier{
		NotifyMerchantArrivalFunc: func(ctx context.Context, s *domain.ArrivalSession) error {
			notified = true
			return nil
		},
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), notifier, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act: report a fix ~110m from the charger, inside the 250m radius
	session, err := service.ConfirmArrival(context.Background(), &ports.ConfirmArrivalRequest{
		SessionID: "session-1",
		Mode:      domain.ConfirmModeNative,
		Location:  &domain.Location{Latitude: 37.7759, Longitude: -122.4194},
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !notified {
		t.Error("expected merchant notification dispatch")
	}
	if session.Status != domain.ArrivalStatusMerchantNotified {
		t.Errorf("expected merchant_notified, got %s", session.Status)
	}
	if session.ArrivalAccuracyM == nil || *session.ArrivalAccuracyM > 250 {
		t.Error("expected a recorded accuracy within the radius")
	}
	want := []domain.ArrivalStatus{domain.ArrivalStatusArrived, domain.ArrivalStatusMerchantNotified}
	if len(transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, transitions)
	}
}

func TestConfirmArrival_NativeTooFar(t *testing.T) {
	// Arrange
	var transitions []domain.ArrivalStatus
	repo := awaitingSessionRepo(&transitions)
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act: a fix several kilometers away
	_, err := service.ConfirmArrival(context.Background(), &ports.ConfirmArrivalRequest{
		SessionID: "session-1",
		Mode:      domain.ConfirmModeNative,
		Location:  &domain.Location{Latitude: 37.8049, Longitude: -122.4194},
	})

	// Assert
	if !errors.Is(err, domain.ErrTooFar) {
		t.Fatalf("expected ErrTooFar, got %v", err)
	}
	if len(transitions) != 0 {
		t.Errorf("expected no transitions, got %v", transitions)
	}
}

func TestConfirmArrival_NativeRequiresLocation(t *testing.T) {
	var transitions []domain.ArrivalStatus
	repo := awaitingSessionRepo(&transitions)
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	_, err := service.ConfirmArrival(context.Background(), &ports.ConfirmArrivalRequest{
		SessionID: "session-1",
		Mode:      domain.ConfirmModeNative,
	})
	if err == nil {
		t.Fatal("expected an error for native confirmation without location")
	}
}

func TestConfirmArrival_WebManualNoLocation(t *testing.T) {
	// Arrange
	var transitions []domain.ArrivalStatus
	repo := awaitingSessionRepo(&transitions)
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	session, err := service.ConfirmArrival(context.Background(), &ports.ConfirmArrivalRequest{
		SessionID: "session-1",
		Mode:      domain.ConfirmModeWebManual,
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.ArrivalAccuracyM != nil {
		t.Error("expected null accuracy for attested confirmation")
	}
}

func TestConfirmArrival_WebManualNoChargerInRange(t *testing.T) {
	// Arrange: lookup finds nothing within the lookup radius
	var transitions []domain.ArrivalStatus
	repo := awaitingSessionRepo(&transitions)
	geo := &mocks.MockGeoService{
		NearestChargerFunc: func(ctx context.Context, lat, lng, radiusM float64) (*domain.Charger, error) {
			return nil, nil
		},
	}
	service := NewService(repo, &mocks.MockBillingService{}, geo, &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	session, err := service.ConfirmArrival(context.Background(), &ports.ConfirmArrivalRequest{
		SessionID: "session-1",
		Mode:      domain.ConfirmModeWebManual,
		Location:  &domain.Location{Latitude: 40.0, Longitude: -100.0},
	})

	// Assert: attestation accepted, accuracy unknown
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.ArrivalAccuracyM != nil {
		t.Error("expected null accuracy when no charger is in lookup range")
	}
}

func TestConfirmArrival_WebManualTooFarFromFoundCharger(t *testing.T) {
	// Arrange: lookup resolves a charger but the fix is outside the
	// confirm radius
	var transitions []domain.ArrivalStatus
	repo := awaitingSessionRepo(&transitions)
	geo := &mocks.MockGeoService{
		NearestChargerFunc: func(ctx context.Context, lat, lng, radiusM float64) (*domain.Charger, error) {
			return testCharger(), nil
		},
	}
	cfg := domain.DefaultArrivalConfig()
	cfg.ConfirmRadiusM = 100
	service := NewService(repo, &mocks.MockBillingService{}, geo, &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), cfg, newTestLogger())

	// Act: ~330m from the charger
	_, err := service.ConfirmArrival(context.Background(), &ports.ConfirmArrivalRequest{
		SessionID: "session-1",
		Mode:      domain.ConfirmModeWebManual,
		Location:  &domain.Location{Latitude: 37.7779, Longitude: -122.4194},
	})

	// Assert
	if !errors.Is(err, domain.ErrTooFar) {
		t.Fatalf("expected ErrTooFar, got %v", err)
	}
}

func TestConfirmArrival_NotifyFailureStaysArrived(t *testing.T) {
	// Arrange
	var transitions []domain.ArrivalStatus
	repo := awaitingSessionRepo(&transitions)
	notifier := &mocks.MockNotifier{
		NotifyMerchantArrivalFunc: func(ctx context.Context, s *domain.ArrivalSession) error {
			return errors.New("queue down")
		},
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), notifier, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	session, err := service.ConfirmArrival(context.Background(), &ports.ConfirmArrivalRequest{
		SessionID: "session-1",
		Mode:      domain.ConfirmModeWebManual,
	})

	// Assert: the confirmation itself succeeds, the session is not
	// advanced past arrived
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.Status != domain.ArrivalStatusArrived {
		t.Errorf("expected arrived, got %s", session.Status)
	}
	if len(transitions) != 1 || transitions[0] != domain.ArrivalStatusArrived {
		t.Errorf("expected only the arrived transition, got %v", transitions)
	}
}

func TestConfirmArrival_LostRace(t *testing.T) {
	repo := &mocks.MockSessionRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.ArrivalSession, error) {
			return &domain.ArrivalSession{ID: id, Status: domain.ArrivalStatusAwaitingArrival}, nil
		},
		TransitionStatusFunc: func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
			return false, nil
		},
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	_, err := service.ConfirmArrival(context.Background(), &ports.ConfirmArrivalRequest{
		SessionID: "session-1",
		Mode:      domain.ConfirmModeWebManual,
	})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func notifiedSessionRepo(estimated *int64) *mocks.MockSessionRepository {
	return &mocks.MockSessionRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.ArrivalSession, error) {
			return &domain.ArrivalSession{
				ID:                  id,
				DriverID:            "driver-1",
				MerchantID:          "merchant-1",
				Status:              domain.ArrivalStatusMerchantNotified,
				EstimatedTotalCents: estimated,
			}, nil
		},
	}
}

func TestMerchantConfirm_BillableWithMerchantTotal(t *testing.T) {
	// Arrange
	var target domain.ArrivalStatus
	repo := notifiedSessionRepo(nil)
	repo.TransitionStatusFunc = func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
		target = to
		if update.CompletedAt == nil {
			t.Error("expected completed_at in the update")
		}
		return true, nil
	}

	var recorded *domain.ArrivalSession
	billingSvc := &mocks.MockBillingService{
		RecordFunc: func(ctx context.Context, s *domain.ArrivalSession, completedAt time.Time) (*domain.BillingEvent, error) {
			recorded = s
			return &domain.BillingEvent{SessionID: s.ID}, nil
		},
	}
	service := NewService(repo, billingSvc, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	session, err := service.MerchantConfirm(context.Background(), "session-1", true, int64p(2500))

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if target != domain.ArrivalStatusCompleted {
		t.Errorf("expected completed, got %s", target)
	}
	if session.CompletedAt == nil {
		t.Error("expected completed_at set")
	}
	if recorded == nil {
		t.Fatal("expected billing record")
	}
	if recorded.MerchantTotalCents == nil || *recorded.MerchantTotalCents != 2500 {
		t.Error("expected merchant total on the billed session")
	}
}

func TestMerchantConfirm_NoTotalsCompletesUnbillable(t *testing.T) {
	// Arrange
	var target domain.ArrivalStatus
	repo := notifiedSessionRepo(nil)
	repo.TransitionStatusFunc = func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
		target = to
		return true, nil
	}
	billingCalled := false
	billingSvc := &mocks.MockBillingService{
		RecordFunc: func(ctx context.Context, s *domain.ArrivalSession, completedAt time.Time) (*domain.BillingEvent, error) {
			billingCalled = true
			return nil, nil
		},
	}
	service := NewService(repo, billingSvc, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	_, err := service.MerchantConfirm(context.Background(), "session-1", true, nil)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if target != domain.ArrivalStatusUnbillable {
		t.Errorf("expected completed_unbillable, got %s", target)
	}
	if billingCalled {
		t.Error("expected no billing record for an unbillable session")
	}
}

func TestMerchantConfirm_DriverEstimateIsBillable(t *testing.T) {
	// Arrange: only the driver's estimate is present
	var target domain.ArrivalStatus
	repo := notifiedSessionRepo(int64p(1800))
	repo.TransitionStatusFunc = func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
		target = to
		return true, nil
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	_, err := service.MerchantConfirm(context.Background(), "session-1", true, nil)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if target != domain.ArrivalStatusCompleted {
		t.Errorf("expected completed, got %s", target)
	}
}

func TestMerchantConfirm_RejectionCancels(t *testing.T) {
	// Arrange
	var target domain.ArrivalStatus
	repo := notifiedSessionRepo(nil)
	repo.TransitionStatusFunc = func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
		target = to
		return true, nil
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	session, err := service.MerchantConfirm(context.Background(), "session-1", false, nil)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if target != domain.ArrivalStatusCanceled {
		t.Errorf("expected canceled, got %s", target)
	}
	if session.Status != domain.ArrivalStatusCanceled {
		t.Errorf("expected canceled session, got %s", session.Status)
	}
}

func TestMerchantConfirm_BillingFailureKeepsCompletion(t *testing.T) {
	// Arrange
	repo := notifiedSessionRepo(int64p(2000))
	repo.TransitionStatusFunc = func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
		return true, nil
	}
	billingSvc := &mocks.MockBillingService{
		RecordFunc: func(ctx context.Context, s *domain.ArrivalSession, completedAt time.Time) (*domain.BillingEvent, error) {
			return nil, errors.New("db down")
		},
	}
	service := NewService(repo, billingSvc, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	session, err := service.MerchantConfirm(context.Background(), "session-1", true, nil)

	// Assert: the completion is not reversed by a billing write failure
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.Status != domain.ArrivalStatusCompleted {
		t.Errorf("expected completed, got %s", session.Status)
	}
}

func TestRecordPOSTotal_Success(t *testing.T) {
	// Arrange
	var capturedUpdate *ports.SessionUpdate
	repo := &mocks.MockSessionRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.ArrivalSession, error) {
			return &domain.ArrivalSession{ID: id, Status: domain.ArrivalStatusAwaitingArrival}, nil
		},
		TransitionStatusFunc: func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
			if to != domain.ArrivalStatusAwaitingArrival {
				t.Errorf("expected status unchanged, got %s", to)
			}
			capturedUpdate = update
			return true, nil
		},
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	err := service.RecordPOSTotal(context.Background(), "session-1", 3100)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if capturedUpdate == nil || capturedUpdate.POSTotalCents == nil || *capturedUpdate.POSTotalCents != 3100 {
		t.Error("expected POS total in the update")
	}
}

func TestRecordPOSTotal_TerminalSession(t *testing.T) {
	repo := &mocks.MockSessionRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.ArrivalSession, error) {
			return &domain.ArrivalSession{ID: id, Status: domain.ArrivalStatusCompleted}, nil
		},
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	err := service.RecordPOSTotal(context.Background(), "session-1", 3100)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestCancel_Success(t *testing.T) {
	// Arrange
	var fromStatuses []domain.ArrivalStatus
	repo := &mocks.MockSessionRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.ArrivalSession, error) {
			return &domain.ArrivalSession{ID: id, Status: domain.ArrivalStatusPendingOrder}, nil
		},
		TransitionStatusFunc: func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
			fromStatuses = from
			return true, nil
		},
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	session, err := service.Cancel(context.Background(), "session-1")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.Status != domain.ArrivalStatusCanceled {
		t.Errorf("expected canceled, got %s", session.Status)
	}
	if len(fromStatuses) != len(domain.NonTerminalStatuses) {
		t.Errorf("expected guard on all non-terminal statuses, got %v", fromStatuses)
	}
}

func TestCancel_AlreadyTerminal(t *testing.T) {
	repo := &mocks.MockSessionRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.ArrivalSession, error) {
			return &domain.ArrivalSession{ID: id, Status: domain.ArrivalStatusExpired}, nil
		},
		TransitionStatusFunc: func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
			return false, nil
		},
	}
	service := NewService(repo, &mocks.MockBillingService{}, chargerGeo(), &mocks.MockNotifier{}, mocks.NewMockMessageQueue(), nil, newTestLogger())

	_, err := service.Cancel(context.Background(), "session-1")
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}
