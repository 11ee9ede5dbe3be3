package billing

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/mocks"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func int64p(v int64) *int64 { return &v }

func completedSession() *domain.ArrivalSession {
	return &domain.ArrivalSession{
		ID:                 "session-1",
		DriverID:           "driver-1",
		MerchantID:         "merchant-1",
		Status:             domain.ArrivalStatusCompleted,
		MerchantTotalCents: int64p(2500),
	}
}

func TestRecord_WritesEventWithResolvedTotal(t *testing.T) {
	// Arrange
	var created *domain.BillingEvent
	repo := &mocks.MockBillingRepository{
		CreateFunc: func(ctx context.Context, ev *domain.BillingEvent) (bool, error) {
			created = ev
			return true, nil
		},
	}
	mockQueue := mocks.NewMockMessageQueue()
	service := NewService(repo, mockQueue, nil, newTestLogger())

	completedAt := time.Now()

	// Act
	ev, err := service.Record(context.Background(), completedSession(), completedAt)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev == nil || created == nil {
		t.Fatal("expected a billing event")
	}
	if ev.OrderTotalCents != 2500 {
		t.Errorf("expected order total 2500, got %d", ev.OrderTotalCents)
	}
	if ev.FeeBps != 500 {
		t.Errorf("expected default fee 500 bps, got %d", ev.FeeBps)
	}
	// 5% of 2500 is 125
	if ev.BillableCents != 125 {
		t.Errorf("expected billable 125, got %d", ev.BillableCents)
	}
	if ev.TotalSource != domain.TotalSourceMerchant {
		t.Errorf("expected source merchant, got %s", ev.TotalSource)
	}
	if !ev.CompletedAt.Equal(completedAt) {
		t.Error("expected the completion timestamp on the event")
	}
	if got := mockQueue.GetPublishedMessages(EventSubject); len(got) != 1 {
		t.Errorf("expected 1 billing event published, got %d", len(got))
	}
}

func TestRecord_DuplicateReturnsExistingEvent(t *testing.T) {
	// Arrange: the insert loses to an earlier writer
	existing := &domain.BillingEvent{ID: "ev-1", SessionID: "session-1", BillableCents: 125}
	repo := &mocks.MockBillingRepository{
		CreateFunc: func(ctx context.Context, ev *domain.BillingEvent) (bool, error) {
			return false, nil
		},
		FindBySessionIDFunc: func(ctx context.Context, sessionID string) (*domain.BillingEvent, error) {
			return existing, nil
		},
	}
	mockQueue := mocks.NewMockMessageQueue()
	service := NewService(repo, mockQueue, nil, newTestLogger())

	// Act
	ev, err := service.Record(context.Background(), completedSession(), time.Now())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev != existing {
		t.Error("expected the existing event back")
	}
	if got := mockQueue.GetPublishedMessages(EventSubject); len(got) != 0 {
		t.Errorf("expected no republish for a duplicate, got %d", len(got))
	}
}

func TestRecord_NoTotalsIsNoOp(t *testing.T) {
	// Arrange
	createCalled := false
	repo := &mocks.MockBillingRepository{
		CreateFunc: func(ctx context.Context, ev *domain.BillingEvent) (bool, error) {
			createCalled = true
			return true, nil
		},
	}
	service := NewService(repo, mocks.NewMockMessageQueue(), nil, newTestLogger())

	s := &domain.ArrivalSession{ID: "session-1", Status: domain.ArrivalStatusUnbillable}

	// Act
	ev, err := service.Record(context.Background(), s, time.Now())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev != nil {
		t.Error("expected nil event when no total source is present")
	}
	if createCalled {
		t.Error("expected no write when no total source is present")
	}
}

func TestExportCSV(t *testing.T) {
	// Arrange
	completedAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := &mocks.MockBillingRepository{
		FindByPeriodFunc: func(ctx context.Context, from, to time.Time) ([]domain.BillingEvent, error) {
			return []domain.BillingEvent{
				{
					ID:              "ev-1",
					SessionID:       "session-1",
					MerchantID:      "merchant-1",
					DriverID:        "driver-1",
					OrderTotalCents: 2500,
					FeeBps:          500,
					BillableCents:   125,
					TotalSource:     domain.TotalSourcePOS,
					CompletedAt:     completedAt,
				},
			}, nil
		},
	}
	service := NewService(repo, mocks.NewMockMessageQueue(), nil, newTestLogger())

	// Act
	data, err := service.ExportCSV(context.Background(), completedAt.Add(-time.Hour), completedAt.Add(time.Hour))

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "event_id,session_id") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "2500,500,125,pos") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}
