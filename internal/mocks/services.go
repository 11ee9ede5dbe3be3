package mocks

import (
	"context"
	"time"

	"github.com/nerava/arrival/internal/domain"
)

// MockGeoService is a mock implementation of GeoService
type MockGeoService struct {
	GetChargerFunc     func(ctx context.Context, id string) (*domain.Charger, error)
	NearestChargerFunc func(ctx context.Context, lat, lng, radiusM float64) (*domain.Charger, error)
	NearbyChargersFunc func(ctx context.Context, lat, lng, radiusM float64, limit int) ([]domain.Charger, error)
}

func (m *MockGeoService) GetCharger(ctx context.Context, id string) (*domain.Charger, error) {
	if m.GetChargerFunc != nil {
		return m.GetChargerFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockGeoService) NearestCharger(ctx context.Context, lat, lng, radiusM float64) (*domain.Charger, error) {
	if m.NearestChargerFunc != nil {
		return m.NearestChargerFunc(ctx, lat, lng, radiusM)
	}
	return nil, nil
}

func (m *MockGeoService) NearbyChargers(ctx context.Context, lat, lng, radiusM float64, limit int) ([]domain.Charger, error) {
	if m.NearbyChargersFunc != nil {
		return m.NearbyChargersFunc(ctx, lat, lng, radiusM, limit)
	}
	return []domain.Charger{}, nil
}

// MockBillingService is a mock implementation of BillingService
type MockBillingService struct {
	RecordFunc    func(ctx context.Context, s *domain.ArrivalSession, completedAt time.Time) (*domain.BillingEvent, error)
	GetEventFunc  func(ctx context.Context, sessionID string) (*domain.BillingEvent, error)
	ExportFunc    func(ctx context.Context, from, to time.Time) ([]domain.BillingEvent, error)
	ExportCSVFunc func(ctx context.Context, from, to time.Time) ([]byte, error)
}

func (m *MockBillingService) Record(ctx context.Context, s *domain.ArrivalSession, completedAt time.Time) (*domain.BillingEvent, error) {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, s, completedAt)
	}
	return nil, nil
}

func (m *MockBillingService) GetEvent(ctx context.Context, sessionID string) (*domain.BillingEvent, error) {
	if m.GetEventFunc != nil {
		return m.GetEventFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *MockBillingService) Export(ctx context.Context, from, to time.Time) ([]domain.BillingEvent, error) {
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, from, to)
	}
	return []domain.BillingEvent{}, nil
}

func (m *MockBillingService) ExportCSV(ctx context.Context, from, to time.Time) ([]byte, error) {
	if m.ExportCSVFunc != nil {
		return m.ExportCSVFunc(ctx, from, to)
	}
	return nil, nil
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	NotifyMerchantArrivalFunc func(ctx context.Context, s *domain.ArrivalSession) error
	NotifySessionExpiredFunc  func(ctx context.Context, s *domain.ArrivalSession) error
}

func (m *MockNotifier) NotifyMerchantArrival(ctx context.Context, s *domain.ArrivalSession) error {
	if m.NotifyMerchantArrivalFunc != nil {
		return m.NotifyMerchantArrivalFunc(ctx, s)
	}
	return nil
}

func (m *MockNotifier) NotifySessionExpired(ctx context.Context, s *domain.ArrivalSession) error {
	if m.NotifySessionExpiredFunc != nil {
		return m.NotifySessionExpiredFunc(ctx, s)
	}
	return nil
}
