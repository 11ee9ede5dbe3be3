package mocks

import (
	"context"
	"time"

	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/ports"
)

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	SaveFunc                 func(ctx context.Context, s *domain.ArrivalSession) error
	FindByIDFunc             func(ctx context.Context, id string) (*domain.ArrivalSession, error)
	FindActiveByDriverIDFunc func(ctx context.Context, driverID string) (*domain.ArrivalSession, error)
	FindByDriverIDFunc       func(ctx context.Context, driverID string, limit, offset int) ([]domain.ArrivalSession, error)
	TransitionStatusFunc     func(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error)
	CountCompletedSinceFunc  func(ctx context.Context, driverID string, since time.Time) (int, error)
	ExpireStaleFunc          func(ctx context.Context, now time.Time) ([]domain.ArrivalSession, error)
}

func (m *MockSessionRepository) Save(ctx context.Context, s *domain.ArrivalSession) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, s)
	}
	return nil
}

func (m *MockSessionRepository) FindByID(ctx context.Context, id string) (*domain.ArrivalSession, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockSessionRepository) FindActiveByDriverID(ctx context.Context, driverID string) (*domain.ArrivalSession, error) {
	if m.FindActiveByDriverIDFunc != nil {
		return m.FindActiveByDriverIDFunc(ctx, driverID)
	}
	return nil, nil
}

func (m *MockSessionRepository) FindByDriverID(ctx context.Context, driverID string, limit, offset int) ([]domain.ArrivalSession, error) {
	if m.FindByDriverIDFunc != nil {
		return m.FindByDriverIDFunc(ctx, driverID, limit, offset)
	}
	return []domain.ArrivalSession{}, nil
}

func (m *MockSessionRepository) TransitionStatus(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *ports.SessionUpdate) (bool, error) {
	if m.TransitionStatusFunc != nil {
		return m.TransitionStatusFunc(ctx, id, from, to, update)
	}
	return true, nil
}

func (m *MockSessionRepository) CountCompletedSince(ctx context.Context, driverID string, since time.Time) (int, error) {
	if m.CountCompletedSinceFunc != nil {
		return m.CountCompletedSinceFunc(ctx, driverID, since)
	}
	return 0, nil
}

func (m *MockSessionRepository) ExpireStale(ctx context.Context, now time.Time) ([]domain.ArrivalSession, error) {
	if m.ExpireStaleFunc != nil {
		return m.ExpireStaleFunc(ctx, now)
	}
	return []domain.ArrivalSession{}, nil
}

// MockBillingRepository is a mock implementation of BillingRepository
type MockBillingRepository struct {
	CreateFunc          func(ctx context.Context, ev *domain.BillingEvent) (bool, error)
	FindBySessionIDFunc func(ctx context.Context, sessionID string) (*domain.BillingEvent, error)
	FindByPeriodFunc    func(ctx context.Context, from, to time.Time) ([]domain.BillingEvent, error)
}

func (m *MockBillingRepository) Create(ctx context.Context, ev *domain.BillingEvent) (bool, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ev)
	}
	return true, nil
}

func (m *MockBillingRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.BillingEvent, error) {
	if m.FindBySessionIDFunc != nil {
		return m.FindBySessionIDFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *MockBillingRepository) FindByPeriod(ctx context.Context, from, to time.Time) ([]domain.BillingEvent, error) {
	if m.FindByPeriodFunc != nil {
		return m.FindByPeriodFunc(ctx, from, to)
	}
	return []domain.BillingEvent{}, nil
}

// MockChargerRepository is a mock implementation of ChargerRepository
type MockChargerRepository struct {
	FindByIDFunc    func(ctx context.Context, id string) (*domain.Charger, error)
	FindNearestFunc func(ctx context.Context, lat, lng, radiusM float64) (*domain.Charger, error)
	FindNearbyFunc  func(ctx context.Context, lat, lng, radiusM float64, limit int) ([]domain.Charger, error)
}

func (m *MockChargerRepository) FindByID(ctx context.Context, id string) (*domain.Charger, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockChargerRepository) FindNearest(ctx context.Context, lat, lng, radiusM float64) (*domain.Charger, error) {
	if m.FindNearestFunc != nil {
		return m.FindNearestFunc(ctx, lat, lng, radiusM)
	}
	return nil, nil
}

func (m *MockChargerRepository) FindNearby(ctx context.Context, lat, lng, radiusM float64, limit int) ([]domain.Charger, error) {
	if m.FindNearbyFunc != nil {
		return m.FindNearbyFunc(ctx, lat, lng, radiusM, limit)
	}
	return []domain.Charger{}, nil
}

// MockMerchantRepository is a mock implementation of MerchantRepository
type MockMerchantRepository struct {
	FindByIDFunc func(ctx context.Context, id string) (*domain.Merchant, error)
}

func (m *MockMerchantRepository) FindByID(ctx context.Context, id string) (*domain.Merchant, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}
