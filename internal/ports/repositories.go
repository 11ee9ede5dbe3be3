package ports

import (
	"context"
	"time"

	"github.com/nerava/arrival/internal/domain"
)

// SessionUpdate carries the column mutations applied alongside a status
// transition. Nil pointers mean "leave unchanged".
type SessionUpdate struct {
	OrderNumber         *string
	EstimatedTotalCents *int64
	MerchantTotalCents  *int64
	POSTotalCents       *int64
	ConfirmMode         *domain.ConfirmMode
	ArrivalAccuracyM    *float64
	CompletedAt         *time.Time
}

// SessionRepository persists arrival sessions. Every state transition is a
// conditional update guarded by the expected current statuses, so racing
// callers cannot both win: the loser sees zero rows affected.
type SessionRepository interface {
	Save(ctx context.Context, s *domain.ArrivalSession) error
	FindByID(ctx context.Context, id string) (*domain.ArrivalSession, error)
	FindActiveByDriverID(ctx context.Context, driverID string) (*domain.ArrivalSession, error)
	FindByDriverID(ctx context.Context, driverID string, limit, offset int) ([]domain.ArrivalSession, error)

	// TransitionStatus moves the session to a new status only when its
	// current status is one of from. Returns (false, nil) when the guard
	// does not hold.
	TransitionStatus(ctx context.Context, id string, from []domain.ArrivalStatus, to domain.ArrivalStatus, update *SessionUpdate) (bool, error)

	// CountCompletedSince counts the driver's completed and
	// completed_unbillable sessions created at or after the given instant.
	CountCompletedSince(ctx context.Context, driverID string, since time.Time) (int, error)

	// ExpireStale transitions every non-terminal session whose expiry has
	// passed to expired in a single conditional bulk update, and returns
	// the sessions it expired.
	ExpireStale(ctx context.Context, now time.Time) ([]domain.ArrivalSession, error)
}

// BillingRepository persists billing events
type BillingRepository interface {
	// Create inserts the event unless one already exists for the session.
	// Returns false when the session was already billed.
	Create(ctx context.Context, ev *domain.BillingEvent) (bool, error)
	FindBySessionID(ctx context.Context, sessionID string) (*domain.BillingEvent, error)
	FindByPeriod(ctx context.Context, from, to time.Time) ([]domain.BillingEvent, error)
}

// ChargerRepository reads charger reference data
type ChargerRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Charger, error)
	// FindNearest returns the closest charger within radiusM meters of the
	// coordinate, or nil when none qualifies.
	FindNearest(ctx context.Context, lat, lng, radiusM float64) (*domain.Charger, error)
	FindNearby(ctx context.Context, lat, lng, radiusM float64, limit int) ([]domain.Charger, error)
}

// MerchantRepository reads merchant reference data
type MerchantRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Merchant, error)
}

// Cache is a generic string cache with TTL
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}
