package ports

import (
	"context"
	"time"

	"github.com/nerava/arrival/internal/domain"
)

// CreateSessionRequest carries the inputs for opening an arrival session
type CreateSessionRequest struct {
	DriverID    string
	MerchantID  string
	ChargerID   string
	ArrivalType domain.ArrivalType
}

// ConfirmArrivalRequest carries the inputs for an arrival confirmation
type ConfirmArrivalRequest struct {
	SessionID string
	Mode      domain.ConfirmMode
	Location  *domain.Location
}

// SessionService drives the arrival session state machine
type SessionService interface {
	// Create opens a session in pending_order. Fails with ErrConflict
	// when the driver holds a non-terminal session and ErrRateLimited
	// when the daily cap is reached.
	Create(ctx context.Context, req *CreateSessionRequest) (*domain.ArrivalSession, error)

	// BindOrder attaches an order to a pending_order session and moves it
	// to awaiting_arrival.
	BindOrder(ctx context.Context, sessionID, orderNumber string, estimatedTotalCents *int64) (*domain.ArrivalSession, error)

	// ConfirmArrival validates the geofence per mode and advances
	// awaiting_arrival to arrived, then merchant_notified.
	ConfirmArrival(ctx context.Context, req *ConfirmArrivalRequest) (*domain.ArrivalSession, error)

	// MerchantConfirm records the merchant's decision and resolves
	// billing, completing the session.
	MerchantConfirm(ctx context.Context, sessionID string, confirmed bool, merchantTotalCents *int64) (*domain.ArrivalSession, error)

	// RecordPOSTotal binds a POS-reported total to a non-terminal session.
	RecordPOSTotal(ctx context.Context, sessionID string, totalCents int64) error

	// Cancel moves any non-terminal session to canceled.
	Cancel(ctx context.Context, sessionID string) (*domain.ArrivalSession, error)

	Get(ctx context.Context, sessionID string) (*domain.ArrivalSession, error)
	GetActive(ctx context.Context, driverID string) (*domain.ArrivalSession, error)
}

// BillingService resolves billable totals and exposes the export surface
type BillingService interface {
	// Record applies the total-source precedence to a completed session
	// and writes the billing event at most once per session. Returns nil
	// without error when no source supplied a total.
	Record(ctx context.Context, s *domain.ArrivalSession, completedAt time.Time) (*domain.BillingEvent, error)

	GetEvent(ctx context.Context, sessionID string) (*domain.BillingEvent, error)
	Export(ctx context.Context, from, to time.Time) ([]domain.BillingEvent, error)
	ExportCSV(ctx context.Context, from, to time.Time) ([]byte, error)
}

// GeoService resolves chargers near a coordinate
type GeoService interface {
	GetCharger(ctx context.Context, id string) (*domain.Charger, error)
	NearestCharger(ctx context.Context, lat, lng, radiusM float64) (*domain.Charger, error)
	NearbyChargers(ctx context.Context, lat, lng, radiusM float64, limit int) ([]domain.Charger, error)
}

// Notifier dispatches merchant and driver notifications. Dispatch is
// fire-and-forget: implementations enqueue and return; delivery failures are
// logged downstream and never roll back a state transition.
type Notifier interface {
	NotifyMerchantArrival(ctx context.Context, s *domain.ArrivalSession) error
	NotifySessionExpired(ctx context.Context, s *domain.ArrivalSession) error
}
