package domain

import (
	"time"
)

// ArrivalStatus represents the status of an arrival session
type ArrivalStatus string

const (
	ArrivalStatusPendingOrder     ArrivalStatus = "pending_order"
	ArrivalStatusAwaitingArrival  ArrivalStatus = "awaiting_arrival"
	ArrivalStatusArrived          ArrivalStatus = "arrived"
	ArrivalStatusMerchantNotified ArrivalStatus = "merchant_notified"
	ArrivalStatusCompleted        ArrivalStatus = "completed"
	ArrivalStatusUnbillable       ArrivalStatus = "completed_unbillable"
	ArrivalStatusExpired          ArrivalStatus = "expired"
	ArrivalStatusCanceled         ArrivalStatus = "canceled"
)

// ArrivalType distinguishes curbside pickup from dine-in arrivals
type ArrivalType string

const (
	ArrivalTypeCurbside ArrivalType = "curbside"
	ArrivalTypeDineIn   ArrivalType = "dine_in"
)

// ConfirmMode is how the driver's arrival was reported
type ConfirmMode string

const (
	ConfirmModeNative    ConfirmMode = "native"     // device-geofenced, location required
	ConfirmModeWebManual ConfirmMode = "web_manual" // user-attested, location optional
)

// NonTerminalStatuses are the statuses a session can still transition out of.
// The order follows the lifecycle chain; transitions are forward-only.
var NonTerminalStatuses = []ArrivalStatus{
	ArrivalStatusPendingOrder,
	ArrivalStatusAwaitingArrival,
	ArrivalStatusArrived,
	ArrivalStatusMerchantNotified,
}

// ArrivalSession tracks one driver's order-ahead-and-arrive lifecycle,
// created on order intent and retained forever for billing and audit.
type ArrivalSession struct {
	ID         string        `json:"id" gorm:"primaryKey"`
	DriverID   string        `json:"driver_id" gorm:"index"`
	MerchantID string        `json:"merchant_id" gorm:"index"`
	ChargerID  string        `json:"charger_id" gorm:"index"`
	Status     ArrivalStatus `json:"status" gorm:"index"`

	ArrivalType ArrivalType `json:"arrival_type"`
	ConfirmMode ConfirmMode `json:"confirm_mode,omitempty"`

	OrderNumber         string `json:"order_number,omitempty"`
	EstimatedTotalCents *int64 `json:"estimated_total_cents,omitempty"`
	MerchantTotalCents  *int64 `json:"merchant_reported_total_cents,omitempty" gorm:"column:merchant_reported_total_cents"`
	POSTotalCents       *int64 `json:"pos_total_cents,omitempty" gorm:"column:pos_total_cents"`

	// ArrivalAccuracyM is the measured distance to the charger at
	// confirmation, in meters. Null when the driver attested arrival
	// without a usable location.
	ArrivalAccuracyM *float64 `json:"arrival_accuracy_m,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   time.Time  `json:"expires_at" gorm:"index"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsTerminal returns true once the session can no longer transition
func (s *ArrivalSession) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// IsTerminal reports whether a status ends the lifecycle
func (st ArrivalStatus) IsTerminal() bool {
	switch st {
	case ArrivalStatusCompleted, ArrivalStatusUnbillable, ArrivalStatusExpired, ArrivalStatusCanceled:
		return true
	}
	return false
}

// CountsTowardDailyCap reports whether a session in this status consumes
// the driver's daily allowance. Canceled and expired sessions do not.
func (st ArrivalStatus) CountsTowardDailyCap() bool {
	return st == ArrivalStatusCompleted || st == ArrivalStatusUnbillable
}

// ArrivalConfig holds the tunables of the arrival session lifecycle.
// The two geofence radii are deliberately independent: the confirm radius
// bounds how close a device-reported fix must be, the lookup radius bounds
// the nearest-charger search used for web confirmations.
type ArrivalConfig struct {
	// ConfirmRadiusM is the maximum distance to the charger for a
	// geofenced arrival confirmation, in meters.
	ConfirmRadiusM float64 `mapstructure:"confirm_radius_m"`

	// LookupRadiusM is the search radius for resolving a charger from a
	// web-manual confirmation location, in meters.
	LookupRadiusM float64 `mapstructure:"lookup_radius_m"`

	// SessionTTL is how long a session may stay non-terminal before the
	// sweeper expires it.
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	// SweepInterval is how often the expiry sweeper runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// DailySessionCap is the number of completed or completed_unbillable
	// sessions a driver may accrue per day before creation is rejected.
	DailySessionCap int `mapstructure:"daily_session_cap"`

	// DayBoundaryTimezone is the IANA timezone whose midnight resets the
	// daily cap. Empty means UTC.
	DayBoundaryTimezone string `mapstructure:"day_boundary_timezone"`
}

// DefaultArrivalConfig returns sensible defaults
func DefaultArrivalConfig() *ArrivalConfig {
	return &ArrivalConfig{
		ConfirmRadiusM:      250,
		LookupRadiusM:       500,
		SessionTTL:          90 * time.Minute,
		SweepInterval:       60 * time.Second,
		DailySessionCap:     3,
		DayBoundaryTimezone: "UTC",
	}
}

// DayStart returns the most recent midnight in the configured timezone.
// Falls back to UTC when the timezone name does not resolve.
func (c *ArrivalConfig) DayStart(now time.Time) time.Time {
	loc := time.UTC
	if c.DayBoundaryTimezone != "" {
		if l, err := time.LoadLocation(c.DayBoundaryTimezone); err == nil {
			loc = l
		}
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
