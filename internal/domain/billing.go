package domain

import (
	"time"
)

// TotalSource identifies which party supplied the authoritative order total
type TotalSource string

const (
	TotalSourcePOS            TotalSource = "pos"
	TotalSourceMerchant       TotalSource = "merchant"
	TotalSourceDriverEstimate TotalSource = "driver_estimate"
)

// BillingEvent is the immutable billing record for one completed session.
// At most one event exists per session; the unique index on SessionID plus
// insert-on-conflict-do-nothing enforces that in the store.
type BillingEvent struct {
	ID         string `json:"id" gorm:"primaryKey"`
	SessionID  string `json:"session_id" gorm:"uniqueIndex"`
	MerchantID string `json:"merchant_id" gorm:"index"`
	DriverID   string `json:"driver_id" gorm:"index"`

	OrderTotalCents int64       `json:"order_total_cents"`
	FeeBps          int64       `json:"fee_bps"`
	BillableCents   int64       `json:"billable_cents"`
	TotalSource     TotalSource `json:"total_source"`

	CompletedAt time.Time `json:"completed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// ResolveTotal picks the billable order total for a session using the fixed
// precedence POS > merchant-reported > driver estimate. The second return is
// false when no source supplied a total.
func (s *ArrivalSession) ResolveTotal() (int64, TotalSource, bool) {
	switch {
	case s.POSTotalCents != nil:
		return *s.POSTotalCents, TotalSourcePOS, true
	case s.MerchantTotalCents != nil:
		return *s.MerchantTotalCents, TotalSourceMerchant, true
	case s.EstimatedTotalCents != nil:
		return *s.EstimatedTotalCents, TotalSourceDriverEstimate, true
	}
	return 0, "", false
}

// BillableCents applies the platform fee in basis points to an order total.
// Integer floor division, never negative.
func BillableCents(totalCents, feeBps int64) int64 {
	if totalCents <= 0 || feeBps <= 0 {
		return 0
	}
	return totalCents * feeBps / 10000
}

// BillingConfig holds billing tunables
type BillingConfig struct {
	// FeeBps is the platform fee charged to merchants, in basis points.
	FeeBps int64 `mapstructure:"fee_bps"`
}

// DefaultBillingConfig returns sensible defaults
func DefaultBillingConfig() *BillingConfig {
	return &BillingConfig{
		FeeBps: 500, // 5%
	}
}
