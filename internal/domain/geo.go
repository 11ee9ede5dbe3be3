package domain

import (
	"math"
	"time"
)

// Charger is a known charging location. Non-owning reference data: the
// arrival service reads chargers but never manages their lifecycle.
type Charger struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	Network   string    `json:"network,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Merchant is a participating business near one or more chargers
type Merchant struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone,omitempty"`
	Email            string    `json:"email,omitempty"`
	PushToken        string    `json:"-" gorm:"column:push_token"`
	StripeCustomerID string    `json:"-" gorm:"column:stripe_customer_id"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	ArrivalNote      string    `json:"arrival_note,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Location is a driver-reported coordinate
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

const earthRadiusM = 6371000.0

// DistanceM returns the great-circle distance between two coordinates in
// meters, using the haversine formula.
func DistanceM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusM * 2 * math.Asin(math.Sqrt(a))
}

// DistanceToM returns the distance from a location to a charger in meters
func (l Location) DistanceToM(c *Charger) float64 {
	return DistanceM(l.Latitude, l.Longitude, c.Latitude, c.Longitude)
}
