package domain

import (
	"math"
	"testing"
)

func TestDistanceM_SamePoint(t *testing.T) {
	if d := DistanceM(37.7749, -122.4194, 37.7749, -122.4194); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestDistanceM_KnownDistance(t *testing.T) {
	// One degree of latitude is roughly 111.2 km
	d := DistanceM(0, 0, 1, 0)
	if math.Abs(d-111195) > 100 {
		t.Errorf("expected ~111195m, got %f", d)
	}
}

func TestDistanceM_ShortRange(t *testing.T) {
	// ~0.001 degrees latitude is roughly 111 meters
	d := DistanceM(37.7749, -122.4194, 37.7759, -122.4194)
	if d < 100 || d > 125 {
		t.Errorf("expected ~111m, got %f", d)
	}
}

func TestLocation_DistanceToM(t *testing.T) {
	loc := Location{Latitude: 37.7749, Longitude: -122.4194}
	charger := &Charger{Latitude: 37.7749, Longitude: -122.4194}

	if d := loc.DistanceToM(charger); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}
