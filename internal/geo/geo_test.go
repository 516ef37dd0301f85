package geo

import (
	"math"
	"testing"
)

func TestDistanceKmKnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		wantKm                 float64
		tolerance              float64
	}{
		{"sedona to flagstaff", 34.8697, -111.7610, 35.1983, -111.6513, 37.8, 1.0},
		{"london to paris", 51.5074, -0.1278, 48.8566, 2.3522, 343.5, 2.0},
		{"equator quarter turn", 0, 0, 0, 90, 10007.5, 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("DistanceKm() = %.2f, want %.2f ± %.1f", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistanceKmIdenticalPoints(t *testing.T) {
	// Floating point rounding can push the acos argument past 1 for equal
	// points; the result must be 0, never NaN.
	got := DistanceKm(34.8697, -111.7610, 34.8697, -111.7610)
	if math.IsNaN(got) {
		t.Fatal("DistanceKm() returned NaN for identical points")
	}
	if got != 0 {
		t.Errorf("DistanceKm() = %v, want 0", got)
	}
}

func TestDistanceKmVeryClosePoints(t *testing.T) {
	got := DistanceKm(34.8697, -111.7610, 34.8697001, -111.7610001)
	if math.IsNaN(got) {
		t.Fatal("DistanceKm() returned NaN for near-identical points")
	}
	if got < 0 || got > 0.1 {
		t.Errorf("DistanceKm() = %v, want a small non-negative value", got)
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	a := DistanceKm(34.8697, -111.7610, 51.5074, -0.1278)
	b := DistanceKm(51.5074, -0.1278, 34.8697, -111.7610)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("DistanceKm not symmetric: %v vs %v", a, b)
	}
}

func TestDistanceKmAntipodal(t *testing.T) {
	got := DistanceKm(0, 0, 0, 180)
	want := math.Pi * EarthRadiusKm
	if math.Abs(got-want) > 1.0 {
		t.Errorf("DistanceKm() = %.2f, want %.2f", got, want)
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		wantErr  bool
	}{
		{"valid", 34.8697, -111.7610, false},
		{"lat north limit", 90, 0, false},
		{"lat south limit", -90, 0, false},
		{"lng east limit", 0, 180, false},
		{"lng west limit", 0, -180, false},
		{"lat too big", 90.0001, 0, true},
		{"lat too small", -91, 0, true},
		{"lng too big", 0, 180.5, true},
		{"lng too small", 0, -181, true},
		{"lat NaN", math.NaN(), 0, true},
		{"lng NaN", 0, math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lng)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinates(%v, %v) error = %v, wantErr %v", tt.lat, tt.lng, err, tt.wantErr)
			}
		})
	}
}
