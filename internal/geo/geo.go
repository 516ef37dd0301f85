// Package geo implements the great-circle math behind the nearby-nomads
// query. Distances are spherical (no ellipsoid correction); city-scale
// precision is all the app needs.
package geo

import (
	"fmt"
	"math"

	"nomadlinkAPI/internal/apperr"
)

// EarthRadiusKm is the mean Earth radius used for all distances.
const EarthRadiusKm = 6371.0

// ValidateCoordinates checks lat/lng ranges.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("coordinates must be numbers: %w", apperr.ErrInvalidArgument)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]: %w", lat, apperr.ErrInvalidArgument)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]: %w", lng, apperr.ErrInvalidArgument)
	}
	return nil
}

// DistanceKm returns the great-circle distance between two points in km.
// The acos argument is clamped to [-1,1] so coincident points come back as
// exactly 0 instead of NaN from floating-point overshoot.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	cosArg := math.Cos(phi1)*math.Cos(phi2)*math.Cos(dLambda) + math.Sin(phi1)*math.Sin(phi2)
	if cosArg > 1 {
		cosArg = 1
	} else if cosArg < -1 {
		cosArg = -1
	}

	return EarthRadiusKm * math.Acos(cosArg)
}
