// Package geo holds the great-circle helpers used for spot proximity.
package geo

import (
	"math"

	"github.com/FACorreiaa/go-fishspots/internal/app/models"
)

// EarthRadiusMeters is the mean Earth radius used for haversine.
const EarthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two points in meters.
func HaversineMeters(a, b models.Coordinates) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	φ1, φ2 := rad(a.Latitude), rad(b.Latitude)
	Δφ := rad(b.Latitude - a.Latitude)
	Δλ := rad(b.Longitude - a.Longitude)
	h := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// OffsetNorth returns the point lying meters due north of c.
// Used by tests and fixtures to place points at an exact distance.
func OffsetNorth(c models.Coordinates, meters float64) models.Coordinates {
	return models.Coordinates{
		Latitude:  c.Latitude + (meters/EarthRadiusMeters)*180/math.Pi,
		Longitude: c.Longitude,
	}
}
