// Package geo holds the great-circle helpers used to rank coordinate
// searches.  Everything here is pure and safe for concurrent use.
package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// cellPrecision ≈ ±76m x ±152m; coarse enough to share cache entries
// between requests from the same street corner.
const cellPrecision = 7

// DistanceKm returns the haversine distance between two points given in
// decimal degrees.  Callers must reject invalid coordinates first (see
// ValidCoordinate); the result is never negative for finite input.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	dφ := (lat2 - lat1) * math.Pi / 180
	dλ := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dφ/2)*math.Sin(dφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	// rounding can push a marginally above 1 for antipodal points
	a = math.Min(1, math.Max(0, a))
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// ValidCoordinate reports whether lat/lng are finite and within range.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Cell returns the geohash cell containing the point.
func Cell(lat, lng float64) string {
	return geohash.EncodeWithPrecision(lat, lng, cellPrecision)
}
