// Package geo provides geographic utility functions for the itinerary
// planning engine.
//
// All distance calculations use the Haversine formula on WGS-84 coordinates.
// Bearing and direction-scoring functions support the route builder's
// circular-routing heuristics (spec.md §4.2, §4.6.3).
package geo

import (
	"math"

	"github.com/tourloop/planner/internal/model"
)

// ─── Constants ──────────────────────────────────────────────

const (
	// EarthRadiusM is the mean radius of Earth in meters.
	EarthRadiusM = 6_371_000.0
)

// ─── Distance ───────────────────────────────────────────────

// HaversineM returns the great-circle distance between two points in meters.
//
// Complexity: O(1). Symmetric: HaversineM(a, b) == HaversineM(b, a).
func HaversineM(a, b model.Location) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLon*sinLon

	return 2 * EarthRadiusM * math.Asin(math.Sqrt(h))
}

// TravelTimeMinutes converts a great-circle distance (meters) to a travel
// time in minutes, assuming a constant speed in km/h (spec.md §3, §4.6.1).
func TravelTimeMinutes(distanceM float64, speedKmph float64) float64 {
	if speedKmph <= 0 {
		return math.Inf(1)
	}
	return (distanceM / 1000.0 / speedKmph) * 60.0
}

// ─── Bearing ────────────────────────────────────────────────

// Bearing returns the initial compass bearing from a to b, in degrees
// clockwise from north, normalized to [0, 360).
func Bearing(a, b model.Location) float64 {
	lat1 := degToRad(a.Lat)
	lat2 := degToRad(b.Lat)
	dLon := degToRad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	theta := math.Atan2(y, x)
	deg := radToDeg(theta)
	return math.Mod(deg+360.0, 360.0)
}

// BearingDiff returns the normalized absolute difference between two
// bearings, in [0, 180].
func BearingDiff(b1, b2 float64) float64 {
	d := math.Abs(b1 - b2)
	d = math.Mod(d, 360.0)
	if d > 180.0 {
		d = 360.0 - d
	}
	return d
}

// ZigzagScore peaks at d=0 (straight-line continuation) and falls linearly
// to 0 at d=180 (spec.md §4.2).
func ZigzagScore(bPrev, bNow float64) float64 {
	d := BearingDiff(bPrev, bNow)
	return 1.0 - d/180.0
}

// CircularScore peaks at d=90 (right-angle turn, favoring loop-shaped
// routes) and falls linearly toward 0 and 180 (spec.md §4.2).
func CircularScore(bPrev, bNow float64) float64 {
	d := BearingDiff(bPrev, bNow)
	return 1.0 - math.Abs(d-90.0)/90.0
}

// Clamp01 restricts x to [0, 1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// ─── Helpers ────────────────────────────────────────────────

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

func radToDeg(rad float64) float64 {
	return rad * (180.0 / math.Pi)
}
