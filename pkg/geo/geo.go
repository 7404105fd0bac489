// Package geo provides the small amount of geographic math the camera layer needs.
// Points are orb.Point values in (lon, lat) order, matching the map surface.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Distance calculates the Haversine distance between two points in meters.
func Distance(p1, p2 orb.Point) float64 {
	return orbgeo.DistanceHaversine(p1, p2)
}

// Bearing calculates the initial bearing (forward azimuth) from p1 to p2 in degrees [0,360).
func Bearing(p1, p2 orb.Point) float64 {
	return WrapBearing(orbgeo.Bearing(p1, p2))
}

// NormalizeAngle normalizes an angle difference to the range [-180, 180].
func NormalizeAngle(angleDeg float64) float64 {
	for angleDeg > 180 {
		angleDeg -= 360
	}
	for angleDeg < -180 {
		angleDeg += 360
	}
	return angleDeg
}

// WrapBearing maps any angle onto [0, 360).
func WrapBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Valid reports whether p is a usable WGS84 coordinate.
func Valid(p orb.Point) bool {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
