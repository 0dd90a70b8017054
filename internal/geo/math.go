// Package geo provides coordinate projection helpers.
package geo

import "math"

// MaxLat is the latitude clamp of the Web Mercator projection.
const MaxLat = 85.05112878

// LonLatToUnit projects WGS84 Lon/Lat into the unit square [0..1]x[0..1]
// using the Web Mercator projection, with y growing downward so results
// map directly onto image space.
func LonLatToUnit(lon, lat float64) (x, y float64) {
	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	// lon: [-180..180] -> x: [0..1]
	x = (lon + 180.0) / 360.0

	// Mercator projection for latitude
	latRad := lat * (math.Pi / 180.0)
	mercatorY := math.Log(math.Tan((math.Pi / 4.0) + (latRad / 2.0)))

	// mercatorY: [-PI..PI] -> y: [1..0] (inverted for screen space)
	y = (math.Pi - mercatorY) / (2.0 * math.Pi)

	return x, y
}
