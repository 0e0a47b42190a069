// Package geo holds the great-circle math used for map queries, clustering
// and client side map fitting.
package geo

import "math"

const (
	EarthRadiusKM = 6371.0
	EarthRadiusM  = 6371000.0
)

type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether the point is a finite coordinate inside the
// latitude and longitude ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Angle returns the central angle between two points in radians.
func Angle(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func DistanceMeters(a, b Point) float64 { return EarthRadiusM * Angle(a, b) }

func DistanceKM(a, b Point) float64 { return EarthRadiusKM * Angle(a, b) }

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Centroid is the arithmetic mean of the coordinates. It returns the zero
// point for an empty slice.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var c Point
	for _, p := range points {
		c.Lat += p.Lat
		c.Lon += p.Lon
	}
	n := float64(len(points))
	return Point{Lat: c.Lat / n, Lon: c.Lon / n}
}

// Radius is the largest distance in meters from center to any point.
func Radius(center Point, points []Point) float64 {
	var r float64
	for _, p := range points {
		r = math.Max(r, DistanceMeters(center, p))
	}
	return r
}
