// Package geo holds the distance and cargo compatibility primitives used by
// allocation and matching.
package geo

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/kilianp07/haulshare/core/model"
)

// EarthRadiusKm is the mean Earth radius used for every distance.
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance in km between two points
// given in decimal degrees, using the spherical law of cosines.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180
	c := math.Cos(phi1)*math.Cos(phi2)*math.Cos(dLambda) + math.Sin(phi1)*math.Sin(phi2)
	// rounding can push c slightly past 1 for identical points
	c = math.Max(-1, math.Min(1, c))
	return EarthRadiusKm * math.Acos(c)
}

// Distance is Haversine over model points.
func Distance(a, b model.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// Point converts a model point to an s2 point on the unit sphere.
func Point(p model.GeoPoint) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng))
}

// CapFor returns a spherical cap around center covering radiusKm. The cap
// is slightly enlarged so it can serve as a prefilter for the exact check.
func CapFor(center model.GeoPoint, radiusKm float64) s2.Cap {
	angle := s1.Angle(radiusKm / EarthRadiusKm * 1.001)
	return s2.CapFromCenterAngle(Point(center), angle)
}
