package model

import "fmt"

// GeoPoint is a WGS84 coordinate in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects coordinates outside the WGS84 range.
func (p GeoPoint) Validate() error {
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: coordinate (%f, %f) out of range", ErrValidation, p.Lat, p.Lng)
	}
	return nil
}

// Stop is a pickup or drop location with its human readable label.
type Stop struct {
	Point GeoPoint `json:"point"`
	Label string   `json:"label"`
}

// Hub is a fixed consolidation point where two trucks can meet.
type Hub struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location GeoPoint `json:"location"`
	RadiusKm float64  `json:"radius_km"`
}
