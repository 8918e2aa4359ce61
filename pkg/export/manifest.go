// Package export turns finalized routes and opportunities into documents:
// a cargo manifest (JSON or CSV) and GeoJSON feature collections.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/kilianp07/haulshare/core/geo"
	"github.com/kilianp07/haulshare/core/model"
)

// KmPerValidityDay is the distance covered by one day of manifest validity.
const KmPerValidityDay = 200

// ManifestLine is one delivery in a manifest.
type ManifestLine struct {
	DeliveryID string  `json:"delivery_id"`
	CargoType  string  `json:"cargo_type"`
	Weight     float64 `json:"weight"`
	Volume     float64 `json:"volume"`
	Pickup     string  `json:"pickup"`
	Drop       string  `json:"drop"`
	DistanceKm float64 `json:"distance_km"`
}

// Manifest is the paper trail of a finalized route.
type Manifest struct {
	RouteID      string         `json:"route_id"`
	CompanyID    string         `json:"company_id"`
	DriverID     string         `json:"driver_id"`
	DriverName   string         `json:"driver_name"`
	TruckID      string         `json:"truck_id"`
	Plate        string         `json:"plate"`
	Lines        []ManifestLine `json:"lines"`
	TotalWeight  float64        `json:"total_weight"`
	TotalVolume  float64        `json:"total_volume"`
	DistanceKm   float64        `json:"distance_km"`
	IssuedAt     time.Time      `json:"issued_at"`
	ValidUntil   time.Time      `json:"valid_until"`
	ValidityDays int            `json:"validity_days"`
}

// ValidityDays returns one day per 200 km, rounded up, at least one.
func ValidityDays(distanceKm float64) int {
	days := int(math.Ceil(distanceKm / KmPerValidityDay))
	if days < 1 {
		return 1
	}
	return days
}

// BuildManifest assembles the manifest of a route. A delivery without a
// recorded distance contributes its pickup to drop great-circle distance.
func BuildManifest(rt model.Route, truck model.Truck, driver model.Driver, deliveries []model.Delivery, now time.Time) Manifest {
	m := Manifest{
		RouteID:    rt.ID,
		CompanyID:  rt.CompanyID,
		DriverID:   driver.ID,
		DriverName: driver.Name,
		TruckID:    truck.ID,
		Plate:      truck.Plate,
		IssuedAt:   now.UTC(),
	}
	for _, d := range deliveries {
		dist := d.DistanceKm
		if dist == 0 {
			dist = geo.Distance(d.Pickup.Point, d.Drop.Point)
		}
		m.Lines = append(m.Lines, ManifestLine{
			DeliveryID: d.ID,
			CargoType:  d.CargoType,
			Weight:     d.Weight,
			Volume:     d.Volume,
			Pickup:     d.Pickup.Label,
			Drop:       d.Drop.Label,
			DistanceKm: dist,
		})
		m.TotalWeight += d.Weight
		m.TotalVolume += d.Volume
		m.DistanceKm += dist
	}
	m.ValidityDays = ValidityDays(m.DistanceKm)
	m.ValidUntil = m.IssuedAt.AddDate(0, 0, m.ValidityDays)
	return m
}

// WriteJSON writes the manifest to w in JSON format.
func WriteJSON(w io.Writer, m Manifest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// WriteCSV writes one row per manifest line. Route, truck and driver are
// repeated on every row.
func WriteCSV(w io.Writer, m Manifest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"route_id", "truck_id", "plate", "driver_id", "delivery_id", "cargo_type",
		"weight", "volume", "pickup", "drop", "distance_km", "valid_until"}); err != nil {
		return err
	}
	for _, l := range m.Lines {
		rec := []string{
			m.RouteID,
			m.TruckID,
			m.Plate,
			m.DriverID,
			l.DeliveryID,
			l.CargoType,
			formatFloat(l.Weight),
			formatFloat(l.Volume),
			l.Pickup,
			l.Drop,
			formatFloat(l.DistanceKm),
			m.ValidUntil.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(math.Round(f*1000)/1000, 'f', -1, 64)
}
