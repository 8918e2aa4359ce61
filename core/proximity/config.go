package proximity

import (
	"fmt"
	"time"

	"github.com/kilianp07/haulshare/core/model"
)

// Config holds the matching radii and opportunity timings.
type Config struct {
	GeofenceKm        float64       `json:"geofence_km"`
	HubRadiusKm       float64       `json:"hub_radius_km"`
	SynergyGeofenceKm float64       `json:"synergy_geofence_km"`
	DefaultCO2PerKm   float64       `json:"default_co2_per_km"`
	Expiry            time.Duration `json:"expiry"`
	MeetOffset        time.Duration `json:"meet_offset"`
	AcceptanceWindow  time.Duration `json:"acceptance_window"`
}

// DefaultConfig returns the standard matching parameters.
func DefaultConfig() Config {
	return Config{
		GeofenceKm:        5,
		HubRadiusKm:       5,
		SynergyGeofenceKm: 10,
		DefaultCO2PerKm:   model.DefaultCO2PerKm,
		Expiry:            time.Hour,
		MeetOffset:        30 * time.Minute,
		AcceptanceWindow:  30 * time.Minute,
	}
}

// SetDefaults fills zero fields with DefaultConfig values.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.GeofenceKm == 0 {
		c.GeofenceKm = d.GeofenceKm
	}
	if c.HubRadiusKm == 0 {
		c.HubRadiusKm = d.HubRadiusKm
	}
	if c.SynergyGeofenceKm == 0 {
		c.SynergyGeofenceKm = d.SynergyGeofenceKm
	}
	if c.DefaultCO2PerKm == 0 {
		c.DefaultCO2PerKm = d.DefaultCO2PerKm
	}
	if c.Expiry == 0 {
		c.Expiry = d.Expiry
	}
	if c.MeetOffset == 0 {
		c.MeetOffset = d.MeetOffset
	}
	if c.AcceptanceWindow == 0 {
		c.AcceptanceWindow = d.AcceptanceWindow
	}
}

// Validate rejects negative radii and durations.
func (c Config) Validate() error {
	if c.GeofenceKm < 0 || c.HubRadiusKm < 0 || c.SynergyGeofenceKm < 0 || c.DefaultCO2PerKm < 0 {
		return fmt.Errorf("matching radii and emission factor must be positive")
	}
	if c.Expiry < 0 || c.MeetOffset < 0 || c.AcceptanceWindow < 0 {
		return fmt.Errorf("matching durations must be positive")
	}
	return nil
}
