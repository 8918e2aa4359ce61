package model

import "time"

// DeliveryStatus tracks a delivery through allocation and transport.
type DeliveryStatus string

const (
	DeliveryPending               DeliveryStatus = "PENDING"
	DeliveryAllocated             DeliveryStatus = "ALLOCATED"
	DeliveryInTransit             DeliveryStatus = "IN_TRANSIT"
	DeliveryDelivered             DeliveryStatus = "DELIVERED"
	DeliveryCancelled             DeliveryStatus = "CANCELLED"
	DeliveryAbsorptionTransferred DeliveryStatus = "ABSORPTION_TRANSFERRED"
)

// Active reports whether the delivery is bound to a truck and not yet
// finished.
func (s DeliveryStatus) Active() bool {
	switch s {
	case DeliveryAllocated, DeliveryInTransit, DeliveryAbsorptionTransferred:
		return true
	}
	return false
}

// Delivery is a single shipment leg.
type Delivery struct {
	ID          string         `json:"id"`
	CompanyID   string         `json:"company_id"`
	Weight      float64        `json:"weight"`
	Volume      float64        `json:"volume"`
	CargoType   string         `json:"cargo_type"`
	WindowStart time.Time      `json:"window_start"`
	Pickup      Stop           `json:"pickup"`
	Drop        Stop           `json:"drop"`
	Status      DeliveryStatus `json:"status"`
	TruckID     string         `json:"truck_id,omitempty"`
	DriverID    string         `json:"driver_id,omitempty"`
	RouteID     string         `json:"route_id,omitempty"`
	DistanceKm  float64        `json:"distance_km"`
}

// DeliveryUpdate describes a bulk update applied to a set of deliveries.
// When From is non-empty only deliveries currently in one of those statuses
// are touched and a short count is reported as a conflict by the store.
type DeliveryUpdate struct {
	From     []DeliveryStatus
	Status   DeliveryStatus
	TruckID  string
	DriverID string
	RouteID  string
}

// Allows reports whether the update guard accepts the given status.
func (u DeliveryUpdate) Allows(s DeliveryStatus) bool {
	if len(u.From) == 0 {
		return true
	}
	for _, f := range u.From {
		if f == s {
			return true
		}
	}
	return false
}
