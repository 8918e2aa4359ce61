package model

import "time"

// OpportunityStatus is the acceptance state of a consolidation opportunity.
type OpportunityStatus string

const (
	OpportunityPending          OpportunityStatus = "PENDING"
	OpportunityAcceptedByRoute1 OpportunityStatus = "ACCEPTED_BY_ROUTE1"
	OpportunityAcceptedByRoute2 OpportunityStatus = "ACCEPTED_BY_ROUTE2"
	OpportunityBothAccepted     OpportunityStatus = "BOTH_ACCEPTED"
	OpportunityCompleted        OpportunityStatus = "COMPLETED"
	OpportunityExpired          OpportunityStatus = "EXPIRED"
)

// Terminal reports whether no further transition is possible.
func (s OpportunityStatus) Terminal() bool {
	return s == OpportunityCompleted || s == OpportunityExpired
}

// Expirable reports whether the status may still time out.
func (s OpportunityStatus) Expirable() bool {
	switch s {
	case OpportunityPending, OpportunityAcceptedByRoute1, OpportunityAcceptedByRoute2:
		return true
	}
	return false
}

// Opportunity is a detected, negotiable consolidation between two routes.
// Route1 is the absorbing side found by detection.
type Opportunity struct {
	ID                    string            `json:"id"`
	Route1ID              string            `json:"route1_id"`
	Route2ID              string            `json:"route2_id"`
	Truck1ID              string            `json:"truck1_id"`
	Truck2ID              string            `json:"truck2_id"`
	HubID                 string            `json:"hub_id"`
	DistanceSavedKm       float64           `json:"distance_saved_km"`
	CarbonSavedKg         float64           `json:"carbon_saved_kg"`
	Center                GeoPoint          `json:"center"`
	Route1AvailableWeight float64           `json:"route1_available_weight"`
	Route1AvailableVolume float64           `json:"route1_available_volume"`
	Route2RequiredWeight  float64           `json:"route2_required_weight"`
	Route2RequiredVolume  float64           `json:"route2_required_volume"`
	EstimatedMeetAt       time.Time         `json:"estimated_meet_at"`
	AcceptanceDeadline    time.Time         `json:"acceptance_deadline"`
	ExpiresAt             time.Time         `json:"expires_at"`
	AcceptedByRoute1At    *time.Time        `json:"accepted_by_route1_at,omitempty"`
	AcceptedByRoute2At    *time.Time        `json:"accepted_by_route2_at,omitempty"`
	Status                OpportunityStatus `json:"status"`
	CreatedAt             time.Time         `json:"created_at"`
	CompletedAt           *time.Time        `json:"completed_at,omitempty"`
	AssignedDriverID      string            `json:"assigned_driver_id,omitempty"`
}

// Side returns 1 or 2 when routeID is one of the pair, 0 otherwise.
func (o Opportunity) Side(routeID string) int {
	if routeID == "" {
		return 0
	}
	switch routeID {
	case o.Route1ID:
		return 1
	case o.Route2ID:
		return 2
	}
	return 0
}
