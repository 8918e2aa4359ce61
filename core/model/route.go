package model

import "time"

// RouteStatus is the lifecycle of an allocation result.
type RouteStatus string

const (
	RouteAllocated RouteStatus = "ALLOCATED"
	RouteActive    RouteStatus = "ACTIVE"
	RouteCompleted RouteStatus = "COMPLETED"
	RouteMerged    RouteStatus = "MERGED"
)

// Route binds a set of deliveries to one truck and driver.
type Route struct {
	ID          string      `json:"id"`
	CompanyID   string      `json:"company_id"`
	TruckID     string      `json:"truck_id"`
	DriverID    string      `json:"driver_id"`
	DeliveryIDs []string    `json:"delivery_ids"`
	TotalWeight float64     `json:"total_weight"`
	TotalVolume float64     `json:"total_volume"`
	Utilization float64     `json:"utilization"`
	Status      RouteStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Driver carries the cumulative workload used to rank relay assignments.
type Driver struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	TruckID          string  `json:"truck_id"`
	TotalDistanceKm  float64 `json:"total_distance_km"`
	TotalHoursWorked float64 `json:"total_hours_worked"`
}

// Workload sums distance and hours as-is. The units differ on purpose.
func (d Driver) Workload() float64 {
	return d.TotalDistanceKm + d.TotalHoursWorked
}
