package model

// RegistrationStatus is the onboarding state of a truck.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "PENDING"
	RegistrationApproved RegistrationStatus = "APPROVED"
	RegistrationRejected RegistrationStatus = "REJECTED"
)

// DefaultCO2PerKm is used when a truck has no emission factor.
const DefaultCO2PerKm = 0.5

// Truck is a vehicle with capacity limits and a live position.
// Nil capacity limits are unbounded and a nil position is unknown.
type Truck struct {
	ID            string             `json:"id"`
	CompanyID     string             `json:"company_id"`
	DriverID      string             `json:"driver_id"`
	Plate         string             `json:"plate"`
	HomeBase      string             `json:"home_base"`
	MaxWeight     *float64           `json:"max_weight,omitempty"`
	MaxVolume     *float64           `json:"max_volume,omitempty"`
	CurrentWeight float64            `json:"current_weight"`
	CurrentVolume float64            `json:"current_volume"`
	Position      *GeoPoint          `json:"position,omitempty"`
	Available     bool               `json:"available"`
	Registration  RegistrationStatus `json:"registration"`
	CO2PerKm      *float64           `json:"co2_per_km,omitempty"`
}

// Eligible reports whether the truck can receive a new route.
func (t Truck) Eligible() bool {
	return t.Available && t.Registration == RegistrationApproved
}

// Fits reports whether a load of the given weight and volume fits on top of
// the provided running totals.
func (t Truck) Fits(weight, volume, addWeight, addVolume float64) bool {
	if t.MaxWeight != nil && weight+addWeight > *t.MaxWeight {
		return false
	}
	if t.MaxVolume != nil && volume+addVolume > *t.MaxVolume {
		return false
	}
	return true
}

// Residual returns the spare weight and volume. Unbounded limits yield
// +Inf.
func (t Truck) Residual() (weight, volume float64) {
	weight, volume = inf, inf
	if t.MaxWeight != nil {
		weight = *t.MaxWeight - t.CurrentWeight
	}
	if t.MaxVolume != nil {
		volume = *t.MaxVolume - t.CurrentVolume
	}
	return weight, volume
}

// EmissionFactor returns the kg CO2 per km of the truck.
func (t Truck) EmissionFactor() float64 {
	if t.CO2PerKm == nil {
		return DefaultCO2PerKm
	}
	return *t.CO2PerKm
}

// Float returns a pointer to v, handy for optional capacity fields.
func Float(v float64) *float64 { return &v }
