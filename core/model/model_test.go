package model

import (
	"errors"
	"math"
	"testing"
)

func TestTruckFits(t *testing.T) {
	tr := Truck{MaxWeight: Float(5)}
	if !tr.Fits(2, 0, 3, 100) {
		t.Fatalf("2+3 should fit in 5 with unbounded volume")
	}
	if tr.Fits(2, 0, 4, 0) {
		t.Fatalf("2+4 should not fit in 5")
	}
	tr.MaxVolume = Float(1)
	if tr.Fits(0, 0, 1, 2) {
		t.Fatalf("volume limit ignored")
	}
}

func TestTruckResidualUnbounded(t *testing.T) {
	w, v := Truck{CurrentWeight: 3}.Residual()
	if !math.IsInf(w, 1) || !math.IsInf(v, 1) {
		t.Fatalf("expected unbounded residual got %v %v", w, v)
	}
	w, _ = Truck{MaxWeight: Float(12), CurrentWeight: 2}.Residual()
	if w != 10 {
		t.Fatalf("expected 10 got %v", w)
	}
}

func TestTruckEmissionFactorDefault(t *testing.T) {
	if f := (Truck{}).EmissionFactor(); f != DefaultCO2PerKm {
		t.Fatalf("expected default factor got %v", f)
	}
	if f := (Truck{CO2PerKm: Float(0.9)}).EmissionFactor(); f != 0.9 {
		t.Fatalf("expected 0.9 got %v", f)
	}
}

func TestOpportunitySide(t *testing.T) {
	o := Opportunity{Route1ID: "r1", Route2ID: "r2"}
	if o.Side("r1") != 1 || o.Side("r2") != 2 || o.Side("r3") != 0 || o.Side("") != 0 {
		t.Fatalf("unexpected side resolution")
	}
}

func TestStatusPredicates(t *testing.T) {
	if DeliveryPending.Active() || !DeliveryAbsorptionTransferred.Active() || DeliveryDelivered.Active() {
		t.Fatalf("delivery Active mismatch")
	}
	if !OpportunityExpired.Terminal() || OpportunityBothAccepted.Terminal() {
		t.Fatalf("opportunity Terminal mismatch")
	}
	if OpportunityBothAccepted.Expirable() || !OpportunityAcceptedByRoute2.Expirable() {
		t.Fatalf("opportunity Expirable mismatch")
	}
}

func TestGeoPointValidate(t *testing.T) {
	if err := (GeoPoint{Lat: 91}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
	if err := (GeoPoint{Lat: 48.85, Lng: 2.35}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
