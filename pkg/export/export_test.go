package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/haulshare/core/geo"
	"github.com/kilianp07/haulshare/core/model"
)

var issued = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestValidityDays(t *testing.T) {
	cases := map[float64]int{0: 1, 1: 1, 199.9: 1, 200: 1, 200.1: 2, 400: 2, 401: 3, 1000: 5}
	for km, want := range cases {
		if got := ValidityDays(km); got != want {
			t.Errorf("ValidityDays(%v) = %d, want %d", km, got, want)
		}
	}
}

func sampleRoute() (model.Route, model.Truck, model.Driver, []model.Delivery) {
	paris := model.GeoPoint{Lat: 48.8566, Lng: 2.3522}
	lyon := model.GeoPoint{Lat: 45.7640, Lng: 4.8357}
	rt := model.Route{ID: "r1", CompanyID: "acme", TruckID: "t1", DriverID: "d1"}
	tr := model.Truck{ID: "t1", Plate: "AB-123-CD"}
	dr := model.Driver{ID: "d1", Name: "Sam Martin"}
	ds := []model.Delivery{
		{ID: "x1", CargoType: "GENERAL", Weight: 2, Volume: 1, DistanceKm: 150,
			Pickup: model.Stop{Label: "Rungis"}, Drop: model.Stop{Label: "Orleans"}},
		{ID: "x2", CargoType: "FOOD", Weight: 3, Volume: 2,
			Pickup: model.Stop{Point: paris, Label: "Paris"}, Drop: model.Stop{Point: lyon, Label: "Lyon"}},
	}
	return rt, tr, dr, ds
}

func TestBuildManifest(t *testing.T) {
	rt, tr, dr, ds := sampleRoute()
	m := BuildManifest(rt, tr, dr, ds, issued)

	require.Len(t, m.Lines, 2)
	leg := geo.Distance(ds[1].Pickup.Point, ds[1].Drop.Point)
	assert.InDelta(t, leg, m.Lines[1].DistanceKm, 1e-9)
	assert.InDelta(t, 150+leg, m.DistanceKm, 1e-9)
	assert.Equal(t, 5.0, m.TotalWeight)
	assert.Equal(t, 3.0, m.TotalVolume)
	assert.Equal(t, "Sam Martin", m.DriverName)
	assert.Equal(t, "AB-123-CD", m.Plate)
	// 150 km plus roughly 390 km gives three days.
	assert.Equal(t, 3, m.ValidityDays)
	assert.Equal(t, issued.AddDate(0, 0, 3), m.ValidUntil)
}

func TestBuildManifestEmptyRoute(t *testing.T) {
	rt, tr, dr, _ := sampleRoute()
	m := BuildManifest(rt, tr, dr, nil, issued)
	assert.Equal(t, 1, m.ValidityDays)
	assert.Empty(t, m.Lines)
}

func TestWriteJSON(t *testing.T) {
	rt, tr, dr, ds := sampleRoute()
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, BuildManifest(rt, tr, dr, ds, issued)))
	var decoded Manifest
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "r1", decoded.RouteID)
	assert.Len(t, decoded.Lines, 2)
}

func TestWriteCSV(t *testing.T) {
	rt, tr, dr, ds := sampleRoute()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, BuildManifest(rt, tr, dr, ds, issued)))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "route_id", rows[0][0])
	assert.Equal(t, []string{"r1", "t1", "AB-123-CD", "d1", "x1", "GENERAL", "2", "1", "Rungis", "Orleans", "150"}, rows[1][:11])
	assert.Equal(t, "2026-03-05T08:00:00Z", rows[1][11])
}

func TestOpportunitiesGeoJSON(t *testing.T) {
	opps := []model.Opportunity{{
		ID: "o1", HubID: "h1", Status: model.OpportunityPending, CarbonSavedKg: 3.2,
		Center: model.GeoPoint{Lat: 48.85, Lng: 2.35},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, OpportunitiesGeoJSON(opps)))

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, orb.Point{2.35, 48.85}, f.Geometry)
	assert.Equal(t, "o1", f.ID)
	assert.Equal(t, "h1", f.Properties.MustString("hub_id"))
	assert.Equal(t, 3.2, f.Properties.MustFloat64("carbon_saved_kg"))
}

func TestRouteGeoJSON(t *testing.T) {
	rt, _, _, ds := sampleRoute()
	fc := RouteGeoJSON(rt, ds)
	require.Len(t, fc.Features, 2)
	line, ok := fc.Features[1].Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Equal(t, orb.Point{2.3522, 48.8566}, line[0])
	assert.Equal(t, "r1", fc.Features[1].Properties["route_id"])
}
