package export

import (
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/kilianp07/haulshare/core/model"
)

func point(p model.GeoPoint) orb.Point { return orb.Point{p.Lng, p.Lat} }

// OpportunitiesGeoJSON returns one point feature per opportunity, placed
// at its meeting hub.
func OpportunitiesGeoJSON(opps []model.Opportunity) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, o := range opps {
		f := geojson.NewFeature(point(o.Center))
		f.ID = o.ID
		f.Properties = geojson.Properties{
			"status":            string(o.Status),
			"hub_id":            o.HubID,
			"route1_id":         o.Route1ID,
			"route2_id":         o.Route2ID,
			"distance_saved_km": o.DistanceSavedKm,
			"carbon_saved_kg":   o.CarbonSavedKg,
			"expires_at":        o.ExpiresAt,
		}
		fc.Append(f)
	}
	return fc
}

// RouteGeoJSON returns one pickup to drop line per delivery of a route.
func RouteGeoJSON(rt model.Route, deliveries []model.Delivery) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, d := range deliveries {
		f := geojson.NewFeature(orb.LineString{point(d.Pickup.Point), point(d.Drop.Point)})
		f.ID = d.ID
		f.Properties = geojson.Properties{
			"route_id":   rt.ID,
			"truck_id":   rt.TruckID,
			"cargo_type": d.CargoType,
			"weight":     d.Weight,
			"pickup":     d.Pickup.Label,
			"drop":       d.Drop.Label,
		}
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON encodes a feature collection to w.
func WriteGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	b, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
