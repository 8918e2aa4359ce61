package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kilianp07/haulshare/core/geo"
	"github.com/kilianp07/haulshare/core/model"
)

const truckColumns = `id, company_id, driver_id, plate, home_base, max_weight, max_volume,
	current_weight, current_volume, lat, lng, available, registration, co2_per_km`

type truckRepo struct{ q querier }

func scanTruck(s scanner) (model.Truck, error) {
	var (
		t                         model.Truck
		maxW, maxV, lat, lng, co2 sql.NullFloat64
		available                 int
		reg                       string
	)
	if err := s.Scan(&t.ID, &t.CompanyID, &t.DriverID, &t.Plate, &t.HomeBase, &maxW, &maxV,
		&t.CurrentWeight, &t.CurrentVolume, &lat, &lng, &available, &reg, &co2); err != nil {
		return model.Truck{}, err
	}
	t.MaxWeight = floatPtr(maxW)
	t.MaxVolume = floatPtr(maxV)
	t.CO2PerKm = floatPtr(co2)
	if lat.Valid && lng.Valid {
		t.Position = &model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	t.Available = available != 0
	t.Registration = model.RegistrationStatus(reg)
	return t, nil
}

func (r truckRepo) list(ctx context.Context, query string, args ...any) ([]model.Truck, error) {
	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trucks: %w", err)
	}
	defer rows.Close()
	var out []model.Truck
	for rows.Next() {
		t, err := scanTruck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan truck: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r truckRepo) Get(ctx context.Context, id string) (model.Truck, error) {
	t, err := scanTruck(r.q.queryRow(ctx, `SELECT `+truckColumns+` FROM trucks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Truck{}, fmt.Errorf("truck %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Truck{}, fmt.Errorf("get truck %s: %w", id, err)
	}
	return t, nil
}

func (r truckRepo) Put(ctx context.Context, t model.Truck) error {
	if t.ID == "" {
		return fmt.Errorf("truck id: %w", model.ErrValidation)
	}
	var lat, lng any
	if t.Position != nil {
		lat, lng = t.Position.Lat, t.Position.Lng
	}
	_, err := r.q.exec(ctx, `INSERT INTO trucks (`+truckColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			company_id = excluded.company_id, driver_id = excluded.driver_id,
			plate = excluded.plate, home_base = excluded.home_base,
			max_weight = excluded.max_weight, max_volume = excluded.max_volume,
			current_weight = excluded.current_weight, current_volume = excluded.current_volume,
			lat = excluded.lat, lng = excluded.lng, available = excluded.available,
			registration = excluded.registration, co2_per_km = excluded.co2_per_km`,
		t.ID, t.CompanyID, t.DriverID, t.Plate, t.HomeBase, nullFloat(t.MaxWeight), nullFloat(t.MaxVolume),
		t.CurrentWeight, t.CurrentVolume, lat, lng, boolInt(t.Available), string(t.Registration), nullFloat(t.CO2PerKm))
	if err != nil {
		return fmt.Errorf("put truck %s: %w", t.ID, err)
	}
	return nil
}

func (r truckRepo) ListEligible(ctx context.Context, companyID string) ([]model.Truck, error) {
	return r.list(ctx, `SELECT `+truckColumns+` FROM trucks
		WHERE company_id = ? AND available = 1 AND registration = ? ORDER BY id`,
		companyID, string(model.RegistrationApproved))
}

func (r truckRepo) FindWithin(ctx context.Context, p model.GeoPoint, radiusKm float64) ([]model.Truck, error) {
	clause, args := boundingBox(p.Lat, p.Lng, radiusKm).where("lat", "lng")
	candidates, err := r.list(ctx, `SELECT `+truckColumns+` FROM trucks
		WHERE lat IS NOT NULL AND lng IS NOT NULL AND `+clause+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	out := candidates[:0]
	for _, t := range candidates {
		if geo.Distance(p, *t.Position) <= radiusKm {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r truckRepo) Claim(ctx context.Context, id string) error {
	res, err := r.q.exec(ctx, `UPDATE trucks SET available = 0 WHERE id = ? AND available = 1`, id)
	if err != nil {
		return fmt.Errorf("claim truck %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim truck %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("truck %s already claimed: %w", id, model.ErrStateConflict)
}
