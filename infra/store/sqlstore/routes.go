package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kilianp07/haulshare/core/model"
)

const routeColumns = `id, company_id, truck_id, driver_id, total_weight, total_volume, utilization, status, created_at`

type routeRepo struct{ q querier }

func scanRoute(s scanner) (model.Route, error) {
	var (
		rt      model.Route
		status  string
		created int64
	)
	if err := s.Scan(&rt.ID, &rt.CompanyID, &rt.TruckID, &rt.DriverID,
		&rt.TotalWeight, &rt.TotalVolume, &rt.Utilization, &status, &created); err != nil {
		return model.Route{}, err
	}
	rt.Status = model.RouteStatus(status)
	rt.CreatedAt = fromMillis(created)
	return rt, nil
}

func (r routeRepo) Create(ctx context.Context, rt model.Route) error {
	if rt.ID == "" {
		return fmt.Errorf("route id: %w", model.ErrValidation)
	}
	_, err := r.q.exec(ctx, `INSERT INTO routes (`+routeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.CompanyID, rt.TruckID, rt.DriverID, rt.TotalWeight, rt.TotalVolume, rt.Utilization,
		string(rt.Status), millis(rt.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("route %s: %w", rt.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("insert route: %w", err)
	}
	return nil
}

func (r routeRepo) deliveryIDs(ctx context.Context, routeID string) ([]string, error) {
	rows, err := r.q.query(ctx, `SELECT id FROM deliveries WHERE route_id = ? ORDER BY id`, routeID)
	if err != nil {
		return nil, fmt.Errorf("route deliveries: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r routeRepo) Get(ctx context.Context, id string) (model.Route, error) {
	rt, err := scanRoute(r.q.queryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Route{}, fmt.Errorf("route %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Route{}, fmt.Errorf("get route %s: %w", id, err)
	}
	if rt.DeliveryIDs, err = r.deliveryIDs(ctx, id); err != nil {
		return model.Route{}, err
	}
	return rt, nil
}

func (r routeRepo) ListByTruck(ctx context.Context, truckID string, status model.RouteStatus) ([]model.Route, error) {
	rows, err := r.q.query(ctx, `SELECT `+routeColumns+` FROM routes WHERE truck_id = ? AND status = ? ORDER BY id`,
		truckID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	var out []model.Route
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan route: %w", err)
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// release the cursor before issuing the per-route queries
	rows.Close()
	for i := range out {
		if out[i].DeliveryIDs, err = r.deliveryIDs(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r routeRepo) SetStatus(ctx context.Context, id string, from, to model.RouteStatus) error {
	res, err := r.q.exec(ctx, `UPDATE routes SET status = ? WHERE id = ? AND status = ?`, string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("set route status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("set route status: %w", err)
	} else if n == 1 {
		return nil
	}
	cur, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("route %s is %s, not %s: %w", id, cur.Status, from, model.ErrStateConflict)
}

type driverRepo struct{ q querier }

func (r driverRepo) Get(ctx context.Context, id string) (model.Driver, error) {
	var d model.Driver
	err := r.q.queryRow(ctx, `SELECT id, name, truck_id, total_distance_km, total_hours_worked FROM drivers WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &d.TruckID, &d.TotalDistanceKm, &d.TotalHoursWorked)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Driver{}, fmt.Errorf("driver %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Driver{}, fmt.Errorf("get driver %s: %w", id, err)
	}
	return d, nil
}

func (r driverRepo) Put(ctx context.Context, d model.Driver) error {
	if d.ID == "" {
		return fmt.Errorf("driver id: %w", model.ErrValidation)
	}
	_, err := r.q.exec(ctx, `INSERT INTO drivers (id, name, truck_id, total_distance_km, total_hours_worked)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, truck_id = excluded.truck_id,
			total_distance_km = excluded.total_distance_km, total_hours_worked = excluded.total_hours_worked`,
		d.ID, d.Name, d.TruckID, d.TotalDistanceKm, d.TotalHoursWorked)
	if err != nil {
		return fmt.Errorf("put driver %s: %w", d.ID, err)
	}
	return nil
}
