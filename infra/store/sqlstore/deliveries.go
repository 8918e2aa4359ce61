package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kilianp07/haulshare/core/model"
)

const deliveryColumns = `id, company_id, weight, volume, cargo_type, window_start,
	pickup_lat, pickup_lng, pickup_label, drop_lat, drop_lng, drop_label,
	status, truck_id, driver_id, route_id, distance_km`

type deliveryRepo struct{ q querier }

func scanDelivery(s scanner) (model.Delivery, error) {
	var (
		d      model.Delivery
		window int64
		status string
	)
	if err := s.Scan(&d.ID, &d.CompanyID, &d.Weight, &d.Volume, &d.CargoType, &window,
		&d.Pickup.Point.Lat, &d.Pickup.Point.Lng, &d.Pickup.Label,
		&d.Drop.Point.Lat, &d.Drop.Point.Lng, &d.Drop.Label,
		&status, &d.TruckID, &d.DriverID, &d.RouteID, &d.DistanceKm); err != nil {
		return model.Delivery{}, err
	}
	d.WindowStart = fromMillis(window)
	d.Status = model.DeliveryStatus(status)
	return d, nil
}

func (r deliveryRepo) list(ctx context.Context, query string, args ...any) ([]model.Delivery, error) {
	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()
	var out []model.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r deliveryRepo) Get(ctx context.Context, id string) (model.Delivery, error) {
	d, err := scanDelivery(r.q.queryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Delivery{}, fmt.Errorf("delivery %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Delivery{}, fmt.Errorf("get delivery %s: %w", id, err)
	}
	return d, nil
}

func (r deliveryRepo) Put(ctx context.Context, d model.Delivery) error {
	if d.ID == "" {
		return fmt.Errorf("delivery id: %w", model.ErrValidation)
	}
	_, err := r.q.exec(ctx, `INSERT INTO deliveries (`+deliveryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			company_id = excluded.company_id, weight = excluded.weight, volume = excluded.volume,
			cargo_type = excluded.cargo_type, window_start = excluded.window_start,
			pickup_lat = excluded.pickup_lat, pickup_lng = excluded.pickup_lng, pickup_label = excluded.pickup_label,
			drop_lat = excluded.drop_lat, drop_lng = excluded.drop_lng, drop_label = excluded.drop_label,
			status = excluded.status, truck_id = excluded.truck_id, driver_id = excluded.driver_id,
			route_id = excluded.route_id, distance_km = excluded.distance_km`,
		d.ID, d.CompanyID, d.Weight, d.Volume, d.CargoType, millis(d.WindowStart),
		d.Pickup.Point.Lat, d.Pickup.Point.Lng, d.Pickup.Label,
		d.Drop.Point.Lat, d.Drop.Point.Lng, d.Drop.Label,
		string(d.Status), d.TruckID, d.DriverID, d.RouteID, d.DistanceKm)
	if err != nil {
		return fmt.Errorf("put delivery %s: %w", d.ID, err)
	}
	return nil
}

func (r deliveryRepo) ListPending(ctx context.Context, companyID string) ([]model.Delivery, error) {
	return r.list(ctx, `SELECT `+deliveryColumns+` FROM deliveries
		WHERE company_id = ? AND status = ? ORDER BY window_start, id`,
		companyID, string(model.DeliveryPending))
}

var activeStatuses = []any{
	string(model.DeliveryAllocated),
	string(model.DeliveryInTransit),
	string(model.DeliveryAbsorptionTransferred),
}

func (r deliveryRepo) ListActive(ctx context.Context) ([]model.Delivery, error) {
	return r.list(ctx, `SELECT `+deliveryColumns+` FROM deliveries
		WHERE truck_id <> '' AND status IN (`+placeholders(len(activeStatuses))+`) ORDER BY id`,
		activeStatuses...)
}

func (r deliveryRepo) ListActiveByTruck(ctx context.Context, truckID string) ([]model.Delivery, error) {
	args := append([]any{truckID}, activeStatuses...)
	return r.list(ctx, `SELECT `+deliveryColumns+` FROM deliveries
		WHERE truck_id = ? AND status IN (`+placeholders(len(activeStatuses))+`) ORDER BY id`, args...)
}

func (r deliveryRepo) ListByRoute(ctx context.Context, routeID string) ([]model.Delivery, error) {
	return r.list(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE route_id = ? ORDER BY id`, routeID)
}

// UpdateMany applies the update with one statement and compares the
// affected row count with the number of distinct ids.
func (r deliveryRepo) UpdateMany(ctx context.Context, ids []string, u model.DeliveryUpdate) error {
	uniq := make([]any, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			uniq = append(uniq, id)
		}
	}
	if len(uniq) == 0 {
		return nil
	}
	query := `UPDATE deliveries SET status = ?, truck_id = ?, driver_id = ?, route_id = ?
		WHERE id IN (` + placeholders(len(uniq)) + `)`
	args := append([]any{string(u.Status), u.TruckID, u.DriverID, u.RouteID}, uniq...)
	if len(u.From) > 0 {
		query += ` AND status IN (` + placeholders(len(u.From)) + `)`
		for _, s := range u.From {
			args = append(args, string(s))
		}
	}
	res, err := r.q.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update deliveries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update deliveries: %w", err)
	}
	if int(n) != len(uniq) {
		return fmt.Errorf("updated %d of %d deliveries to %s: %w", n, len(uniq), u.Status, model.ErrStateConflict)
	}
	return nil
}
