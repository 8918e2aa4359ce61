package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/haulshare/core/model"
)

const oppColumns = `id, route1_id, route2_id, truck1_id, truck2_id, hub_id,
	distance_saved_km, carbon_saved_kg, center_lat, center_lng,
	route1_available_weight, route1_available_volume, route2_required_weight, route2_required_volume,
	estimated_meet_at, acceptance_deadline, expires_at, accepted_by_route1_at, accepted_by_route2_at,
	status, created_at, completed_at, assigned_driver_id`

type oppRepo struct{ q querier }

func scanOpp(s scanner) (model.Opportunity, error) {
	var (
		o                        model.Opportunity
		meet, deadline, exp, crt int64
		acc1, acc2, completed    sql.NullInt64
		status                   string
	)
	if err := s.Scan(&o.ID, &o.Route1ID, &o.Route2ID, &o.Truck1ID, &o.Truck2ID, &o.HubID,
		&o.DistanceSavedKm, &o.CarbonSavedKg, &o.Center.Lat, &o.Center.Lng,
		&o.Route1AvailableWeight, &o.Route1AvailableVolume, &o.Route2RequiredWeight, &o.Route2RequiredVolume,
		&meet, &deadline, &exp, &acc1, &acc2, &status, &crt, &completed, &o.AssignedDriverID); err != nil {
		return model.Opportunity{}, err
	}
	o.EstimatedMeetAt = fromMillis(meet)
	o.AcceptanceDeadline = fromMillis(deadline)
	o.ExpiresAt = fromMillis(exp)
	o.CreatedAt = fromMillis(crt)
	o.AcceptedByRoute1At = timePtr(acc1)
	o.AcceptedByRoute2At = timePtr(acc2)
	o.CompletedAt = timePtr(completed)
	o.Status = model.OpportunityStatus(status)
	return o, nil
}

func oppArgs(o model.Opportunity) []any {
	return []any{o.ID, o.Route1ID, o.Route2ID, o.Truck1ID, o.Truck2ID, o.HubID,
		o.DistanceSavedKm, o.CarbonSavedKg, o.Center.Lat, o.Center.Lng,
		o.Route1AvailableWeight, o.Route1AvailableVolume, o.Route2RequiredWeight, o.Route2RequiredVolume,
		millis(o.EstimatedMeetAt), millis(o.AcceptanceDeadline), millis(o.ExpiresAt),
		nullMillis(o.AcceptedByRoute1At), nullMillis(o.AcceptedByRoute2At),
		string(o.Status), millis(o.CreatedAt), nullMillis(o.CompletedAt), o.AssignedDriverID}
}

// Create checks the claims before inserting so a taken route does not
// poison the surrounding postgres transaction. The primary key on
// opportunity_claims still catches concurrent inserts.
func (r oppRepo) Create(ctx context.Context, o model.Opportunity) error {
	if o.ID == "" {
		return fmt.Errorf("opportunity id: %w", model.ErrValidation)
	}
	var held int
	if err := r.q.queryRow(ctx, `SELECT COUNT(*) FROM opportunity_claims WHERE route_id IN (?, ?)`,
		o.Route1ID, o.Route2ID).Scan(&held); err != nil {
		return fmt.Errorf("check route claims: %w", err)
	}
	if held > 0 {
		return fmt.Errorf("routes %s/%s already in a live opportunity: %w", o.Route1ID, o.Route2ID, model.ErrAlreadyExists)
	}
	if _, err := r.q.exec(ctx, `INSERT INTO opportunities (`+oppColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, oppArgs(o)...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("opportunity %s: %w", o.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("insert opportunity: %w", err)
	}
	if o.Status.Terminal() {
		return nil
	}
	for _, rid := range []string{o.Route1ID, o.Route2ID} {
		if _, err := r.q.exec(ctx, `INSERT INTO opportunity_claims (route_id, opportunity_id) VALUES (?, ?)`, rid, o.ID); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("route %s: %w", rid, model.ErrAlreadyExists)
			}
			return fmt.Errorf("claim route %s: %w", rid, err)
		}
	}
	return nil
}

func (r oppRepo) Get(ctx context.Context, id string) (model.Opportunity, error) {
	o, err := scanOpp(r.q.queryRow(ctx, `SELECT `+oppColumns+` FROM opportunities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Opportunity{}, fmt.Errorf("opportunity %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Opportunity{}, fmt.Errorf("get opportunity %s: %w", id, err)
	}
	return o, nil
}

func (r oppRepo) CompareAndSwap(ctx context.Context, o model.Opportunity, expected model.OpportunityStatus) error {
	res, err := r.q.exec(ctx, `UPDATE opportunities SET
			hub_id = ?, distance_saved_km = ?, carbon_saved_kg = ?,
			estimated_meet_at = ?, acceptance_deadline = ?, expires_at = ?,
			accepted_by_route1_at = ?, accepted_by_route2_at = ?,
			status = ?, completed_at = ?, assigned_driver_id = ?
		WHERE id = ? AND status = ?`,
		o.HubID, o.DistanceSavedKm, o.CarbonSavedKg,
		millis(o.EstimatedMeetAt), millis(o.AcceptanceDeadline), millis(o.ExpiresAt),
		nullMillis(o.AcceptedByRoute1At), nullMillis(o.AcceptedByRoute2At),
		string(o.Status), nullMillis(o.CompletedAt), o.AssignedDriverID,
		o.ID, string(expected))
	if err != nil {
		return fmt.Errorf("update opportunity %s: %w", o.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update opportunity %s: %w", o.ID, err)
	}
	if n != 1 {
		cur, err := r.Get(ctx, o.ID)
		if err != nil {
			return err
		}
		return fmt.Errorf("opportunity %s is %s, not %s: %w", o.ID, cur.Status, expected, model.ErrStateConflict)
	}
	if o.Status.Terminal() {
		if _, err := r.q.exec(ctx, `DELETE FROM opportunity_claims WHERE opportunity_id = ?`, o.ID); err != nil {
			return fmt.Errorf("release claims of %s: %w", o.ID, err)
		}
	}
	return nil
}

func (r oppRepo) list(ctx context.Context, query string, args ...any) ([]model.Opportunity, error) {
	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()
	var out []model.Opportunity
	for rows.Next() {
		o, err := scanOpp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r oppRepo) ListDue(ctx context.Context, now time.Time) ([]model.Opportunity, error) {
	return r.list(ctx, `SELECT `+oppColumns+` FROM opportunities
		WHERE status IN (?, ?, ?) AND expires_at <= ? ORDER BY id`,
		string(model.OpportunityPending), string(model.OpportunityAcceptedByRoute1),
		string(model.OpportunityAcceptedByRoute2), millis(now))
}

func (r oppRepo) List(ctx context.Context, liveOnly bool) ([]model.Opportunity, error) {
	if liveOnly {
		return r.list(ctx, `SELECT `+oppColumns+` FROM opportunities WHERE status NOT IN (?, ?) ORDER BY id`,
			string(model.OpportunityCompleted), string(model.OpportunityExpired))
	}
	return r.list(ctx, `SELECT `+oppColumns+` FROM opportunities ORDER BY id`)
}
