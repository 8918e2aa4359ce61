package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/haulshare/core/model"
)

type oppRepo struct{ st *state }

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneOpp(o model.Opportunity) model.Opportunity {
	o.AcceptedByRoute1At = cloneTime(o.AcceptedByRoute1At)
	o.AcceptedByRoute2At = cloneTime(o.AcceptedByRoute2At)
	o.CompletedAt = cloneTime(o.CompletedAt)
	return o
}

func (r oppRepo) Create(_ context.Context, o model.Opportunity) error {
	if o.ID == "" {
		return fmt.Errorf("opportunity id: %w", model.ErrValidation)
	}
	if _, ok := r.st.opps[o.ID]; ok {
		return fmt.Errorf("opportunity %s: %w", o.ID, model.ErrAlreadyExists)
	}
	for _, rid := range []string{o.Route1ID, o.Route2ID} {
		if holder, ok := r.st.claims[rid]; ok {
			return fmt.Errorf("route %s held by opportunity %s: %w", rid, holder, model.ErrAlreadyExists)
		}
	}
	r.st.opps[o.ID] = cloneOpp(o)
	if !o.Status.Terminal() {
		r.st.claims[o.Route1ID] = o.ID
		r.st.claims[o.Route2ID] = o.ID
	}
	return nil
}

func (r oppRepo) Get(_ context.Context, id string) (model.Opportunity, error) {
	o, ok := r.st.opps[id]
	if !ok {
		return model.Opportunity{}, fmt.Errorf("opportunity %s: %w", id, model.ErrNotFound)
	}
	return cloneOpp(o), nil
}

func (r oppRepo) CompareAndSwap(_ context.Context, o model.Opportunity, expected model.OpportunityStatus) error {
	cur, ok := r.st.opps[o.ID]
	if !ok {
		return fmt.Errorf("opportunity %s: %w", o.ID, model.ErrNotFound)
	}
	if cur.Status != expected {
		return fmt.Errorf("opportunity %s is %s, not %s: %w", o.ID, cur.Status, expected, model.ErrStateConflict)
	}
	r.st.opps[o.ID] = cloneOpp(o)
	if o.Status.Terminal() {
		for _, rid := range []string{cur.Route1ID, cur.Route2ID} {
			if r.st.claims[rid] == o.ID {
				delete(r.st.claims, rid)
			}
		}
	}
	return nil
}

func (r oppRepo) ListDue(_ context.Context, now time.Time) ([]model.Opportunity, error) {
	var out []model.Opportunity
	for _, id := range sortedKeys(r.st.opps) {
		o := r.st.opps[id]
		if o.Status.Expirable() && !o.ExpiresAt.After(now) {
			out = append(out, cloneOpp(o))
		}
	}
	return out, nil
}

func (r oppRepo) List(_ context.Context, liveOnly bool) ([]model.Opportunity, error) {
	var out []model.Opportunity
	for _, id := range sortedKeys(r.st.opps) {
		o := r.st.opps[id]
		if liveOnly && o.Status.Terminal() {
			continue
		}
		out = append(out, cloneOpp(o))
	}
	return out, nil
}
