package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/haulshare/core/model"
	"github.com/kilianp07/haulshare/core/store"
	"github.com/kilianp07/haulshare/pkg/export"
)

type allocateRequest struct {
	CompanyID string `json:"company_id"`
}

func (s *Server) allocate(w http.ResponseWriter, r *http.Request) error {
	var req allocateRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	res, err := s.Allocator.Allocate(r.Context(), req.CompanyID)
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if res.NothingToDo {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
	return nil
}

type positionRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type positionResponse struct {
	TruckID     string             `json:"truck_id"`
	Position    model.GeoPoint     `json:"position"`
	Opportunity *model.Opportunity `json:"opportunity"`
}

// reportPosition stores the truck's new position then runs detection.
// Detection failures never fail the report.
func (s *Server) reportPosition(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	var req positionRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	if req.Lat == nil || req.Lng == nil {
		return badRequest("lat and lng are required", model.ErrValidation)
	}
	p := model.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}
	if err := p.Validate(); err != nil {
		return err
	}
	err := s.Store.Atomic(r.Context(), func(repos store.Repos) error {
		t, err := repos.Trucks().Get(r.Context(), id)
		if err != nil {
			return err
		}
		t.Position = &p
		return repos.Trucks().Put(r.Context(), t)
	})
	if err != nil {
		return fmt.Errorf("update position of %s: %w", id, err)
	}
	opp := s.Matcher.Detect(r.Context(), id, p.Lat, p.Lng)
	writeJSON(w, http.StatusOK, positionResponse{TruckID: id, Position: p, Opportunity: opp})
	return nil
}

func (s *Server) synergy(w http.ResponseWriter, r *http.Request) error {
	report, err := s.Matcher.SearchSynergy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, report)
	return nil
}

type mergeRequest struct {
	CandidateTruckID string `json:"candidate_truck_id"`
}

func (s *Server) merge(w http.ResponseWriter, r *http.Request) error {
	var req mergeRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	res, err := s.Merger.ConfirmMerge(r.Context(), chi.URLParam(r, "id"), req.CandidateTruckID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

func (s *Server) listOpportunities(w http.ResponseWriter, r *http.Request) error {
	live := false
	if v := r.URL.Query().Get("live"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest("live must be a boolean", err)
		}
		live = b
	}
	opps, err := s.Ledger.List(r.Context(), live)
	if err != nil {
		return err
	}
	switch r.URL.Query().Get("format") {
	case "", "json":
		if opps == nil {
			opps = []model.Opportunity{}
		}
		writeJSON(w, http.StatusOK, opps)
	case "geojson":
		w.Header().Set("Content-Type", "application/geo+json")
		return export.WriteGeoJSON(w, export.OpportunitiesGeoJSON(opps))
	default:
		return badRequest("unsupported format", nil)
	}
	return nil
}

func (s *Server) getOpportunity(w http.ResponseWriter, r *http.Request) error {
	o, err := s.Ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, o)
	return nil
}

type acceptRequest struct {
	RouteID string `json:"route_id"`
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request) error {
	var req acceptRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	o, err := s.Ledger.Accept(r.Context(), chi.URLParam(r, "id"), req.RouteID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, o)
	return nil
}

func (s *Server) handshake(w http.ResponseWriter, r *http.Request) error {
	res, err := s.Ledger.Handshake(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

func (s *Server) expire(w http.ResponseWriter, r *http.Request) error {
	ids, err := s.Ledger.ExpireDue(r.Context(), s.now())
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"expired": ids})
	return nil
}

// activateRoute moves an allocated route to ACTIVE once its truck has left.
// Only active routes take part in proximity detection.
func (s *Server) activateRoute(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	var rt model.Route
	err := s.Store.Atomic(r.Context(), func(repos store.Repos) error {
		if err := repos.Routes().SetStatus(r.Context(), id, model.RouteAllocated, model.RouteActive); err != nil {
			return err
		}
		var err error
		rt, err = repos.Routes().Get(r.Context(), id)
		return err
	})
	if err != nil {
		return fmt.Errorf("activate route %s: %w", id, err)
	}
	s.Log.Infof("route %s active on truck %s", rt.ID, rt.TruckID)
	writeJSON(w, http.StatusOK, rt)
	return nil
}

// manifest renders a route's transport document. A missing truck or
// driver record leaves the matching manifest fields blank.
func (s *Server) manifest(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	var (
		rt         model.Route
		truck      model.Truck
		driver     model.Driver
		deliveries []model.Delivery
	)
	err := s.Store.Atomic(r.Context(), func(repos store.Repos) error {
		var err error
		if rt, err = repos.Routes().Get(r.Context(), id); err != nil {
			return err
		}
		if truck, err = repos.Trucks().Get(r.Context(), rt.TruckID); err != nil {
			if !errors.Is(err, model.ErrNotFound) {
				return err
			}
			truck = model.Truck{ID: rt.TruckID}
		}
		if driver, err = repos.Drivers().Get(r.Context(), rt.DriverID); err != nil {
			if !errors.Is(err, model.ErrNotFound) {
				return err
			}
			driver = model.Driver{ID: rt.DriverID}
		}
		deliveries, err = repos.Deliveries().ListByRoute(r.Context(), id)
		return err
	})
	if err != nil {
		return err
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		return export.WriteJSON(w, export.BuildManifest(rt, truck, driver, deliveries, s.now()))
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "manifest-"+id+".csv"))
		return export.WriteCSV(w, export.BuildManifest(rt, truck, driver, deliveries, s.now()))
	case "geojson":
		w.Header().Set("Content-Type", "application/geo+json")
		return export.WriteGeoJSON(w, export.RouteGeoJSON(rt, deliveries))
	default:
		return badRequest("unsupported format", nil)
	}
}
