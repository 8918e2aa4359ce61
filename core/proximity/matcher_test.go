package proximity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/haulshare/core/events"
	"github.com/kilianp07/haulshare/core/geo"
	"github.com/kilianp07/haulshare/core/logger"
	"github.com/kilianp07/haulshare/core/metrics"
	"github.com/kilianp07/haulshare/core/model"
	"github.com/kilianp07/haulshare/core/store"
	"github.com/kilianp07/haulshare/infra/store/memory"
)

var (
	t0     = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	origin = model.GeoPoint{Lat: 48.8566, Lng: 2.3522}
)

// north returns a point roughly km kilometres north of origin.
func north(km float64) *model.GeoPoint {
	return &model.GeoPoint{Lat: origin.Lat + km/111.195, Lng: origin.Lng}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type recordingSink struct {
	metrics.NopSink
	opps     []metrics.OpportunityEvent
	searches []metrics.SynergySearchEvent
}

func (r *recordingSink) RecordOpportunity(ev metrics.OpportunityEvent) error {
	r.opps = append(r.opps, ev)
	return nil
}

func (r *recordingSink) RecordSynergySearch(ev metrics.SynergySearchEvent) error {
	r.searches = append(r.searches, ev)
	return nil
}

type fixture struct {
	trucks     []model.Truck
	routes     []model.Route
	hubs       []model.Hub
	deliveries []model.Delivery
}

func (f fixture) seed(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	err := s.Atomic(ctx, func(r store.Repos) error {
		for _, tr := range f.trucks {
			if err := r.Trucks().Put(ctx, tr); err != nil {
				return err
			}
		}
		for _, rt := range f.routes {
			if err := r.Routes().Create(ctx, rt); err != nil {
				return err
			}
		}
		for _, h := range f.hubs {
			if err := r.Hubs().Put(ctx, h); err != nil {
				return err
			}
		}
		for _, d := range f.deliveries {
			if err := r.Deliveries().Put(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func activeRoute(id, truckID string) model.Route {
	return model.Route{ID: id, CompanyID: "acme", TruckID: truckID, DriverID: "drv-" + truckID, Status: model.RouteActive, CreatedAt: t0}
}

func hub(id string, southKm float64) model.Hub {
	return model.Hub{ID: id, Name: id, Location: model.GeoPoint{Lat: origin.Lat - southKm/111.195, Lng: origin.Lng}, RadiusKm: 1}
}

func scenarioB() fixture {
	return fixture{
		trucks: []model.Truck{
			{ID: "a", CompanyID: "acme", DriverID: "drv-a", MaxWeight: model.Float(10), MaxVolume: model.Float(10),
				CO2PerKm: model.Float(0.8), Position: &origin, Registration: model.RegistrationApproved},
			{ID: "b", CompanyID: "acme", DriverID: "drv-b", CurrentWeight: 8, CurrentVolume: 4,
				Position: north(4), Registration: model.RegistrationApproved},
		},
		routes: []model.Route{activeRoute("ra", "a"), activeRoute("rb", "b")},
		hubs:   []model.Hub{hub("lyon-north", 3)},
	}
}

func newTestMatcher(s store.Store, pub events.Publisher, sink metrics.MetricsSink) *Matcher {
	m := NewMatcher(s, pub, sink, logger.NopLogger{}, Config{})
	n := 0
	m.newID = func() string { n++; return fmt.Sprintf("opp-%d", n) }
	m.now = func() time.Time { return t0 }
	return m
}

func TestDetectScenarioB(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	s := scenarioB().seed(t)
	pub := &recordingPublisher{}
	sink := &recordingSink{}

	opp := newTestMatcher(s, pub, sink).Detect(context.Background(), "a", origin.Lat, origin.Lng)
	if opp == nil {
		t.Fatal("expected an opportunity")
	}
	if opp.Status != model.OpportunityPending {
		t.Fatalf("status = %s", opp.Status)
	}
	if opp.Route1ID != "ra" || opp.Route2ID != "rb" || opp.HubID != "lyon-north" {
		t.Fatalf("unexpected pairing: %+v", opp)
	}
	dist := geo.Distance(origin, *north(4))
	if diff := opp.CarbonSavedKg - dist*0.8; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("carbon = %v, want %v", opp.CarbonSavedKg, dist*0.8)
	}
	if opp.Route1AvailableWeight != 10 || opp.Route2RequiredWeight != 8 || opp.Route2RequiredVolume != 4 {
		t.Fatalf("capacity figures: %+v", opp)
	}
	if !opp.ExpiresAt.Equal(t0.Add(time.Hour)) || !opp.AcceptanceDeadline.Equal(t0.Add(30*time.Minute)) ||
		!opp.EstimatedMeetAt.Equal(t0.Add(30*time.Minute)) {
		t.Fatalf("timings: %+v", opp)
	}
	if opp.Center != scenarioB().hubs[0].Location {
		t.Fatalf("center = %+v", opp.Center)
	}

	err := s.Atomic(context.Background(), func(r store.Repos) error {
		stored, err := r.Opportunities().Get(context.Background(), opp.ID)
		if err != nil {
			return err
		}
		if stored.Status != model.OpportunityPending {
			return fmt.Errorf("stored status %s", stored.Status)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("stored opportunity: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	ev, ok := pub.events[0].(events.OpportunityDetected)
	if !ok {
		t.Fatalf("unexpected event %T", pub.events[0])
	}
	if ev.TruckA != "a" || ev.TruckB != "b" || ev.Hub != "lyon-north" || ev.CarbonSaved != 3 {
		t.Fatalf("event = %+v", ev)
	}
	if len(sink.opps) != 1 || sink.opps[0].Stage != metrics.StageDetected {
		t.Fatalf("sink = %+v", sink.opps)
	}
	if got := testutil.ToFloat64(detections.WithLabelValues("created")); got != 1 {
		t.Fatalf("created counter = %v", got)
	}
}

func TestDetectUsesDefaultEmissionFactor(t *testing.T) {
	f := scenarioB()
	f.trucks[0].CO2PerKm = nil
	s := f.seed(t)
	opp := newTestMatcher(s, nil, nil).Detect(context.Background(), "a", origin.Lat, origin.Lng)
	if opp == nil {
		t.Fatal("expected an opportunity")
	}
	want := geo.Distance(origin, *north(4)) * 0.5
	if diff := opp.CarbonSavedKg - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("carbon = %v, want %v", opp.CarbonSavedKg, want)
	}
}

func TestDetectNone(t *testing.T) {
	cases := map[string]func(f *fixture){
		"candidate beyond geofence": func(f *fixture) { f.trucks[1].Position = north(6) },
		"no hub in range":           func(f *fixture) { f.hubs = []model.Hub{hub("far", 12)} },
		"candidate too heavy":       func(f *fixture) { f.trucks[1].CurrentWeight = 11 },
		"candidate too bulky":       func(f *fixture) { f.trucks[1].CurrentVolume = 10.5 },
		"searching truck idle":      func(f *fixture) { f.routes = f.routes[1:] },
		"candidate idle":            func(f *fixture) { f.routes = f.routes[:1] },
		"two active routes": func(f *fixture) {
			f.routes = append(f.routes, activeRoute("ra2", "a"))
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ResetMetrics(prometheus.NewRegistry())
			f := scenarioB()
			mutate(&f)
			pub := &recordingPublisher{}
			if opp := newTestMatcher(f.seed(t), pub, nil).Detect(context.Background(), "a", origin.Lat, origin.Lng); opp != nil {
				t.Fatalf("expected none, got %+v", opp)
			}
			if len(pub.events) != 0 {
				t.Fatalf("unexpected events: %v", pub.events)
			}
			if got := testutil.ToFloat64(detections.WithLabelValues("none")); got != 1 {
				t.Fatalf("none counter = %v", got)
			}
		})
	}
}

func TestDetectFailuresReturnNil(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	s := scenarioB().seed(t)
	m := newTestMatcher(s, nil, nil)
	if opp := m.Detect(context.Background(), "ghost", origin.Lat, origin.Lng); opp != nil {
		t.Fatalf("expected nil for unknown truck")
	}
	if opp := m.Detect(context.Background(), "a", 91, 0); opp != nil {
		t.Fatalf("expected nil for invalid position")
	}
	if got := testutil.ToFloat64(detections.WithLabelValues("error")); got != 2 {
		t.Fatalf("error counter = %v", got)
	}
}

func TestDetectFirstFit(t *testing.T) {
	f := scenarioB()
	// c sorts after b even though it is closer.
	f.trucks = append(f.trucks, model.Truck{ID: "c", CompanyID: "acme", DriverID: "drv-c", CurrentWeight: 1,
		Position: north(1), Registration: model.RegistrationApproved})
	f.routes = append(f.routes, activeRoute("rc", "c"))
	opp := newTestMatcher(f.seed(t), nil, nil).Detect(context.Background(), "a", origin.Lat, origin.Lng)
	if opp == nil || opp.Truck2ID != "b" {
		t.Fatalf("expected first candidate b, got %+v", opp)
	}
}

func TestDetectSkipsInfeasibleCandidate(t *testing.T) {
	f := scenarioB()
	f.trucks[1].CurrentWeight = 20
	f.trucks = append(f.trucks, model.Truck{ID: "c", CompanyID: "acme", DriverID: "drv-c", CurrentWeight: 1,
		Position: north(2), Registration: model.RegistrationApproved})
	f.routes = append(f.routes, activeRoute("rc", "c"))
	opp := newTestMatcher(f.seed(t), nil, nil).Detect(context.Background(), "a", origin.Lat, origin.Lng)
	if opp == nil || opp.Truck2ID != "c" {
		t.Fatalf("expected fallback to c, got %+v", opp)
	}
}

func TestDetectSkipsClaimedRoutes(t *testing.T) {
	f := scenarioB()
	f.trucks = append(f.trucks, model.Truck{ID: "c", CompanyID: "acme", DriverID: "drv-c", CurrentWeight: 1,
		Position: north(2), Registration: model.RegistrationApproved})
	f.routes = append(f.routes, activeRoute("rc", "c"))
	s := f.seed(t)
	m := newTestMatcher(s, nil, nil)

	first := m.Detect(context.Background(), "c", origin.Lat, origin.Lng)
	if first == nil || first.Truck2ID != "a" {
		t.Fatalf("first detection: %+v", first)
	}
	// ra and rc are claimed now, so every pairing for a is rejected.
	if again := m.Detect(context.Background(), "a", origin.Lat, origin.Lng); again != nil {
		t.Fatalf("expected no opportunity, got %+v", again)
	}
}

func TestDetectConcurrentSingleWinner(t *testing.T) {
	s := scenarioB().seed(t)
	m := NewMatcher(s, nil, nil, logger.NopLogger{}, DefaultConfig())
	m.now = func() time.Time { return t0 }

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if opp := m.Detect(context.Background(), "a", origin.Lat, origin.Lng); opp != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one opportunity, got %d", wins)
	}
}

func synergyFixture() fixture {
	d := func(id, truckID, cargo, drop string, weight float64) model.Delivery {
		return model.Delivery{ID: id, CompanyID: "acme", Weight: weight, CargoType: cargo, WindowStart: t0,
			Drop: model.Stop{Label: drop}, Status: model.DeliveryInTransit, TruckID: truckID}
	}
	return fixture{
		trucks: []model.Truck{
			{ID: "s", CompanyID: "acme", MaxWeight: model.Float(10), Position: &origin, Registration: model.RegistrationApproved},
			{ID: "t1", CompanyID: "acme", Position: north(3), Registration: model.RegistrationApproved},
			{ID: "t2", CompanyID: "acme", Position: north(8), Registration: model.RegistrationApproved},
			{ID: "t3", CompanyID: "acme", Position: north(25), Registration: model.RegistrationApproved},
		},
		deliveries: []model.Delivery{
			d("d-s", "s", "GENERAL", "Rungis", 4),
			d("d-t1", "t1", "FOOD", "Rungis", 5),
			d("d-t1b", "t1", "GENERAL", "Orly", 1),
			d("d-t2", "t2", "CHEMICALS", "Rungis", 7),
			d("d-t3", "t3", "GENERAL", "Rungis", 1),
		},
	}
}

func TestSearchSynergyBreakdown(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	s := synergyFixture().seed(t)
	pub := &recordingPublisher{}
	sink := &recordingSink{}
	rep, err := newTestMatcher(s, pub, sink).SearchSynergy(context.Background(), "s")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if rep.DeliveryID != "d-s" {
		t.Fatalf("own delivery = %s", rep.DeliveryID)
	}
	if len(rep.Candidates) != 2 {
		t.Fatalf("expected t1 and t2 within geofence, got %+v", rep.Candidates)
	}
	c1, c2 := rep.Candidates[0], rep.Candidates[1]
	if c1.TruckID != "t1" || c1.DeliveryID != "d-t1" || !c1.HighProbability {
		t.Fatalf("t1 candidate = %+v", c1)
	}
	want := Constraints{Geofence: true, Capacity: false, CargoCompatible: false, PathAligned: true}
	if c2.TruckID != "t2" || c2.Constraints != want || c2.HighProbability {
		t.Fatalf("t2 candidate = %+v", c2)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	ev := pub.events[0].(events.SynergyMatch)
	if ev.SearchingTruck != "s" || len(ev.Matches) != 1 || ev.Matches[0].TruckID != "t1" {
		t.Fatalf("event = %+v", ev)
	}
	if len(sink.searches) != 1 || sink.searches[0].HighProbability != 1 || sink.searches[0].Candidates != 2 {
		t.Fatalf("sink = %+v", sink.searches)
	}
	if got := testutil.ToFloat64(synergySearches.WithLabelValues("match")); got != 1 {
		t.Fatalf("match counter = %v", got)
	}
}

func TestSearchSynergyNoMatchPublishesNothing(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	f := synergyFixture()
	f.deliveries[1].Drop.Label = "Orly"
	pub := &recordingPublisher{}
	rep, err := newTestMatcher(f.seed(t), pub, nil).SearchSynergy(context.Background(), "s")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(rep.HighProbability()) != 0 || len(pub.events) != 0 {
		t.Fatalf("expected no match, got %+v / %v", rep, pub.events)
	}
	if got := testutil.ToFloat64(synergySearches.WithLabelValues("none")); got != 1 {
		t.Fatalf("none counter = %v", got)
	}
}

func TestSearchSynergyUnboundedCapacity(t *testing.T) {
	f := synergyFixture()
	f.trucks[0].MaxWeight = nil
	rep, err := newTestMatcher(f.seed(t), nil, nil).SearchSynergy(context.Background(), "s")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !rep.Candidates[1].Constraints.Capacity {
		t.Fatalf("expected capacity to pass without a limit: %+v", rep.Candidates[1])
	}
}

func TestSearchSynergyErrors(t *testing.T) {
	f := synergyFixture()
	f.trucks = append(f.trucks,
		model.Truck{ID: "blind", CompanyID: "acme", Registration: model.RegistrationApproved},
		model.Truck{ID: "idle", CompanyID: "acme", Position: north(1), Registration: model.RegistrationApproved})
	m := newTestMatcher(f.seed(t), nil, nil)

	cases := map[string]error{
		"ghost": model.ErrNotFound,
		"blind": model.ErrValidation,
		"idle":  model.ErrStateConflict,
		"":      model.ErrValidation,
	}
	for id, want := range cases {
		if _, err := m.SearchSynergy(context.Background(), id); !errors.Is(err, want) {
			t.Errorf("truck %q: expected %v, got %v", id, want, err)
		}
	}
}
