package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/haulshare/config"
	"github.com/kilianp07/haulshare/core/factory"
	"github.com/kilianp07/haulshare/core/model"
	"github.com/kilianp07/haulshare/core/store"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.HTTP.Tokens = []string{"t"}
	cfg.SetDefaults()
	return cfg
}

func TestServiceAllocatesThroughAPI(t *testing.T) {
	ctx := context.Background()
	svc, err := New(ctx, testConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer svc.Close()

	err = svc.Store.Atomic(ctx, func(r store.Repos) error {
		if err := r.Trucks().Put(ctx, model.Truck{ID: "t1", CompanyID: "c1", DriverID: "d1", Available: true, Registration: model.RegistrationApproved}); err != nil {
			return err
		}
		return r.Deliveries().Put(ctx, model.Delivery{ID: "x1", CompanyID: "c1", Weight: 1, Volume: 1, Status: model.DeliveryPending})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	ts := httptest.NewServer(svc.Handler())
	defer ts.Close()
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/allocations", strings.NewReader(`{"company_id":"c1"}`))
	req.Header.Set("Authorization", "Bearer t")
	req.Header.Set("X-Role", "dispatcher")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	svc, err := New(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
	}
}

func TestNewRejectsUnknownModules(t *testing.T) {
	cfg := testConfig()
	cfg.Store = factory.ModuleConfig{Type: "cassandra"}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected store error")
	}

	cfg = testConfig()
	cfg.Events = []factory.ModuleConfig{{Type: "carrier-pigeon"}}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected publisher error")
	}
}
