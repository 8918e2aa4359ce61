package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `http:
  addr: ":9000"
  tokens: ["a", "b"]
store:
  type: sqlite
  conf:
    dsn: "haulshare.db"
events:
  - type: bus
  - type: mqtt
    conf:
      broker: "tcp://localhost:1883"
      qos:
        default: 1
metrics:
  prometheus_port: 9100
  sinks:
    - type: "prometheus"
matching:
  geofence_km: 7.5
  expiry: 2h
sentry:
  dsn: "https://key@sentry.example/1"
  environment: staging
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"http.addr", cfg.HTTP.Addr, ":9000"},
		{"http.tokens", len(cfg.HTTP.Tokens), 2},
		{"http.request_timeout", cfg.HTTP.RequestTimeout, 30 * time.Second},
		{"store.type", cfg.Store.Type, "sqlite"},
		{"store.conf.dsn", cfg.Store.Conf["dsn"], "haulshare.db"},
		{"events", len(cfg.Events), 2},
		{"events[1].type", cfg.Events[1].Type, "mqtt"},
		{"metrics.port", cfg.Metrics.PrometheusPort, 9100},
		{"metrics.sink", cfg.Metrics.Sinks[0].Type, "prometheus"},
		{"matching.geofence_km", cfg.Matching.GeofenceKm, 7.5},
		{"matching.expiry", cfg.Matching.Expiry, 2 * time.Hour},
		{"matching.hub_radius_km", cfg.Matching.HubRadiusKm, 5.0},
		{"sentry.environment", cfg.Sentry.Environment, "staging"},
		{"logging.level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadJSONWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "config.json", `{"http": {"addr": ":9000"}, "matching": {"geofence_km": 3}}`)
	t.Setenv("K_HTTP__ADDR", ":7000")
	t.Setenv("K_HTTP__TOKENS", "x,y")
	t.Setenv("K_MATCHING__GEOFENCE_KM", "4")
	t.Setenv("K_LOGGING__LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.HTTP.Addr != ":7000" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if len(cfg.HTTP.Tokens) != 2 || cfg.HTTP.Tokens[1] != "y" {
		t.Errorf("tokens = %v", cfg.HTTP.Tokens)
	}
	if cfg.Matching.GeofenceKm != 4 {
		t.Errorf("geofence = %v", cfg.Matching.GeofenceKm)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Store.Type != "memory" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Sentry.Environment != "production" || cfg.Sentry.IgnoreCanceled == nil || !*cfg.Sentry.IgnoreCanceled {
		t.Fatalf("unexpected sentry defaults: %+v", cfg.Sentry)
	}
	if cfg.Matching.GeofenceKm != 5 || cfg.Matching.SynergyGeofenceKm != 10 {
		t.Fatalf("unexpected matching defaults: %+v", cfg.Matching)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"format", "config.toml", "a = 1"},
		{"level", "config.yaml", "logging:\n  level: loud\n"},
		{"negative geofence", "config.yaml", "matching:\n  geofence_km: -1\n"},
		{"port", "config.yaml", "metrics:\n  prometheus_port: 70000\n"},
		{"event type", "config.yaml", "events:\n  - conf: {}\n"},
		{"sink type", "config.yaml", "metrics:\n  sinks:\n    - conf: {}\n"},
		{"sample rate", "config.yaml", "sentry:\n  traces_sample_rate: 1.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.file, tt.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
