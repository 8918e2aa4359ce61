package factory

import (
	"testing"
	"time"
)

type sample struct{ DSN string }

type sampleConf struct {
	DSN     string        `json:"dsn"`
	Timeout time.Duration `json:"timeout"`
	Retries int           `json:"retries"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("sqlite", func(conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{DSN: c.DSN}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "sqlite", Conf: map[string]any{"dsn": "file:test.db"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.DSN != "file:test.db" {
		t.Fatalf("expected dsn got %q", inst.DSN)
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("y", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "y"}); err == nil {
		t.Fatal("expected unknown type error")
	}
	if got := reg.Types(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("unexpected types %v", got)
	}
}

func TestDecodeWeakTypes(t *testing.T) {
	var c sampleConf
	if err := Decode(map[string]any{"timeout": "5s", "retries": "3"}, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Timeout != 5*time.Second || c.Retries != 3 {
		t.Fatalf("unexpected decode result %+v", c)
	}
}
