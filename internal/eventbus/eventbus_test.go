package eventbus

import (
	"strings"
	"testing"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New[string](0)
	ch := bus.Subscribe(nil)
	if n := bus.Publish("hello"); n != 1 {
		t.Fatalf("expected one delivery, got %d", n)
	}
	v := <-ch
	if v != "hello" {
		t.Fatalf("expected hello got %v", v)
	}
	bus.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after unsubscribe")
	}
}

func TestBusFilter(t *testing.T) {
	bus := New[string](4)
	opps := bus.Subscribe(func(s string) bool { return strings.HasPrefix(s, "opportunity.") })
	all := bus.Subscribe(nil)
	bus.Publish("synergy.match")
	bus.Publish("opportunity.detected")
	bus.Close()

	var got []string
	for v := range opps {
		got = append(got, v)
	}
	if len(got) != 1 || got[0] != "opportunity.detected" {
		t.Fatalf("filtered subscriber got %v", got)
	}
	n := 0
	for range all {
		n++
	}
	if n != 2 {
		t.Fatalf("unfiltered subscriber got %d events", n)
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := New[int](1)
	ch := bus.Subscribe(nil)
	bus.Publish(1)
	if n := bus.Publish(2); n != 0 {
		t.Fatalf("expected the second event to be dropped")
	}
	if bus.Dropped() != 1 {
		t.Fatalf("dropped = %d", bus.Dropped())
	}
	if v := <-ch; v != 1 {
		t.Fatalf("expected first event, got %d", v)
	}
}

func TestBusClose(t *testing.T) {
	bus := New[int](0)
	ch1 := bus.Subscribe(nil)
	ch2 := bus.Subscribe(nil)
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
	if n := bus.Publish(3); n != 0 {
		t.Fatalf("publish after close delivered %d", n)
	}
	late := bus.Subscribe(nil)
	if _, ok := <-late; ok {
		t.Fatalf("expected subscription after close to be closed")
	}
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New[float64](0)
	ch := bus.Subscribe(nil)
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
