package notify

import (
	"context"

	"github.com/kilianp07/haulshare/core/events"
	"github.com/kilianp07/haulshare/internal/eventbus"
)

// BusPublisher hands events to in-process subscribers.
type BusPublisher struct {
	bus *eventbus.Bus[events.Event]
}

func NewBusPublisher(bus *eventbus.Bus[events.Event]) *BusPublisher {
	return &BusPublisher{bus: bus}
}

func (p *BusPublisher) Publish(_ context.Context, ev events.Event) error {
	p.bus.Publish(ev)
	return nil
}

func (p *BusPublisher) Close() error { return nil }
