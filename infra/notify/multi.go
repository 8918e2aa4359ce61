// Package notify delivers domain events to MQTT, Redis and in-process
// subscribers.
package notify

import (
	"context"
	"errors"
	"io"

	"github.com/kilianp07/haulshare/core/events"
)

// Multi forwards each event to every publisher. A failing publisher does
// not stop the others.
type Multi struct {
	Publishers []events.Publisher
}

func NewMulti(pubs ...events.Publisher) *Multi {
	return &Multi{Publishers: pubs}
}

func (m *Multi) Publish(ctx context.Context, ev events.Event) error {
	var errs []error
	for _, p := range m.Publishers {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher that holds a connection.
func (m *Multi) Close() error {
	var errs []error
	for _, p := range m.Publishers {
		if c, ok := p.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
