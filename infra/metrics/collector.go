package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/haulshare/core/events"
	coremetrics "github.com/kilianp07/haulshare/core/metrics"
	"github.com/kilianp07/haulshare/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and counts published
// events by topic on sinks implementing EventRecorder. Completed
// opportunities also feed the carbon counters through the ledger, so only
// the topic is recorded here. It stops when the context is canceled and
// the returned channel is closed once the subscription is released.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.EventRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	sub := bus.Subscribe(nil)
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				_ = rec.RecordEvent(ev.Topic(), time.Now())
			}
		}
	}()
	return done
}
