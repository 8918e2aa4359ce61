package notify

import (
	"context"

	"github.com/kilianp07/haulshare/core/events"
	"github.com/kilianp07/haulshare/core/factory"
	"github.com/kilianp07/haulshare/core/logger"
	"github.com/kilianp07/haulshare/internal/eventbus"
)

// NewRegistry returns the publisher factories. The "bus" type publishes on
// the given in-process bus.
func NewRegistry(ctx context.Context, bus *eventbus.Bus[events.Event], log logger.Logger) *factory.Registry[events.Publisher] {
	r := factory.NewRegistry[events.Publisher]()
	_ = r.Register("nop", func(map[string]any) (events.Publisher, error) {
		return events.NopPublisher{}, nil
	})
	_ = r.Register("bus", func(map[string]any) (events.Publisher, error) {
		return NewBusPublisher(bus), nil
	})
	_ = r.Register("mqtt", func(conf map[string]any) (events.Publisher, error) {
		var c MQTTConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		p, err := NewMQTTPublisher(c, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	_ = r.Register("redis", func(conf map[string]any) (events.Publisher, error) {
		var c RedisConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		p, err := NewRedisPublisher(ctx, c, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	return r
}

// NewPublisher builds the configured publishers. Nothing configured
// yields the in-process bus alone.
func NewPublisher(reg *factory.Registry[events.Publisher], cfgs []factory.ModuleConfig) (*Multi, error) {
	if len(cfgs) == 0 {
		cfgs = []factory.ModuleConfig{{Type: "bus"}}
	}
	m := NewMulti()
	for _, c := range cfgs {
		p, err := reg.Create(c)
		if err != nil {
			_ = m.Close()
			return nil, err
		}
		m.Publishers = append(m.Publishers, p)
	}
	return m, nil
}
