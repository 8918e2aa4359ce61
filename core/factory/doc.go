// Package factory provides a small generic registry used to instantiate
// publishers and metrics sinks from configuration. Modules are defined by
// a type string and a map of raw settings. Factories decode the settings
// into typed structs and return the concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[events.Publisher]()
//	reg.Register("redis", func(conf map[string]any) (events.Publisher, error) {
//	    var c notify.RedisConfig
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return notify.NewRedisPublisher(ctx, c, log)
//	})
//	p, err := reg.Create(factory.ModuleConfig{Type: "redis", Conf: map[string]any{"url": "redis://localhost:6379"}})
package factory
