// Package plugins maps store type names to their constructors.
package plugins

import (
	"context"
	"fmt"
	"sort"

	"github.com/kilianp07/haulshare/core/factory"
	"github.com/kilianp07/haulshare/core/store"
)

// StoreFactory opens a store from a raw configuration map.
type StoreFactory func(ctx context.Context, conf map[string]any) (store.Store, error)

var Stores = map[string]StoreFactory{}

func RegisterStore(name string, f StoreFactory) { Stores[name] = f }

// NewStore opens the store selected by cfg.Type.
func NewStore(ctx context.Context, cfg factory.ModuleConfig) (store.Store, error) {
	f, ok := Stores[cfg.Type]
	if !ok {
		known := make([]string, 0, len(Stores))
		for k := range Stores {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown store type %q (known: %v)", cfg.Type, known)
	}
	s, err := f(ctx, cfg.Conf)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Type, err)
	}
	return s, nil
}
