package plugins

import (
	"context"
	"fmt"

	"github.com/kilianp07/haulshare/core/factory"
	"github.com/kilianp07/haulshare/core/store"
	"github.com/kilianp07/haulshare/infra/store/memory"
	"github.com/kilianp07/haulshare/infra/store/sqlstore"
)

// SQLConfig is the conf block of the sqlite and postgres stores.
type SQLConfig struct {
	DSN              string `json:"dsn"`
	sqlstore.Options `json:",squash"`
}

// DefaultSQLiteDSN is used when the sqlite store has no dsn.
const DefaultSQLiteDSN = "haulshare.db"

func init() {
	RegisterStore("memory", func(context.Context, map[string]any) (store.Store, error) {
		return memory.New(), nil
	})
	RegisterStore("sqlite", sqlFactory(sqlstore.SQLite))
	RegisterStore("postgres", sqlFactory(sqlstore.Postgres))
}

func sqlFactory(d sqlstore.Dialect) StoreFactory {
	return func(ctx context.Context, conf map[string]any) (store.Store, error) {
		var c SQLConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.DSN == "" {
			if d != sqlstore.SQLite {
				return nil, fmt.Errorf("%s: dsn is required", d)
			}
			c.DSN = DefaultSQLiteDSN
		}
		s, err := sqlstore.Open(ctx, d, c.DSN, c.Options)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
