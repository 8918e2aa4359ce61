package sqlstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/haulshare/core/store"
	"github.com/kilianp07/haulshare/core/store/storetest"
	"github.com/kilianp07/haulshare/infra/store/sqlstore"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return sqlstore.OpenTestDB(t)
	})
}

func TestOpenUnknownDialect(t *testing.T) {
	if _, err := sqlstore.Open(context.Background(), "oracle", "x", sqlstore.Options{}); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}

func TestPostgresStore(t *testing.T) {
	if os.Getenv("HAULSHARE_PG_IT") != "1" {
		t.Skip("set HAULSHARE_PG_IT=1 to run against a postgres container")
	}
	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("haulshare"),
		tcpostgres.WithUsername("haul"),
		tcpostgres.WithPassword("haul"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := sqlstore.Open(ctx, sqlstore.Postgres, dsn, sqlstore.Options{})
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if _, err := s.DB().ExecContext(ctx,
			`TRUNCATE drivers, trucks, deliveries, routes, hubs, opportunities, opportunity_claims`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}
