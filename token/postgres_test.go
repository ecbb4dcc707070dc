package token

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/MrEthical07/goGuard/identity"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresStore starts a PostgreSQL container and returns a migrated
// store. Tests are skipped when no container runtime is reachable.
func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in -short mode")
	}
	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	ctx := context.Background()
	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("goguard_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := NewPostgresStore(ctx, PostgresConfig{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestPostgresStore(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	t.Run("issue and resolve", func(t *testing.T) {
		tok, err := store.Issue(ctx, &identity.Identity{UserID: "u-pg", Attributes: map[string]any{"role": "ops"}}, time.Hour)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		got, err := store.Resolve(ctx, tok)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if got == nil || got.UserID != "u-pg" || got.Attr("role") != "ops" {
			t.Fatalf("unexpected identity: %+v", got)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		if got, err := store.Resolve(ctx, "nope"); err != nil || got != nil {
			t.Fatalf("got %+v err=%v", got, err)
		}
	})

	t.Run("revoke", func(t *testing.T) {
		tok, _ := store.Issue(ctx, &identity.Identity{UserID: "u-rev"}, time.Hour)
		if err := store.Revoke(ctx, tok); err != nil {
			t.Fatalf("revoke: %v", err)
		}
		if got, _ := store.Resolve(ctx, tok); got != nil {
			t.Fatal("revoked token must resolve to nothing")
		}
	})

	t.Run("expired and purge", func(t *testing.T) {
		base := time.Now()
		store.now = func() time.Time { return base }
		tok, err := store.Issue(ctx, &identity.Identity{UserID: "u-exp"}, time.Minute)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}

		store.now = func() time.Time { return base.Add(2 * time.Minute) }
		defer func() { store.now = time.Now }()

		if got, err := store.Resolve(ctx, tok); err != nil || got != nil {
			t.Fatalf("expired token: got %+v err=%v", got, err)
		}
		n, err := store.PurgeExpired(ctx)
		if err != nil {
			t.Fatalf("purge: %v", err)
		}
		if n < 1 {
			t.Fatalf("expected at least one purged row, got %d", n)
		}
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("second migrate: %v", err)
		}
	})
}
