package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDBContainer wraps a PostgreSQL test container with a connection pool.
// The container runs the pgvector image and has the chunks schema applied.
type TestDBContainer struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a PostgreSQL container with the pgvector extension and
// applies the chunks migration. The returned cleanup function must be called
// to terminate the container.
//
// Skips the test when Docker is unavailable.
func SetupTestDB(t *testing.T) (*TestDBContainer, func()) {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("agent_test"),
		postgres.WithUsername("agent_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("could not start PostgreSQL container (is Docker running?): %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("Failed to get connection string: %v", err)
	}

	// Migrations must run before the pool connects: registering the vector
	// type requires the extension to exist.
	if err := applyMigrations(ctx, connStr); err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("Failed to parse connection config: %v", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("Failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("Failed to ping database: %v", err)
	}

	container := &TestDBContainer{
		Container: pgContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(context.Background())
	}

	return container, cleanup
}

// findProjectRoot walks up from this file until it finds go.mod, so tests
// can locate migration files regardless of working directory.
func findProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to get current file path")
	}

	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// applyMigrations executes the up migrations over a plain connection.
// Production code uses golang-migrate; this keeps test setup independent of
// migration state tracking.
func applyMigrations(ctx context.Context, connStr string) error {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("finding project root: %w", err)
	}

	pattern := filepath.Join(projectRoot, "db", "migrations", "*.up.sql")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("globbing migrations: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migration files matched %s", pattern)
	}

	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return fmt.Errorf("connecting for migrations: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	for _, path := range files {
		sql, err := os.ReadFile(path) // #nosec G304 -- paths come from the repo tree
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", path, err)
		}
		if _, err := conn.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("executing migration %s: %w", path, err)
		}
	}

	return nil
}
