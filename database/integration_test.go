package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonwraymond/datahealth/health"
)

// newLive returns a Manager connected to TEST_DATABASE_URL, skipping the test
// when it is unset.
func newLive(t *testing.T) *Manager {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	m, err := NewManager(Config{URL: url})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestLive_Connection(t *testing.T) {
	m := newLive(t)
	ctx := context.Background()

	if !m.TestConnection(ctx) {
		t.Error("TestConnection = false")
	}
	if !m.Ping(ctx, 5*time.Second) {
		t.Error("Ping = false")
	}
	if !m.ConnectWithRetry(ctx, 3, 100*time.Millisecond) {
		t.Error("ConnectWithRetry = false")
	}
	if !m.TestRecovery(ctx) {
		t.Error("TestRecovery = false")
	}
	if !m.TestConcurrent(ctx, 10) {
		t.Error("TestConcurrent(10) = false")
	}
	if ok, elapsed := m.TimeConnection(ctx); !ok || elapsed < 0 {
		t.Errorf("TimeConnection = (%v, %v)", ok, elapsed)
	}
	if got := m.Availability(ctx); !got.Available {
		t.Errorf("Availability = %+v", got)
	}
}

func TestLive_Probe(t *testing.T) {
	m := newLive(t)

	result := m.Probe(context.Background(), 5*time.Second)
	if result.Status == health.StatusUnhealthy {
		t.Fatalf("Probe unhealthy: %v", result.Error)
	}
	if _, ok := result.Details["connection_count"]; !ok {
		t.Error("missing connection_count")
	}
	if size, ok := result.Details["database_size"].(string); !ok || size == "" {
		t.Errorf("database_size = %v", result.Details["database_size"])
	}
}

func TestLive_Metrics(t *testing.T) {
	m := newLive(t)

	got := m.Metrics(context.Background())
	if got.Health.Status != "healthy" {
		t.Fatalf("Health = %+v", got.Health)
	}
	if got.Storage.DatabaseSizeBytes <= 0 {
		t.Errorf("DatabaseSizeBytes = %d", got.Storage.DatabaseSizeBytes)
	}
	if got.Connections.Total != got.Connections.Active+got.Connections.Idle {
		t.Errorf("Connections = %+v", got.Connections)
	}
}

func TestLive_AcquireReleasesOnPanic(t *testing.T) {
	m := newLive(t)
	ctx := context.Background()

	func() {
		defer func() { _ = recover() }()
		_ = m.Acquire(ctx, func(context.Context, *pgxpool.Conn) error {
			panic("boom")
		})
	}()

	if got := m.PoolStatus().AcquiredConns; got != 0 {
		t.Errorf("AcquiredConns after panic = %d, want 0", got)
	}
}

func TestLive_WithTx(t *testing.T) {
	m := newLive(t)
	ctx := context.Background()

	err := m.Acquire(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS datahealth_tx_test (v int)`)
		return err
	})
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() {
		_ = m.Acquire(context.Background(), func(ctx context.Context, conn *pgxpool.Conn) error {
			_, err := conn.Exec(ctx, `DROP TABLE IF EXISTS datahealth_tx_test`)
			return err
		})
	})

	errRollback := errors.New("rollback please")
	err = m.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO datahealth_tx_test VALUES (1)`); err != nil {
			return err
		}
		return errRollback
	})
	if !errors.Is(err, errRollback) {
		t.Fatalf("WithTx err = %v, want errRollback", err)
	}

	err = m.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO datahealth_tx_test VALUES (2)`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx commit: %v", err)
	}

	var sum int
	err = m.Acquire(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, `SELECT coalesce(sum(v), 0) FROM datahealth_tx_test`).Scan(&sum)
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sum != 2 {
		t.Errorf("sum = %d, want 2 (rolled back row must be absent)", sum)
	}
}
