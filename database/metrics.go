package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonwraymond/datahealth/observe"
)

// Metrics is a monitoring snapshot of the database.
type Metrics struct {
	Connections ConnectionMetrics `json:"connections"`
	Storage     StorageMetrics    `json:"storage"`
	Pool        PoolStatus        `json:"pool"`
	Health      MetricsHealth     `json:"health"`
}

// ConnectionMetrics counts server sessions on the current database.
type ConnectionMetrics struct {
	Active int64 `json:"active"`
	Idle   int64 `json:"idle"`
	Total  int64 `json:"total"`
}

// StorageMetrics describes the size of the current database.
type StorageMetrics struct {
	DatabaseSizeBytes int64 `json:"database_size_bytes"`
	TableCount        int64 `json:"table_count"`
}

// MetricsHealth records whether collection succeeded.
type MetricsHealth struct {
	LastCheckTime time.Time `json:"last_check_time"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
}

// Metrics collects connection and storage statistics. Collection failures
// are reported in Health rather than returned.
func (m *Manager) Metrics(ctx context.Context) Metrics {
	out := Metrics{
		Health: MetricsHealth{LastCheckTime: m.clock.Now().UTC(), Status: "unknown"},
	}

	err := m.Acquire(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, queryConnectionsByState)
		if err != nil {
			return err
		}
		var state string
		var count int64
		_, err = pgx.ForEachRow(rows, []any{&state, &count}, func() error {
			switch state {
			case "active":
				out.Connections.Active = count
			case "idle":
				out.Connections.Idle = count
			}
			return nil
		})
		if err != nil {
			return err
		}
		out.Connections.Total = out.Connections.Active + out.Connections.Idle

		if err := conn.QueryRow(ctx, queryDatabaseSizeBytes).Scan(&out.Storage.DatabaseSizeBytes); err != nil {
			return err
		}
		return conn.QueryRow(ctx, queryPublicTables).Scan(&out.Storage.TableCount)
	})

	out.Pool = m.PoolStatus()
	if err != nil {
		m.logger.Error(ctx, "failed to collect database metrics", observe.Err(err))
		out.Health.Status = "error"
		out.Health.Error = err.Error()
		return out
	}
	out.Health.Status = "healthy"
	return out
}
