package cache

import (
	"bufio"
	"context"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"

	"github.com/jonwraymond/datahealth/observe"
)

// info is the flattened key/value view of an INFO reply.
type info map[string]string

// parseInfo parses an INFO reply. Section headers and blank lines are
// skipped; later duplicates win.
func parseInfo(raw string) info {
	out := make(info)
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

func (i info) str(key, fallback string) string {
	if v, ok := i[key]; ok {
		return v
	}
	return fallback
}

func (i info) num(key string) int64 {
	return cast.ToInt64(i[key])
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Metrics is a monitoring snapshot of the Redis server.
type Metrics struct {
	Memory      MemoryMetrics      `json:"memory"`
	Connections ConnectionMetrics  `json:"connections"`
	Performance ServerPerformance  `json:"performance"`
	Persistence PersistenceMetrics `json:"persistence"`
	Pool        PoolStatus         `json:"pool"`
	Health      MetricsHealth      `json:"health"`
}

// MemoryMetrics describes server memory use.
type MemoryMetrics struct {
	UsedMemoryBytes       int64   `json:"used_memory_bytes"`
	UsedMemoryHuman       string  `json:"used_memory_human"`
	MaxMemoryBytes        int64   `json:"max_memory_bytes"`
	MemoryUsagePercentage float64 `json:"memory_usage_percentage"`
}

// ConnectionMetrics describes client connections.
type ConnectionMetrics struct {
	ConnectedClients         int64 `json:"connected_clients"`
	BlockedClients           int64 `json:"blocked_clients"`
	TotalConnectionsReceived int64 `json:"total_connections_received"`
}

// ServerPerformance describes command throughput and keyspace hit rate.
type ServerPerformance struct {
	TotalCommandsProcessed int64   `json:"total_commands_processed"`
	InstantaneousOpsPerSec int64   `json:"instantaneous_ops_per_sec"`
	KeyspaceHits           int64   `json:"keyspace_hits"`
	KeyspaceMisses         int64   `json:"keyspace_misses"`
	HitRatePercentage      float64 `json:"hit_rate_percentage"`
}

// PersistenceMetrics describes RDB snapshot state.
type PersistenceMetrics struct {
	RDBLastSaveTime         int64 `json:"rdb_last_save_time"`
	RDBChangesSinceLastSave int64 `json:"rdb_changes_since_last_save"`
}

// MetricsHealth records whether collection succeeded.
type MetricsHealth struct {
	LastCheckTime time.Time `json:"last_check_time"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
}

func metricsFromInfo(i info) Metrics {
	var m Metrics

	m.Memory.UsedMemoryBytes = i.num("used_memory")
	m.Memory.UsedMemoryHuman = i.str("used_memory_human", "unknown")
	m.Memory.MaxMemoryBytes = i.num("maxmemory")
	if m.Memory.MaxMemoryBytes > 0 {
		m.Memory.MemoryUsagePercentage = round2(float64(m.Memory.UsedMemoryBytes) / float64(m.Memory.MaxMemoryBytes) * 100)
	}

	m.Connections.ConnectedClients = i.num("connected_clients")
	m.Connections.BlockedClients = i.num("blocked_clients")
	m.Connections.TotalConnectionsReceived = i.num("total_connections_received")

	m.Performance.TotalCommandsProcessed = i.num("total_commands_processed")
	m.Performance.InstantaneousOpsPerSec = i.num("instantaneous_ops_per_sec")
	m.Performance.KeyspaceHits = i.num("keyspace_hits")
	m.Performance.KeyspaceMisses = i.num("keyspace_misses")
	if total := m.Performance.KeyspaceHits + m.Performance.KeyspaceMisses; total > 0 {
		m.Performance.HitRatePercentage = round2(float64(m.Performance.KeyspaceHits) / float64(total) * 100)
	}

	m.Persistence.RDBLastSaveTime = i.num("rdb_last_save_time")
	m.Persistence.RDBChangesSinceLastSave = i.num("rdb_changes_since_last_save")
	return m
}

// Metrics collects server statistics from INFO. Collection failures are
// reported in Health rather than returned.
func (m *Manager) Metrics(ctx context.Context) Metrics {
	now := m.clock.Now().UTC()

	var raw string
	err := m.Acquire(ctx, func(ctx context.Context, conn *redis.Conn) error {
		var err error
		raw, err = conn.Info(ctx).Result()
		return err
	})

	out := Metrics{
		Memory: MemoryMetrics{UsedMemoryHuman: "unknown"},
	}
	if err == nil {
		out = metricsFromInfo(parseInfo(raw))
	}
	out.Pool = m.PoolStatus()
	out.Health.LastCheckTime = now

	if err != nil {
		m.logger.Error(ctx, "failed to collect redis metrics", observe.Err(err))
		out.Health.Status = "error"
		out.Health.Error = err.Error()
		return out
	}
	out.Health.Status = "healthy"
	return out
}
