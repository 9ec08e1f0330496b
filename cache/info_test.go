package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

const sampleInfo = "# Server\r\n" +
	"redis_version:7.2.4\r\n" +
	"\r\n" +
	"# Clients\r\n" +
	"connected_clients:12\r\n" +
	"blocked_clients:1\r\n" +
	"\r\n" +
	"# Memory\r\n" +
	"used_memory:1048576\r\n" +
	"used_memory_human:1.00M\r\n" +
	"maxmemory:4194304\r\n" +
	"\r\n" +
	"# Persistence\r\n" +
	"rdb_changes_since_last_save:7\r\n" +
	"rdb_last_save_time:1760000000\r\n" +
	"\r\n" +
	"# Stats\r\n" +
	"total_connections_received:99\r\n" +
	"total_commands_processed:12345\r\n" +
	"instantaneous_ops_per_sec:42\r\n" +
	"keyspace_hits:3\r\n" +
	"keyspace_misses:1\r\n" +
	"\r\n" +
	"# Keyspace\r\n" +
	"db0:keys=5,expires=1,avg_ttl=0\r\n"

func TestParseInfo(t *testing.T) {
	i := parseInfo(sampleInfo)

	tests := []struct {
		key  string
		want string
	}{
		{"redis_version", "7.2.4"},
		{"used_memory_human", "1.00M"},
		{"connected_clients", "12"},
		{"db0", "keys=5,expires=1,avg_ttl=0"},
	}
	for _, tt := range tests {
		if got := i[tt.key]; got != tt.want {
			t.Errorf("%s = %q, want %q", tt.key, got, tt.want)
		}
	}
	if _, ok := i["# Server"]; ok {
		t.Error("section headers should be skipped")
	}
	if got := i.str("absent", "unknown"); got != "unknown" {
		t.Errorf("str fallback = %q", got)
	}
	if got := i.num("absent"); got != 0 {
		t.Errorf("num(absent) = %d, want 0", got)
	}
}

func TestMetricsFromInfo(t *testing.T) {
	m := metricsFromInfo(parseInfo(sampleInfo))

	if m.Memory.UsedMemoryBytes != 1048576 || m.Memory.UsedMemoryHuman != "1.00M" {
		t.Errorf("Memory = %+v", m.Memory)
	}
	if m.Memory.MemoryUsagePercentage != 25 {
		t.Errorf("MemoryUsagePercentage = %v, want 25", m.Memory.MemoryUsagePercentage)
	}
	if m.Connections.ConnectedClients != 12 || m.Connections.BlockedClients != 1 || m.Connections.TotalConnectionsReceived != 99 {
		t.Errorf("Connections = %+v", m.Connections)
	}
	if m.Performance.HitRatePercentage != 75 {
		t.Errorf("HitRatePercentage = %v, want 75", m.Performance.HitRatePercentage)
	}
	if m.Performance.InstantaneousOpsPerSec != 42 || m.Performance.TotalCommandsProcessed != 12345 {
		t.Errorf("Performance = %+v", m.Performance)
	}
	if m.Persistence.RDBChangesSinceLastSave != 7 || m.Persistence.RDBLastSaveTime != 1760000000 {
		t.Errorf("Persistence = %+v", m.Persistence)
	}
}

func TestMetricsFromInfo_NoLimits(t *testing.T) {
	m := metricsFromInfo(parseInfo("used_memory:100\r\nmaxmemory:0\r\n"))
	if m.Memory.MemoryUsagePercentage != 0 {
		t.Errorf("MemoryUsagePercentage = %v, want 0 without maxmemory", m.Memory.MemoryUsagePercentage)
	}
	if m.Performance.HitRatePercentage != 0 {
		t.Errorf("HitRatePercentage = %v, want 0 without lookups", m.Performance.HitRatePercentage)
	}
	if m.Memory.UsedMemoryHuman != "unknown" {
		t.Errorf("UsedMemoryHuman = %q, want unknown", m.Memory.UsedMemoryHuman)
	}
}

func TestManagerMetrics_Unreachable(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	m, s := newTestManager(t, WithClock(clock))
	s.Close()

	got := m.Metrics(context.Background())
	if got.Health.Status != "error" || got.Health.Error == "" {
		t.Errorf("Health = %+v", got.Health)
	}
	if !got.Health.LastCheckTime.Equal(clock.Now()) {
		t.Errorf("LastCheckTime = %v", got.Health.LastCheckTime)
	}
	if got.Memory.UsedMemoryHuman != "unknown" {
		t.Errorf("UsedMemoryHuman = %q, want unknown", got.Memory.UsedMemoryHuman)
	}
}

func TestManagerMetrics(t *testing.T) {
	m, _ := newTestManager(t)

	got := m.Metrics(context.Background())
	if got.Health.Status != "healthy" {
		t.Fatalf("Health = %+v", got.Health)
	}
	if got.Pool.MaxConns != 20 {
		t.Errorf("Pool.MaxConns = %d, want 20", got.Pool.MaxConns)
	}
}
