package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
sentinel:
  api:
    base_url: http://localhost:5000
    token: secret
    user: analyst
  live:
    transport: websocket
    websocket:
      url: ws://localhost:5000/api/alerts/stream
      reconnect_delay: 2s
    flush_interval: 500ms
  geo:
    enabled: true
    url: http://localhost:5000/api/geo
    cache_ttl: 30m
  filter:
    min_severity: 2
    protocols: [tcp, udp]
    port: 443
    time_range:
      start: "2026-03-01T00:00"
  archive:
    enabled: true
    mode: clickhouse
    clickhouse:
      url: http://clickhouse:8123
      database: soc
  metrics:
    enabled: true
    listen: ":9108"
  logging:
    enabled: true
    level: debug
    console: true
  timezone: UTC
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.yml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := cfg.Sentinel
	if s.API.BaseURL != "http://localhost:5000" || s.API.User != "analyst" {
		t.Fatalf("unexpected api config %+v", s.API)
	}
	if s.Live.WebSocket.ReconnectDelay != 2*time.Second || s.Live.FlushInterval != 500*time.Millisecond {
		t.Fatalf("durations not parsed: %+v", s.Live)
	}
	if !s.Geo.Enabled || s.Geo.CacheTTL != 30*time.Minute {
		t.Fatalf("unexpected geo config %+v", s.Geo)
	}
	if s.Filter.MinSeverity != 2 || len(s.Filter.Protocols) != 2 || s.Filter.Port == nil || *s.Filter.Port != 443 {
		t.Fatalf("unexpected filter config %+v", s.Filter)
	}
	if s.Filter.TimeRange.Start != "2026-03-01T00:00" {
		t.Fatalf("unexpected time range %+v", s.Filter.TimeRange)
	}
	if s.Archive.Mode != "clickhouse" || s.Archive.ClickHouse.Database != "soc" {
		t.Fatalf("unexpected archive config %+v", s.Archive)
	}
	loc, err := s.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC location, got %v, %v", loc, err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yml")
	os.WriteFile(path, []byte("sentinel: [unterminated"), 0o644)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := (SentinelConfig{Timezone: "Mars/Olympus"}).Location(); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}
