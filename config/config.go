package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Sentinel SentinelConfig `yaml:"sentinel"`
}

// SentinelConfig is the project configuration.
type SentinelConfig struct {
	API          APIConfig          `yaml:"api"`
	Live         LiveConfig         `yaml:"live"`
	Geo          GeoConfig          `yaml:"geo"`
	Filter       FilterConfig       `yaml:"filter"`
	SavedFilters SavedFiltersConfig `yaml:"saved_filters"`
	Rules        RulesConfig        `yaml:"rules"`
	Output       OutputConfig       `yaml:"output"`
	Archive      ArchiveConfig      `yaml:"archive"`
	Capture      CaptureConfig      `yaml:"capture"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Logging      LoggingConfig      `yaml:"logging"`
	Timezone     string             `yaml:"timezone"`
}

// APIConfig points at the dashboard backend that owns uploads, saved
// filters, preferences and threat intel.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	User    string        `yaml:"user"`
	Timeout time.Duration `yaml:"timeout"`
}

// LiveConfig controls the live alert channel.
type LiveConfig struct {
	Transport     string          `yaml:"transport"` // websocket|redis
	WebSocket     WebSocketConfig `yaml:"websocket"`
	Redis         RedisConfig     `yaml:"redis"`
	QueueSize     int             `yaml:"queue_size"`
	BatchSize     int             `yaml:"batch_size"`
	FlushInterval time.Duration   `yaml:"flush_interval"`
}

// WebSocketConfig controls the websocket subscription.
type WebSocketConfig struct {
	URL              string            `yaml:"url"`
	Event            string            `yaml:"event"`
	ReconnectDelay   time.Duration     `yaml:"reconnect_delay"`
	HandshakeTimeout time.Duration     `yaml:"handshake_timeout"`
	Headers          map[string]string `yaml:"headers"`
}

// RedisConfig controls Redis access.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Key          string        `yaml:"key"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

// GeoConfig controls geo enrichment.
type GeoConfig struct {
	Enabled  bool              `yaml:"enabled"`
	URL      string            `yaml:"url"`
	Timeout  time.Duration     `yaml:"timeout"`
	CacheTTL time.Duration     `yaml:"cache_ttl"`
	Headers  map[string]string `yaml:"headers"`
}

// FilterConfig is the initial filter, in the saved-filter document shape.
type FilterConfig struct {
	MinSeverity int             `yaml:"min_severity"`
	AlertsOnly  bool            `yaml:"alerts_only"`
	Protocols   []string        `yaml:"protocols"`
	Port        *int            `yaml:"port"`
	IP          string          `yaml:"ip"`
	TimeRange   TimeRangeConfig `yaml:"time_range"`
	Saved       string          `yaml:"saved"`
}

// TimeRangeConfig holds optional bounds.
type TimeRangeConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// SavedFiltersConfig selects the saved-filter store.
type SavedFiltersConfig struct {
	Backend   string      `yaml:"backend"` // api|redis
	Redis     RedisConfig `yaml:"redis"`
	KeyPrefix string      `yaml:"key_prefix"`
}

// RulesConfig controls Sigma rule tagging.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// OutputConfig controls snapshot publication.
type OutputConfig struct {
	Mode   string           `yaml:"mode"` // file|http|none
	File   FileOutputConfig `yaml:"file"`
	HTTP   HTTPOutputConfig `yaml:"http"`
	Listen string           `yaml:"listen"`
}

// ArchiveConfig controls the alert archive sink.
type ArchiveConfig struct {
	Enabled    bool                   `yaml:"enabled"`
	Mode       string                 `yaml:"mode"` // file|http|clickhouse
	File       FileOutputConfig       `yaml:"file"`
	HTTP       HTTPOutputConfig       `yaml:"http"`
	ClickHouse ClickHouseOutputConfig `yaml:"clickhouse"`
}

// CaptureConfig controls raw message capture for replay.
type CaptureConfig struct {
	Enabled bool             `yaml:"enabled"`
	File    FileOutputConfig `yaml:"file"`
}

// ClickHouseOutputConfig config for ClickHouse HTTP JSONEachRow writes.
type ClickHouseOutputConfig struct {
	URL      string            `yaml:"url"`
	Database string            `yaml:"database"`
	Table    string            `yaml:"table"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Timeout  time.Duration     `yaml:"timeout"`
	Headers  map[string]string `yaml:"headers"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Path   string `yaml:"path"`
	Append bool   `yaml:"append"`
}

// HTTPOutputConfig config for remote output.
type HTTPOutputConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

// Location resolves the configured timezone. Empty means local time.
func (c SentinelConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
