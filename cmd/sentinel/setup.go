package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sentinel/config"
	"sentinel/internal/filter"
	"sentinel/internal/geo"
	inputredis "sentinel/internal/input/redis"
	inputws "sentinel/internal/input/websocket"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/output/alertclickhouse"
	"sentinel/internal/output/alerthttp"
	"sentinel/internal/output/alertjson"
	"sentinel/internal/output/rawjsonl"
	"sentinel/internal/output/snapshothttp"
	"sentinel/internal/output/snapshotjson"
	"sentinel/internal/pipeline"
	"sentinel/internal/rules"
	"sentinel/internal/savedfilter"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat("sentinel.yml"); err == nil {
		return "sentinel.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, "sentinel.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "sentinel.yml"
}

// loadConfig loads the config file if present; a missing file yields the
// defaults so offline commands work without one.
func loadConfig(configArg string) (*config.Config, string) {
	path := findConfigFile(configArg)
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = &config.Config{}
		path = "(defaults)"
	}
	applyDefaults(cfg)

	if err := logger.Init(logger.Options{
		Enabled: cfg.Sentinel.Logging.Enabled,
		Level:   cfg.Sentinel.Logging.Level,
		File:    cfg.Sentinel.Logging.File,
		Console: cfg.Sentinel.Logging.Console,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return cfg, path
}

func applyDefaults(cfg *config.Config) {
	s := &cfg.Sentinel

	if s.API.Timeout <= 0 {
		s.API.Timeout = 10 * time.Second
	}

	if s.Live.Transport == "" {
		s.Live.Transport = "websocket"
	}
	if s.Live.WebSocket.URL == "" && s.API.BaseURL != "" {
		base := strings.TrimRight(s.API.BaseURL, "/")
		base = strings.Replace(base, "http", "ws", 1)
		s.Live.WebSocket.URL = base + "/ws"
	}
	if s.Live.WebSocket.Event == "" {
		s.Live.WebSocket.Event = "new_alert"
	}
	if s.Live.WebSocket.ReconnectDelay <= 0 {
		s.Live.WebSocket.ReconnectDelay = 2 * time.Second
	}
	if s.Live.WebSocket.HandshakeTimeout <= 0 {
		s.Live.WebSocket.HandshakeTimeout = 20 * time.Second
	}
	if s.Live.Redis.Addr == "" {
		s.Live.Redis.Addr = "127.0.0.1:6379"
	}
	if s.Live.Redis.Key == "" {
		s.Live.Redis.Key = "suricata_eve"
	}
	if s.Live.Redis.BlockTimeout == 0 {
		s.Live.Redis.BlockTimeout = 5 * time.Second
	}
	if s.Live.QueueSize <= 0 {
		s.Live.QueueSize = 1024
	}
	if s.Live.BatchSize <= 0 {
		s.Live.BatchSize = 500
	}
	if s.Live.FlushInterval <= 0 {
		s.Live.FlushInterval = 2 * time.Second
	}

	if s.Geo.URL == "" && s.API.BaseURL != "" {
		s.Geo.URL = strings.TrimRight(s.API.BaseURL, "/") + "/api/geo"
	}
	if s.Geo.Timeout <= 0 {
		s.Geo.Timeout = 10 * time.Second
	}
	if s.Geo.CacheTTL <= 0 {
		s.Geo.CacheTTL = time.Hour
	}

	if s.SavedFilters.Backend == "" {
		s.SavedFilters.Backend = "api"
	}
	if s.SavedFilters.Redis.Addr == "" {
		s.SavedFilters.Redis.Addr = "127.0.0.1:6379"
	}
	if s.SavedFilters.KeyPrefix == "" {
		s.SavedFilters.KeyPrefix = "sentinel:filters"
	}

	if s.Output.Mode == "" {
		s.Output.Mode = "file"
	}
	if s.Output.File.Path == "" {
		s.Output.File.Path = "output/snapshot.json"
	}

	if s.Archive.Mode == "" {
		s.Archive.Mode = "file"
	}
	if s.Archive.File.Path == "" {
		s.Archive.File.Path = "output/alerts.jsonl"
	}
	if s.Archive.ClickHouse.Database == "" {
		s.Archive.ClickHouse.Database = "sentinel"
	}
	if s.Archive.ClickHouse.Table == "" {
		s.Archive.ClickHouse.Table = "ids_alerts"
	}

	if s.Capture.File.Path == "" {
		s.Capture.File.Path = "output/capture.jsonl"
	}

	if s.Metrics.Listen == "" {
		s.Metrics.Listen = ":9108"
	}

	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
}

// initialFilter converts the configured filter into an engine config.
func initialFilter(cfg config.FilterConfig, loc *time.Location) (filter.Config, error) {
	doc := savedfilter.Document{
		MinSeverity: cfg.MinSeverity,
		AlertsOnly:  cfg.AlertsOnly,
		Protocols:   cfg.Protocols,
		Port:        cfg.Port,
		IP:          cfg.IP,
	}
	if cfg.TimeRange.Start != "" {
		doc.TimeRange.Start = &cfg.TimeRange.Start
	}
	if cfg.TimeRange.End != "" {
		doc.TimeRange.End = &cfg.TimeRange.End
	}
	return savedfilter.DeserializeIn(doc, loc)
}

func buildTagger(cfg config.RulesConfig) rules.Tagger {
	if !cfg.Enabled {
		return &rules.NoopTagger{}
	}
	if strings.TrimSpace(cfg.Path) == "" {
		logger.Warnf("Rules enabled but rules.path is empty; rule tagging disabled")
		return &rules.NoopTagger{}
	}
	engine, stats, err := rules.NewSigmaEngine(cfg.Path)
	if err != nil {
		logger.Errorf("Failed to load Sigma rules from %s: %v", cfg.Path, err)
		log.Fatalf("Failed to load Sigma rules: %v", err)
	}
	logger.Infof("Sigma rules loaded: loaded=%d skipped_complex=%d skipped_datasource=%d skipped_invalid=%d files=%d",
		stats.Loaded,
		stats.SkippedComplex,
		stats.SkippedDatasource,
		stats.SkippedInvalid,
		stats.TotalFiles,
	)
	if stats.Loaded == 0 {
		logger.Warnf("No compatible Sigma rules loaded; rule tagging is effectively disabled")
	}
	return engine
}

func buildGeoCache(cfg config.GeoConfig, m *metrics.Metrics) (*geo.Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	lookup, err := geo.NewHTTPLookup(geo.HTTPConfig{
		URL:     cfg.URL,
		Timeout: cfg.Timeout,
		Headers: cfg.Headers,
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("Geo enrichment enabled: %s (ttl %s)", cfg.URL, cfg.CacheTTL)
	return geo.NewCache(lookup, cfg.CacheTTL, m), nil
}

func buildSource(cfg config.LiveConfig, m *metrics.Metrics) (pipeline.Source, error) {
	switch cfg.Transport {
	case "websocket":
		logger.Infof("Live transport: websocket (%s, event %s)", cfg.WebSocket.URL, cfg.WebSocket.Event)
		return inputws.NewClient(inputws.Config{
			URL:              cfg.WebSocket.URL,
			Event:            cfg.WebSocket.Event,
			ReconnectDelay:   cfg.WebSocket.ReconnectDelay,
			HandshakeTimeout: cfg.WebSocket.HandshakeTimeout,
			Headers:          cfg.WebSocket.Headers,
		}, m)
	case "redis":
		logger.Infof("Live transport: redis (%s, key %s)", cfg.Redis.Addr, cfg.Redis.Key)
		return inputredis.NewConsumer(inputredis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			Key:          cfg.Redis.Key,
			BlockTimeout: cfg.Redis.BlockTimeout,
		}, m)
	default:
		return nil, fmt.Errorf("unknown live transport: %s", cfg.Transport)
	}
}

func buildSnapshotWriter(cfg config.OutputConfig) (pipeline.SnapshotWriter, error) {
	switch cfg.Mode {
	case "none":
		return nil, nil
	case "file":
		logger.Infof("Snapshot output mode: file (%s)", cfg.File.Path)
		return snapshotjson.NewWriter(cfg.File.Path, cfg.File.Append)
	case "http":
		logger.Infof("Snapshot output mode: http (%s)", cfg.HTTP.URL)
		return snapshothttp.NewWriter(snapshothttp.Config{
			URL:     cfg.HTTP.URL,
			Timeout: cfg.HTTP.Timeout,
			Headers: cfg.HTTP.Headers,
		})
	default:
		return nil, fmt.Errorf("unknown snapshot output mode: %s", cfg.Mode)
	}
}

func buildAlertWriter(cfg config.ArchiveConfig) (pipeline.AlertWriter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Mode {
	case "file":
		logger.Infof("Archive mode: file (%s)", cfg.File.Path)
		return alertjson.NewWriter(cfg.File.Path)
	case "http":
		logger.Infof("Archive mode: http (%s)", cfg.HTTP.URL)
		return alerthttp.NewWriter(alerthttp.Config{
			URL:     cfg.HTTP.URL,
			Timeout: cfg.HTTP.Timeout,
			Headers: cfg.HTTP.Headers,
		})
	case "clickhouse":
		logger.Infof("Archive mode: clickhouse (%s/%s.%s)", cfg.ClickHouse.URL, cfg.ClickHouse.Database, cfg.ClickHouse.Table)
		return alertclickhouse.NewWriter(alertclickhouse.Config{
			URL:      cfg.ClickHouse.URL,
			Database: cfg.ClickHouse.Database,
			Table:    cfg.ClickHouse.Table,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
			Timeout:  cfg.ClickHouse.Timeout,
			Headers:  cfg.ClickHouse.Headers,
		})
	default:
		return nil, fmt.Errorf("unknown archive mode: %s", cfg.Mode)
	}
}

func buildRawWriter(cfg config.CaptureConfig) (pipeline.RawWriter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return rawjsonl.NewWriter(cfg.File.Path)
}

func buildFilterStore(cfg config.SentinelConfig) (savedfilter.Store, error) {
	switch cfg.SavedFilters.Backend {
	case "api":
		return savedfilter.NewHTTPStore(savedfilter.HTTPConfig{
			BaseURL: cfg.API.BaseURL,
			Token:   cfg.API.Token,
			Timeout: cfg.API.Timeout,
		})
	case "redis":
		return savedfilter.NewRedisStore(savedfilter.RedisConfig{
			Addr:      cfg.SavedFilters.Redis.Addr,
			Password:  cfg.SavedFilters.Redis.Password,
			DB:        cfg.SavedFilters.Redis.DB,
			KeyPrefix: cfg.SavedFilters.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown saved filter backend: %s", cfg.SavedFilters.Backend)
	}
}
