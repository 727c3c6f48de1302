package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sentinel/config"
	"sentinel/internal/dashboard"
	"sentinel/internal/ingest"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/pipeline"
	"sentinel/internal/prefs"
	"sentinel/internal/upload"
	"sentinel/pkg/models"
)

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	configArg := fs.String("config", "", "Path to sentinel.yml")
	load := fs.String("load", "", "Optional EVE/Snort export to load as the initial batch")
	remote := fs.Bool("remote", false, "Parse -load through the upload API instead of locally")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, configPath := loadConfig(*configArg)
	s := cfg.Sentinel
	logger.Infof("Sentinel starting")
	logger.Infof("Config loaded from: %s", configPath)

	loc, err := s.Location()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid timezone: %v\n", err)
		return 1
	}

	m := metrics.New(nil)
	session := dashboard.NewSession(dashboard.WithLocation(loc), dashboard.WithMetrics(m))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if code := applyStartupFilter(ctx, cfg.Sentinel, session, loc); code != 0 {
		return code
	}

	ingestor := ingest.NewIngestor(session,
		ingest.WithTagger(buildTagger(s.Rules)),
		ingest.WithMetrics(m),
		ingest.WithSource(s.Live.Transport),
	)

	if *load != "" {
		events, err := loadEvents(ctx, s, *load, *remote)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *load, err)
			return 1
		}
		ingestor.LoadBatch(events)
	}

	cache, err := buildGeoCache(s.Geo, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure geo enrichment: %v\n", err)
		return 1
	}
	var enricher *dashboard.Enricher
	if cache != nil {
		enricher = dashboard.NewEnricher(session, cache)
	}

	source, err := buildSource(s.Live, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create live channel: %v\n", err)
		return 1
	}
	snapshots, err := buildSnapshotWriter(s.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create snapshot writer: %v\n", err)
		return 1
	}
	archive, err := buildAlertWriter(s.Archive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create archive writer: %v\n", err)
		return 1
	}
	capture, err := buildRawWriter(s.Capture)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create capture writer: %v\n", err)
		return 1
	}

	pipe := pipeline.NewLivePipeline(pipeline.Options{
		Source:         source,
		Ingestor:       ingestor,
		Session:        session,
		Enricher:       enricher,
		SnapshotWriter: snapshots,
		AlertWriter:    archive,
		RawWriter:      capture,
		Notify:         notifier(ctx, s),
		Metrics:        m,
		QueueSize:      s.Live.QueueSize,
		BatchSize:      s.Live.BatchSize,
		FlushInterval:  s.Live.FlushInterval,
	})

	var srv *http.Server
	if addr := httpAddr(s); addr != "" {
		srv = startHTTP(addr, s.Metrics.Enabled, session)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := pipe.Run(ctx); err != nil && err != context.Canceled {
			logger.Errorf("Pipeline error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warnf("Pipeline did not stop within 5s")
	}

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		srv.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	if err := pipe.Close(); err != nil {
		logger.Errorf("Error closing pipeline: %v", err)
	}

	logger.Infof("Sentinel stopped")
	logger.Close()
	return 0
}

// applyStartupFilter installs the configured filter, or the named saved
// filter when filter.saved is set.
func applyStartupFilter(ctx context.Context, s config.SentinelConfig, session *dashboard.Session, loc *time.Location) int {
	fc, err := initialFilter(s.Filter, loc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid filter config: %v\n", err)
		return 1
	}

	if s.Filter.Saved != "" {
		store, err := buildFilterStore(s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open saved filters: %v\n", err)
			return 1
		}
		saved, err := findSaved(ctx, store, s.API.User, s.Filter.Saved)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load saved filter %q: %v\n", s.Filter.Saved, err)
			return 1
		}
		fc = saved.Config
		logger.Infof("Applied saved filter %q (%s)", saved.Name, saved.ID)
	}

	if err := session.SetFilter(fc); err != nil {
		fmt.Fprintf(os.Stderr, "invalid filter config: %v\n", err)
		return 1
	}
	return 0
}

func loadEvents(ctx context.Context, s config.SentinelConfig, path string, remote bool) ([]models.RawEvent, error) {
	if !remote {
		return upload.DecodeFile(path)
	}
	client, err := upload.NewClient(upload.Config{
		BaseURL: s.API.BaseURL,
		Headers: authHeaders(s.API.Token),
	})
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()
	return client.Upload(ctx, path, f)
}

// notifier logs alerts whose severity the operator asked to be notified
// about. Without an API the default preferences apply.
func notifier(ctx context.Context, s config.SentinelConfig) func(*models.Alert) {
	p := prefs.Default()
	if s.API.BaseURL != "" {
		client, err := prefs.NewClient(prefs.Config{BaseURL: s.API.BaseURL, Token: s.API.Token, Timeout: s.API.Timeout})
		if err == nil {
			fetchCtx, cancel := context.WithTimeout(ctx, s.API.Timeout)
			if got, err := client.Get(fetchCtx); err != nil {
				logger.Warnf("Failed to fetch alert preferences, using defaults: %v", err)
			} else {
				p = got
			}
			cancel()
		}
	}
	return func(a *models.Alert) {
		if p.Notifies(a.Severity) {
			logger.Warnf("[%s] %s %s -> %s", *a.Severity, a.Signature, a.SourceAddress, a.DestinationAddress)
		}
	}
}

// httpAddr picks the listen address for the status endpoint. Metrics and
// snapshots share one server when both are enabled.
func httpAddr(s config.SentinelConfig) string {
	if s.Metrics.Enabled {
		return s.Metrics.Listen
	}
	return s.Output.Listen
}

func startHTTP(addr string, withMetrics bool, session *dashboard.Session) *http.Server {
	mux := http.NewServeMux()
	if withMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(session.Snapshot()); err != nil {
			logger.Errorf("Failed to encode snapshot: %v", err)
		}
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("HTTP endpoint listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP endpoint failed: %v", err)
		}
	}()
	return srv
}

func authHeaders(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}
