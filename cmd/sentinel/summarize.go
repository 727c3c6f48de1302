package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"sentinel/config"
	"sentinel/internal/dashboard"
	"sentinel/internal/ingest"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/output/snapshotjson"
)

func runSummarize(args []string) int {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	configArg := fs.String("config", "", "Path to sentinel.yml")
	input := fs.String("input", "", "EVE/Snort export (JSON array or JSONL)")
	remote := fs.Bool("remote", false, "Parse the export through the upload API instead of locally")
	output := fs.String("output", "", "Write the snapshot to this file instead of stdout")
	withGeo := fs.Bool("geo", false, "Resolve geo points before writing the snapshot")
	geoTimeout := fs.Duration("geo-timeout", 10*time.Second, "Time budget for geo resolution")
	minSeverity := fs.Int("min-severity", 0, "Keep alerts at or above this level (1=High, 3=Low, 0=any)")
	alertsOnly := fs.Bool("alerts-only", false, "Drop records without a severity")
	protocols := fs.String("protocols", "", "Comma-separated protocol allow list")
	port := fs.Int("port", 0, "Match source or destination port")
	ip := fs.String("ip", "", "Match source or destination address")
	start := fs.String("start", "", "Lower time bound")
	end := fs.String("end", "", "Upper time bound")
	saved := fs.String("saved", "", "Apply the named saved filter")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "summarize: -input is required")
		return 2
	}

	cfg, _ := loadConfig(*configArg)
	s := cfg.Sentinel
	loc, err := s.Location()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid timezone: %v\n", err)
		return 1
	}

	// Flags given on the command line override the configured filter.
	fc := s.Filter
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-severity":
			fc.MinSeverity = *minSeverity
		case "alerts-only":
			fc.AlertsOnly = *alertsOnly
		case "protocols":
			fc.Protocols = splitList(*protocols)
		case "port":
			p := *port
			fc.Port = &p
		case "ip":
			fc.IP = *ip
		case "start":
			fc.TimeRange.Start = *start
		case "end":
			fc.TimeRange.End = *end
		case "saved":
			fc.Saved = *saved
		}
	})
	s.Filter = fc

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(nil)
	session := dashboard.NewSession(dashboard.WithLocation(loc), dashboard.WithMetrics(m))
	if code := applyStartupFilter(ctx, s, session, loc); code != 0 {
		return code
	}

	events, err := loadEvents(ctx, s, *input, *remote)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *input, err)
		return 1
	}
	ingestor := ingest.NewIngestor(session,
		ingest.WithTagger(buildTagger(s.Rules)),
		ingest.WithMetrics(m),
		ingest.WithSource("file"),
	)
	ingestor.LoadBatch(events)

	if *withGeo {
		if code := resolveGeo(ctx, s, session, m, *geoTimeout); code != 0 {
			return code
		}
	}

	snapshot := session.Snapshot()
	if *output != "" {
		w, err := snapshotjson.NewWriter(*output, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", *output, err)
			return 1
		}
		defer w.Close()
		if err := w.WriteSnapshot(snapshot); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write snapshot: %v\n", err)
			return 1
		}
		logger.Infof("Snapshot written to %s (%d of %d records)", *output, snapshot.FilteredCount, snapshot.TotalRecords)
		return 0
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode snapshot: %v\n", err)
		return 1
	}
	return 0
}

func resolveGeo(ctx context.Context, s config.SentinelConfig, session *dashboard.Session, m *metrics.Metrics, timeout time.Duration) int {
	s.Geo.Enabled = true
	cache, err := buildGeoCache(s.Geo, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure geo enrichment: %v\n", err)
		return 1
	}
	geoCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if !dashboard.NewEnricher(session, cache).EnrichOnce(geoCtx) {
		logger.Warnf("Geo resolution did not complete; snapshot has no map points")
	}
	return 0
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
