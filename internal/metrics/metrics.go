package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for the alert pipeline.
type Metrics struct {
	EventsIngested  *prometheus.CounterVec
	EventsSkipped   *prometheus.CounterVec
	CollectionSize  prometheus.Gauge
	Generation      prometheus.Gauge
	GeoLookups      *prometheus.CounterVec
	GeoCacheHits    prometheus.Counter
	GeoStaleResults prometheus.Counter
	LiveReconnects  *prometheus.CounterVec
	SnapshotWrites  *prometheus.CounterVec
	AlertsArchived  prometheus.Counter
	ArchiveDropped  prometheus.Counter
	RuleTags        prometheus.Counter
}

// New builds the collectors and registers them with reg. A nil reg uses the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		EventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_events_ingested_total",
			Help: "Events normalized into the alert collection",
		}, []string{"source"}),
		EventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_events_skipped_total",
			Help: "Pushed payloads ignored before normalization",
		}, []string{"reason"}),
		CollectionSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_alert_collection_size",
			Help: "Records in the current alert collection",
		}),
		Generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_alert_generation",
			Help: "Batch generation of the current alert collection",
		}),
		GeoLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_geo_lookups_total",
			Help: "Batched GeoIP lookups by result",
		}, []string{"result"}),
		GeoCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_geo_cache_hits_total",
			Help: "Addresses answered from the geo cache",
		}),
		GeoStaleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_geo_stale_results_total",
			Help: "Geo results discarded because a newer batch was loaded",
		}),
		LiveReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_live_reconnects_total",
			Help: "Live channel reconnection attempts",
		}, []string{"transport"}),
		SnapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_snapshot_writes_total",
			Help: "Dashboard snapshot writes by result",
		}, []string{"result"}),
		AlertsArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_alerts_archived_total",
			Help: "Normalized alerts written to the archive sink",
		}),
		ArchiveDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_archive_dropped_total",
			Help: "Live records not archived because the writer queue was full",
		}),
		RuleTags: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_rule_tags_total",
			Help: "Activity records classified by a detection rule",
		}),
	}

	reg.MustRegister(
		m.EventsIngested,
		m.EventsSkipped,
		m.CollectionSize,
		m.Generation,
		m.GeoLookups,
		m.GeoCacheHits,
		m.GeoStaleResults,
		m.LiveReconnects,
		m.SnapshotWrites,
		m.AlertsArchived,
		m.ArchiveDropped,
		m.RuleTags,
	)
	return m
}
