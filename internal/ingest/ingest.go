// Package ingest turns pushed payloads and uploaded batches into session
// state.
package ingest

import (
	"time"

	"sentinel/internal/dashboard"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/normalize"
	"sentinel/internal/rules"
	"sentinel/pkg/models"
)

// Channel is a push source of raw event payloads. The handler is invoked
// once per message, in arrival order.
type Channel interface {
	OnEvent(handler func(payload []byte))
	Close() error
}

const statsEventType = "stats"

// Ingestor normalizes events into a session.
type Ingestor struct {
	session *dashboard.Session
	tagger  rules.Tagger
	metrics *metrics.Metrics
	now     func() time.Time
	source  string
}

// Option customizes an Ingestor.
type Option func(*Ingestor)

// WithTagger classifies unsigned records before they enter the session.
func WithTagger(t rules.Tagger) Option {
	return func(i *Ingestor) { i.tagger = t }
}

// WithMetrics counts ingested and skipped events.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Ingestor) { i.metrics = m }
}

// WithClock overrides the clock used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(i *Ingestor) { i.now = now }
}

// WithSource labels live events in metrics.
func WithSource(source string) Option {
	return func(i *Ingestor) { i.source = source }
}

// NewIngestor creates an ingestor feeding session.
func NewIngestor(session *dashboard.Session, opts ...Option) *Ingestor {
	i := &Ingestor{
		session: session,
		tagger:  &rules.NoopTagger{},
		now:     time.Now,
		source:  "live",
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest handles one pushed payload. The normalized alert is prepended to
// the session and returned; skipped payloads return nil.
func (i *Ingestor) Ingest(payload []byte) *models.Alert {
	raw, ok := normalize.ParsePayload(payload)
	if !ok {
		logger.Debugf("Skipping malformed live payload (%d bytes)", len(payload))
		i.skipped("malformed")
		return nil
	}
	alert := i.normalize(raw)
	if alert == nil {
		i.skipped(statsEventType)
		return nil
	}
	i.session.Prepend(alert)
	i.ingested(i.source, 1)
	return alert
}

// Attach subscribes the ingestor to ch.
func (i *Ingestor) Attach(ch Channel) {
	ch.OnEvent(func(payload []byte) {
		i.Ingest(payload)
	})
}

// LoadBatch normalizes an uploaded batch and replaces the session
// collection with it. It returns the new generation and the alerts.
func (i *Ingestor) LoadBatch(raws []models.RawEvent) (uint64, []*models.Alert) {
	alerts := make([]*models.Alert, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			continue
		}
		if alert := i.normalize(raw); alert != nil {
			alerts = append(alerts, alert)
		}
	}
	gen := i.session.Replace(alerts)
	i.ingested("batch", len(alerts))
	logger.Infof("Loaded batch generation %d: %d records", gen, len(alerts))
	return gen, alerts
}

func (i *Ingestor) normalize(raw models.RawEvent) *models.Alert {
	if raw.FirstString("event_type") == statsEventType {
		return nil
	}
	alert := normalize.Normalize(raw, i.now())
	if i.tagger != nil && i.tagger.Tag(alert) {
		logger.Debugf("Rule %s tagged %s -> %s", alert.RuleID, alert.SourceAddress, alert.DestinationAddress)
		if i.metrics != nil {
			i.metrics.RuleTags.Inc()
		}
	}
	return alert
}

func (i *Ingestor) skipped(reason string) {
	if i.metrics != nil {
		i.metrics.EventsSkipped.WithLabelValues(reason).Inc()
	}
}

func (i *Ingestor) ingested(source string, n int) {
	if i.metrics != nil && n > 0 {
		i.metrics.EventsIngested.WithLabelValues(source).Add(float64(n))
	}
}
