package pipeline

import (
	"context"
	"sync"
	"time"

	"sentinel/internal/dashboard"
	"sentinel/internal/ingest"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/pkg/models"
)

// Source is a live channel that delivers payloads while Run is active.
type Source interface {
	ingest.Channel
	Run(ctx context.Context) error
}

// Options configures a LivePipeline. Only Source, Ingestor and Session are
// required.
type Options struct {
	Source         Source
	Ingestor       *ingest.Ingestor
	Session        *dashboard.Session
	Enricher       *dashboard.Enricher
	SnapshotWriter SnapshotWriter
	AlertWriter    AlertWriter
	RawWriter      RawWriter
	Notify         func(alert *models.Alert)
	Metrics        *metrics.Metrics
	QueueSize      int
	BatchSize      int
	FlushInterval  time.Duration
}

// LivePipeline feeds a live channel into the session, keeps geo enrichment
// running, and periodically publishes snapshots and archives new alerts.
type LivePipeline struct {
	source        Source
	ingestor      *ingest.Ingestor
	session       *dashboard.Session
	enricher      *dashboard.Enricher
	snapshots     SnapshotWriter
	alertWriter   AlertWriter
	rawWriter     RawWriter
	notify        func(alert *models.Alert)
	metrics       *metrics.Metrics
	queueSize     int
	batchSize     int
	flushInterval time.Duration
}

type workItem struct {
	raw   []byte
	alert *models.Alert
}

// NewLivePipeline creates a live pipeline.
func NewLivePipeline(opts Options) *LivePipeline {
	return &LivePipeline{
		source:        opts.Source,
		ingestor:      opts.Ingestor,
		session:       opts.Session,
		enricher:      opts.Enricher,
		snapshots:     opts.SnapshotWriter,
		alertWriter:   opts.AlertWriter,
		rawWriter:     opts.RawWriter,
		notify:        opts.Notify,
		metrics:       opts.Metrics,
		queueSize:     opts.QueueSize,
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
	}
}

// Run starts the pipeline and blocks until ctx is done.
func (p *LivePipeline) Run(ctx context.Context) error {
	logger.Infof("Live pipeline started")

	if p.queueSize <= 0 {
		p.queueSize = 1024
	}
	if p.batchSize <= 0 {
		p.batchSize = 500
	}
	if p.flushInterval <= 0 {
		p.flushInterval = 2 * time.Second
	}

	msgCh := make(chan []byte, p.queueSize)
	workCh := make(chan workItem, p.queueSize)

	p.source.OnEvent(func(payload []byte) {
		buf := make([]byte, len(payload))
		copy(buf, payload)
		select {
		case msgCh <- buf:
		case <-ctx.Done():
		}
	})

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.source.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("Live source stopped: %v", err)
		}
	}()

	if p.enricher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.enricher.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.ingestLoop(ctx, msgCh, workCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.writeLoop(ctx, workCh)
	}()

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// Close releases pipeline resources.
func (p *LivePipeline) Close() error {
	if p.alertWriter != nil {
		if err := p.alertWriter.Close(); err != nil {
			logger.Errorf("Failed to close alert writer: %v", err)
		}
	}
	if p.rawWriter != nil {
		if err := p.rawWriter.Close(); err != nil {
			logger.Errorf("Failed to close raw writer: %v", err)
		}
	}
	if p.snapshots != nil {
		if err := p.snapshots.Close(); err != nil {
			logger.Errorf("Failed to close snapshot writer: %v", err)
		}
	}
	if p.source != nil {
		return p.source.Close()
	}
	return nil
}

// ingestLoop is the only writer of live events, so the session sees them in
// channel order. It never waits on the write loop.
func (p *LivePipeline) ingestLoop(ctx context.Context, in <-chan []byte, out chan<- workItem) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-in:
			alert := p.ingestor.Ingest(payload)
			if alert != nil && p.notify != nil {
				p.notify(alert)
			}
			// The session already has the alert; a stalled writer only
			// costs archive records.
			select {
			case out <- workItem{raw: payload, alert: alert}:
			default:
				if p.metrics != nil {
					p.metrics.ArchiveDropped.Inc()
				}
				logger.Debugf("Writer queue full, record not archived")
			}
		}
	}
}

func (p *LivePipeline) writeLoop(ctx context.Context, in <-chan workItem) {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	var batchAlerts []*models.Alert
	var batchRaw [][]byte
	var published bool
	var lastVersion uint64

	retry := func(what string, write func() error) bool {
		for {
			err := write()
			if err == nil {
				return true
			}
			logger.Errorf("Failed to write %s: %v", what, err)
			select {
			case <-ctx.Done():
				return false
			case <-time.After(1 * time.Second):
			}
		}
	}

	flushBatches := func() {
		if p.rawWriter != nil && len(batchRaw) > 0 {
			if retry("raw messages", func() error { return p.rawWriter.WriteRawMessages(batchRaw) }) {
				batchRaw = nil
			}
		}
		if p.alertWriter != nil && len(batchAlerts) > 0 {
			if retry("alerts", func() error { return p.alertWriter.WriteAlerts(batchAlerts) }) {
				if p.metrics != nil {
					p.metrics.AlertsArchived.Add(float64(len(batchAlerts)))
				}
				batchAlerts = nil
			}
		}
	}

	publish := func() {
		if p.snapshots == nil {
			return
		}
		version := p.session.Version()
		if published && version == lastVersion {
			return
		}
		snap := p.session.Snapshot()
		ok := retry("snapshot", func() error {
			err := p.snapshots.WriteSnapshot(snap)
			if p.metrics != nil {
				result := "ok"
				if err != nil {
					result = "error"
				}
				p.metrics.SnapshotWrites.WithLabelValues(result).Inc()
			}
			return err
		})
		if ok {
			published = true
			lastVersion = snap.Version
		}
	}

	for {
		select {
		case <-ctx.Done():
			flushBatches()
			publish()
			return
		case <-ticker.C:
			flushBatches()
			publish()
		case item := <-in:
			if p.rawWriter != nil {
				batchRaw = append(batchRaw, item.raw)
			}
			if p.alertWriter != nil && item.alert != nil {
				batchAlerts = append(batchAlerts, item.alert)
			}
			if len(batchAlerts) >= p.batchSize || len(batchRaw) >= p.batchSize {
				flushBatches()
			}
		}
	}
}
