// Package dashboard owns the alert collection and filter configuration of
// one operator session and derives every view from them.
package dashboard

import (
	"sync"
	"time"

	"sentinel/internal/aggregate"
	"sentinel/internal/filter"
	"sentinel/internal/geo"
	"sentinel/internal/metrics"
	"sentinel/pkg/models"
)

// Session is the single source of truth for the alert view. Mutations only
// record state and signal a change; derived data is recomputed on read.
//
// The collection is the live events in reverse arrival order followed by the
// last uploaded batch. live is kept in arrival order so a prepend is an
// append; readers holding an older slice header never see the new element.
type Session struct {
	mu         sync.RWMutex
	batch      []*models.Alert
	live       []*models.Alert
	filter     filter.Config
	generation uint64
	version    uint64
	geoPoints  map[string]models.GeoPoint
	location   *time.Location
	now        func() time.Time
	metrics    *metrics.Metrics
	changes    chan struct{}
}

// Option customizes a Session.
type Option func(*Session)

// WithLocation sets the zone used for hourly buckets.
func WithLocation(loc *time.Location) Option {
	return func(s *Session) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithMetrics reports collection size and stale geo results to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithClock overrides the snapshot clock.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates an empty session with the identity filter.
func NewSession(opts ...Option) *Session {
	s := &Session{
		filter:    filter.Default(),
		geoPoints: make(map[string]models.GeoPoint),
		location:  time.Local,
		now:       time.Now,
		changes:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace swaps the whole collection, as a completed batch upload does, and
// starts a new generation. Geo results of older generations are dropped.
func (s *Session) Replace(alerts []*models.Alert) uint64 {
	cp := make([]*models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a != nil {
			cp = append(cp, a)
		}
	}

	s.mu.Lock()
	s.batch = cp
	s.live = nil
	s.generation++
	s.version++
	s.geoPoints = make(map[string]models.GeoPoint)
	gen := s.generation
	s.observeLocked()
	s.mu.Unlock()

	s.notify()
	return gen
}

// Prepend adds one live event at the front, so the collection stays most
// recent first.
func (s *Session) Prepend(alert *models.Alert) {
	if alert == nil {
		return
	}
	s.mu.Lock()
	s.live = append(s.live, alert)
	s.version++
	s.observeLocked()
	s.mu.Unlock()

	s.notify()
}

// SetFilter replaces the filter configuration.
func (s *Session) SetFilter(cfg filter.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.filter = cfg.Clone()
	s.version++
	s.mu.Unlock()

	s.notify()
	return nil
}

// Filter returns a copy of the current filter configuration.
func (s *Session) Filter() filter.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.Clone()
}

// Alerts returns the current collection. The slice is a copy; the alerts
// themselves are shared and must be treated as read-only.
func (s *Session) Alerts() []*models.Alert {
	_, alerts := s.collection()
	return alerts
}

func (s *Session) collection() (uint64, []*models.Alert) {
	s.mu.RLock()
	gen, live, batch := s.generation, s.live, s.batch
	s.mu.RUnlock()
	return gen, ordered(live, batch)
}

func ordered(live, batch []*models.Alert) []*models.Alert {
	out := make([]*models.Alert, 0, len(live)+len(batch))
	for i := len(live) - 1; i >= 0; i-- {
		out = append(out, live[i])
	}
	return append(out, batch...)
}

// Generation returns the batch generation of the collection.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Version increments on every mutation of alerts, filter, or geo data.
func (s *Session) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Changes delivers a coalesced signal after mutations. Consumers re-read the
// session instead of relying on one signal per mutation.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

// ApplyGeo merges resolved points computed for generation. Results for an
// older generation are discarded and false is returned.
func (s *Session) ApplyGeo(generation uint64, points map[string]models.GeoPoint) bool {
	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.GeoStaleResults.Inc()
		}
		return false
	}
	changed := false
	for addr, p := range points {
		if old, ok := s.geoPoints[addr]; ok && old == p {
			continue
		}
		s.geoPoints[addr] = p
		changed = true
	}
	if changed {
		s.version++
	}
	s.mu.Unlock()
	return true
}

func (s *Session) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Session) observeLocked() {
	if s.metrics == nil {
		return
	}
	s.metrics.CollectionSize.Set(float64(len(s.live) + len(s.batch)))
	s.metrics.Generation.Set(float64(s.generation))
}

// View is a consistent derivation of the session state.
type View struct {
	Generation uint64
	Version    uint64
	Total      int
	Filtered   []*models.Alert
	Summary    models.Summary
	Severity   models.SeverityHistogram
	Protocols  models.ProtocolDistribution
	Hourly     models.HourlyActivity
}

// View filters and aggregates the latest state. Filtered alerts carry geo
// coordinates when they are known.
func (s *Session) View() View {
	s.mu.RLock()
	live, batch := s.live, s.batch
	cfg := s.filter
	points := make(map[string]models.GeoPoint, len(s.geoPoints))
	for k, v := range s.geoPoints {
		points[k] = v
	}
	gen, ver, loc := s.generation, s.version, s.location
	s.mu.RUnlock()

	alerts := ordered(live, batch)
	filtered := geo.Attach(filter.Apply(alerts, cfg), points)
	return View{
		Generation: gen,
		Version:    ver,
		Total:      len(alerts),
		Filtered:   filtered,
		Summary:    aggregate.Summarize(filtered),
		Severity:   aggregate.SeverityCounts(filtered),
		Protocols:  aggregate.ProtocolCounts(filtered),
		Hourly:     aggregate.Hourly(filtered, loc),
	}
}

// Snapshot packages the current view for publication.
func (s *Session) Snapshot() *models.Snapshot {
	v := s.View()
	return &models.Snapshot{
		GeneratedAt:   s.now().UTC(),
		Generation:    v.Generation,
		Version:       v.Version,
		TotalRecords:  v.Total,
		FilteredCount: len(v.Filtered),
		Summary:       v.Summary,
		Severity:      v.Severity,
		Protocols:     v.Protocols,
		Hourly:        v.Hourly,
		GeoPoints:     mapPoints(v.Filtered),
	}
}

func mapPoints(alerts []*models.Alert) []models.GeoPoint {
	seen := make(map[string]struct{})
	var out []models.GeoPoint
	for _, a := range alerts {
		for _, p := range []*models.GeoPoint{a.SourceGeo, a.DestinationGeo} {
			if p == nil {
				continue
			}
			if _, ok := seen[p.Address]; ok {
				continue
			}
			seen[p.Address] = struct{}{}
			out = append(out, *p)
		}
	}
	return out
}
