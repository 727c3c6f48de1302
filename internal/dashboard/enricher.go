package dashboard

import (
	"context"

	"sentinel/internal/geo"
	"sentinel/internal/logger"
	"sentinel/pkg/models"
)

// Resolver resolves addresses to coordinates; *geo.Cache implements it.
type Resolver interface {
	Resolve(ctx context.Context, addrs []string) (map[string]models.GeoPoint, error)
}

// Enricher attaches geo coordinates to the session's collection. It runs one
// batched resolution per change signal rather than one per alert.
type Enricher struct {
	session  *Session
	resolver Resolver
}

// NewEnricher creates an enricher for session.
func NewEnricher(session *Session, resolver Resolver) *Enricher {
	return &Enricher{session: session, resolver: resolver}
}

// Run enriches after every change until ctx is done.
func (e *Enricher) Run(ctx context.Context) error {
	logger.Infof("Geo enricher started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.session.Changes():
			e.EnrichOnce(ctx)
		}
	}
}

// EnrichOnce resolves every address of the current collection and applies
// the result if the collection has not been replaced in the meantime. It
// reports whether the result was applied.
func (e *Enricher) EnrichOnce(ctx context.Context) bool {
	gen, alerts := e.session.collection()
	addrs := geo.Addresses(alerts)
	if len(addrs) == 0 {
		return true
	}

	points, err := e.resolver.Resolve(ctx, addrs)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		logger.Warnf("Geo enrichment degraded, %d of %d addresses resolved: %v", len(points), len(addrs), err)
	}

	if !e.session.ApplyGeo(gen, points) {
		logger.Debugf("Discarded geo results for generation %d", gen)
		return false
	}
	return true
}
