package filter

import (
	"strings"

	"sentinel/pkg/models"
)

// Apply returns the alerts that satisfy every configured clause, in input
// order. The input slice is not modified.
func Apply(alerts []*models.Alert, cfg Config) []*models.Alert {
	out := make([]*models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if cfg.Matches(a) {
			out = append(out, a)
		}
	}
	return out
}

// Matches evaluates the conjunction of all clauses against a. Unset clauses
// are vacuously true.
func (c Config) Matches(a *models.Alert) bool {
	if a == nil {
		return false
	}
	if c.AlertsOnly && a.Signature == "" {
		return false
	}
	if c.MinSeverity > 0 {
		if a.Severity == nil || int(*a.Severity) > c.MinSeverity {
			return false
		}
	}
	if c.Protocols.Len() > 0 && !c.Protocols.Has(a.Protocol) {
		return false
	}
	if c.Port != nil && !portMatches(a, *c.Port) {
		return false
	}
	if c.AddressSubstring != "" &&
		!strings.Contains(a.SourceAddress, c.AddressSubstring) &&
		!strings.Contains(a.DestinationAddress, c.AddressSubstring) {
		return false
	}
	if c.TimeRange.IsSet() {
		// An inferred timestamp is ingestion time, not event time.
		if a.TimestampInferred {
			return false
		}
		if c.TimeRange.Start != nil && a.Timestamp.Before(*c.TimeRange.Start) {
			return false
		}
		if c.TimeRange.End != nil && a.Timestamp.After(*c.TimeRange.End) {
			return false
		}
	}
	return true
}

func portMatches(a *models.Alert, port int) bool {
	if p, ok := models.Port(a.SourcePort); ok && p == port {
		return true
	}
	if p, ok := models.Port(a.DestinationPort); ok && p == port {
		return true
	}
	return false
}
