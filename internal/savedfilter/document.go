// Package savedfilter round-trips filter configurations through the saved
// filters store.
package savedfilter

import (
	"fmt"
	"strings"
	"time"

	"sentinel/internal/filter"
)

// Document is the transport form of a filter configuration, stored as
// filters_json.
type Document struct {
	MinSeverity int          `json:"minSeverity"`
	AlertsOnly  bool         `json:"alertsOnly"`
	Protocols   []string     `json:"protocols"`
	Port        *int         `json:"port,omitempty"`
	IP          string       `json:"ip"`
	TimeRange   TimeRangeDoc `json:"timeRange"`
}

// TimeRangeDoc holds optional bound strings.
type TimeRangeDoc struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// Accepted bound layouts. Layouts without a zone are datetime-local values.
var (
	zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}
	localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02"}
)

// Serialize converts cfg to its transport form. Protocols are emitted in
// sorted order.
func Serialize(cfg filter.Config) Document {
	doc := Document{
		MinSeverity: cfg.MinSeverity,
		AlertsOnly:  cfg.AlertsOnly,
		Protocols:   cfg.Protocols.Sorted(),
		IP:          cfg.AddressSubstring,
	}
	if doc.Protocols == nil {
		doc.Protocols = []string{}
	}
	if cfg.Port != nil {
		p := *cfg.Port
		doc.Port = &p
	}
	doc.TimeRange.Start = formatBound(cfg.TimeRange.Start)
	doc.TimeRange.End = formatBound(cfg.TimeRange.End)
	return doc
}

// Deserialize rebuilds a filter configuration. Bounds without a zone are
// read in the local zone.
func Deserialize(doc Document) (filter.Config, error) {
	return DeserializeIn(doc, time.Local)
}

// DeserializeIn is Deserialize with an explicit zone for zoneless bounds.
func DeserializeIn(doc Document, loc *time.Location) (filter.Config, error) {
	cfg := filter.Config{
		MinSeverity:      doc.MinSeverity,
		AlertsOnly:       doc.AlertsOnly,
		Protocols:        filter.NewProtocolSet(doc.Protocols...),
		AddressSubstring: doc.IP,
	}
	if doc.Port != nil {
		p := *doc.Port
		cfg.Port = &p
	}

	var err error
	if cfg.TimeRange.Start, err = parseBound(doc.TimeRange.Start, loc); err != nil {
		return filter.Config{}, fmt.Errorf("time range start: %w", err)
	}
	if cfg.TimeRange.End, err = parseBound(doc.TimeRange.End, loc); err != nil {
		return filter.Config{}, fmt.Errorf("time range end: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return filter.Config{}, err
	}
	return cfg, nil
}

func formatBound(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}

func parseBound(value *string, loc *time.Location) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*value)
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized time %q", s)
}
