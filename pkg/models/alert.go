package models

import "time"

// Severity is the ordinal threat level of an alert. Lower is more severe.
type Severity int

const (
	SeverityHigh   Severity = 1
	SeverityMedium Severity = 2
	SeverityLow    Severity = 3
)

// String returns the dashboard label for the level.
func (s Severity) String() string {
	switch s {
	case SeverityHigh:
		return "High"
	case SeverityMedium:
		return "Medium"
	case SeverityLow:
		return "Low"
	default:
		return "Unknown"
	}
}

// SeverityOf returns a pointer to s, for building alerts.
func SeverityOf(s Severity) *Severity {
	return &s
}

// Alert is the canonical record every ingested event is normalized into.
// Only Timestamp and Raw are guaranteed to be set.
type Alert struct {
	Timestamp          time.Time `json:"timestamp"`
	TimestampInferred  bool      `json:"timestamp_inferred,omitempty"`
	SourceAddress      string    `json:"src_ip,omitempty"`
	SourcePort         *int      `json:"src_port,omitempty"`
	DestinationAddress string    `json:"dest_ip,omitempty"`
	DestinationPort    *int      `json:"dest_port,omitempty"`
	Protocol           string    `json:"protocol,omitempty"`
	Signature          string    `json:"signature,omitempty"`
	SignatureID        string    `json:"signature_id,omitempty"`
	RuleID             string    `json:"rule_id,omitempty"`
	Action             string    `json:"action,omitempty"`
	Severity           *Severity `json:"severity,omitempty"`
	EventKind          string    `json:"type,omitempty"`
	Raw                RawEvent  `json:"original"`

	SourceGeo      *GeoPoint `json:"src_geo,omitempty"`
	DestinationGeo *GeoPoint `json:"dest_geo,omitempty"`
}

// IsThreat reports whether the record carries a severity, which is what
// separates detected threats from background activity.
func (a *Alert) IsThreat() bool {
	return a != nil && a.Severity != nil
}

// Port returns the value of an optional port and whether it is set.
func Port(p *int) (int, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// GeoPoint is a resolved location for one address.
type GeoPoint struct {
	Address   string  `json:"ip"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}
