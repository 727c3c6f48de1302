package models

import "time"

// ArchiveRecord is one alert as stored by the archive sinks: the canonical
// alert plus when it was archived and its derived classification.
type ArchiveRecord struct {
	ArchivedAt    time.Time `json:"archived_at"`
	Threat        bool      `json:"threat"`
	SeverityLabel string    `json:"severity_label,omitempty"`
	*Alert
}

// ArchiveRecords wraps alerts for archiving, skipping nil entries.
func ArchiveRecords(alerts []*Alert, at time.Time) []ArchiveRecord {
	out := make([]ArchiveRecord, 0, len(alerts))
	for _, a := range alerts {
		if a == nil {
			continue
		}
		rec := ArchiveRecord{ArchivedAt: at.UTC(), Threat: a.IsThreat(), Alert: a}
		if a.Severity != nil {
			rec.SeverityLabel = a.Severity.String()
		}
		out = append(out, rec)
	}
	return out
}
