package models

import "time"

// Ranked is one entry of a top-N ranking.
type Ranked struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary holds the headline statistics of a filtered view.
type Summary struct {
	TotalAlerts   int      `json:"total_alerts"`
	TopTalkers    []Ranked `json:"top_talkers"`
	TopTargets    []Ranked `json:"top_targets"`
	TopSignatures []Ranked `json:"top_signatures"`
}

// SeverityHistogram counts alerts per severity level.
type SeverityHistogram struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// ProtocolDistribution counts records per protocol bucket.
type ProtocolDistribution struct {
	TCP   int `json:"tcp"`
	UDP   int `json:"udp"`
	ICMP  int `json:"icmp"`
	Other int `json:"other"`
}

// HourlyActivity holds two parallel 24-bucket series indexed by local hour.
type HourlyActivity struct {
	Threats  [24]int `json:"threats"`
	Activity [24]int `json:"activity"`
}

// Snapshot is one derived dashboard view.
type Snapshot struct {
	GeneratedAt   time.Time            `json:"generated_at"`
	Generation    uint64               `json:"generation"`
	Version       uint64               `json:"version"`
	TotalRecords  int                  `json:"total_records"`
	FilteredCount int                  `json:"filtered_records"`
	Summary       Summary              `json:"summary"`
	Severity      SeverityHistogram    `json:"severity"`
	Protocols     ProtocolDistribution `json:"protocols"`
	Hourly        HourlyActivity       `json:"hourly"`
	GeoPoints     []GeoPoint           `json:"geo_points,omitempty"`
}
