// Package aggregate derives summary statistics and chart projections from a
// filtered alert view. Every function is pure.
package aggregate

import (
	"sort"
	"time"

	"sentinel/pkg/models"
)

// TopLimit is the length of every top-N ranking on the dashboard.
const TopLimit = 5

// Summarize computes the headline statistics. Top talkers count every record;
// the alert total, top targets and top signatures count only records with a
// severity.
func Summarize(alerts []*models.Alert) models.Summary {
	var talkers, targets, signatures counter
	total := 0
	for _, a := range alerts {
		if a == nil {
			continue
		}
		talkers.add(a.SourceAddress)
		if !a.IsThreat() {
			continue
		}
		total++
		targets.add(a.DestinationAddress)
		signatures.add(a.Signature)
	}
	return models.Summary{
		TotalAlerts:   total,
		TopTalkers:    talkers.top(TopLimit),
		TopTargets:    targets.top(TopLimit),
		TopSignatures: signatures.top(TopLimit),
	}
}

// TopN ranks keys by occurrence. Empty keys are ignored. Ties keep the order
// in which keys were first seen.
func TopN(keys []string, n int) []models.Ranked {
	var c counter
	for _, k := range keys {
		c.add(k)
	}
	return c.top(n)
}

// counter tallies keys and remembers first-seen order.
type counter struct {
	index  map[string]int
	ranked []models.Ranked
}

func (c *counter) add(key string) {
	if key == "" {
		return
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if i, ok := c.index[key]; ok {
		c.ranked[i].Count++
		return
	}
	c.index[key] = len(c.ranked)
	c.ranked = append(c.ranked, models.Ranked{Key: key, Count: 1})
}

func (c *counter) top(n int) []models.Ranked {
	out := make([]models.Ranked, len(c.ranked))
	copy(out, c.ranked)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SeverityCounts counts alerts at each of the three levels. Out-of-range
// severities are not counted.
func SeverityCounts(alerts []*models.Alert) models.SeverityHistogram {
	var h models.SeverityHistogram
	for _, a := range alerts {
		if !a.IsThreat() {
			continue
		}
		switch *a.Severity {
		case models.SeverityHigh:
			h.High++
		case models.SeverityMedium:
			h.Medium++
		case models.SeverityLow:
			h.Low++
		}
	}
	return h
}

// ProtocolCounts buckets records into TCP, UDP, ICMP, and Other. Records
// without a protocol land in Other.
func ProtocolCounts(alerts []*models.Alert) models.ProtocolDistribution {
	var d models.ProtocolDistribution
	for _, a := range alerts {
		if a == nil {
			continue
		}
		switch a.Protocol {
		case "TCP":
			d.TCP++
		case "UDP":
			d.UDP++
		case "ICMP":
			d.ICMP++
		default:
			d.Other++
		}
	}
	return d
}

// Hourly buckets records by hour of day in loc. Records with a severity feed
// the threat series, the rest feed the activity series. Records whose
// timestamp was inferred at ingestion are left out of both.
func Hourly(alerts []*models.Alert, loc *time.Location) models.HourlyActivity {
	if loc == nil {
		loc = time.Local
	}
	var h models.HourlyActivity
	for _, a := range alerts {
		if a == nil || a.TimestampInferred || a.Timestamp.IsZero() {
			continue
		}
		hour := a.Timestamp.In(loc).Hour()
		if a.IsThreat() {
			h.Threats[hour]++
		} else {
			h.Activity[hour]++
		}
	}
	return h
}
