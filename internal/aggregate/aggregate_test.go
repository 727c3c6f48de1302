package aggregate

import (
	"testing"
	"time"

	"sentinel/pkg/models"
)

var day = time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC)

func sev(s models.Severity) *models.Severity {
	return &s
}

func TestTopNRanksByCountWithFirstSeenTieBreak(t *testing.T) {
	got := TopN([]string{"a", "b", "a", "c", "b", "a"}, TopLimit)
	want := []models.Ranked{{Key: "a", Count: 3}, {Key: "b", Count: 2}, {Key: "c", Count: 1}}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	ties := TopN([]string{"z", "y", "x", "y", "z", "x", "w"}, 3)
	if ties[0].Key != "z" || ties[1].Key != "y" || ties[2].Key != "x" {
		t.Fatalf("ties should keep first-seen order, got %v", ties)
	}
}

func TestTopNTruncatesAndSkipsEmptyKeys(t *testing.T) {
	got := TopN([]string{"", "a", "b", "c", "d", "e", "f", "g", ""}, TopLimit)
	if len(got) != TopLimit {
		t.Fatalf("expected %d entries, got %d", TopLimit, len(got))
	}
	for _, r := range got {
		if r.Key == "" {
			t.Fatalf("empty key ranked: %v", got)
		}
	}
}

func TestSummarizeCountsTalkersOverAllRecords(t *testing.T) {
	alerts := []*models.Alert{
		{SourceAddress: "a", DestinationAddress: "x", Signature: "s1", Severity: sev(1)},
		{SourceAddress: "b", DestinationAddress: "y"},
		{SourceAddress: "a", DestinationAddress: "y"},
		{SourceAddress: "c", DestinationAddress: "x", Signature: "s2", Severity: sev(3)},
		{SourceAddress: "b", DestinationAddress: "z", Signature: "s1", Severity: sev(2)},
		{SourceAddress: "a"},
	}

	s := Summarize(alerts)
	if s.TotalAlerts != 3 {
		t.Fatalf("expected 3 alerts with severity, got %d", s.TotalAlerts)
	}
	if s.TopTalkers[0] != (models.Ranked{Key: "a", Count: 3}) || s.TopTalkers[1] != (models.Ranked{Key: "b", Count: 2}) {
		t.Fatalf("unexpected talkers %v", s.TopTalkers)
	}
	if len(s.TopTargets) != 2 || s.TopTargets[0] != (models.Ranked{Key: "x", Count: 2}) || s.TopTargets[1].Key != "z" {
		t.Fatalf("targets must only count severity records, got %v", s.TopTargets)
	}
	if s.TopSignatures[0] != (models.Ranked{Key: "s1", Count: 2}) {
		t.Fatalf("unexpected signatures %v", s.TopSignatures)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalAlerts != 0 || len(s.TopTalkers) != 0 || len(s.TopTargets) != 0 || len(s.TopSignatures) != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}
}

func TestSeverityAndProtocolCounts(t *testing.T) {
	alerts := []*models.Alert{
		{Protocol: "TCP", Severity: sev(1)},
		{Protocol: "TCP", Severity: sev(3)},
		{Protocol: "UDP", Severity: sev(3)},
		{Protocol: "ICMP"},
		{Protocol: "GRE", Severity: sev(2)},
		{Protocol: "", Severity: sev(4)},
	}

	h := SeverityCounts(alerts)
	if h != (models.SeverityHistogram{High: 1, Medium: 1, Low: 2}) {
		t.Fatalf("unexpected severity histogram %+v", h)
	}
	d := ProtocolCounts(alerts)
	if d != (models.ProtocolDistribution{TCP: 2, UDP: 1, ICMP: 1, Other: 2}) {
		t.Fatalf("unexpected protocol distribution %+v", d)
	}
}

func TestHourlySplitsThreatsFromActivity(t *testing.T) {
	alerts := []*models.Alert{
		{Timestamp: day.Add(3 * time.Hour), Severity: sev(1)},
		{Timestamp: day.Add(3*time.Hour + 20*time.Minute)},
		{Timestamp: day.Add(14 * time.Hour), Severity: sev(2)},
		{Timestamp: day.Add(9 * time.Hour), TimestampInferred: true},
	}

	h := Hourly(alerts, time.UTC)
	for hour := 0; hour < 24; hour++ {
		wantThreats, wantActivity := 0, 0
		switch hour {
		case 3:
			wantThreats, wantActivity = 1, 1
		case 14:
			wantThreats = 1
		}
		if h.Threats[hour] != wantThreats || h.Activity[hour] != wantActivity {
			t.Fatalf("hour %d: threats=%d activity=%d, want %d/%d", hour, h.Threats[hour], h.Activity[hour], wantThreats, wantActivity)
		}
	}
}

func TestHourlyUsesRequestedLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	h := Hourly([]*models.Alert{{Timestamp: day.Add(23 * time.Hour), Severity: sev(1)}}, loc)
	if h.Threats[1] != 1 {
		t.Fatalf("expected bucket 1 in UTC+2, got %v", h.Threats)
	}
}
