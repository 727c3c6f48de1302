package savedfilter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"sentinel/internal/filter"
)

func strp(s string) *string { return &s }

func TestRoundTripIsLossless(t *testing.T) {
	port := 443
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	cfg := filter.Config{
		MinSeverity:      2,
		AlertsOnly:       true,
		Protocols:        filter.NewProtocolSet("UDP", "TCP"),
		Port:             &port,
		AddressSubstring: "10.0.",
		TimeRange:        filter.TimeRange{Start: &start, End: &end},
	}

	doc := Serialize(cfg)
	if strings.Join(doc.Protocols, ",") != "TCP,UDP" {
		t.Fatalf("protocols must serialize sorted, got %v", doc.Protocols)
	}

	buf, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Document
	if err := json.Unmarshal(buf, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, err := Deserialize(decoded)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got.MinSeverity != 2 || !got.AlertsOnly || got.AddressSubstring != "10.0." || *got.Port != 443 {
		t.Fatalf("scalar fields lost: %+v", got)
	}
	if got.Protocols.Len() != 2 || !got.Protocols.Has("TCP") || !got.Protocols.Has("UDP") {
		t.Fatalf("protocol membership lost: %v", got.Protocols.Sorted())
	}
	if !got.TimeRange.Start.Equal(start) || !got.TimeRange.End.Equal(end) {
		t.Fatalf("time range lost: %v - %v", got.TimeRange.Start, got.TimeRange.End)
	}
}

func TestSerializeDefaultConfig(t *testing.T) {
	buf, err := json.Marshal(Serialize(filter.Default()))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"minSeverity":0,"alertsOnly":false,"protocols":[],"ip":"","timeRange":{"start":null,"end":null}}`
	if string(buf) != want {
		t.Fatalf("expected %s, got %s", want, buf)
	}
}

func TestDeserializeStoredDocument(t *testing.T) {
	var doc Document
	raw := `{"minSeverity":1,"alertsOnly":false,"protocols":["tcp"],"ip":"","timeRange":{"start":"2026-03-01T08:30","end":""}}`
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	loc := time.FixedZone("UTC+2", 2*3600)
	cfg, err := DeserializeIn(doc, loc)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !cfg.Protocols.Has("TCP") {
		t.Fatalf("protocol tokens are case-insensitive")
	}
	want := time.Date(2026, 3, 1, 6, 30, 0, 0, time.UTC)
	if cfg.TimeRange.Start == nil || !cfg.TimeRange.Start.Equal(want) {
		t.Fatalf("datetime-local start should be read in loc, got %v", cfg.TimeRange.Start)
	}
	if cfg.TimeRange.End != nil {
		t.Fatalf("empty end bound should be unset")
	}
}

func TestDeserializeRejectsBadDocuments(t *testing.T) {
	docs := []Document{
		{TimeRange: TimeRangeDoc{Start: strp("yesterday")}},
		{MinSeverity: 7},
		{TimeRange: TimeRangeDoc{Start: strp("2026-03-02T00:00:00Z"), End: strp("2026-03-01T00:00:00Z")}},
	}
	for i, doc := range docs {
		if _, err := Deserialize(doc); err == nil {
			t.Fatalf("document %d: expected error", i)
		}
	}
}

func TestDefaultName(t *testing.T) {
	now := time.UnixMilli(1767225600123)
	if got := DefaultName(now); got != "Filter 1767225600123" {
		t.Fatalf("unexpected default name %q", got)
	}
	if got := nameOrDefault("  ", now); got != "Filter 1767225600123" {
		t.Fatalf("blank names get a default, got %q", got)
	}
	if got := nameOrDefault(" Night shift ", now); got != "Night shift" {
		t.Fatalf("names are trimmed, got %q", got)
	}
}
