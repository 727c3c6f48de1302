package alertjson

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sentinel/pkg/models"
)

func TestWriterAppendsArchiveRecordsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive", "alerts.jsonl")
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	archivedAt := time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC)

	alerts := []*models.Alert{
		{Timestamp: ts, SourceAddress: "1.1.1.1", Signature: "ET SCAN", Severity: models.SeverityOf(models.SeverityHigh), Raw: models.RawEvent{"src_ip": "1.1.1.1"}},
		{Timestamp: ts, SourceAddress: "2.2.2.2", EventKind: "flow", Raw: models.RawEvent{"src_ip": "2.2.2.2"}},
	}
	for i, a := range alerts {
		w, err := NewWriter(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		w.now = func() time.Time { return archivedAt }
		if err := w.WriteAlerts([]*models.Alert{a, nil}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	var got []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		got = append(got, rec)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0]["src_ip"] != "1.1.1.1" || got[0]["threat"] != true || got[0]["severity_label"] != "High" {
		t.Fatalf("unexpected threat record %v", got[0])
	}
	if got[1]["src_ip"] != "2.2.2.2" || got[1]["threat"] != false || got[1]["severity_label"] != nil {
		t.Fatalf("unexpected activity record %v", got[1])
	}
	if got[0]["archived_at"] != "2026-01-02T04:00:00Z" {
		t.Fatalf("archived_at: got %v", got[0]["archived_at"])
	}
}

func TestWriterRejectsWritesAfterClose(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "alerts.jsonl"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	w.Close()
	if err := w.WriteAlerts([]*models.Alert{{SourceAddress: "1.1.1.1"}}); err == nil {
		t.Fatalf("expected error writing to a closed archive")
	}
}
