package alertclickhouse

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sentinel/pkg/models"
)

func TestWriteAlertsSendsJSONEachRow(t *testing.T) {
	var query, user string
	var rows []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("query")
		user = r.Header.Get("X-ClickHouse-User")
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			var m map[string]interface{}
			if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			rows = append(rows, m)
		}
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL, Database: "soc", Username: "ingest"})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	port := 443
	sev := models.SeverityHigh
	alerts := []*models.Alert{
		{
			Timestamp:       time.Date(2026, 2, 3, 4, 5, 6, 789000000, time.UTC),
			SourceAddress:   "1.1.1.1",
			DestinationPort: &port,
			Severity:        &sev,
			Signature:       "ET POLICY",
			Raw:             models.RawEvent{"src_ip": "1.1.1.1"},
		},
		nil,
		{SourceAddress: "2.2.2.2", TimestampInferred: true, Raw: models.RawEvent{}},
	}
	if err := w.WriteAlerts(alerts); err != nil {
		t.Fatalf("write: %v", err)
	}

	if query != "INSERT INTO `soc`.`ids_alerts` FORMAT JSONEachRow" || user != "ingest" {
		t.Fatalf("unexpected request query=%q user=%q", query, user)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	first := rows[0]
	if first["ts"] != "2026-02-03 04:05:06.789" || first["dest_port"] != float64(443) || first["severity"] != float64(1) {
		t.Fatalf("unexpected first row %v", first)
	}
	if first["raw"] != `{"src_ip":"1.1.1.1"}` {
		t.Fatalf("raw event should be embedded as a string, got %v", first["raw"])
	}
	if rows[1]["ts_inferred"] != float64(1) || rows[1]["severity"] != float64(0) {
		t.Fatalf("unexpected second row %v", rows[1])
	}
}

func TestWriteAlertsReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Code: 60. DB::Exception: Table soc.ids_alerts doesn't exist"))
	}))
	defer srv.Close()

	w, _ := NewWriter(Config{URL: srv.URL})
	if err := w.WriteAlerts([]*models.Alert{{Raw: models.RawEvent{}}}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewWriterRequiresURL(t *testing.T) {
	if _, err := NewWriter(Config{}); err == nil {
		t.Fatalf("expected error for empty URL")
	}
}
