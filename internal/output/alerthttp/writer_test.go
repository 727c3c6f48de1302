package alerthttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sentinel/pkg/models"
)

type receivedBatch struct {
	SentAt time.Time `json:"sent_at"`
	Count  int       `json:"count"`
	Alerts []struct {
		ArchivedAt time.Time `json:"archived_at"`
		Threat     bool      `json:"threat"`
		SourceIP   string    `json:"src_ip"`
	} `json:"alerts"`
}

func TestWriteAlertsPostsBatch(t *testing.T) {
	var got receivedBatch
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("X-Api-Key") != "k" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL, Headers: map[string]string{"X-Api-Key": "k"}})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	sent := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return sent }

	if err := w.WriteAlerts([]*models.Alert{nil}); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if requests != 0 {
		t.Fatalf("empty batch should not be posted")
	}

	batch := []*models.Alert{
		{SourceAddress: "1.1.1.1", Severity: models.SeverityOf(models.SeverityLow)},
		{SourceAddress: "2.2.2.2"},
	}
	if err := w.WriteAlerts(batch); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got.Count != 2 || len(got.Alerts) != 2 || !got.SentAt.Equal(sent) {
		t.Fatalf("server received %+v", got)
	}
	if !got.Alerts[0].Threat || got.Alerts[1].Threat || got.Alerts[1].SourceIP != "2.2.2.2" {
		t.Fatalf("unexpected records %+v", got.Alerts)
	}
	if !got.Alerts[0].ArchivedAt.Equal(sent) {
		t.Fatalf("archived_at: got %v", got.Alerts[0].ArchivedAt)
	}
}

func TestWriteAlertsReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("collector down"))
	}))
	defer srv.Close()

	w, _ := NewWriter(Config{URL: srv.URL})
	err := w.WriteAlerts([]*models.Alert{{}})
	if err == nil || !strings.Contains(err.Error(), "collector down") {
		t.Fatalf("expected status error with body, got %v", err)
	}
}
