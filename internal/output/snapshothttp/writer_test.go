package snapshothttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sentinel/pkg/models"
)

func TestWriteSnapshotPostsJSON(t *testing.T) {
	var got models.Snapshot
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	snap := &models.Snapshot{Version: 4, FilteredCount: 3}
	if err := w.WriteSnapshot(snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if contentType != "application/json" || got.Version != 4 || got.FilteredCount != 3 {
		t.Fatalf("server received %q %+v", contentType, got)
	}
}

func TestWriteSnapshotReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w, _ := NewWriter(Config{URL: srv.URL})
	if err := w.WriteSnapshot(&models.Snapshot{}); err == nil {
		t.Fatalf("expected status error")
	}
	if _, err := NewWriter(Config{}); err == nil {
		t.Fatalf("expected error for empty URL")
	}
}
