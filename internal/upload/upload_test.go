package upload

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodeJSONArraySkipsStats(t *testing.T) {
	in := `
	[{"src_ip":"1.1.1.1","event_type":"alert"},{"event_type":"stats"},42,{"src_ip":"2.2.2.2"}]`
	events, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 2 || events[0]["src_ip"] != "1.1.1.1" || events[1]["src_ip"] != "2.2.2.2" {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestDecodeJSONLinesSkipsMalformed(t *testing.T) {
	in := strings.Join([]string{
		`{"src_ip":"1.1.1.1"}`,
		``,
		`{broken`,
		`{"event_type":"stats","stats":{"uptime":1}}`,
		`"just a string"`,
		`{"src_ip":"3.3.3.3"}`,
	}, "\n")
	events, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 2 || events[1]["src_ip"] != "3.3.3.3" {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestDecodeEmptyAndBrokenArray(t *testing.T) {
	events, err := Decode(strings.NewReader("  \n"))
	if err != nil || len(events) != 0 {
		t.Fatalf("empty input should decode to nothing, got %v, %v", events, err)
	}
	if _, err := Decode(strings.NewReader(`[{"a":1},`)); err == nil {
		t.Fatalf("expected error for truncated array")
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eve.json")
	if err := os.WriteFile(path, []byte("{\"src_ip\":\"1.1.1.1\"}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	events, err := DecodeFile(path)
	if err != nil || len(events) != 1 {
		t.Fatalf("decode file: %v, %v", events, err)
	}
	if _, err := DecodeFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestClientUploadsMultipartFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/alerts/upload-alerts" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"No file part"}`))
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "eve.json" || !strings.Contains(string(data), "1.1.1.1") {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"unexpected upload"}`))
			return
		}
		w.Write([]byte(`{"alerts":[{"src_ip":"1.1.1.1","original":{"src_ip":"1.1.1.1"}},null]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	events, err := c.Upload(context.Background(), "/tmp/eve.json", strings.NewReader(`{"src_ip":"1.1.1.1"}`))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(events) != 1 || events[0]["src_ip"] != "1.1.1.1" {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestClientSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Failed to parse file"}`))
	}))
	defer srv.Close()

	c, _ := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Upload(context.Background(), "eve.json", strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "Failed to parse file") {
		t.Fatalf("expected server error message, got %v", err)
	}
}
