package rawjsonl

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteRawMessagesOnePerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	msgs := [][]byte{
		[]byte(`{"a":1}`),
		[]byte("   "),
		[]byte("{\n\"b\":2\n}\n"),
	}
	if err := w.WriteRawMessages(msgs); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "{\"a\":1}\n{ \"b\":2 }\n"
	if string(data) != want {
		t.Fatalf("expected %q, got %q", want, data)
	}
}
