package alertjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sentinel/internal/logger"
	"sentinel/pkg/models"
)

// Writer appends archive records to a JSON lines file, one alert per line.
type Writer struct {
	path    string
	file    *os.File
	encoder *json.Encoder
	now     func() time.Time
	written int
	mu      sync.Mutex
}

// NewWriter opens path for appending, creating it and its directory if
// needed.
func NewWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open archive file: %w", err)
	}

	logger.Infof("Alert archive writer initialized: %s", path)
	return &Writer{
		path:    path,
		file:    f,
		encoder: json.NewEncoder(f),
		now:     time.Now,
	}, nil
}

// WriteAlerts archives a batch. Every record of a batch shares one
// archived_at stamp.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("archive %s is closed", w.path)
	}
	for _, rec := range models.ArchiveRecords(alerts, w.now()) {
		if err := w.encoder.Encode(rec); err != nil {
			return fmt.Errorf("encode archive record: %w", err)
		}
		w.written++
	}
	return nil
}

// Close closes the archive file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	logger.Debugf("Alert archive %s closed after %d records", w.path, w.written)
	err := w.file.Close()
	w.file = nil
	return err
}
