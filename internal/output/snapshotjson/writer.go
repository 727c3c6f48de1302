package snapshotjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sentinel/internal/logger"
	"sentinel/pkg/models"
)

// Writer outputs dashboard snapshots. In append mode every snapshot is a
// JSON line; otherwise the file is atomically replaced with the latest one.
type Writer struct {
	path   string
	append bool
	file   *os.File
	mu     sync.Mutex
}

// NewWriter creates a snapshot writer for path.
func NewWriter(path string, appendMode bool) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is empty")
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	w := &Writer{path: path, append: appendMode}
	if appendMode {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot file: %w", err)
		}
		w.file = f
	}

	logger.Infof("Snapshot JSON writer initialized: %s (append=%v)", path, appendMode)
	return w, nil
}

// WriteSnapshot writes one snapshot.
func (w *Writer) WriteSnapshot(snapshot *models.Snapshot) error {
	if snapshot == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.append {
		if w.file == nil {
			return fmt.Errorf("snapshot writer is closed")
		}
		if err := json.NewEncoder(w.file).Encode(snapshot); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return nil
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, append(body, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Close closes the output file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}
