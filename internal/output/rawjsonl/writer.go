package rawjsonl

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sentinel/internal/logger"
)

// Writer captures raw live payloads, one per line, so a session can be
// replayed later through the summarize command.
type Writer struct {
	file *os.File
	buf  *bufio.Writer
	mu   sync.Mutex
}

// NewWriter opens path for appending.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	logger.Infof("Raw capture writer initialized: %s", path)
	return &Writer{file: f, buf: bufio.NewWriter(f)}, nil
}

// WriteRawMessages appends messages. Embedded newlines are flattened so each
// message stays on one line.
func (w *Writer) WriteRawMessages(messages [][]byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("capture writer is closed")
	}
	for _, msg := range messages {
		msg = bytes.TrimSpace(msg)
		if len(msg) == 0 {
			continue
		}
		if bytes.IndexByte(msg, '\n') >= 0 {
			msg = bytes.ReplaceAll(msg, []byte("\n"), []byte(" "))
		}
		if _, err := w.buf.Write(msg); err != nil {
			return fmt.Errorf("failed to write capture: %w", err)
		}
		if err := w.buf.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write capture: %w", err)
		}
	}
	return w.buf.Flush()
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
