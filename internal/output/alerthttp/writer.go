package alerthttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sentinel/pkg/models"
)

// Config configures the HTTP archive sink.
type Config struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

// Writer forwards archive batches to a remote collector.
type Writer struct {
	url     string
	headers map[string]string
	client  *http.Client
	now     func() time.Time
}

// batch is the request body: one POST per flushed batch.
type batch struct {
	SentAt time.Time              `json:"sent_at"`
	Count  int                    `json:"count"`
	Alerts []models.ArchiveRecord `json:"alerts"`
}

// NewWriter creates an HTTP archive writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("archive URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}, nil
}

// WriteAlerts posts one batch. Empty batches are not sent.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	now := w.now()
	records := models.ArchiveRecords(alerts, now)
	if len(records) == 0 {
		return nil
	}

	body, err := json.Marshal(batch{SentAt: now.UTC(), Count: len(records), Alerts: records})
	if err != nil {
		return fmt.Errorf("marshal archive batch: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create archive request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post archive batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("archive collector returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Close releases idle connections.
func (w *Writer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
