package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"sentinel/pkg/models"
)

// Config configures the remote upload endpoint.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
}

// Client posts files to /api/alerts/upload-alerts.
type Client struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewClient creates an upload client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("upload API URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:     strings.TrimRight(cfg.BaseURL, "/") + "/api/alerts/upload-alerts",
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type uploadResponse struct {
	Alerts []models.RawEvent `json:"alerts"`
	Error  string            `json:"error"`
}

// Upload sends the file content as multipart field "file" and returns the
// parsed events.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) ([]models.RawEvent, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	var out uploadResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode >= 300 {
		if out.Error != "" {
			return nil, fmt.Errorf("upload rejected (%s): %s", resp.Status, out.Error)
		}
		return nil, fmt.Errorf("http request failed with status %s", resp.Status)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode upload response: %w", decodeErr)
	}

	events := out.Alerts[:0]
	for _, raw := range out.Alerts {
		if raw != nil {
			events = append(events, raw)
		}
	}
	return events, nil
}
