// Package geo resolves alert addresses to coordinates for the map view.
package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sentinel/pkg/models"
)

// Lookup resolves a batch of addresses. Unresolvable addresses are simply
// missing from the result.
type Lookup interface {
	Lookup(ctx context.Context, ips []string) ([]models.GeoPoint, error)
}

// HTTPConfig configures the GeoIP collaborator client.
type HTTPConfig struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

// HTTPLookup posts {"ips": [...]} to the GeoIP endpoint and reads back
// [{"ip","lat","lon"}].
type HTTPLookup struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewHTTPLookup creates a GeoIP client.
func NewHTTPLookup(cfg HTTPConfig) (*HTTPLookup, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("geo lookup URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPLookup{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type lookupRequest struct {
	IPs []string `json:"ips"`
}

type lookupEntry struct {
	IP  string   `json:"ip"`
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Lookup resolves ips in one request.
func (l *HTTPLookup) Lookup(ctx context.Context, ips []string) ([]models.GeoPoint, error) {
	if len(ips) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(lookupRequest{IPs: ips})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range l.headers {
		req.Header.Set(k, v)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("geo request failed with status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var entries []lookupEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode geo response: %w", err)
	}

	points := make([]models.GeoPoint, 0, len(entries))
	for _, e := range entries {
		if e.IP == "" || e.Lat == nil || e.Lon == nil {
			continue
		}
		points = append(points, models.GeoPoint{Address: e.IP, Latitude: *e.Lat, Longitude: *e.Lon})
	}
	return points, nil
}
