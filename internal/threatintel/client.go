// Package threatintel fetches reputation data for the addresses of a single
// alert under inspection.
package threatintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sentinel/internal/logger"
	"sentinel/pkg/models"
)

// Config configures the threat-intel endpoint.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
}

// AbuseReport is the subset of an AbuseIPDB check result the dashboard shows.
type AbuseReport struct {
	Data struct {
		AbuseConfidenceScore int    `json:"abuseConfidenceScore"`
		TotalReports         int    `json:"totalReports"`
		CountryCode          string `json:"countryCode"`
		Domain               string `json:"domain"`
		ISP                  string `json:"isp"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// VTReport is the subset of a VirusTotal IP report the dashboard shows.
type VTReport struct {
	Data struct {
		Attributes struct {
			Reputation        int            `json:"reputation"`
			Country           string         `json:"country"`
			ASOwner           string         `json:"as_owner"`
			LastAnalysisStats map[string]int `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Report is the reputation of one address.
type Report struct {
	Address string      `json:"ip"`
	Abuse   AbuseReport `json:"abuse"`
	VT      VTReport    `json:"vt"`
}

// Malicious reports the number of engines flagging the address.
func (r *Report) Malicious() int {
	return r.VT.Data.Attributes.LastAnalysisStats["malicious"]
}

// Client posts lookups to /api/threatintel.
type Client struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewClient creates a threat-intel client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("threat intel URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:     strings.TrimRight(cfg.BaseURL, "/") + "/api/threatintel",
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Lookup fetches the reputation of ip.
func (c *Client) Lookup(ctx context.Context, ip string) (*Report, error) {
	body, err := json.Marshal(map[string]string{"ip": ip})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lookup: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("threat intel lookup for %s failed with status %s", ip, resp.Status)
	}

	report := &Report{Address: ip}
	if err := json.NewDecoder(resp.Body).Decode(report); err != nil {
		return nil, fmt.Errorf("decode threat intel for %s: %w", ip, err)
	}
	report.Address = ip
	return report, nil
}

// Inspection holds the reputation of both ends of an alert. A side is nil
// when its address is empty or its lookup failed.
type Inspection struct {
	Source      *Report `json:"source,omitempty"`
	Destination *Report `json:"destination,omitempty"`
}

// Inspect looks up the source and destination of alert concurrently.
// Cancelling ctx aborts both lookups. On failure the successful side is
// still returned with the first error.
func (c *Client) Inspect(ctx context.Context, alert *models.Alert) (Inspection, error) {
	var out Inspection
	if alert == nil {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	lookup := func(ip string, dst **Report) {
		if ip == "" {
			return
		}
		g.Go(func() error {
			r, err := c.Lookup(gctx, ip)
			if err != nil {
				return err
			}
			*dst = r
			return nil
		})
	}
	lookup(alert.SourceAddress, &out.Source)
	lookup(alert.DestinationAddress, &out.Destination)

	if err := g.Wait(); err != nil {
		logger.Warnf("Threat intel inspection incomplete: %v", err)
		return out, err
	}
	return out, nil
}
