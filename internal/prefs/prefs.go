// Package prefs reads and writes the operator's alert notification
// preferences.
package prefs

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

// AlertOptions selects which severities notify the operator.
type AlertOptions struct {
	High   bool `json:"high"`
	Medium bool `json:"medium"`
	Low    bool `json:"low"`
}

// Preferences is the stored notification configuration.
type Preferences struct {
	AlertsOptions   AlertOptions `json:"alerts_options"`
	ReportFrequency string       `json:"report_frequency"`
}

// Report frequencies offered to the operator.
const (
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"
	FrequencyNone     = "none"
)

// Default returns the preferences used when nothing is stored.
func Default() Preferences {
	return Preferences{
		AlertsOptions:   AlertOptions{High: true},
		ReportFrequency: FrequencyWeekly,
	}
}

// Notifies reports whether an alert of severity sev should notify.
func (p Preferences) Notifies(sev *models.Severity) bool {
	if sev == nil {
		return false
	}
	switch *sev {
	case models.SeverityHigh:
		return p.AlertsOptions.High
	case models.SeverityMedium:
		return p.AlertsOptions.Medium
	case models.SeverityLow:
		return p.AlertsOptions.Low
	default:
		return false
	}
}

// Validate checks the report frequency.
func (p Preferences) Validate() error {
	switch p.ReportFrequency {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyNone:
		return nil
	default:
		return fmt.Errorf("unknown report frequency %q", p.ReportFrequency)
	}
}

// wire mirrors Preferences with optional fields so absent keys take the
// defaults.
type wire struct {
	AlertsOptions *struct {
		High   *bool `json:"high"`
		Medium *bool `json:"medium"`
		Low    *bool `json:"low"`
	} `json:"alerts_options"`
	ReportFrequency json.RawMessage `json:"report_frequency"`
}

func (w wire) resolve() Preferences {
	p := Default()
	if o := w.AlertsOptions; o != nil {
		if o.High != nil {
			p.AlertsOptions.High = *o.High
		}
		if o.Medium != nil {
			p.AlertsOptions.Medium = *o.Medium
		}
		if o.Low != nil {
			p.AlertsOptions.Low = *o.Low
		}
	}
	var freq string
	if len(w.ReportFrequency) > 0 && json.Unmarshal(w.ReportFrequency, &freq) == nil && freq != "" {
		p.ReportFrequency = strings.ToLower(freq)
	}
	return p
}

// Config configures the preferences endpoint.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to /api/filters/alert-options.
type Client struct {
	url    string
	token  string
	client *http.Client
}

// NewClient creates a preferences client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("preferences API URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/api/filters/alert-options",
		token:  cfg.Token,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Get fetches the stored preferences, filling absent fields with defaults.
func (c *Client) Get(ctx context.Context) (Preferences, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.send(req)
	if err != nil {
		return Preferences{}, err
	}
	defer resp.Body.Close()

	var w wire
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil && err != io.EOF {
		return Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return w.resolve(), nil
}

// Put stores p.
func (c *Client) Put(ctx context.Context, p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("preferences request failed with status %s", resp.Status)
	}
	return resp, nil
}
