package alertclickhouse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sentinel/pkg/models"
)

const timeLayout = "2006-01-02 15:04:05.000"

// Config configures the ClickHouse HTTP writer.
type Config struct {
	URL      string
	Database string
	Table    string
	Username string
	Password string
	Timeout  time.Duration
	Headers  map[string]string
}

// Writer archives alerts in ClickHouse via HTTP JSONEachRow.
type Writer struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// row is one alert flattened to the archive table's columns. Missing ports
// and severity are stored as 0.
type row struct {
	Timestamp         string `json:"ts"`
	TimestampInferred uint8  `json:"ts_inferred"`
	SourceAddress     string `json:"src_ip"`
	SourcePort        uint16 `json:"src_port"`
	DestAddress       string `json:"dest_ip"`
	DestPort          uint16 `json:"dest_port"`
	Protocol          string `json:"protocol"`
	Signature         string `json:"signature"`
	SignatureID       string `json:"signature_id"`
	RuleID            string `json:"rule_id"`
	Severity          uint8  `json:"severity"`
	Action            string `json:"action"`
	EventKind         string `json:"event_type"`
	Raw               string `json:"raw"`
}

// NewWriter creates a ClickHouse HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("clickhouse URL is empty")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "ids_alerts"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	q := fmt.Sprintf("INSERT INTO %s.%s FORMAT JSONEachRow", quoteIdent(cfg.Database), quoteIdent(cfg.Table))
	base := strings.TrimRight(cfg.URL, "/")
	endpoint := base + "/?query=" + url.QueryEscape(q)

	headers := map[string]string{}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.Username != "" {
		headers["X-ClickHouse-User"] = cfg.Username
	}
	if cfg.Password != "" {
		headers["X-ClickHouse-Key"] = cfg.Password
	}

	return &Writer{
		endpoint: endpoint,
		headers:  headers,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// WriteAlerts sends a batch of alerts.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, alert := range alerts {
		if alert == nil {
			continue
		}
		r, err := rowFor(alert)
		if err != nil {
			return err
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to marshal alert row: %w", err)
		}
	}
	if body.Len() == 0 {
		return nil
	}

	req, err := http.NewRequest(http.MethodPost, w.endpoint, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("clickhouse request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("clickhouse request failed with status %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// Close releases resources.
func (w *Writer) Close() error {
	return nil
}

func rowFor(a *models.Alert) (row, error) {
	raw, err := json.Marshal(a.Raw)
	if err != nil {
		return row{}, fmt.Errorf("failed to marshal raw event: %w", err)
	}
	r := row{
		Timestamp:     a.Timestamp.UTC().Format(timeLayout),
		SourceAddress: a.SourceAddress,
		DestAddress:   a.DestinationAddress,
		Protocol:      a.Protocol,
		Signature:     a.Signature,
		SignatureID:   a.SignatureID,
		RuleID:        a.RuleID,
		Action:        a.Action,
		EventKind:     a.EventKind,
		Raw:           string(raw),
	}
	if a.TimestampInferred {
		r.TimestampInferred = 1
	}
	if p, ok := models.Port(a.SourcePort); ok {
		r.SourcePort = uint16(p)
	}
	if p, ok := models.Port(a.DestinationPort); ok {
		r.DestPort = uint16(p)
	}
	if a.Severity != nil && *a.Severity > 0 && *a.Severity <= 255 {
		r.Severity = uint8(*a.Severity)
	}
	return r, nil
}

func quoteIdent(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, "`", "")
	return "`" + v + "`"
}
