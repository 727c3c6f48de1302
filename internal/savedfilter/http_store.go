package savedfilter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sentinel/internal/filter"
	"sentinel/internal/logger"
)

// HTTPConfig configures the remote saved-filter API.
type HTTPConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// HTTPStore talks to the /api/filters/ endpoints. The user is identified by
// the bearer token, so the user argument is only used for logging.
type HTTPStore struct {
	base   string
	token  string
	client *http.Client
	now    func() time.Time
}

// NewHTTPStore creates a client for the remote store.
func NewHTTPStore(cfg HTTPConfig) (*HTTPStore, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("saved filter API URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPStore{
		base:   strings.TrimRight(cfg.BaseURL, "/") + "/api/filters/",
		token:  cfg.Token,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}, nil
}

// List fetches every filter of the authenticated user.
func (s *HTTPStore) List(ctx context.Context, user string) ([]SavedFilter, error) {
	var recs []record
	if err := s.do(ctx, http.MethodGet, s.base, nil, &recs); err != nil {
		return nil, fmt.Errorf("list saved filters: %w", err)
	}
	out := make([]SavedFilter, 0, len(recs))
	for _, rec := range recs {
		sf, err := rec.toSavedFilter(time.Local)
		if err != nil {
			logger.Warnf("Skipping invalid saved filter for %s: %v", user, err)
			continue
		}
		out = append(out, sf)
	}
	return out, nil
}

// Save creates a filter. A blank name gets a generated one.
func (s *HTTPStore) Save(ctx context.Context, user, name string, cfg filter.Config) (SavedFilter, error) {
	if err := cfg.Validate(); err != nil {
		return SavedFilter{}, err
	}
	req := record{Name: nameOrDefault(name, s.now()), FiltersJSON: Serialize(cfg)}
	var rec record
	if err := s.do(ctx, http.MethodPost, s.base, req, &rec); err != nil {
		return SavedFilter{}, fmt.Errorf("save filter: %w", err)
	}
	return rec.toSavedFilter(time.Local)
}

// Delete removes a filter by id.
func (s *HTTPStore) Delete(ctx context.Context, user, id string) error {
	if err := s.do(ctx, http.MethodDelete, s.base+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete saved filter %s: %w", id, err)
	}
	return nil
}

func (s *HTTPStore) do(ctx context.Context, method, target string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("http request failed with status %s", resp.Status)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
