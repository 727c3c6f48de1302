package savedfilter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sentinel/internal/filter"
)

// ErrNotFound is returned when a saved filter does not exist for the user.
var ErrNotFound = errors.New("saved filter not found")

// SavedFilter is a named filter configuration owned by one user.
type SavedFilter struct {
	ID        string
	Name      string
	Config    filter.Config
	CreatedAt time.Time
}

// Store persists saved filters per user.
type Store interface {
	List(ctx context.Context, user string) ([]SavedFilter, error)
	Save(ctx context.Context, user, name string, cfg filter.Config) (SavedFilter, error)
	Delete(ctx context.Context, user, id string) error
}

// DefaultName names a filter saved without a name.
func DefaultName(now time.Time) string {
	return fmt.Sprintf("Filter %d", now.UnixMilli())
}

func nameOrDefault(name string, now time.Time) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return DefaultName(now)
}

// record is the store's wire shape.
type record struct {
	ID          interface{} `json:"id,omitempty"`
	Name        string      `json:"name"`
	FiltersJSON Document    `json:"filters_json"`
	CreatedAt   string      `json:"created_at,omitempty"`
}

func (r record) toSavedFilter(loc *time.Location) (SavedFilter, error) {
	id := idString(r.ID)
	cfg, err := DeserializeIn(r.FiltersJSON, loc)
	if err != nil {
		return SavedFilter{}, fmt.Errorf("saved filter %s: %w", id, err)
	}
	sf := SavedFilter{ID: id, Name: r.Name, Config: cfg}
	if r.CreatedAt != "" {
		if t, err := parseBound(&r.CreatedAt, time.UTC); err == nil {
			sf.CreatedAt = *t
		}
	}
	return sf, nil
}

// idString accepts numeric and string identifiers.
func idString(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprint(id)
	}
}
