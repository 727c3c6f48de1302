package savedfilter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"sentinel/internal/filter"
	"sentinel/internal/logger"
)

// RedisConfig configures Redis access for saved filters.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps one hash per user, mapping filter id to its JSON record.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore constructs a Redis-backed saved-filter store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis saved-filter store: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = "sentinel:filters"
	}
	return &RedisStore{client: client, prefix: strings.TrimSpace(prefix), now: time.Now}
}

// List returns the user's filters, oldest first.
func (s *RedisStore) List(ctx context.Context, user string) ([]SavedFilter, error) {
	raw, err := s.client.HGetAll(ctx, s.userKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("list saved filters: %w", err)
	}

	out := make([]SavedFilter, 0, len(raw))
	for id, value := range raw {
		var rec record
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			logger.Warnf("Skipping corrupt saved filter %s for %s: %v", id, user, err)
			continue
		}
		rec.ID = id
		sf, err := rec.toSavedFilter(time.UTC)
		if err != nil {
			logger.Warnf("Skipping invalid saved filter: %v", err)
			continue
		}
		out = append(out, sf)
	}
	sortSaved(out)
	return out, nil
}

// Save stores cfg under a new id.
func (s *RedisStore) Save(ctx context.Context, user, name string, cfg filter.Config) (SavedFilter, error) {
	if err := cfg.Validate(); err != nil {
		return SavedFilter{}, err
	}
	now := s.now().UTC()
	sf := SavedFilter{
		ID:        uuid.NewString(),
		Name:      nameOrDefault(name, now),
		Config:    cfg.Clone(),
		CreatedAt: now,
	}
	body, err := json.Marshal(record{
		ID:          sf.ID,
		Name:        sf.Name,
		FiltersJSON: Serialize(cfg),
		CreatedAt:   now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return SavedFilter{}, fmt.Errorf("marshal saved filter: %w", err)
	}
	if err := s.client.HSet(ctx, s.userKey(user), sf.ID, body).Err(); err != nil {
		return SavedFilter{}, fmt.Errorf("save filter: %w", err)
	}
	return sf, nil
}

// Delete removes one filter.
func (s *RedisStore) Delete(ctx context.Context, user, id string) error {
	n, err := s.client.HDel(ctx, s.userKey(user), id).Result()
	if err != nil {
		return fmt.Errorf("delete saved filter: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) userKey(user string) string {
	user = strings.TrimSpace(user)
	if user == "" {
		user = "anonymous"
	}
	return s.prefix + ":" + user
}

func sortSaved(list []SavedFilter) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
