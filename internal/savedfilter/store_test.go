package savedfilter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"

	"sentinel/internal/filter"
)

func TestHTTPStoreCRUD(t *testing.T) {
	var posted record
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", got)
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/filters/":
			w.Write([]byte(`[{"id":7,"name":"Web","filters_json":{"minSeverity":2,"alertsOnly":false,"protocols":["TCP"],"port":443,"ip":"","timeRange":{"start":null,"end":null}},"created_at":"2026-03-01T10:00:00.123456"}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/filters/":
			if err := json.NewDecoder(r.Body).Decode(&posted); err != nil {
				t.Errorf("decode post: %v", err)
			}
			posted.ID = 8
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(posted)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/filters/8":
			w.Write([]byte(`{"message":"Filter deleted"}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Not found"}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	store, err := NewHTTPStore(HTTPConfig{BaseURL: srv.URL + "/", Token: "tok"})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	store.now = func() time.Time { return time.UnixMilli(1000) }
	ctx := context.Background()

	list, err := store.List(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "7" || list[0].Name != "Web" || *list[0].Config.Port != 443 {
		t.Fatalf("unexpected list %+v", list)
	}
	if list[0].CreatedAt.IsZero() {
		t.Fatalf("created_at should be parsed")
	}

	saved, err := store.Save(ctx, "alice", "", filter.Config{Protocols: filter.NewProtocolSet("udp", "tcp")})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID != "8" || saved.Name != "Filter 1000" {
		t.Fatalf("unexpected saved filter %+v", saved)
	}
	if strings.Join(posted.FiltersJSON.Protocols, ",") != "TCP,UDP" {
		t.Fatalf("posted protocols %v", posted.FiltersJSON.Protocols)
	}

	if err := store.Delete(ctx, "alice", "8"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "alice", "99"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHTTPStoreListSkipsInvalidRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":1,"name":"Good","filters_json":{"minSeverity":1,"protocols":[],"ip":"","timeRange":{"start":null,"end":null}}},
			{"id":2,"name":"Bad","filters_json":{"minSeverity":0,"protocols":[],"ip":"","timeRange":{"start":"yesterday","end":null}}}
		]`))
	}))
	defer srv.Close()

	store, err := NewHTTPStore(HTTPConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	list, err := store.List(context.Background(), "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "1" || list[0].Name != "Good" {
		t.Fatalf("expected only the valid filter, got %+v", list)
	}
}

func TestHTTPStoreRejectsInvalidConfig(t *testing.T) {
	store, err := NewHTTPStore(HTTPConfig{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Save(context.Background(), "u", "x", filter.Config{MinSeverity: -1}); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := NewHTTPStore(HTTPConfig{}); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}

func TestIDString(t *testing.T) {
	cases := map[string]interface{}{"": nil, "7": float64(7), "abc": "abc"}
	for want, in := range cases {
		if got := idString(in); got != want {
			t.Fatalf("idString(%v): expected %q, got %q", in, want, got)
		}
	}
}

// Requires a disposable Redis; set SENTINEL_TEST_REDIS to its address.
func TestRedisStoreCRUD(t *testing.T) {
	addr := os.Getenv("SENTINEL_TEST_REDIS")
	if addr == "" {
		t.Skip("SENTINEL_TEST_REDIS not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	prefix := "sentinel-test:" + time.Now().Format("150405.000000")
	store := NewRedisStoreWithClient(client, prefix)
	defer store.Close()
	ctx := context.Background()
	defer client.Del(ctx, prefix+":bob")

	first, err := store.Save(ctx, "bob", "first", filter.Config{MinSeverity: 1})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Save(ctx, "bob", "", filter.Config{Protocols: filter.NewProtocolSet("ICMP")}); err != nil {
		t.Fatalf("save: %v", err)
	}

	list, err := store.List(ctx, "bob")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "first" || !list[1].Config.Protocols.Has("ICMP") {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := store.Delete(ctx, "bob", first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "bob", first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
