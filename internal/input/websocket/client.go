package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sentinel/internal/logger"
	"sentinel/internal/metrics"
)

// Config configures the live alert stream client.
type Config struct {
	URL              string
	Event            string
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	Headers          map[string]string
}

// Client subscribes to a websocket alert stream and reconnects forever with
// a fixed delay until it is closed. It speaks to plain websocket relays and
// to Socket.IO servers over the websocket transport (EIO=4).
type Client struct {
	url     string
	event   string
	delay   time.Duration
	headers http.Header
	dialer  *websocket.Dialer
	metrics *metrics.Metrics

	mu      sync.Mutex
	handler func([]byte)
	done    chan struct{}
	once    sync.Once
}

// NewClient creates a websocket client. Messages are not read until Run.
func NewClient(cfg Config, m *metrics.Metrics) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("websocket URL is required")
	}
	if cfg.Event == "" {
		cfg.Event = "new_alert"
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 20 * time.Second
	}

	headers := http.Header{}
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}

	return &Client{
		url:     cfg.URL,
		event:   cfg.Event,
		delay:   cfg.ReconnectDelay,
		headers: headers,
		dialer: &websocket.Dialer{
			ReadBufferSize:   65536,
			WriteBufferSize:  4096,
			HandshakeTimeout: cfg.HandshakeTimeout,
			Proxy:            http.ProxyFromEnvironment,
		},
		metrics: m,
		done:    make(chan struct{}),
	}, nil
}

// OnEvent registers the payload handler. It replaces any earlier handler.
func (c *Client) OnEvent(handler func(payload []byte)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// Run connects and reads until ctx is done or the client is closed.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		err := c.readSession(ctx)
		if ctx.Err() != nil {
			return c.exitErr(ctx)
		}
		logger.Warnf("Live stream %s disconnected: %v; reconnecting in %s", c.url, err, c.delay)
		if c.metrics != nil {
			c.metrics.LiveReconnects.WithLabelValues("websocket").Inc()
		}

		select {
		case <-ctx.Done():
			return c.exitErr(ctx)
		case <-time.After(c.delay):
		}
	}
}

// Close stops Run, which closes the active connection on its way out.
func (c *Client) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *Client) exitErr(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	default:
		return ctx.Err()
	}
}

func (c *Client) readSession(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.headers)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	logger.Infof("Live stream connected: %s", c.url)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		message, reply := socketIOFrame(message)
		if reply != "" {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return fmt.Errorf("write %q: %w", reply, err)
			}
		}
		payload, ok := c.unwrap(message)
		if !ok {
			continue
		}
		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(payload)
		}
	}
}

// socketIOFrame strips Engine.IO/Socket.IO packet framing. A frame whose
// first byte is a digit is a packet: "0{...}" (open) is answered with a
// namespace connect "40", a "2" ping with a "3" pong, and an event packet
// "42[/ns,][ack]["name",data]" yields its array. Other packets yield nil.
// Frames from a plain websocket relay are returned unchanged.
func socketIOFrame(message []byte) ([]byte, string) {
	trimmed := bytes.TrimSpace(message)
	if len(trimmed) == 0 || trimmed[0] < '0' || trimmed[0] > '9' {
		return message, ""
	}
	switch {
	case trimmed[0] == '0':
		return nil, "40"
	case len(trimmed) == 1 && trimmed[0] == '2':
		return nil, "3"
	case len(trimmed) >= 2 && trimmed[0] == '4' && trimmed[1] == '2':
		rest := trimmed[2:]
		if len(rest) > 0 && rest[0] == '/' {
			comma := bytes.IndexByte(rest, ',')
			if comma < 0 {
				return nil, ""
			}
			rest = rest[comma+1:]
		}
		for len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9' {
			rest = rest[1:]
		}
		if len(rest) == 0 || rest[0] != '[' {
			return nil, ""
		}
		return rest, ""
	default:
		return nil, ""
	}
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// unwrap extracts the event payload from a frame. Frames are either a bare
// event object, an {"event","data"} envelope, or an [event, data] pair.
// Envelopes for other event names are dropped.
func (c *Client) unwrap(message []byte) ([]byte, bool) {
	trimmed := bytes.TrimSpace(message)
	if len(trimmed) == 0 {
		return nil, false
	}

	if trimmed[0] == '[' {
		var pair []json.RawMessage
		if err := json.Unmarshal(trimmed, &pair); err != nil || len(pair) != 2 {
			return trimmed, true
		}
		var name string
		if err := json.Unmarshal(pair[0], &name); err != nil {
			return trimmed, true
		}
		if name != c.event {
			return nil, false
		}
		return pair[1], true
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Event == "" || len(env.Data) == 0 {
		return trimmed, true
	}
	if env.Event != c.event {
		return nil, false
	}
	return env.Data, true
}
