package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"sentinel/internal/logger"
	"sentinel/internal/metrics"
)

// Config configures the Redis consumer.
type Config struct {
	Addr         string
	Password     string
	DB           int
	Key          string
	BlockTimeout time.Duration
	RetryDelay   time.Duration
}

// Consumer pops EVE lines from a Redis list and hands them to the
// registered handler.
type Consumer struct {
	client       *redis.Client
	key          string
	blockTimeout time.Duration
	retryDelay   time.Duration
	metrics      *metrics.Metrics

	mu      sync.Mutex
	handler func([]byte)
	done    chan struct{}
	once    sync.Once
}

// NewConsumer creates a Redis consumer for list-based queues.
func NewConsumer(cfg Config, m *metrics.Metrics) (*Consumer, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewConsumerWithClient(client, cfg, m)
}

// NewConsumerWithClient creates a consumer on an existing client. The
// consumer owns the client and closes it.
func NewConsumerWithClient(client *redis.Client, cfg Config, m *metrics.Metrics) (*Consumer, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	return &Consumer{
		client:       client,
		key:          cfg.Key,
		blockTimeout: cfg.BlockTimeout,
		retryDelay:   cfg.RetryDelay,
		metrics:      m,
		done:         make(chan struct{}),
	}, nil
}

// OnEvent registers the payload handler.
func (c *Consumer) OnEvent(handler func(payload []byte)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// Pop pops one message from the list. A timeout yields nil, nil.
func (c *Consumer) Pop(ctx context.Context) ([]byte, error) {
	res, err := c.client.BLPop(ctx, c.blockTimeout, c.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// Run pops messages until ctx is done or the consumer is closed.
func (c *Consumer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Infof("Redis consumer started: key=%s", c.key)
	for {
		payload, err := c.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return c.exitErr(ctx)
			}
			logger.Errorf("Failed to pop redis message: %v", err)
			if c.metrics != nil {
				c.metrics.LiveReconnects.WithLabelValues("redis").Inc()
			}
			select {
			case <-ctx.Done():
				return c.exitErr(ctx)
			case <-time.After(c.retryDelay):
			}
			continue
		}
		if payload == nil {
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

func (c *Consumer) exitErr(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	default:
		return ctx.Err()
	}
}

// Close stops Run and closes the client.
func (c *Consumer) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.client.Close()
}
