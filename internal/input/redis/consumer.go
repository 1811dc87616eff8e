package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"authwatch/internal/logger"
)

// Config configures the Redis line source.
type Config struct {
	Addr         string
	Password     string
	DB           int
	Key          string
	BlockTimeout time.Duration
	BatchSize    int
	MaxLines     int
}

// Consumer drains raw log lines from a Redis list.
type Consumer struct {
	client       *redis.Client
	key          string
	blockTimeout time.Duration
	batchSize    int
	maxLines     int
}

// NewConsumer creates a Redis consumer for a list of raw lines.
func NewConsumer(cfg Config) (*Consumer, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Consumer{
		client:       client,
		key:          cfg.Key,
		blockTimeout: cfg.BlockTimeout,
		batchSize:    cfg.BatchSize,
		maxLines:     cfg.MaxLines,
	}, nil
}

// Name returns the source identifier.
func (c *Consumer) Name() string {
	return "redis"
}

// Pop pops one message from the list, waiting up to the block timeout.
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

// ReadLines waits for the first line, then drains the list in batches until
// it is empty or MaxLines is reached.
func (c *Consumer) ReadLines(ctx context.Context) ([]string, error) {
	first, err := c.Pop(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis pop failed: %w", err)
	}
	if first == nil {
		logger.Warnf("Redis list %s is empty", c.key)
		return nil, nil
	}

	lines := []string{string(first)}
	for c.maxLines <= 0 || len(lines) < c.maxLines {
		n := c.batchSize
		if c.maxLines > 0 && c.maxLines-len(lines) < n {
			n = c.maxLines - len(lines)
		}
		batch, err := c.client.LPopCount(ctx, c.key, n).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("redis drain failed: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		lines = append(lines, batch...)
	}
	logger.Infof("Extracted %d log entries from redis list %s", len(lines), c.key)
	return lines, nil
}

// Close closes the consumer.
func (c *Consumer) Close() error {
	return c.client.Close()
}

// PushLines appends lines to the tail of the list, for seeding a queue with
// generated or replayed logs.
func (c *Consumer) PushLines(ctx context.Context, lines []string) error {
	const chunk = 1000
	for start := 0; start < len(lines); start += chunk {
		end := start + chunk
		if end > len(lines) {
			end = len(lines)
		}
		args := make([]interface{}, 0, end-start)
		for _, l := range lines[start:end] {
			args = append(args, l)
		}
		if err := c.client.RPush(ctx, c.key, args...).Err(); err != nil {
			return fmt.Errorf("redis push failed: %w", err)
		}
	}
	return nil
}
