package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authwatch/internal/transform/sshd"
)

const testKey = "authwatch:lines"

func TestNewConsumerRequiresKey(t *testing.T) {
	_, err := NewConsumer(Config{Addr: "127.0.0.1:6379"})
	assert.Error(t, err)
}

func TestNewConsumerDefaults(t *testing.T) {
	c, err := NewConsumer(Config{Key: testKey})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "redis", c.Name())
	assert.Equal(t, 500, c.batchSize)
	assert.Equal(t, "127.0.0.1:6379", c.client.Options().Addr)
}

func newTestConsumer(t *testing.T, cfg Config) (*Consumer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg.Addr = mr.Addr()
	cfg.Key = testKey
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = time.Second
	}
	c, err := NewConsumer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func numberedLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %04d", i)
	}
	return lines
}

func listLen(t *testing.T, c *Consumer) int64 {
	t.Helper()
	n, err := c.client.LLen(context.Background(), testKey).Result()
	require.NoError(t, err)
	return n
}

func TestReadLinesDrainsListInOrder(t *testing.T) {
	c, _ := newTestConsumer(t, Config{BatchSize: 10})
	ctx := context.Background()
	want := numberedLines(25)
	require.NoError(t, c.PushLines(ctx, want))

	got, err := c.ReadLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Zero(t, listLen(t, c))
}

func TestReadLinesStopsAtMaxLines(t *testing.T) {
	c, _ := newTestConsumer(t, Config{BatchSize: 10, MaxLines: 17})
	ctx := context.Background()
	all := numberedLines(25)
	require.NoError(t, c.PushLines(ctx, all))

	got, err := c.ReadLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, all[:17], got)
	assert.EqualValues(t, 8, listLen(t, c))

	rest, err := c.ReadLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, all[17:], rest)
}

func TestReadLinesSingleLineEndsOnEmptyDrain(t *testing.T) {
	c, _ := newTestConsumer(t, Config{})
	ctx := context.Background()
	require.NoError(t, c.PushLines(ctx, []string{"only"}))

	got, err := c.ReadLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, got)
}

func TestReadLinesEmptyListYieldsEmptyInput(t *testing.T) {
	c, _ := newTestConsumer(t, Config{BlockTimeout: time.Second})

	got, err := c.ReadLines(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = sshd.NewTransformer(sshd.NewParser(sshd.Options{})).Transform(got)
	assert.ErrorIs(t, err, sshd.ErrEmptyInput)
}

func TestReadLinesWrongTypeFails(t *testing.T) {
	c, mr := newTestConsumer(t, Config{})
	require.NoError(t, mr.Set(testKey, "not a list"))

	_, err := c.ReadLines(context.Background())
	assert.ErrorContains(t, err, "redis pop failed")
}

type commandCounter struct {
	counts map[string]int
}

func (h *commandCounter) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *commandCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.counts[cmd.Name()]++
		return next(ctx, cmd)
	}
}

func (h *commandCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestPushLinesChunksLargeInput(t *testing.T) {
	c, mr := newTestConsumer(t, Config{})
	counter := &commandCounter{counts: map[string]int{}}
	c.client.AddHook(counter)

	lines := numberedLines(2500)
	require.NoError(t, c.PushLines(context.Background(), lines))

	assert.Equal(t, 3, counter.counts["rpush"])
	stored, err := mr.List(testKey)
	require.NoError(t, err)
	assert.Equal(t, lines, stored)
}

func TestPushLinesNothingToSend(t *testing.T) {
	c, _ := newTestConsumer(t, Config{})
	counter := &commandCounter{counts: map[string]int{}}
	c.client.AddHook(counter)

	require.NoError(t, c.PushLines(context.Background(), nil))
	assert.Zero(t, counter.counts["rpush"])
}
