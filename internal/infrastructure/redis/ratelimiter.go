package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	goredis "github.com/redis/go-redis/v9"
)

// incrementScript adds to one window bucket and sets its expiry on the first hit.
// returns: count
var incrementScript = goredis.NewScript(`
local c = redis.call("INCRBY", KEYS[1], ARGV[1])
if c == tonumber(ARGV[1]) then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return c
`)

// WindowCounter is an httprate.LimitCounter keeping per-window counts in
// Redis, so every replica enforces the same limit. httprate blends the
// current and previous window into a sliding estimate.
type WindowCounter struct {
	rdb     *goredis.Client
	prefix  string
	window  time.Duration
	timeout time.Duration
}

var _ httprate.LimitCounter = (*WindowCounter)(nil)

func NewWindowCounter(c *Client) *WindowCounter {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &WindowCounter{rdb: rdb, prefix: "rl:", window: time.Minute, timeout: time.Second}
}

// Config is called by httprate.NewRateLimiter.
func (c *WindowCounter) Config(requestLimit int, windowLength time.Duration) {
	if windowLength > 0 {
		c.window = windowLength
	}
}

func (c *WindowCounter) Increment(key string, currentWindow time.Time) error {
	return c.IncrementBy(key, currentWindow, 1)
}

func (c *WindowCounter) IncrementBy(key string, currentWindow time.Time, amount int) error {
	if c.rdb == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	// a bucket is still read as the previous window for one more window length
	ttl := 2 * c.window.Milliseconds()
	err := incrementScript.Run(ctx, c.rdb, []string{c.bucket(key, currentWindow)}, amount, ttl).Err()
	if err != nil {
		return fmt.Errorf("ratelimit redis incr: %w", err)
	}
	return nil
}

func (c *WindowCounter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	if c.rdb == nil {
		return 0, 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	vals, err := c.rdb.MGet(ctx, c.bucket(key, currentWindow), c.bucket(key, previousWindow)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit redis get: %w", err)
	}
	return count(vals[0]), count(vals[1]), nil
}

func (c *WindowCounter) bucket(key string, window time.Time) string {
	return c.prefix + key + ":" + strconv.FormatInt(window.Unix(), 10)
}

func count(v any) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
