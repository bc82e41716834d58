package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const pingTimeout = 2 * time.Second

// Client owns the go-redis connection pool shared by the rate-limit counter and the
// one-time token store.
type Client struct {
	rdb  *goredis.Client
	addr string

	closeOnce sync.Once
	closeErr  error
}

func New(addr, password string, db int) *Client {
	return &Client{
		addr: addr,
		rdb: goredis.NewClient(&goredis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  pingTimeout,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		}),
	}
}

// Ping is bounded by pingTimeout even when ctx has no deadline; it also
// serves as the /readyz check.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.addr, err)
	}
	return nil
}

// Close releases the pool. Later calls return the first result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.rdb.Close() })
	return c.closeErr
}
