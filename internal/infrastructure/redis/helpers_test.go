package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

// newMiniClient starts an in-process Redis and returns a Client bound to it.
func newMiniClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}
