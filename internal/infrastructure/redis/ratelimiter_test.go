package redis

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/httprate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowCounter_RedisNil_NoOp(t *testing.T) {
	c := NewWindowCounter(nil)

	require.NoError(t, c.Increment("k", time.Now()))
	curr, prev, err := c.Get("k", time.Now(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, curr)
	assert.Zero(t, prev)
}

func TestWindowCounter_CountsPerWindowBucket(t *testing.T) {
	cl, mr := newMiniClient(t)
	c := NewWindowCounter(cl)
	c.Config(5, 15*time.Minute)

	prev := time.Unix(1_700_000_000, 0).UTC().Truncate(15 * time.Minute)
	curr := prev.Add(15 * time.Minute)

	require.NoError(t, c.IncrementBy("auth.login:1.2.3.4", prev, 3))
	require.NoError(t, c.Increment("auth.login:1.2.3.4", curr))
	require.NoError(t, c.Increment("auth.login:1.2.3.4", curr))

	gotCurr, gotPrev, err := c.Get("auth.login:1.2.3.4", curr, prev)
	require.NoError(t, err)
	assert.Equal(t, 2, gotCurr)
	assert.Equal(t, 3, gotPrev)

	key := "rl:auth.login:1.2.3.4:" + strconv.FormatInt(curr.Unix(), 10)
	assert.True(t, mr.Exists(key), "keys: %v", mr.Keys())
	assert.Equal(t, 30*time.Minute, mr.TTL(key))

	mr.FastForward(31 * time.Minute)
	gotCurr, gotPrev, err = c.Get("auth.login:1.2.3.4", curr, prev)
	require.NoError(t, err)
	assert.Zero(t, gotCurr)
	assert.Zero(t, gotPrev)
}

func TestWindowCounter_SharedAcrossReplicas(t *testing.T) {
	cl, _ := newMiniClient(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	replica := func() http.Handler {
		return httprate.NewRateLimiter(3, time.Hour,
			httprate.WithKeyFuncs(func(*http.Request) (string, error) { return "auth.login:10.0.0.1", nil }),
			httprate.WithLimitCounter(NewWindowCounter(cl)),
		).Handler(ok)
	}
	a, b := replica(), replica()

	for i, h := range []http.Handler{a, b, a} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		require.Equal(t, http.StatusOK, rr.Code, "attempt %d", i+1)
	}

	rr := httptest.NewRecorder()
	b.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestWindowCounter_RedisDown_ReturnsError(t *testing.T) {
	cl, mr := newMiniClient(t)
	c := NewWindowCounter(cl)
	mr.Close()

	_, _, err := c.Get("k", time.Now(), time.Now().Add(-time.Minute))
	assert.Error(t, err)
	assert.Error(t, c.Increment("k", time.Now()))
}
