package http_handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/baechuer/user-service/internal/transport/http/response"
)

// Pinger is satisfied by the postgres store and the redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names one dependency pinged by /readyz.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

type HealthHandler struct {
	checks  []ReadinessCheck
	timeout time.Duration
}

func NewHealthHandler(checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 3 * time.Second}
}

// Healthz handles GET /healthz (liveness).
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readiness struct {
	Status string        `json:"status"`
	Checks []checkResult `json:"checks"`
}

// Readyz handles GET /readyz; every configured dependency must answer a ping.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results := make([]checkResult, len(h.checks))
	var wg sync.WaitGroup
	for i, c := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Pinger.Ping(ctx); err != nil {
				results[i] = checkResult{Name: c.Name, Status: "unhealthy", Error: "unavailable"}
				return
			}
			results[i] = checkResult{Name: c.Name, Status: "healthy"}
		}()
	}
	wg.Wait()

	body := readiness{Status: "ready", Checks: results}
	for _, res := range results {
		if res.Status != "healthy" {
			body.Status = "not_ready"
			response.Status(w, http.StatusServiceUnavailable, "dependencies unavailable", body)
			return
		}
	}

	response.OK(w, body)
}
