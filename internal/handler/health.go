package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"roulette-bot/pkg/response"
)

// Pinger is anything that can report whether its backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains the health and status handlers.
type Handler struct {
	service   string
	version   string
	ledger    Pinger
	cache     Pinger
	startTime time.Time
}

// New creates a new handler. ledger may be nil.
func New(service, version string, ledger Pinger) *Handler {
	return &Handler{
		service:   service,
		version:   version,
		ledger:    ledger,
		startTime: time.Now(),
	}
}

// SetCache adds the listing cache to the readiness checks.
func (h *Handler) SetCache(c Pinger) {
	h.cache = c
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func ping(ctx context.Context, name string, p Pinger) Check {
	if p == nil {
		return Check{Name: name, Status: "not_configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return Check{Name: name, Status: "error", Error: err.Error()}
	}
	return Check{Name: name, Status: "ok"}
}

// Ready handles GET /api/v1/ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := []Check{
		{Name: "api", Status: "ok"},
		ping(r.Context(), "ledger", h.ledger),
	}
	if h.cache != nil {
		checks = append(checks, ping(r.Context(), "cache", h.cache))
	}

	allReady := true
	for _, check := range checks {
		if check.Status != "ok" {
			allReady = false
			break
		}
	}

	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, ReadyResponse{
		Ready:     allReady,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// StatusChecks represents the checks in status response
type StatusChecks struct {
	Database string  `json:"database"`
	Cache    string  `json:"cache,omitempty"`
	MemoryMB float64 `json:"memory_mb"`
}

// StatusResponse represents the unified status response for uptime monitors
type StatusResponse struct {
	Service       string       `json:"service"`
	Status        string       `json:"status"`
	Timestamp     string       `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	PingMS        int64        `json:"ping_ms"`
	Checks        StatusChecks `json:"checks"`
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	requestStart := time.Now()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	db := ping(r.Context(), "ledger", h.ledger)
	status := "ok"
	if db.Status == "error" {
		status = "degraded"
	}
	var cacheStatus string
	if h.cache != nil {
		cacheStatus = ping(r.Context(), "cache", h.cache).Status
		if cacheStatus == "error" {
			status = "degraded"
		}
	}

	resp := StatusResponse{
		Service:       h.service,
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		PingMS:        time.Since(requestStart).Milliseconds(),
		Checks: StatusChecks{
			Database: db.Status,
			Cache:    cacheStatus,
			MemoryMB: float64(int(memoryMB*100)) / 100,
		},
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, resp)
}
