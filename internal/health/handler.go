package health

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"leave-service/internal/metrics"

	"github.com/gin-gonic/gin"
)

const probeTimeout = 2 * time.Second

// Check probes one dependency. A nil error means it is available.
type Check func(ctx context.Context) error

type namedCheck struct {
	name  string
	check Check
}

type Handler struct {
	mu      sync.RWMutex
	checks  []namedCheck
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHandler(m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		metrics: m,
		logger:  logger,
	}
}

// AddCheck registers a readiness dependency.
func (h *Handler) AddCheck(name string, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, namedCheck{name: name, check: check})
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

type HealthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptimeSeconds,omitempty"`
}

type ReadyResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: h.metrics.Runtime.Uptime().Seconds(),
	})
}

func (h *Handler) Ready(c *gin.Context) {
	results, ready := h.Probe(c.Request.Context())

	resp := ReadyResponse{Status: "ready", Dependencies: results}
	if !ready {
		resp.Status = "not ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Probe runs every check, records the outcome in the dependency metrics and
// reports whether all of them passed.
func (h *Handler) Probe(ctx context.Context) (map[string]string, bool) {
	h.mu.RLock()
	checks := append([]namedCheck(nil), h.checks...)
	h.mu.RUnlock()

	results := make(map[string]string, len(checks))
	ready := true
	for _, nc := range checks {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := nc.check(probeCtx)
		cancel()

		h.metrics.Health.UpdateDependencyStatus(nc.name, err == nil)
		if err != nil {
			h.logger.WarnContext(ctx, "dependency unavailable", "dependency", nc.name, "error", err)
			results[nc.name] = "down"
			ready = false
			continue
		}
		results[nc.name] = "up"
	}
	return results, ready
}

// Run probes the dependencies every interval until ctx is done, keeping the
// dependency gauges fresh between readiness requests.
func (h *Handler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}
