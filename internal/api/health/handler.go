package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"eventpulse/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Handler serves liveness, readiness and detailed health endpoints
type Handler struct {
	log         *logger.Logger
	postgres    *sqlx.DB
	clickhouse  driver.Conn
	redis       *redis.Client
	startTime   time.Time
	serviceName string
	version     string
}

func New(log *logger.Logger, postgres *sqlx.DB, clickhouse driver.Conn, redis *redis.Client, serviceName, version string) *Handler {
	return &Handler{
		log:         log,
		postgres:    postgres,
		clickhouse:  clickhouse,
		redis:       redis,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// Status is the overall health report
type Status struct {
	Status    string               `json:"status"` // "healthy", "degraded", "unhealthy"
	Service   string               `json:"service"`
	Version   string               `json:"version"`
	Uptime    string               `json:"uptime"`
	Timestamp string               `json:"timestamp"`
	Checks    map[string]Component `json:"checks"`
}

// Component is the health of a single dependency
type Component struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 if the process is running. Kubernetes liveness probe.
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleReadiness returns 503 unless every dependency answers. Kubernetes
// readiness probe.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, healthy, total := h.check(ctx)
	code := http.StatusOK
	if healthy < total {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
		h.log.Warnw("Readiness check failed", "checks", status.Checks)
	}
	writeJSON(w, code, status)
}

// HandleHealth returns a detailed report. Degraded (some but not all
// dependencies down) still answers 200 so dashboards keep scraping it.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status, healthy, total := h.check(ctx)
	code := http.StatusOK
	switch {
	case healthy == 0:
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	case healthy < total:
		status.Status = "degraded"
	}
	writeJSON(w, code, status)
}

func (h *Handler) check(ctx context.Context) (Status, int, int) {
	probes := []struct {
		name string
		ping func(context.Context) error
	}{
		{"postgres", h.postgres.PingContext},
		{"clickhouse", h.clickhouse.Ping},
		{"redis", func(ctx context.Context) error { return h.redis.Ping(ctx).Err() }},
	}

	checks := make(map[string]Component, len(probes))
	healthy := 0
	for _, p := range probes {
		start := time.Now()
		err := p.ping(ctx)
		elapsed := time.Since(start)

		if err != nil {
			h.log.Errorw("Health check failed", "component", p.name, "error", err, "elapsed", elapsed)
			checks[p.name] = Component{Status: "unhealthy", ResponseTime: elapsed.String(), Error: err.Error()}
			continue
		}
		checks[p.name] = Component{Status: "healthy", ResponseTime: elapsed.String()}
		healthy++
	}

	return Status{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}, healthy, len(probes)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
