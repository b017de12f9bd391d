package health

import (
	"context"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type SynthesisStats struct {
	RequestsInWindow int `json:"requests_in_window"`
	QuotaPerMinute   int `json:"quota_per_minute"`
}

type RequestStats struct {
	TotalRequests     uint64 `json:"total_requests"`
	ActiveConnections int64  `json:"active_connections"`
}

type Stats struct {
	Synthesis SynthesisStats `json:"synthesis"`
	Requests  RequestStats   `json:"requests"`
	Runtime   RuntimeStats   `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

// WindowCounter reports the rate limiter's current window occupancy.
type WindowCounter interface {
	CurrentCount() int
}

type Handler struct {
	db        *gorm.DB
	redis     *redis.Client
	limiter   WindowCounter
	quota     int
	version   string
	startTime time.Time

	totalRequests     uint64
	activeConnections int64
}

func NewHandler(db *gorm.DB, redisClient *redis.Client, limiter WindowCounter, quota int, version string) *Handler {
	return &Handler{
		db:        db,
		redis:     redisClient,
		limiter:   limiter,
		quota:     quota,
		version:   version,
		startTime: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
}

func (h *Handler) IncrementRequests() {
	atomic.AddUint64(&h.totalRequests, 1)
}

func (h *Handler) IncrementConnections() {
	atomic.AddInt64(&h.activeConnections, 1)
}

func (h *Handler) DecrementConnections() {
	atomic.AddInt64(&h.activeConnections, -1)
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	components := make(map[string]ComponentStatus)
	var mu sync.Mutex
	var wg sync.WaitGroup

	checks := []struct {
		name  string
		check func(context.Context) ComponentStatus
	}{
		{"database", h.checkDatabase},
		{"redis", h.checkRedis},
		{"ffmpeg", h.checkFFmpeg},
	}

	wg.Add(len(checks))
	for _, check := range checks {
		go func(name string, fn func(context.Context) ComponentStatus) {
			defer wg.Done()
			status := fn(ctx)
			mu.Lock()
			components[name] = status
			mu.Unlock()
		}(check.name, check.check)
	}
	wg.Wait()

	overallStatus := h.computeOverallStatus(components)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	inWindow := 0
	if h.limiter != nil {
		inWindow = h.limiter.CurrentCount()
	}

	resp := HealthResponse{
		Status:        overallStatus,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats: Stats{
			Synthesis: SynthesisStats{
				RequestsInWindow: inWindow,
				QuotaPerMinute:   h.quota,
			},
			Requests: RequestStats{
				TotalRequests:     atomic.LoadUint64(&h.totalRequests),
				ActiveConnections: atomic.LoadInt64(&h.activeConnections),
			},
			Runtime: RuntimeStats{
				Goroutines:         runtime.NumGoroutine(),
				MemoryAllocMB:      memStats.Alloc / 1024 / 1024,
				MemoryTotalAllocMB: memStats.TotalAlloc / 1024 / 1024,
				MemorySysMB:        memStats.Sys / 1024 / 1024,
				NumGC:              memStats.NumGC,
			},
		},
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, resp)
}

func (h *Handler) checkDatabase(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.db == nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "database not configured",
		}
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "failed to get underlying db",
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.redis == nil {
		return ComponentStatus{
			Status:    StatusDegraded,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "redis not configured",
		}
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		return ComponentStatus{
			Status:    StatusDegraded,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// ffmpeg only degrades the service: merges fall back to raw
// concatenation and the PCM backend becomes unavailable.
func (h *Handler) checkFFmpeg(ctx context.Context) ComponentStatus {
	start := time.Now()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return ComponentStatus{
			Status:    StatusDegraded,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ffmpeg not found",
		}
	}
	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func (h *Handler) computeOverallStatus(components map[string]ComponentStatus) Status {
	if status, ok := components["database"]; ok && status.Status == StatusUnhealthy {
		return StatusUnhealthy
	}

	for _, status := range components {
		if status.Status != StatusHealthy {
			return StatusDegraded
		}
	}

	return StatusHealthy
}
