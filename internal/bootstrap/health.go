package bootstrap

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/narratize/audiobook-engine/internal/health"
	"github.com/narratize/audiobook-engine/internal/ratelimit"
)

const version = "1.0.0"

func ProvideHealthHandler(db *gorm.DB, redisClient *redis.Client, limiter *ratelimit.Limiter, cfg *Config) *health.Handler {
	return health.NewHandler(db, redisClient, limiter, cfg.QuotaPerMinute, version)
}

func metricsMiddleware(h *health.Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h.IncrementRequests()
			h.IncrementConnections()
			defer h.DecrementConnections()
			return next(c)
		}
	}
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(metricsMiddleware(h))
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
