package bootstrap

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/narratize/audiobook-engine/internal/job"
	"github.com/narratize/audiobook-engine/internal/pipeline"
	"github.com/narratize/audiobook-engine/internal/synthesis"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideHub() *job.Hub {
	return job.NewHub()
}

func ProvideJobRunner(store *job.Store, svc *pipeline.Service, hub *job.Hub, cfg *Config, logger *slog.Logger) *job.Runner {
	return job.NewRunner(store, svc, hub, cfg.OutputDir, logger)
}

func ProvideJobHandler(store *job.Store, runner *job.Runner, hub *job.Hub, logger *slog.Logger) *job.Handler {
	return job.NewHandler(store, runner, hub, logger.With("handler", "job"))
}

type HandlerParams struct {
	fx.In

	JobHandler *job.Handler
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/v1")

	params.JobHandler.RegisterRoutes(api.Group("/jobs"))

	api.GET("/voices", func(c echo.Context) error {
		return c.JSON(http.StatusOK, synthesis.VoiceBanks)
	})
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideHub,
		ProvideJobRunner,
		ProvideJobHandler,
	),
	fx.Invoke(RegisterRoutes),
)
