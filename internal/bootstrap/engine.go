package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/narratize/audiobook-engine/internal/audio"
	"github.com/narratize/audiobook-engine/internal/cache"
	"github.com/narratize/audiobook-engine/internal/orchestrator"
	"github.com/narratize/audiobook-engine/internal/pipeline"
	"github.com/narratize/audiobook-engine/internal/ratelimit"
	"github.com/narratize/audiobook-engine/internal/synthesis"
)

func ProvideLimiter(cfg *Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.QuotaPerMinute)
}

// ProvideTranscoder returns nil when ffmpeg is missing. The generative
// backend rejects requests without one; the cloud backend never needs
// it.
func ProvideTranscoder(logger *slog.Logger) synthesis.Transcoder {
	t, err := audio.NewFFmpegTranscoder(logger)
	if errors.Is(err, audio.ErrTranscoderUnavailable) {
		logger.Warn("ffmpeg not found, PCM transcoding disabled")
		return nil
	}
	return t
}

func ProvideSynthesizer(cfg *Config, transcoder synthesis.Transcoder, logger *slog.Logger) (synthesis.Synthesizer, error) {
	backendCfg := synthesis.BackendConfig{
		Backend:      synthesis.Backend(cfg.Backend),
		APIKey:       cfg.APIKey,
		ModelName:    cfg.ModelName,
		GenAIModelID: cfg.GenAIModelID,
		Timeout:      cfg.AttemptTimeout,
	}

	switch backendCfg.Backend {
	case synthesis.BackendCloud:
		return synthesis.NewCloudClient(backendCfg, logger), nil
	case synthesis.BackendGenAI:
		return synthesis.NewGenAIClient(backendCfg, transcoder, logger), nil
	default:
		return nil, fmt.Errorf("unknown TTS backend %q", cfg.Backend)
	}
}

func ProvideRequester(backend synthesis.Synthesizer, limiter *ratelimit.Limiter, cfg *Config, logger *slog.Logger) *synthesis.Requester {
	return synthesis.NewRequester(backend, limiter, synthesis.RequesterConfig{
		MaxAttempts:    cfg.MaxAttempts,
		AttemptTimeout: cfg.AttemptTimeout,
	}, logger)
}

func ProvideOrchestrator(requester *synthesis.Requester, cfg *Config, logger *slog.Logger) *orchestrator.Orchestrator {
	return orchestrator.New(requester, cfg.Workers, logger)
}

func ProvideMerger(cfg *Config, logger *slog.Logger) *audio.Merger {
	return audio.NewMerger(time.Duration(cfg.SilenceGapMs)*time.Millisecond, logger)
}

func ProvideChunkCache(redisClient *redis.Client, logger *slog.Logger) *cache.ChunkCache {
	return cache.New(redisClient, logger)
}

func ProvidePipeline(orch *orchestrator.Orchestrator, merger *audio.Merger, chunkCache *cache.ChunkCache, cfg *Config, logger *slog.Logger) *pipeline.Service {
	return pipeline.NewService(orch, merger, chunkCache, pipeline.Config{
		Backend:       synthesis.Backend(cfg.Backend),
		ModelName:     cfg.ModelName,
		MaxChunkBytes: cfg.MaxChunkBytes,
		BatchSize:     cfg.BatchSize,
	}, logger)
}

var EngineModule = fx.Options(
	fx.Provide(
		ProvideLimiter,
		ProvideTranscoder,
		ProvideSynthesizer,
		ProvideRequester,
		ProvideOrchestrator,
		ProvideMerger,
		ProvideChunkCache,
		ProvidePipeline,
	),
)
