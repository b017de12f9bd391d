package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

const (
	// DefaultMaxAttempts bounds retries per request.
	DefaultMaxAttempts = 5

	// DefaultAttemptTimeout wraps each backend call.
	DefaultAttemptTimeout = 180 * time.Second

	// transientWait is the short pause before retrying a transient
	// failure.
	transientWait = time.Second

	// rateLimitFloor is the minimum wait after a quota error. Quota
	// windows are per-minute, so shorter waits are guaranteed futile.
	rateLimitFloor = 60 * time.Second

	maxJitter = 5 * time.Second
)

// RateGate is the slice of the rate limiter the requester needs.
type RateGate interface {
	Acquire()
	Reset()
}

type RequesterConfig struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
}

// Requester wraps a Synthesizer with bounded retries. Rate-limit errors
// wait out the quota window and reset the limiter; transient errors
// retry after a short fixed pause; permanent and configuration errors
// propagate immediately.
type Requester struct {
	backend Synthesizer
	limiter RateGate
	log     *slog.Logger

	maxAttempts    int
	attemptTimeout time.Duration

	sleep  func(time.Duration)
	jitter func() time.Duration
}

func NewRequester(backend Synthesizer, limiter RateGate, cfg RequesterConfig, logger *slog.Logger) *Requester {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	return &Requester{
		backend:        backend,
		limiter:        limiter,
		log:            logger.With("component", "requester"),
		maxAttempts:    cfg.MaxAttempts,
		attemptTimeout: cfg.AttemptTimeout,
		sleep:          time.Sleep,
		jitter:         func() time.Duration { return time.Duration(rand.Int63n(int64(maxJitter))) },
	}
}

// SynthesizeWithRetry runs one request to completion or exhaustion.
// Returns the audio bytes and the request's input byte count.
func (r *Requester) SynthesizeWithRetry(ctx context.Context, req Request) ([]byte, int, error) {
	inputBytes := req.ByteSize()
	backoff := time.Second

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, inputBytes, err
		}

		r.limiter.Acquire()

		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		audio, err := r.backend.Synthesize(attemptCtx, req)
		cancel()
		elapsed := time.Since(start)

		if err == nil && len(audio) == 0 {
			err = errors.New("empty audio response")
		}
		if err == nil {
			r.log.Info("chunk synthesized",
				"index", req.Index,
				"attempt", attempt,
				"input_bytes", inputBytes,
				"audio_bytes", len(audio),
				"elapsed", elapsed.Round(100*time.Millisecond))
			return audio, inputBytes, nil
		}

		lastErr = err
		kind := KindOf(err)
		r.log.Warn("synthesis attempt failed",
			"index", req.Index,
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"kind", kind.String(),
			"elapsed", elapsed.Round(100*time.Millisecond),
			"error", err)

		if kind == KindPermanent || kind == KindConfig {
			return nil, inputBytes, err
		}
		if attempt == r.maxAttempts {
			break
		}

		switch kind {
		case KindRateLimit:
			wait := rateLimitFloor + backoff + r.jitter()
			r.log.Info("quota exhausted, waiting for window reset",
				"index", req.Index, "wait", wait.Round(time.Second))
			r.sleep(wait)
			backoff *= 2
			// Start a fresh window rather than compounding waits
			// against entries the backend already rejected.
			r.limiter.Reset()
		default:
			r.sleep(transientWait)
		}
	}

	return nil, inputBytes, fmt.Errorf("synthesis failed after %d attempts: %w", r.maxAttempts, lastErr)
}
