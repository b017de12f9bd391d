package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const chunkTTL = 7 * 24 * time.Hour

// ChunkCache stores synthesized audio keyed by the full synthesis
// identity, so a re-run of the same book skips paid backend calls. A
// nil cache is valid and caches nothing.
type ChunkCache struct {
	redis *redis.Client
	log   *slog.Logger
}

func New(redisClient *redis.Client, logger *slog.Logger) *ChunkCache {
	if redisClient == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkCache{redis: redisClient, log: logger.With("component", "chunk_cache")}
}

// Key derives the cache key from everything that changes the audio.
func Key(backend, model, voice, language, text string) string {
	h := sha256.New()
	for _, part := range []string{backend, model, voice, language, text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "chunk:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached audio, or nil on a miss. Redis errors are
// treated as misses so the backend stays reachable without redis.
func (c *ChunkCache) Get(ctx context.Context, key string) []byte {
	if c == nil {
		return nil
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.log.Warn("cache read failed", "error", err)
		return nil
	}
	return data
}

func (c *ChunkCache) Put(ctx context.Context, key string, audio []byte) {
	if c == nil || len(audio) == 0 {
		return
	}
	if err := c.redis.Set(ctx, key, audio, chunkTTL).Err(); err != nil {
		c.log.Warn("cache write failed", "error", err)
	}
}
