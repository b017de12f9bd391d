package bootstrap

import (
	"os"
	"strconv"
	"time"

	"github.com/narratize/audiobook-engine/internal/synthesis"
)

type Config struct {
	ServerAddr string
	LogLevel   string

	Backend      string
	APIKey       string
	ModelName    string
	GenAIModelID string

	QuotaPerMinute int
	MaxChunkBytes  int
	BatchSize      int
	Workers        int
	MaxAttempts    int
	AttemptTimeout time.Duration
	SilenceGapMs   int

	OutputDir string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		Backend:      getEnv("TTS_BACKEND", "cloud"),
		APIKey:       getEnv("TTS_API_KEY", ""),
		ModelName:    getEnv("TTS_MODEL_NAME", "gemini-2.5-pro-tts"),
		GenAIModelID: getEnv("GENAI_MODEL_ID", "gemini-2.5-flash-preview-tts"),

		QuotaPerMinute: getEnvInt("TTS_QUOTA_PER_MINUTE", 9),
		MaxChunkBytes:  getEnvInt("TTS_MAX_CHUNK_BYTES", synthesis.MaxInputBytes-synthesis.SafetyMargin),
		BatchSize:      getEnvInt("TTS_DIALOGUE_BATCH_SIZE", 9),
		Workers:        getEnvInt("TTS_WORKERS", 10),
		MaxAttempts:    getEnvInt("TTS_MAX_ATTEMPTS", 5),
		AttemptTimeout: time.Duration(getEnvInt("TTS_ATTEMPT_TIMEOUT_SEC", 180)) * time.Second,
		SilenceGapMs:   getEnvInt("TTS_SILENCE_GAP_MS", 300),

		OutputDir: getEnv("OUTPUT_DIR", "./output"),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       0,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
