package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	ServiceAPIKey string

	// OpenRouter collaborator. Empty key disables delegation and synthesis;
	// the pipeline then runs rule-based only.
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	ClassifyModel     string
	SynthesisModel    string
	ClassifyTimeout   time.Duration
	SynthesisTimeout  time.Duration

	// Classification thresholds
	MinConfidence float64
	DelegateBelow float64

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		ServiceAPIKey: os.Getenv("SKRIPSIFORGE_API_KEY"),

		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: envOr("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		ClassifyModel:     envOr("CLASSIFY_MODEL", "openai/gpt-oss-20b:free"),
		SynthesisModel:    envOr("SYNTHESIS_MODEL", "openai/gpt-oss-20b:free"),
		ClassifyTimeout:   envDuration("CLASSIFY_TIMEOUT", 20*time.Second),
		SynthesisTimeout:  envDuration("SYNTHESIS_TIMEOUT", 45*time.Second),

		MinConfidence: envFloat("MIN_CONFIDENCE", 0.6),
		DelegateBelow: envFloat("DELEGATE_BELOW", 0.75),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.MinConfidence <= 0 || cfg.MinConfidence > 1 {
		cfg.MinConfidence = 0.6
	}
	if cfg.DelegateBelow < cfg.MinConfidence || cfg.DelegateBelow > 1 {
		cfg.DelegateBelow = cfg.MinConfidence
	}

	return cfg
}

func (c Config) Validate() error {
	if c.ServiceAPIKey == "" {
		return fmt.Errorf("SKRIPSIFORGE_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
