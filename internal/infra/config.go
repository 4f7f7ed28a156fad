package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageDriverCloudinary = "cloudinary"
	StorageDriverFilesystem = "filesystem"
)

const maxVariants = 4

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string

	FreepikAPIKey  string
	FreepikBaseURL string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	StorageDriver    string
	CloudinaryURL    string
	CloudinaryFolder string
	StoragePath      string
	StorageBaseURL   string

	PollMaxAttempts   int
	PollInterval      time.Duration
	GenerationTimeout time.Duration
	Variants          int
	PersistMaxRetries int
	RefineCacheTTL    time.Duration

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        port,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),

		FreepikAPIKey:  strings.TrimSpace(os.Getenv("FREEPIK_API_KEY")),
		FreepikBaseURL: getEnv("FREEPIK_BASE_URL", "https://api.freepik.com/v1/ai/gemini-2-5-flash-image-preview"),

		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),

		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverCloudinary)),
		CloudinaryURL:    strings.TrimSpace(os.Getenv("CLOUDINARY_URL")),
		CloudinaryFolder: getEnv("CLOUDINARY_FOLDER", "ytthumbs/generated_thumbnails"),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),

		PollMaxAttempts:   getEnvInt("POLL_MAX_ATTEMPTS", 50),
		PollInterval:      time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 1500)),
		GenerationTimeout: time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 120)),
		Variants:          getEnvInt("GENERATION_VARIANTS", 1),
		PersistMaxRetries: getEnvInt("PERSIST_MAX_RETRIES", 2),
		RefineCacheTTL:    time.Minute * time.Duration(getEnvInt("REFINE_CACHE_TTL_MINUTES", 60)),

		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 150)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	if cfg.PollMaxAttempts <= 0 {
		return nil, fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}
	if cfg.Variants < 1 || cfg.Variants > maxVariants {
		return nil, fmt.Errorf("GENERATION_VARIANTS must be between 1 and %d", maxVariants)
	}
	if cfg.PersistMaxRetries < 0 {
		cfg.PersistMaxRetries = 0
	}
	// The response is written only after the pipeline finishes.
	if min := cfg.GenerationTimeout + 10*time.Second; cfg.HTTPWriteTimeout < min {
		cfg.HTTPWriteTimeout = min
	}

	switch cfg.StorageDriver {
	case StorageDriverCloudinary:
		if cfg.CloudinaryURL == "" && cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("CLOUDINARY_URL is required for the cloudinary storage driver")
		}
	case StorageDriverFilesystem:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.FreepikAPIKey == "" && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("FREEPIK_API_KEY is required")
	}

	return cfg, nil
}

// HasDatabase reports whether history and credential lookup are enabled.
func (c *Config) HasDatabase() bool {
	return c != nil && c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
