package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DatabaseURL   string
	JWTSecret     string
	PublicBaseURL string

	GoogleClientID string
	GoogleIssuer   string
	GeoIPDBPath    string
	CORSOrigins    []string

	StoreEndpoint  string
	StoreAccessKey string
	StoreSecretKey string
	StoreBucket    string
	StoreUseSSL    bool
	CDNBaseURL     string
	StoragePath    string

	TranscribeBaseURL string
	TranscribeAPIKey  string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	QueueBaseURL    string
	QueueToken      string
	QueueSigningKey string

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	ProcessingDeadline time.Duration
	OutboxPollInterval time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleIssuer:   getEnv("GOOGLE_ISSUER", "https://accounts.google.com"),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),
		CORSOrigins:    splitCSV(os.Getenv("CORS_ORIGINS")),

		StoreEndpoint:  os.Getenv("OBJECT_STORE_ENDPOINT"),
		StoreAccessKey: os.Getenv("OBJECT_STORE_ACCESS_KEY"),
		StoreSecretKey: os.Getenv("OBJECT_STORE_SECRET_KEY"),
		StoreBucket:    getEnv("OBJECT_STORE_BUCKET", "chainpost-media"),
		StoreUseSSL:    getEnvBool("OBJECT_STORE_USE_SSL", false),
		CDNBaseURL:     getEnv("CDN_BASE_URL", "http://localhost:8080/static"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),

		TranscribeBaseURL: getEnv("TRANSCRIBE_BASE_URL", "https://api.transcribe.dev/v1"),
		TranscribeAPIKey:  os.Getenv("TRANSCRIBE_API_KEY"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		QueueBaseURL:    getEnv("QUEUE_BASE_URL", "https://qstash.upstash.io/v2"),
		QueueToken:      os.Getenv("QUEUE_TOKEN"),
		QueueSigningKey: os.Getenv("QUEUE_SIGNING_KEY"),

		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		ProcessingDeadline: time.Minute * time.Duration(getEnvInt("PROCESSING_DEADLINE_MINUTES", 30)),
		OutboxPollInterval: time.Second * time.Duration(getEnvInt("OUTBOX_POLL_INTERVAL_SECONDS", 2)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
