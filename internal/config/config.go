package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string
	// "postgres" or "memory"
	Store string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret           string
	JWTAccessTTLMinutes int
	JWTRefreshTTLDays   int
	VerifyTTLHours      int
	PublicURL           string

	AdminEmail    string
	AdminPassword string
	AdminName     string
	AdminRole     string

	CacheTTLSeconds    int
	SubmitLockSeconds  int
	RateLimitPerMinute int
	CORSOrigins        []string

	OTelEnabled  bool
	OTelEndpoint string

	WorkerConcurrency   int
	WorkerPollMS        int
	NotifierTimeoutMS   int
	NotifierWebhookURL  string
	WorkerHealthPort    int
	StaleJobLockSeconds int
}

func Load() Config {
	// .env is optional; real env vars always win.
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),
		Store: strings.ToLower(getEnv("STORE", "postgres")),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:           getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 30),
		JWTRefreshTTLDays:   getEnvInt("JWT_REFRESH_TTL_DAYS", 7),
		VerifyTTLHours:      getEnvInt("VERIFY_TTL_HOURS", 24),
		PublicURL:           strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
		AdminRole:     "ADMIN",

		CacheTTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", 300),
		SubmitLockSeconds:  getEnvInt("SUBMIT_LOCK_SECONDS", 10),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),
		CORSOrigins:        splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 4),
		WorkerPollMS:        getEnvInt("WORKER_POLL_MS", 250),
		NotifierTimeoutMS:   getEnvInt("NOTIFIER_TIMEOUT_MS", 3000),
		NotifierWebhookURL:  getEnv("NOTIFIER_WEBHOOK_URL", ""),
		WorkerHealthPort:    getEnvInt("WORKER_HEALTH_PORT", 8081),
		StaleJobLockSeconds: getEnvInt("STALE_JOB_LOCK_SECONDS", 60),
	}
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
}

func (c Config) VerifyTTL() time.Duration {
	return time.Duration(c.VerifyTTLHours) * time.Hour
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c Config) SubmitLockTTL() time.Duration {
	return time.Duration(c.SubmitLockSeconds) * time.Second
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "admissions")
	pass := getEnv("DB_PASSWORD", "admissions")
	name := getEnv("DB_NAME", "admissions")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func splitCSV(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
