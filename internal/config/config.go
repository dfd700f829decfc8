package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	DBURL       string
	APIBasePath string

	JWTSecret string

	AdminEmail    string
	AdminPassword string
	AdminName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	AuthRateLimit  int
	AuthRateWindow time.Duration
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set outside dev")

// Load reads an optional .env file and then the process environment.
func Load() Config {
	// a missing .env is the normal case in containers
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	return Config{
		Env:         env,
		Port:        getEnvInt("PORT", 8080),
		DBURL:       getEnv("DATABASE_URL", buildDBURL()),
		APIBasePath: normalizeBasePath(getEnv("API_BASE_PATH", "/api")),

		JWTSecret: getEnv("JWT_SECRET", devSecret(env)),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@farm.com"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio: getEnvFloat("OTEL_SAMPLE_RATIO", 1),

		CORSAllowedOrigins: csv(os.Getenv("CORS_ALLOWED_ORIGINS")),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 10<<20)),

		AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindow: time.Duration(getEnvInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
	}
}

func (c Config) Validate() error {
	if c.Env != "dev" && c.Env != "test" && c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "farmhub")
	pass := getEnv("DB_PASSWORD", "farmhub")
	name := getEnv("DB_NAME", "farmhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func devSecret(env string) string {
	if env == "dev" || env == "test" {
		return "dev-only-secret-change-me"
	}
	return ""
}

func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimSuffix(p, "/")
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
			slog.Warn("invalid integer env value, using default", "key", key, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env value, using default", "key", key, "default", fallback)
			return fallback
		}
		return f
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

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
