package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL         string
	ServerAddr          string
	MigrationsDir       string
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool
	ReminderInterval    time.Duration
	SessionPurgeEvery   time.Duration
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "campus_share")
		pass := getenv("POSTGRES_PASSWORD", "campus_share_pass")
		db := getenv("POSTGRES_DB", "campus_share")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}
	addr := getenv("SERVER_ADDR", "0.0.0.0:8080")
	migrationsDir := getenv("MIGRATIONS_DIR", "internal/migrations")
	ttl := parseDuration(getenv("SESSION_TTL", "24h"), 24*time.Hour)
	cookieName := getenv("SESSION_COOKIE_NAME", "campus_share_session")
	cookieSecure := parseBool(getenv("SESSION_COOKIE_SECURE", "false"), false)
	reminderInterval := parseDuration(getenv("REMINDER_INTERVAL", "1h"), time.Hour)
	purgeEvery := parseDuration(getenv("SESSION_PURGE_INTERVAL", "15m"), 15*time.Minute)

	return &Config{
		DatabaseURL:         dsn,
		ServerAddr:          addr,
		MigrationsDir:       migrationsDir,
		SessionTTL:          ttl,
		SessionCookieName:   cookieName,
		SessionCookieSecure: cookieSecure,
		ReminderInterval:    reminderInterval,
		SessionPurgeEvery:   purgeEvery,
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
