// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Remote backends.
const (
	BackendNone     = "none"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64
	CatalogPaths     []string
	RemoteBackend    string
	RemoteDSN        string
	SyncInterval     time.Duration
	OutboxInterval   time.Duration
	OutboxRate       float64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	allowedUsers, err := parseUserIDs(os.Getenv("ALLOWED_USERS"))
	if err != nil {
		return nil, err
	}

	catalogPaths := splitList(os.Getenv("CATALOG_PATHS"))
	if len(catalogPaths) == 0 {
		catalogPaths = []string{"./data/names.json"}
	}

	backend := strings.ToLower(envOr("REMOTE_BACKEND", BackendNone))
	if !slices.Contains([]string{BackendNone, BackendPostgres, BackendRedis}, backend) {
		return nil, fmt.Errorf("unknown REMOTE_BACKEND %q", backend)
	}
	dsn := os.Getenv("REMOTE_DSN")
	if backend != BackendNone && dsn == "" {
		return nil, fmt.Errorf("REMOTE_DSN is required for REMOTE_BACKEND=%s", backend)
	}

	syncInterval, err := parseDuration("SYNC_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	outboxInterval, err := parseDuration("OUTBOX_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}

	rate := 10.0
	if raw := os.Getenv("OUTBOX_RATE"); raw != "" {
		rate, err = strconv.ParseFloat(raw, 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid OUTBOX_RATE %q", raw)
		}
	}

	return &Config{
		TelegramBotToken: token,
		DatabasePath:     envOr("DATABASE_PATH", "./data/namematch.db"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		AllowedUsers:     allowedUsers,
		CatalogPaths:     catalogPaths,
		RemoteBackend:    backend,
		RemoteDSN:        dsn,
		SyncInterval:     syncInterval,
		OutboxInterval:   outboxInterval,
		OutboxRate:       rate,
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	return slices.Contains(c.AllowedUsers, userID)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, s := range splitList(raw) {
		uid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
		}
		ids = append(ids, uid)
	}
	return ids, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
