// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// SessionSecret derives the encryption key for stored credentials.
	// Changing it orphans every previously stored secret.
	SessionSecret string
	ListenAddr    string
	DBPath        string
	UserID        int64
	HTTPTimeout   time.Duration
}

// Load reads configuration from a .env file (when present) and the process
// environment, and returns a validated Config. GITDESK_SESSION_SECRET is
// required; without it no stored secret could ever be decrypted. Optional
// variables with defaults: GITDESK_LISTEN_ADDR (127.0.0.1:8080),
// GITDESK_DB_PATH (gitdesk.db), GITDESK_USER_ID (1),
// GITDESK_HTTP_TIMEOUT (30s).
func Load() (*Config, error) {
	// Missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	secret := os.Getenv("GITDESK_SESSION_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("GITDESK_SESSION_SECRET is required")
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("GITDESK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "gitdesk.db"
	if v, ok := os.LookupEnv("GITDESK_DB_PATH"); ok {
		dbPath = v
	}

	userID := int64(1)
	if v, ok := os.LookupEnv("GITDESK_USER_ID"); ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("GITDESK_USER_ID has invalid value %q", v)
		}
		userID = parsed
	}

	httpTimeout := 30 * time.Second
	if v, ok := os.LookupEnv("GITDESK_HTTP_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("GITDESK_HTTP_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("GITDESK_HTTP_TIMEOUT must be positive, got %q", v)
		}
		httpTimeout = parsed
	}

	return &Config{
		SessionSecret: secret,
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		UserID:        userID,
		HTTPTimeout:   httpTimeout,
	}, nil
}
