package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	// Jellyfin server
	JellyfinHost   string
	JellyfinPort   int
	JellyfinUseSSL bool
	JellyfinAPIKey string

	SQLitePath string
	ListenAddr string

	// Polling
	PollIntervalSec  int // base interval between session polls
	PollTimeoutSec   int // per-request timeout handled by the API client
	BackoffThreshold int // consecutive failures before widening the interval
	BackoffMaxSec    int // ceiling for the widened interval

	// Jellyfin push socket (optional; polling alone is sufficient)
	SocketEnabled bool

	// Artwork
	ImgPrimaryMaxWidth int
}

// BaseURL builds the server URL from host/port/SSL parts.
func (c Config) BaseURL() string {
	scheme := "http"
	if c.JellyfinUseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.JellyfinHost, c.JellyfinPort)
}

func Load() Config {
	dbPath := env("SQLITE_PATH", "/var/lib/jellybridge/jellybridge.db")
	_ = os.MkdirAll(filepath.Dir(dbPath), 0755)

	cfg := Config{
		JellyfinHost:       env("JELLYFIN_HOST", "jellyfin"),
		JellyfinPort:       envInt("JELLYFIN_PORT", 8096),
		JellyfinUseSSL:     envBool("JELLYFIN_USE_SSL", false),
		JellyfinAPIKey:     env("JELLYFIN_API_KEY", ""),
		SQLitePath:         dbPath,
		ListenAddr:         env("LISTEN_ADDR", ":8099"),
		PollIntervalSec:    envInt("POLL_INTERVAL_SEC", 5),
		PollTimeoutSec:     envInt("POLL_TIMEOUT_SEC", 10),
		BackoffThreshold:   envInt("BACKOFF_THRESHOLD", 3),
		BackoffMaxSec:      envInt("BACKOFF_MAX_SEC", 120),
		SocketEnabled:      envBool("JELLYFIN_SOCKET", true),
		ImgPrimaryMaxWidth: envInt("IMG_PRIMARY_MAX_WIDTH", 300),
	}

	fmt.Printf("[INFO] Using SQLite DB at: %s\n", dbPath)
	fmt.Printf("[INFO] Jellyfin Base URL: %s\n", cfg.BaseURL())
	if cfg.JellyfinAPIKey == "" {
		fmt.Println("[WARN] JELLYFIN_API_KEY is not set! API calls to Jellyfin will fail.")
	}
	return cfg
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}
