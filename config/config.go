// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (e.g., Twitch chat login), use ValidateChatReady.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Twitch identity
	TwitchLogin        string
	TwitchUserID       string
	TwitchOAuthToken   string
	TwitchClientID     string
	TwitchClientSecret string
	TwitchScopes       string

	// Channels joined at startup
	Channels []string

	// Chat behavior
	ScrollbackLength int
	LoadHistory      bool
	EmoteProviders   []string

	// Filters
	IgnoreUsers       []string
	IgnorePatterns    []string
	HighlightPatterns []string

	// Database; empty disables chat recording
	DBDsn string

	// HTTP
	HTTPAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail if
// Twitch creds are missing; use ValidateChatReady() when you require a
// logged-in connection. Anonymous read-only chat works without credentials.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchLogin = os.Getenv("TWITCH_LOGIN")
	cfg.TwitchUserID = os.Getenv("TWITCH_USER_ID")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	cfg.TwitchScopes = os.Getenv("TWITCH_SCOPES")
	if cfg.TwitchScopes == "" {
		// default scopes for a chat client
		cfg.TwitchScopes = "chat:read chat:edit whispers:read whispers:edit"
	}

	cfg.Channels = splitList(os.Getenv("TWITCH_CHANNELS"))

	cfg.ScrollbackLength = 500
	if v := os.Getenv("SCROLLBACK_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SCROLLBACK_LENGTH %q", v)
		}
		cfg.ScrollbackLength = n
	}

	cfg.LoadHistory = os.Getenv("LOAD_HISTORY") != "0"

	cfg.EmoteProviders = splitList(os.Getenv("EMOTE_PROVIDERS"))
	if len(cfg.EmoteProviders) == 0 {
		cfg.EmoteProviders = []string{"bttv", "ffz", "seventv"}
	}

	cfg.IgnoreUsers = splitList(os.Getenv("IGNORE_USERS"))
	cfg.IgnorePatterns = splitList(os.Getenv("IGNORE_PATTERNS"))
	cfg.HighlightPatterns = splitList(os.Getenv("HIGHLIGHT_PATTERNS"))

	// DB; empty means chat recording is disabled
	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// ValidateChatReady checks required fields for a logged-in chat connection.
func (c *Config) ValidateChatReady() error {
	if c.TwitchLogin == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_LOGIN, TWITCH_OAUTH_TOKEN")
	}
	return nil
}

// ValidateHelixReady checks required fields for Helix API access (chatter
// lists, badges, block lists).
func (c *Config) ValidateHelixReady() error {
	if c.TwitchClientID == "" || c.TwitchClientSecret == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CLIENT_ID, TWITCH_CLIENT_SECRET")
	}
	return nil
}

// splitList splits a comma-separated env value, trimming blanks.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
