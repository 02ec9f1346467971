package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SCROLLBACK_LENGTH", "")
	t.Setenv("LOAD_HISTORY", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("EMOTE_PROVIDERS", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ScrollbackLength != 500 {
		t.Errorf("ScrollbackLength = %d, want 500", cfg.ScrollbackLength)
	}
	if !cfg.LoadHistory {
		t.Error("LoadHistory should default to true")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if len(cfg.EmoteProviders) != 3 {
		t.Errorf("EmoteProviders = %v, want bttv/ffz/seventv", cfg.EmoteProviders)
	}
}

func TestLoadChannelList(t *testing.T) {
	t.Setenv("TWITCH_CHANNELS", "pajlada, forsen ,,sodapoppin")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := []string{"pajlada", "forsen", "sodapoppin"}
	if len(cfg.Channels) != len(want) {
		t.Fatalf("Channels = %v, want %v", cfg.Channels, want)
	}
	for i := range want {
		if cfg.Channels[i] != want[i] {
			t.Errorf("Channels[%d] = %q, want %q", i, cfg.Channels[i], want[i])
		}
	}
}

func TestLoadRejectsBadScrollback(t *testing.T) {
	t.Setenv("SCROLLBACK_LENGTH", "nope")
	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric SCROLLBACK_LENGTH")
	}
	t.Setenv("SCROLLBACK_LENGTH", "-5")
	if _, err := Load(); err == nil {
		t.Error("expected error for negative SCROLLBACK_LENGTH")
	}
}

func TestValidateChatReady(t *testing.T) {
	t.Setenv("TWITCH_LOGIN", "selfuser")
	t.Setenv("TWITCH_OAUTH_TOKEN", "oauth:token")
	cfg, _ := Load()
	if err := cfg.ValidateChatReady(); err != nil {
		t.Errorf("expected valid chat config, got %v", err)
	}
	if err := os.Unsetenv("TWITCH_LOGIN"); err != nil {
		t.Fatalf("failed to unset TWITCH_LOGIN: %v", err)
	}
	cfg, _ = Load()
	if err := cfg.ValidateChatReady(); err == nil {
		t.Errorf("expected error when missing twitch envs")
	}
}

func TestValidateHelixReady(t *testing.T) {
	t.Setenv("TWITCH_CLIENT_ID", "cid")
	t.Setenv("TWITCH_CLIENT_SECRET", "secret")
	cfg, _ := Load()
	if err := cfg.ValidateHelixReady(); err != nil {
		t.Errorf("expected valid helix config, got %v", err)
	}
	t.Setenv("TWITCH_CLIENT_SECRET", "")
	cfg, _ = Load()
	if err := cfg.ValidateHelixReady(); err == nil {
		t.Errorf("expected error when missing client secret")
	}
}
