// Command token-bootstrap seeds the oauth_tokens row the refresher keeps
// alive. It prints the Twitch authorize URL, waits for the code from the
// redirect to be pasted on stdin, exchanges it, and stores the result.
//
// Usage:
//
//	TWITCH_CLIENT_ID=... TWITCH_CLIENT_SECRET=... TWITCH_REDIRECT_URI=... DB_DSN=... token-bootstrap
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/onnwee/chat-tender/config"
	"github.com/onnwee/chat-tender/db"
	"github.com/onnwee/chat-tender/twitchapi"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateHelixReady(); err != nil {
		slog.Error("oauth not configured", slog.Any("err", err))
		os.Exit(1)
	}
	redirectURI := os.Getenv("TWITCH_REDIRECT_URI")
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/oauth/callback"
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Error("state gen failed", slog.Any("err", err))
		os.Exit(1)
	}
	state := hex.EncodeToString(b)

	authURL, err := twitchapi.BuildAuthorizeURL(cfg.TwitchClientID, redirectURI, cfg.TwitchScopes, state)
	if err != nil {
		slog.Error("authorize url build failed", slog.Any("err", err))
		os.Exit(1)
	}
	fmt.Println("Open this URL, authorize, then paste the `code` query param from the redirect:")
	fmt.Println(authURL)
	fmt.Print("code: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		slog.Error("read code failed", slog.Any("err", err))
		os.Exit(1)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		slog.Error("empty code")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := twitchapi.ExchangeAuthCode(ctx, cfg.TwitchClientID, cfg.TwitchClientSecret, code, redirectURI)
	if err != nil {
		slog.Error("code exchange failed", slog.Any("err", err))
		os.Exit(1)
	}

	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()
	if err := db.Migrate(ctx, database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	expiry := twitchapi.ComputeExpiry(res.ExpiresIn)
	scope := strings.Join(res.Scope, " ")
	if err := db.UpsertOAuthToken(ctx, database, "twitch-chat", res.AccessToken, res.RefreshToken, expiry, scope); err != nil {
		slog.Error("token persist failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("token stored", slog.String("provider", "twitch-chat"), slog.Time("expires_at", expiry))
}
