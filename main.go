// Command chat-tender is the main entrypoint for the chat gateway.
// It:
//   - Loads configuration and initializes structured logging.
//   - Optionally connects to Postgres (chat recording + token storage).
//   - Builds the chat pipeline: read/write IRC connections, ignore and
//     highlight filters, emote/badge resolution, history loading.
//   - Exposes the HTTP surface: /healthz, /readyz, /status, /metrics,
//     /channels, SSE streams, and the /ws gateway.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/onnwee/chat-tender/config"
	"github.com/onnwee/chat-tender/db"
	"github.com/onnwee/chat-tender/emote"
	"github.com/onnwee/chat-tender/filter"
	"github.com/onnwee/chat-tender/irc"
	"github.com/onnwee/chat-tender/oauth"
	"github.com/onnwee/chat-tender/repo"
	"github.com/onnwee/chat-tender/server"
	"github.com/onnwee/chat-tender/telemetry"
	"github.com/onnwee/chat-tender/twitchapi"
)

// helixChatters adapts the Helix chatters endpoint to the channel-name-keyed
// interface the repository wants; the broadcaster id is resolved per call.
type helixChatters struct {
	helix       *twitchapi.HelixClient
	moderatorID string
}

func (h *helixChatters) Chatters(ctx context.Context, channel string) ([]string, error) {
	id, err := h.helix.GetUserID(ctx, channel)
	if err != nil {
		return nil, err
	}
	return h.helix.GetChatters(ctx, id, h.moderatorID)
}

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("chat-tender", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB is optional: without DB_DSN the gateway runs purely in memory
	// (no chat recording, no token persistence).
	var database *sql.DB
	if cfg.DBDsn != "" {
		database, err = db.Connect()
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()

		// Versioned migrations first, embedded SQL as fallback for
		// deployments without a schema_migrations table.
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.RunMigrations(database); err != nil {
			slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
				slog.Any("err", err),
				slog.String("component", "db_migrate"))
			if err := db.Migrate(context.Background(), database); err != nil {
				slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
				os.Exit(1)
			}
		}
	} else {
		slog.Info("DB_DSN not set, chat recording disabled")
	}

	// Helix / provider clients. The app token source only works with client
	// credentials; the user token unlocks chatter and block-list endpoints.
	var appTokens *twitchapi.TokenSource
	if cfg.ValidateHelixReady() == nil {
		appTokens = &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret}
	}
	helix := &twitchapi.HelixClient{
		AppTokenSource: appTokens,
		ClientID:       cfg.TwitchClientID,
	}
	helix.SetUserToken(cfg.TwitchOAuthToken)
	providers := &twitchapi.ProviderClient{Helix: helix}

	// Emote/badge caches and the loader that fills them.
	emotes := emote.NewStore(cfg.EmoteProviders)
	badges := emote.NewBadgeStore()
	loader := &emote.Loader{API: providers, Emotes: emotes, Badges: badges}
	go func() {
		if failed := loader.LoadGlobal(ctx); len(failed) > 0 {
			slog.Warn("global emote load incomplete", slog.Any("failed", failed))
		}
	}()

	// Filters. IGNORE_USERS entries are usernames, matched as user patterns;
	// the Helix block list (user ids) is merged in when credentials allow.
	ignores := filter.NewIgnoreFilter()
	ignorePatterns := make([]filter.IgnorePattern, 0, len(cfg.IgnoreUsers)+len(cfg.IgnorePatterns))
	for _, u := range cfg.IgnoreUsers {
		ignorePatterns = append(ignorePatterns, filter.IgnorePattern{Pattern: u, MatchUser: true})
	}
	for _, p := range cfg.IgnorePatterns {
		ignorePatterns = append(ignorePatterns, filter.IgnorePattern{Pattern: p, IsRegex: true})
	}
	ignores.SetPatterns(ignorePatterns)
	if cfg.TwitchUserID != "" && cfg.TwitchOAuthToken != "" {
		go func() {
			bctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			defer cancel()
			ids, err := helix.GetBlockedUserIDs(bctx, cfg.TwitchUserID)
			if err != nil {
				slog.Warn("block list fetch failed", slog.Any("err", err))
				return
			}
			ignores.SetBlockedUsers(ids)
			slog.Info("block list loaded", slog.Int("count", len(ids)))
		}()
	}

	highlights := filter.NewHighlightEngine(cfg.TwitchLogin)
	hp := make([]filter.HighlightPattern, 0, len(cfg.HighlightPatterns))
	for _, p := range cfg.HighlightPatterns {
		hp = append(hp, filter.HighlightPattern{Pattern: p})
	}
	highlights.SetPatterns(hp)

	displays := filter.NewDisplayOverrides()

	// Connection pair. Without credentials the read connection is anonymous
	// and the write connection is omitted entirely (read-only mode).
	readConn := irc.NewConn(irc.Config{Login: cfg.TwitchLogin, Token: cfg.TwitchOAuthToken})
	var writeConn *irc.Conn
	if cfg.ValidateChatReady() == nil {
		writeConn = irc.NewConn(irc.Config{Login: cfg.TwitchLogin, Token: cfg.TwitchOAuthToken})
	} else {
		slog.Info("twitch chat creds missing, running read-only", slog.Any("err", cfg.ValidateChatReady()))
	}

	var chatters repo.ChattersClient
	if appTokens != nil && cfg.TwitchUserID != "" {
		chatters = &helixChatters{helix: helix, moderatorID: cfg.TwitchUserID}
	}

	var recorder repo.Recorder
	if database != nil {
		recorder = db.NewRecorder(ctx, database, db.RecorderConfig{})
	}

	repository := repo.New(
		repo.Config{
			Username:    cfg.TwitchLogin,
			UserID:      cfg.TwitchUserID,
			Scrollback:  cfg.ScrollbackLength,
			LoadHistory: cfg.LoadHistory,
		},
		repo.Options{
			Read:       readConn,
			Write:      writeConn,
			Ignores:    ignores,
			Highlights: highlights,
			Displays:   displays,
			Resolver:   &emote.Resolver{Emotes: emotes, Badges: badges},
			History:    &twitchapi.RecentMessagesClient{},
			Chatters:   chatters,
			Recorder:   recorder,
			OnChannelID: func(channel, channelID string) {
				if failed := loader.LoadChannel(ctx, channel, channelID); len(failed) > 0 {
					slog.Warn("channel emote load incomplete",
						slog.String("channel", channel), slog.Any("failed", failed))
				}
			},
			OnChannelRemoved: func(channel string) {
				emotes.RemoveChannel(channel)
				badges.RemoveChannel(channel)
			},
		},
	)
	go repository.Run(ctx)

	for _, ch := range cfg.Channels {
		repository.JoinChannel(ctx, ch)
	}

	// Token upkeep: refresh the stored Twitch user token and rotate it into
	// the IRC connections without a restart. Requires DB + client creds.
	if database != nil && cfg.ValidateHelixReady() == nil {
		r := &oauth.Refresher{
			DB:       database,
			Provider: "twitch-chat",
			Interval: 5 * time.Minute,
			Window:   15 * time.Minute,
			Refresh: func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
				res, err := twitchapi.RefreshToken(rctx, cfg.TwitchClientID, cfg.TwitchClientSecret, refreshToken)
				if err != nil {
					return "", "", time.Time{}, "", err
				}
				return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " "), nil
			},
			OnRefresh: func(accessToken string) {
				readConn.SetToken(accessToken)
				if writeConn != nil {
					writeConn.SetToken(accessToken)
				}
				helix.SetUserToken(accessToken)
			},
		}
		r.Start(ctx)
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			// Use an http.Server with timeouts to satisfy G114 and avoid DoS risks
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP surface (health/status/metrics/channels/SSE/WS)
	go func() {
		if err := server.Start(ctx, repository, database, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
