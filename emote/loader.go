package emote

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/chat-tender/telemetry"
)

// ProviderAPI is the HTTP-facing collaborator delivering emote and badge
// DTOs. Implementations live outside this package.
type ProviderAPI interface {
	FetchGlobalEmotes(ctx context.Context, provider string) ([]GenericEmote, error)
	FetchChannelEmotes(ctx context.Context, provider, channelID string) ([]GenericEmote, error)
	FetchGlobalBadges(ctx context.Context) (map[string]map[string]BadgeInfo, error)
	FetchChannelBadges(ctx context.Context, channelID string) (map[string]map[string]BadgeInfo, error)
	FetchFFZModVIPBadges(ctx context.Context, channelID string) (modURL, vipURL string, err error)
	FetchDankChatBadges(ctx context.Context) (map[string]BadgeInfo, error)
}

// Loader reloads the caches from a ProviderAPI. Loads run concurrently and
// fail independently: one provider being down never blocks the others, the
// failed names are returned so the caller can surface a retry.
type Loader struct {
	API    ProviderAPI
	Emotes *Store
	Badges *BadgeStore
}

// LoadGlobal refreshes the global emote sets, global badges, and the
// DankChat roster. Returns the names of providers that failed.
func (l *Loader) LoadGlobal(ctx context.Context) []string {
	ctx, span := telemetry.StartSpan(ctx, "emote", "providers.load_global")
	defer span.End()

	var failed []string
	record := func(name string) func(error) {
		return func(err error) {
			slog.Warn("emote provider load failed", slog.String("provider", name), slog.Any("err", err))
			failed = append(failed, name)
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	var results [3][]GenericEmote
	providers := []string{ProviderBTTV, ProviderFFZ, ProviderSevenTV}
	errs := make([]error, len(providers)+2)
	for i, p := range providers {
		g.Go(func() error {
			emotes, err := l.API.FetchGlobalEmotes(gctx, p)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = emotes
			return nil
		})
	}
	var globalBadges map[string]map[string]BadgeInfo
	var dankBadges map[string]BadgeInfo
	g.Go(func() error {
		b, err := l.API.FetchGlobalBadges(gctx)
		if err != nil {
			errs[len(providers)] = err
			return nil
		}
		globalBadges = b
		return nil
	})
	g.Go(func() error {
		b, err := l.API.FetchDankChatBadges(gctx)
		if err != nil {
			errs[len(providers)+1] = err
			return nil
		}
		dankBadges = b
		return nil
	})
	_ = g.Wait()

	for i, p := range providers {
		if errs[i] != nil {
			record(p)(errs[i])
			continue
		}
		l.Emotes.SetGlobal(p, results[i])
	}
	if errs[len(providers)] != nil {
		record("twitch-badges")(errs[len(providers)])
	} else if globalBadges != nil {
		l.Badges.SetGlobal(globalBadges)
	}
	if errs[len(providers)+1] != nil {
		record("dankchat-badges")(errs[len(providers)+1])
	} else if dankBadges != nil {
		l.Badges.SetDankChatBadges(dankBadges)
	}
	return failed
}

// LoadChannel refreshes one channel's emote sets and badges. Returns the
// names of providers that failed.
func (l *Loader) LoadChannel(ctx context.Context, channel, channelID string) []string {
	ctx, span := telemetry.StartSpan(ctx, "emote", "providers.load_channel",
		attribute.String("channel", channel))
	defer span.End()

	var failed []string
	providers := []string{ProviderBTTV, ProviderFFZ, ProviderSevenTV}
	errs := make([]error, len(providers)+2)
	var results [3][]GenericEmote

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		g.Go(func() error {
			emotes, err := l.API.FetchChannelEmotes(gctx, p, channelID)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = emotes
			return nil
		})
	}
	var channelBadges map[string]map[string]BadgeInfo
	var modURL, vipURL string
	var ffzBadgesOK bool
	g.Go(func() error {
		b, err := l.API.FetchChannelBadges(gctx, channelID)
		if err != nil {
			errs[len(providers)] = err
			return nil
		}
		channelBadges = b
		return nil
	})
	g.Go(func() error {
		m, v, err := l.API.FetchFFZModVIPBadges(gctx, channelID)
		if err != nil {
			errs[len(providers)+1] = err
			return nil
		}
		modURL, vipURL, ffzBadgesOK = m, v, true
		return nil
	})
	_ = g.Wait()

	for i, p := range providers {
		if errs[i] != nil {
			slog.Warn("channel emote load failed", slog.String("provider", p), slog.String("channel", channel), slog.Any("err", errs[i]))
			failed = append(failed, p)
			continue
		}
		l.Emotes.SetChannel(p, channel, results[i])
	}
	if errs[len(providers)] != nil {
		slog.Warn("channel badge load failed", slog.String("channel", channel), slog.Any("err", errs[len(providers)]))
		failed = append(failed, "twitch-badges")
	} else if channelBadges != nil {
		l.Badges.SetChannel(channel, channelBadges)
	}
	if ffzBadgesOK {
		l.Badges.SetFFZChannelBadges(channel, modURL, vipURL)
	}
	return failed
}
