package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/onnwee/chat-tender/emote"
)

// ProviderClient implements emote.ProviderAPI against the public BTTV, FFZ,
// SevenTV, Helix, and DankChat endpoints.
type ProviderClient struct {
	Helix      *HelixClient
	HTTPClient *http.Client
}

func (pc *ProviderClient) http() *http.Client {
	if pc.HTTPClient != nil {
		return pc.HTTPClient
	}
	return http.DefaultClient
}

func (pc *ProviderClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := pc.http().Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// bttvOverlayCodes are the seasonal BTTV emotes that render stacked on the
// preceding emote; BTTV's API does not flag them.
var bttvOverlayCodes = map[string]bool{
	"SoSnowy": true, "IceCold": true, "SantaHat": true, "TopHat": true,
	"ReinDeer": true, "CandyCane": true, "cvMask": true, "cvHazmat": true,
}

type bttvEmote struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

func (e bttvEmote) generic(scope emote.Scope) emote.GenericEmote {
	return emote.GenericEmote{
		Code:      e.Code,
		ID:        e.ID,
		URL:       "https://cdn.betterttv.net/emote/" + e.ID + "/3x",
		LowResURL: "https://cdn.betterttv.net/emote/" + e.ID + "/1x",
		Scale:     3,
		Provider:  emote.ProviderBTTV,
		Scope:     scope,
		IsOverlay: bttvOverlayCodes[e.Code],
	}
}

type ffzEmote struct {
	Name     string            `json:"name"`
	Modifier bool              `json:"modifier"`
	URLs     map[string]string `json:"urls"`
}

func (e ffzEmote) generic(scope emote.Scope) emote.GenericEmote {
	best := e.URLs["4"]
	if best == "" {
		best = e.URLs["2"]
	}
	if best == "" {
		best = e.URLs["1"]
	}
	return emote.GenericEmote{
		Code:      e.Name,
		URL:       best,
		LowResURL: e.URLs["1"],
		Scale:     4,
		Provider:  emote.ProviderFFZ,
		Scope:     scope,
		IsOverlay: e.Modifier,
	}
}

type ffzSets struct {
	Sets map[string]struct {
		Emoticons []ffzEmote `json:"emoticons"`
	} `json:"sets"`
}

func (s ffzSets) generic(scope emote.Scope) []emote.GenericEmote {
	var out []emote.GenericEmote
	for _, set := range s.Sets {
		for _, e := range set.Emoticons {
			out = append(out, e.generic(scope))
		}
	}
	return out
}

// seventvZeroWidth is the active-emote flag marking a zero-width emote.
const seventvZeroWidth = 1 << 0

type seventvEmote struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Flags int    `json:"flags"`
	Data  struct {
		Host struct {
			URL string `json:"url"`
		} `json:"host"`
	} `json:"data"`
}

func (e seventvEmote) generic(scope emote.Scope) emote.GenericEmote {
	base := "https:" + e.Data.Host.URL
	return emote.GenericEmote{
		Code:      e.Name,
		ID:        e.ID,
		URL:       base + "/3x.webp",
		LowResURL: base + "/1x.webp",
		Scale:     3,
		Provider:  emote.ProviderSevenTV,
		Scope:     scope,
		IsOverlay: e.Flags&seventvZeroWidth != 0,
	}
}

// FetchGlobalEmotes loads a provider's global emote set.
func (pc *ProviderClient) FetchGlobalEmotes(ctx context.Context, provider string) ([]emote.GenericEmote, error) {
	switch provider {
	case emote.ProviderBTTV:
		var emotes []bttvEmote
		if err := pc.getJSON(ctx, "https://api.betterttv.net/3/cached/emotes/global", &emotes); err != nil {
			return nil, err
		}
		out := make([]emote.GenericEmote, 0, len(emotes))
		for _, e := range emotes {
			out = append(out, e.generic(emote.ScopeGlobal))
		}
		return out, nil
	case emote.ProviderFFZ:
		var sets ffzSets
		if err := pc.getJSON(ctx, "https://api.frankerfacez.com/v1/set/global", &sets); err != nil {
			return nil, err
		}
		return sets.generic(emote.ScopeGlobal), nil
	case emote.ProviderSevenTV:
		var set struct {
			Emotes []seventvEmote `json:"emotes"`
		}
		if err := pc.getJSON(ctx, "https://7tv.io/v3/emote-sets/global", &set); err != nil {
			return nil, err
		}
		out := make([]emote.GenericEmote, 0, len(set.Emotes))
		for _, e := range set.Emotes {
			out = append(out, e.generic(emote.ScopeGlobal))
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}

// FetchChannelEmotes loads a provider's channel emote set by Twitch user id.
func (pc *ProviderClient) FetchChannelEmotes(ctx context.Context, provider, channelID string) ([]emote.GenericEmote, error) {
	switch provider {
	case emote.ProviderBTTV:
		var body struct {
			ChannelEmotes []bttvEmote `json:"channelEmotes"`
			SharedEmotes  []bttvEmote `json:"sharedEmotes"`
		}
		if err := pc.getJSON(ctx, "https://api.betterttv.net/3/cached/users/twitch/"+channelID, &body); err != nil {
			return nil, err
		}
		out := make([]emote.GenericEmote, 0, len(body.ChannelEmotes)+len(body.SharedEmotes))
		for _, e := range body.ChannelEmotes {
			out = append(out, e.generic(emote.ScopeChannel))
		}
		for _, e := range body.SharedEmotes {
			out = append(out, e.generic(emote.ScopeChannel))
		}
		return out, nil
	case emote.ProviderFFZ:
		var sets ffzSets
		if err := pc.getJSON(ctx, "https://api.frankerfacez.com/v1/room/id/"+channelID, &sets); err != nil {
			return nil, err
		}
		return sets.generic(emote.ScopeChannel), nil
	case emote.ProviderSevenTV:
		var body struct {
			EmoteSet struct {
				Emotes []seventvEmote `json:"emotes"`
			} `json:"emote_set"`
		}
		if err := pc.getJSON(ctx, "https://7tv.io/v3/users/twitch/"+channelID, &body); err != nil {
			return nil, err
		}
		out := make([]emote.GenericEmote, 0, len(body.EmoteSet.Emotes))
		for _, e := range body.EmoteSet.Emotes {
			out = append(out, e.generic(emote.ScopeChannel))
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}

type helixBadgeSets struct {
	Data []struct {
		SetID    string `json:"set_id"`
		Versions []struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			ImageURL string `json:"image_url_4x"`
		} `json:"versions"`
	} `json:"data"`
}

func (b helixBadgeSets) toMap() map[string]map[string]emote.BadgeInfo {
	out := make(map[string]map[string]emote.BadgeInfo, len(b.Data))
	for _, set := range b.Data {
		versions := make(map[string]emote.BadgeInfo, len(set.Versions))
		for _, v := range set.Versions {
			versions[v.ID] = emote.BadgeInfo{Title: v.Title, URL: v.ImageURL}
		}
		out[set.SetID] = versions
	}
	return out
}

func (pc *ProviderClient) fetchHelixBadges(ctx context.Context, url string) (map[string]map[string]emote.BadgeInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if err := pc.Helix.authorize(ctx, req); err != nil {
		return nil, err
	}
	resp, err := pc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("badge fetch: %s", resp.Status)
	}
	var sets helixBadgeSets
	if err := json.NewDecoder(resp.Body).Decode(&sets); err != nil {
		return nil, err
	}
	return sets.toMap(), nil
}

// FetchGlobalBadges loads the global Twitch badge sets.
func (pc *ProviderClient) FetchGlobalBadges(ctx context.Context) (map[string]map[string]emote.BadgeInfo, error) {
	return pc.fetchHelixBadges(ctx, "https://api.twitch.tv/helix/chat/badges/global")
}

// FetchChannelBadges loads a channel's badge sets (subscriber, bits).
func (pc *ProviderClient) FetchChannelBadges(ctx context.Context, channelID string) (map[string]map[string]emote.BadgeInfo, error) {
	return pc.fetchHelixBadges(ctx, "https://api.twitch.tv/helix/chat/badges?broadcaster_id="+channelID)
}

// FetchFFZModVIPBadges loads a channel's custom FFZ moderator and VIP badge
// URLs; empty strings mean the channel has none.
func (pc *ProviderClient) FetchFFZModVIPBadges(ctx context.Context, channelID string) (string, string, error) {
	var body struct {
		Room struct {
			ModURLs  map[string]string `json:"mod_urls"`
			VIPBadge map[string]string `json:"vip_badge"`
		} `json:"room"`
	}
	if err := pc.getJSON(ctx, "https://api.frankerfacez.com/v1/room/id/"+channelID, &body); err != nil {
		return "", "", err
	}
	pick := func(urls map[string]string) string {
		for _, k := range []string{"4", "2", "1"} {
			if u := urls[k]; u != "" {
				return u
			}
		}
		return ""
	}
	return pick(body.Room.ModURLs), pick(body.Room.VIPBadge), nil
}

// FetchDankChatBadges loads the DankChat custom badge roster keyed by user id.
func (pc *ProviderClient) FetchDankChatBadges(ctx context.Context) (map[string]emote.BadgeInfo, error) {
	var badges []struct {
		Type  string   `json:"type"`
		URL   string   `json:"url"`
		Users []string `json:"users"`
	}
	if err := pc.getJSON(ctx, "https://badges.dankchat.app/badges", &badges); err != nil {
		return nil, err
	}
	out := make(map[string]emote.BadgeInfo)
	for _, b := range badges {
		for _, uid := range b.Users {
			out[uid] = emote.BadgeInfo{Title: b.Type, URL: b.URL}
		}
	}
	return out, nil
}
