package emote

import (
	"strings"
	"sync"

	"github.com/onnwee/chat-tender/chat"
)

// BadgeInfo is the cached metadata for one (set, version) badge.
type BadgeInfo struct {
	Title string
	URL   string
}

// BadgeStore caches badge metadata from its four provenances: Twitch global,
// Twitch per-channel, FFZ mod/vip replacements, and the DankChat roster.
type BadgeStore struct {
	mu sync.RWMutex

	global  map[string]map[string]BadgeInfo            // set -> version
	channel map[string]map[string]map[string]BadgeInfo // channel -> set -> version
	ffzMod  map[string]string                          // channel -> badge URL
	ffzVIP  map[string]string
	dank    map[string]BadgeInfo // user id -> custom badge
}

// NewBadgeStore returns an empty badge store.
func NewBadgeStore() *BadgeStore {
	return &BadgeStore{
		global:  map[string]map[string]BadgeInfo{},
		channel: map[string]map[string]map[string]BadgeInfo{},
		ffzMod:  map[string]string{},
		ffzVIP:  map[string]string{},
		dank:    map[string]BadgeInfo{},
	}
}

// SetGlobal replaces the global badge sets.
func (b *BadgeStore) SetGlobal(sets map[string]map[string]BadgeInfo) {
	b.mu.Lock()
	b.global = sets
	b.mu.Unlock()
}

// SetChannel replaces one channel's badge sets.
func (b *BadgeStore) SetChannel(channel string, sets map[string]map[string]BadgeInfo) {
	b.mu.Lock()
	b.channel[channel] = sets
	b.mu.Unlock()
}

// SetFFZChannelBadges replaces one channel's FFZ mod/vip badge URLs; empty
// strings clear them.
func (b *BadgeStore) SetFFZChannelBadges(channel, modURL, vipURL string) {
	b.mu.Lock()
	if modURL == "" {
		delete(b.ffzMod, channel)
	} else {
		b.ffzMod[channel] = modURL
	}
	if vipURL == "" {
		delete(b.ffzVIP, channel)
	} else {
		b.ffzVIP[channel] = vipURL
	}
	b.mu.Unlock()
}

// SetDankChatBadges replaces the user-id keyed custom badge roster.
func (b *BadgeStore) SetDankChatBadges(byUserID map[string]BadgeInfo) {
	b.mu.Lock()
	b.dank = byUserID
	b.mu.Unlock()
}

// RemoveChannel drops a parted channel's badge data.
func (b *BadgeStore) RemoveChannel(channel string) {
	b.mu.Lock()
	delete(b.channel, channel)
	delete(b.ffzMod, channel)
	delete(b.ffzVIP, channel)
	b.mu.Unlock()
}

// channelBadgeSets lists the badge sets that may be channel-customized; for
// everything else the channel cache is skipped and the global set is
// authoritative.
func channelBadgeSet(set string) bool { return set == "subscriber" || set == "bits" }

// Resolve maps the raw badges tag (set/version pairs) plus the author's user
// id into display badges. Resolution per pair, first match wins:
// FFZ moderator > FFZ VIP > channel (subscriber/bits only) > global. A
// DankChat badge is appended, never substituted. Unresolvable pairs are
// skipped.
func (b *BadgeStore) Resolve(channel, userID, badgesTag string) []chat.Badge {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []chat.Badge
	if badgesTag != "" {
		for _, pair := range strings.Split(badgesTag, ",") {
			set, version, ok := strings.Cut(pair, "/")
			if !ok {
				continue
			}
			if badge, ok := b.resolveOne(channel, set, version); ok {
				out = append(out, badge)
			}
		}
	}
	if custom, ok := b.dank[userID]; ok && userID != "" {
		out = append(out, chat.Badge{Set: "dankchat", Version: "1", Title: custom.Title, URL: custom.URL})
	}
	return out
}

func (b *BadgeStore) resolveOne(channel, set, version string) (chat.Badge, bool) {
	if strings.HasPrefix(set, "moderator") {
		if url, ok := b.ffzMod[channel]; ok {
			return chat.Badge{Set: set, Version: version, Title: "Moderator", URL: url}, true
		}
	}
	if strings.HasPrefix(set, "vip") {
		if url, ok := b.ffzVIP[channel]; ok {
			return chat.Badge{Set: set, Version: version, Title: "VIP", URL: url}, true
		}
	}
	if channelBadgeSet(set) {
		if info, ok := b.channel[channel][set][version]; ok {
			return chat.Badge{Set: set, Version: version, Title: info.Title, URL: info.URL}, true
		}
	}
	if info, ok := b.global[set][version]; ok {
		return chat.Badge{Set: set, Version: version, Title: info.Title, URL: info.URL}, true
	}
	return chat.Badge{}, false
}
