// Package emote resolves emotes and badges for chat messages: Twitch-native
// emotes from the IRC emotes tag, third-party emotes (BTTV, FFZ, SevenTV)
// from per-channel and global caches, overlay-emote stacking, and badge
// lookup across four provenances.
//
// Caches are bulk-replaced on reload. Readers are handed the current map and
// never observe a half-updated provider.
package emote

import (
	"sync"
)

// Provider names third-party emote sources, in match priority order.
const (
	ProviderTwitch  = "twitch"
	ProviderBTTV    = "bttv"
	ProviderFFZ     = "ffz"
	ProviderSevenTV = "seventv"
)

// Scope distinguishes channel-scoped from global emotes.
type Scope int

const (
	ScopeChannel Scope = iota
	ScopeGlobal
	ScopeFollower
)

// GenericEmote is one cached third-party (or suggestion-surfaced Twitch)
// emote.
type GenericEmote struct {
	Code      string
	ID        string
	URL       string
	LowResURL string
	Scale     int
	Provider  string
	Scope     Scope
	// IsOverlay marks zero-width emotes designed to stack on the preceding
	// emote instead of rendering standalone.
	IsOverlay bool
}

type codeMap map[string]GenericEmote

// Store holds the provider caches. Each Set* call replaces the relevant map
// wholesale under the write lock; lookups take a snapshot reference under the
// read lock, so a reload never tears a lookup.
type Store struct {
	mu sync.RWMutex

	enabled map[string]bool

	bttvGlobal    codeMap
	ffzGlobal     codeMap
	seventvGlobal codeMap

	bttvChannel    map[string]codeMap
	ffzChannel     map[string]codeMap
	seventvChannel map[string]codeMap
}

// NewStore builds an empty store with the given providers enabled. A nil set
// enables all providers.
func NewStore(enabledProviders []string) *Store {
	enabled := map[string]bool{ProviderBTTV: true, ProviderFFZ: true, ProviderSevenTV: true}
	if enabledProviders != nil {
		enabled = map[string]bool{}
		for _, p := range enabledProviders {
			enabled[p] = true
		}
	}
	return &Store{
		enabled:        enabled,
		bttvGlobal:     codeMap{},
		ffzGlobal:      codeMap{},
		seventvGlobal:  codeMap{},
		bttvChannel:    map[string]codeMap{},
		ffzChannel:     map[string]codeMap{},
		seventvChannel: map[string]codeMap{},
	}
}

func buildCodeMap(emotes []GenericEmote) codeMap {
	m := make(codeMap, len(emotes))
	for _, e := range emotes {
		m[e.Code] = e
	}
	return m
}

// SetGlobal replaces a provider's global emote set.
func (s *Store) SetGlobal(provider string, emotes []GenericEmote) {
	m := buildCodeMap(emotes)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch provider {
	case ProviderBTTV:
		s.bttvGlobal = m
	case ProviderFFZ:
		s.ffzGlobal = m
	case ProviderSevenTV:
		s.seventvGlobal = m
	}
}

// SetChannel replaces a provider's emote set for one channel.
func (s *Store) SetChannel(provider, channel string, emotes []GenericEmote) {
	m := buildCodeMap(emotes)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch provider {
	case ProviderBTTV:
		s.bttvChannel[channel] = m
	case ProviderFFZ:
		s.ffzChannel[channel] = m
	case ProviderSevenTV:
		s.seventvChannel[channel] = m
	}
}

// RemoveChannel drops all channel-scoped sets for a parted channel.
func (s *Store) RemoveChannel(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bttvChannel, channel)
	delete(s.ffzChannel, channel)
	delete(s.seventvChannel, channel)
}

// lookupOrder returns the maps to consult for a channel, in match priority
// order: per provider, channel scope before global scope.
func (s *Store) lookupOrder(channel string) []codeMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order := make([]codeMap, 0, 6)
	if s.enabled[ProviderBTTV] {
		order = append(order, s.bttvChannel[channel], s.bttvGlobal)
	}
	if s.enabled[ProviderFFZ] {
		order = append(order, s.ffzChannel[channel], s.ffzGlobal)
	}
	if s.enabled[ProviderSevenTV] {
		order = append(order, s.seventvChannel[channel], s.seventvGlobal)
	}
	return order
}

// Lookup resolves a single token against the caches for channel.
func (s *Store) Lookup(channel, code string) (GenericEmote, bool) {
	for _, m := range s.lookupOrder(channel) {
		if e, ok := m[code]; ok {
			return e, true
		}
	}
	return GenericEmote{}, false
}

// ChannelCodes returns every emote code usable in channel, for suggestion
// surfaces.
func (s *Store) ChannelCodes(channel string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range s.lookupOrder(channel) {
		for code := range m {
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	return out
}
