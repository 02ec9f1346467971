package repo

import (
	"sort"
	"strings"

	"github.com/jellydator/ttlcache/v3"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// suggestionCap bounds the per-channel user cache; being a cache and not a
// roster, eviction only affects suggestion recall, never message output.
const suggestionCap = 5000

// UserSuggestions is the per-channel cache of recently seen chatters used
// for @-completion. Safe for concurrent use.
type UserSuggestions struct {
	cache *ttlcache.Cache[string, string]
}

func NewUserSuggestions() *UserSuggestions {
	return &UserSuggestions{
		cache: ttlcache.New[string, string](
			ttlcache.WithCapacity[string, string](suggestionCap),
		),
	}
}

// Seen records a chatter. Display name is kept so completion can offer the
// cased form while matching on the login.
func (s *UserSuggestions) Seen(name, displayName string) {
	if name == "" {
		return
	}
	if displayName == "" {
		displayName = name
	}
	s.cache.Set(strings.ToLower(name), displayName, ttlcache.NoTTL)
}

// SeenAll bulk-records a chatter list (initial chatters fetch).
func (s *UserSuggestions) SeenAll(names []string) {
	for _, n := range names {
		s.Seen(n, "")
	}
}

// Match returns display names fuzzy-matching the prefix, best ranked first.
func (s *UserSuggestions) Match(prefix string) []string {
	prefix = strings.ToLower(strings.TrimPrefix(prefix, "@"))
	if prefix == "" {
		return nil
	}
	type scored struct {
		name string
		rank int
	}
	var out []scored
	s.cache.Range(func(item *ttlcache.Item[string, string]) bool {
		if r := fuzzy.RankMatch(prefix, item.Key()); r >= 0 {
			out = append(out, scored{name: item.Value(), rank: r})
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].rank != out[j].rank {
			return out[i].rank < out[j].rank
		}
		return out[i].name < out[j].name
	})
	names := make([]string, len(out))
	for i, s := range out {
		names[i] = s.name
	}
	return names
}
