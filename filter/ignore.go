// Package filter holds the per-message pipeline stages between parsing and
// emote resolution: the ignore filter, the highlight engine, and user display
// overrides. Every stage is a total function from a message to a derived
// message or nil (drop); inputs are never mutated.
package filter

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/onnwee/chat-tender/chat"
)

// IgnorePattern is one user-configured ignore rule.
type IgnorePattern struct {
	Pattern       string
	IsRegex       bool
	CaseSensitive bool
	// MatchUser applies the pattern to the author name instead of the text.
	MatchUser bool
}

type compiledIgnore struct {
	re        *regexp.Regexp
	literal   string
	fold      bool
	matchUser bool
}

// IgnoreFilter drops messages from blocked users and messages matching ignore
// patterns. Block list and patterns are replaced wholesale from settings.
type IgnoreFilter struct {
	mu       sync.RWMutex
	blocked  map[string]struct{}
	patterns []compiledIgnore
}

// NewIgnoreFilter returns an empty filter.
func NewIgnoreFilter() *IgnoreFilter {
	return &IgnoreFilter{blocked: map[string]struct{}{}}
}

// SetBlockedUsers replaces the blocked user-id set.
func (f *IgnoreFilter) SetBlockedUsers(ids []string) {
	blocked := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		blocked[id] = struct{}{}
	}
	f.mu.Lock()
	f.blocked = blocked
	f.mu.Unlock()
}

// SetPatterns replaces the ignore patterns. Patterns that fail to compile are
// skipped with a warning rather than rejecting the whole list.
func (f *IgnoreFilter) SetPatterns(patterns []IgnorePattern) {
	compiled := make([]compiledIgnore, 0, len(patterns))
	for _, p := range patterns {
		c := compiledIgnore{fold: !p.CaseSensitive, matchUser: p.MatchUser}
		if p.IsRegex {
			expr := p.Pattern
			if !p.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				slog.Warn("invalid ignore pattern skipped", slog.String("pattern", p.Pattern), slog.Any("err", err))
				continue
			}
			c.re = re
		} else {
			c.literal = p.Pattern
		}
		compiled = append(compiled, c)
	}
	f.mu.Lock()
	f.patterns = compiled
	f.mu.Unlock()
}

// IsBlocked reports whether the user id is on the block list.
func (f *IgnoreFilter) IsBlocked(userID string) bool {
	if userID == "" {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.blocked[userID]
	return ok
}

func (c compiledIgnore) matches(text, user string) bool {
	subject := text
	if c.matchUser {
		subject = user
	}
	if c.re != nil {
		return c.re.MatchString(subject)
	}
	if c.fold {
		return strings.Contains(strings.ToLower(subject), strings.ToLower(c.literal))
	}
	return strings.Contains(subject, c.literal)
}

func (f *IgnoreFilter) matchesPattern(text, user string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.patterns {
		if c.matches(text, user) {
			return true
		}
	}
	return false
}

// Apply returns the message unchanged, or nil when it must be dropped. Every
// variant carrying an author is checked, so a blocked user never reaches any
// buffer, mention list, or whisper list.
func (f *IgnoreFilter) Apply(m chat.Message) chat.Message {
	switch v := m.(type) {
	case *chat.PrivMessage:
		if f.IsBlocked(v.UserID) || f.matchesPattern(v.Content, v.Name) {
			return nil
		}
	case *chat.WhisperMessage:
		if f.IsBlocked(v.UserID) || f.matchesPattern(v.Content, v.Name) {
			return nil
		}
	case *chat.UserNoticeMessage:
		if f.IsBlocked(v.UserID) {
			return nil
		}
		if v.Child != nil && f.matchesPattern(v.Child.Content, v.Name) {
			out := *v
			out.Child = nil
			return &out
		}
	case *chat.PointRedemptionMessage:
		if f.IsBlocked(v.UserID) {
			return nil
		}
	}
	return m
}
