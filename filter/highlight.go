package filter

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/onnwee/chat-tender/chat"
)

// HighlightPattern is one user-configured highlight rule.
type HighlightPattern struct {
	Pattern       string
	IsRegex       bool
	CaseSensitive bool
}

type compiledHighlight struct {
	raw     string
	re      *regexp.Regexp
	literal string
	fold    bool
}

// HighlightEngine tags messages with elevation reasons: username mention,
// first message, channel-point reward, and custom patterns. Subscription
// highlights are attached at parse time; this stage leaves them intact.
type HighlightEngine struct {
	mu       sync.RWMutex
	username string
	custom   []compiledHighlight
	mention  *regexp.Regexp
}

// NewHighlightEngine builds the engine for the logged-in username; an empty
// username disables mention detection.
func NewHighlightEngine(username string) *HighlightEngine {
	e := &HighlightEngine{}
	e.SetUsername(username)
	return e
}

// SetUsername swaps the mention target.
func (e *HighlightEngine) SetUsername(username string) {
	var mention *regexp.Regexp
	if username != "" {
		mention = regexp.MustCompile(`(?i)(^|\W)@?` + regexp.QuoteMeta(username) + `($|\W)`)
	}
	e.mu.Lock()
	e.username = strings.ToLower(username)
	e.mention = mention
	e.mu.Unlock()
}

// SetPatterns replaces the custom highlight patterns; invalid regexes are
// skipped.
func (e *HighlightEngine) SetPatterns(patterns []HighlightPattern) {
	compiled := make([]compiledHighlight, 0, len(patterns))
	for _, p := range patterns {
		c := compiledHighlight{raw: p.Pattern, fold: !p.CaseSensitive}
		if p.IsRegex {
			expr := p.Pattern
			if !p.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				slog.Warn("invalid highlight pattern skipped", slog.String("pattern", p.Pattern), slog.Any("err", err))
				continue
			}
			c.re = re
		} else {
			c.literal = p.Pattern
		}
		compiled = append(compiled, c)
	}
	e.mu.Lock()
	e.custom = compiled
	e.mu.Unlock()
}

// Apply returns a derived message with its highlight set extended. The
// logged-in user's own messages never self-highlight on mention.
func (e *HighlightEngine) Apply(m *chat.PrivMessage) *chat.PrivMessage {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := *m
	out.Highlights = append([]chat.Highlight(nil), m.Highlights...)

	if e.mention != nil && m.Name != e.username && e.mention.MatchString(m.Content) {
		out.Highlights = append(out.Highlights, chat.Highlight{Kind: chat.HighlightUsername})
	}
	if m.IsFirst {
		out.Highlights = append(out.Highlights, chat.Highlight{Kind: chat.HighlightFirstMessage})
	}
	if m.RewardID != "" || m.Reward != nil {
		out.Highlights = append(out.Highlights, chat.Highlight{Kind: chat.HighlightReward})
	}
	for _, c := range e.custom {
		matched := false
		if c.re != nil {
			matched = c.re.MatchString(m.Content)
		} else if c.fold {
			matched = strings.Contains(strings.ToLower(m.Content), strings.ToLower(c.literal))
		} else {
			matched = strings.Contains(m.Content, c.literal)
		}
		if matched {
			out.Highlights = append(out.Highlights, chat.Highlight{Kind: chat.HighlightCustom, Pattern: c.raw})
		}
	}
	return &out
}
