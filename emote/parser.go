package emote

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/onnwee/chat-tender/chat"
)

// Resolver is the emote/badge stage of the message pipeline. It is a pure
// function over the message it is handed; the caches it reads are safe for
// concurrent reads during single-writer reloads.
type Resolver struct {
	Emotes *Store
	Badges *BadgeStore
}

// ParseEmotesAndBadges returns a derived message with Content normalized,
// Emotes positioned and overlay-collapsed, and Badges resolved. Individual
// emote or badge failures are skipped; the message itself is never dropped
// here.
func (r *Resolver) ParseEmotesAndBadges(m *chat.PrivMessage) *chat.PrivMessage {
	out := *m
	text, deltas := normalizeSpaces(m.Content)

	emotes := parseTwitchEmotes(m.Tags["emotes"], m.Content, text, deltas)
	emotes = append(emotes, r.matchThirdParty(m.Channel, text, emotes)...)
	sort.SliceStable(emotes, func(i, j int) bool { return emotes[i].Start < emotes[j].Start })
	text, emotes = adjustOverlays(text, emotes)

	out.Content = text
	out.Emotes = emotes
	if r.Badges != nil {
		out.Badges = r.Badges.Resolve(m.Channel, m.UserID, m.Tags["badges"])
	}
	return &out
}

// ParseWhisper resolves a whisper the same way; whispers have no channel so
// only global caches and badges apply.
func (r *Resolver) ParseWhisper(m *chat.WhisperMessage) *chat.WhisperMessage {
	out := *m
	text, deltas := normalizeSpaces(m.Content)
	emotes := parseTwitchEmotes(m.Tags["emotes"], m.Content, text, deltas)
	emotes = append(emotes, r.matchThirdParty("", text, emotes)...)
	sort.SliceStable(emotes, func(i, j int) bool { return emotes[i].Start < emotes[j].Start })
	text, emotes = adjustOverlays(text, emotes)
	out.Content = text
	out.Emotes = emotes
	if r.Badges != nil {
		out.Badges = r.Badges.Resolve("", m.UserID, m.Tags["badges"])
	}
	return &out
}

// --- position math --------------------------------------------------------
//
// All emote positions are UTF-16 code units, the unit Twitch's emotes tag is
// defined against once surrogate pairs are accounted for. The Go strings are
// UTF-8, so slicing goes through these helpers.

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// utf16ByteOffset returns the byte offset of the idx-th UTF-16 code unit.
func utf16ByteOffset(s string, idx int) int {
	n := 0
	for b, r := range s {
		if n >= idx {
			return b
		}
		n += utf16.RuneLen(r)
	}
	return len(s)
}

// utf16Slice slices s by UTF-16 code-unit indices, to exclusive.
func utf16Slice(s string, from, to int) string {
	return s[utf16ByteOffset(s, from):utf16ByteOffset(s, to)]
}

// indexDelta records one whitespace adjustment: positions at or after pos
// (in original code units) shift by shift.
type indexDelta struct {
	pos   int
	shift int
}

func applyDeltas(deltas []indexDelta, i int) int {
	for _, d := range deltas {
		if d.pos <= i {
			i += d.shift
		}
	}
	return i
}

// isEmoji is a block-level check, good enough to detect adjacent emoji
// clusters that Twitch ships without separating spaces.
func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	}
	return false
}

// normalizeSpaces collapses accidental duplicate spaces and reinserts a
// single space between directly adjacent emoji, recording an index delta for
// every adjustment so tag positions can be corrected afterwards.
func normalizeSpaces(text string) (string, []indexDelta) {
	var b strings.Builder
	var deltas []indexDelta
	pos := 0 // code-unit position in the original string
	var prev rune
	hasPrev := false
	for _, r := range text {
		switch {
		case r == ' ' && hasPrev && prev == ' ':
			deltas = append(deltas, indexDelta{pos: pos, shift: -1})
		case hasPrev && isEmoji(prev) && isEmoji(r):
			b.WriteByte(' ')
			deltas = append(deltas, indexDelta{pos: pos, shift: 1})
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
		prev = r
		hasPrev = true
		pos += utf16.RuneLen(r)
	}
	return b.String(), deltas
}

// twitchEmoteURL follows the static CDN scheme for native emotes.
func twitchEmoteURL(id, scale string) string {
	return "https://static-cdn.jtvnw.net/emoticons/v2/" + id + "/default/dark/" + scale
}

// parseTwitchEmotes parses the IRC emotes tag (id:start-end,start-end/...).
// Tag indices count code points of the original text; they are converted to
// code units (surrogate pairs widen) and then corrected by the whitespace
// deltas. Malformed ranges are dropped per emote, never failing the whole
// tag.
func parseTwitchEmotes(tag, original, normalized string, deltas []indexDelta) []chat.Emote {
	if tag == "" {
		return nil
	}
	// cp2u16[k] is the code-unit index of the k-th code point.
	cp2u16 := make([]int, 0, utf8.RuneCountInString(original)+1)
	u := 0
	for _, r := range original {
		cp2u16 = append(cp2u16, u)
		u += utf16.RuneLen(r)
	}
	cp2u16 = append(cp2u16, u)
	total := utf16Len(normalized)

	var out []chat.Emote
	for _, group := range strings.Split(tag, "/") {
		id, ranges, ok := strings.Cut(group, ":")
		if !ok || id == "" {
			continue
		}
		for _, rng := range strings.Split(ranges, ",") {
			from, to, ok := strings.Cut(rng, "-")
			if !ok {
				continue
			}
			s, err1 := strconv.Atoi(from)
			e, err2 := strconv.Atoi(to)
			if err1 != nil || err2 != nil || s < 0 || e < s || e >= len(cp2u16)-1 {
				continue
			}
			start := applyDeltas(deltas, cp2u16[s])
			end := applyDeltas(deltas, cp2u16[e]+(cp2u16[e+1]-cp2u16[e])-1)
			if start < 0 || end < start || end >= total {
				continue
			}
			out = append(out, chat.Emote{
				ID:        id,
				Code:      utf16Slice(normalized, start, end+1),
				URL:       twitchEmoteURL(id, "3.0"),
				LowResURL: twitchEmoteURL(id, "1.0"),
				Start:     start,
				End:       end,
				Scale:     1,
				Provider:  ProviderTwitch,
				IsTwitch:  true,
			})
		}
	}
	return out
}

// matchThirdParty matches whitespace-delimited tokens against the provider
// caches. Tokens already claimed by a Twitch-native emote are never
// reconsidered.
func (r *Resolver) matchThirdParty(channel, text string, claimed []chat.Emote) []chat.Emote {
	if r.Emotes == nil {
		return nil
	}
	var out []chat.Emote
	pos := 0
	for _, token := range strings.Split(text, " ") {
		tokLen := utf16Len(token)
		start, end := pos, pos+tokLen-1
		pos += tokLen + 1
		if token == "" || overlapsAny(claimed, start, end) {
			continue
		}
		ge, ok := r.Emotes.Lookup(channel, token)
		if !ok {
			continue
		}
		out = append(out, chat.Emote{
			ID:        ge.ID,
			Code:      ge.Code,
			URL:       ge.URL,
			LowResURL: ge.LowResURL,
			Start:     start,
			End:       end,
			Scale:     ge.Scale,
			Provider:  ge.Provider,
			IsOverlay: ge.IsOverlay,
		})
	}
	return out
}

func overlapsAny(emotes []chat.Emote, start, end int) bool {
	for _, e := range emotes {
		if start <= e.End && e.Start <= end {
			return true
		}
	}
	return false
}

// adjustOverlays collapses overlay emotes onto the nearest preceding
// non-overlay emote when nothing but overlay emotes sits between them. The
// proof is positional: the gap must equal exactly the intervening standalone
// overlay codes' lengths plus one separating space per gap. On collapse the
// overlay's substring leaves the rendered text, the overlay inherits the
// anchor's range, and every later emote shifts left accordingly. A failed
// distance check leaves the overlay standalone, which is the intended
// behavior when a real word intervenes.
func adjustOverlays(text string, emotes []chat.Emote) (string, []chat.Emote) {
	collapsed := make([]bool, len(emotes))
	for i := 1; i < len(emotes); i++ {
		if !emotes[i].IsOverlay {
			continue
		}
		anchor := -1
		gap := 0
		for j := i - 1; j >= 0; j-- {
			if collapsed[j] {
				continue
			}
			if emotes[j].IsOverlay {
				gap += utf16Len(emotes[j].Code) + 1
				continue
			}
			anchor = j
			break
		}
		if anchor < 0 {
			continue
		}
		if emotes[i].Start-emotes[anchor].End-2 != gap {
			continue
		}

		start, end := emotes[i].Start, emotes[i].End
		if end == utf16Len(text)-1 {
			text = utf16Slice(text, 0, start-1)
		} else {
			text = utf16Slice(text, 0, start-1) + utf16Slice(text, end+1, utf16Len(text))
		}
		shift := utf16Len(emotes[i].Code) + 1
		for k := range emotes {
			if k == i || emotes[k].Start <= start {
				continue
			}
			emotes[k].Start -= shift
			emotes[k].End -= shift
		}
		emotes[i].Start = emotes[anchor].Start
		emotes[i].End = emotes[anchor].End
		collapsed[i] = true
	}
	return text, emotes
}
