// Package irc implements the Twitch IRC wire layer: line parsing into tagged
// messages and a pair-capable reconnecting WebSocket connection.
//
// Parsing is deliberately permissive. Twitch occasionally ships lines with
// missing prefixes or empty tag values, and a malformed line must never take
// down the dispatch loop, so ParseMessage always returns a usable (possibly
// partial) Message.
package irc

import (
	"strings"
)

// Message is one parsed IRC line: IRCv3 tags, optional prefix, command and
// positional params. Instances are created once per line and never mutated.
type Message struct {
	Raw     string
	Tags    map[string]string
	Prefix  string
	Command string
	Params  []string

	// trailing records whether the last param was ":"-prefixed on the wire,
	// so String can restore the marker even for single-word trailing params.
	trailing bool
}

// tagEscapes maps the IRCv3 escape sequences inside tag values.
var tagEscapes = strings.NewReplacer(
	`\:`, ";",
	`\s`, " ",
	`\\`, `\`,
	`\r`, "\r",
	`\n`, "\n",
)

var tagUnescapes = strings.NewReplacer(
	";", `\:`,
	" ", `\s`,
	`\`, `\\`,
	"\r", `\r`,
	"\n", `\n`,
)

// ParseMessage parses a single raw IRC line. It never fails: a malformed line
// yields a best-effort Message with empty tags/params, so callers can rely on
// Param() returning "" rather than guarding every access.
func ParseMessage(line string) *Message {
	msg := &Message{
		Raw:  line,
		Tags: map[string]string{},
	}
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	i := 0

	if i < len(line) && line[i] == '@' {
		j := strings.IndexByte(line[i:], ' ')
		if j < 0 {
			parseTags(line[i+1:], msg.Tags)
			return msg
		}
		parseTags(line[i+1:i+j], msg.Tags)
		i += j + 1
	}

	for i < len(line) && line[i] == ' ' {
		i++
	}

	if i < len(line) && line[i] == ':' {
		j := strings.IndexByte(line[i:], ' ')
		if j < 0 {
			msg.Prefix = line[i+1:]
			return msg
		}
		msg.Prefix = line[i+1 : i+j]
		i += j + 1
	}

	for i < len(line) && line[i] == ' ' {
		i++
	}
	if i >= len(line) {
		return msg
	}

	if j := strings.IndexByte(line[i:], ' '); j < 0 {
		msg.Command = line[i:]
		return msg
	} else {
		msg.Command = line[i : i+j]
		i += j + 1
	}

	// Middle params up to the trailing ":"-prefixed param, which may contain
	// spaces and is taken verbatim to end of line.
	for i < len(line) {
		if line[i] == ':' {
			msg.Params = append(msg.Params, line[i+1:])
			msg.trailing = true
			return msg
		}
		j := strings.IndexByte(line[i:], ' ')
		if j < 0 {
			msg.Params = append(msg.Params, line[i:])
			return msg
		}
		if j > 0 {
			msg.Params = append(msg.Params, line[i:i+j])
		}
		i += j + 1
	}
	return msg
}

func parseTags(s string, into map[string]string) {
	for _, pair := range strings.Split(s, ";") {
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			into[key] = ""
			continue
		}
		if strings.ContainsRune(value, '\\') {
			value = tagEscapes.Replace(value)
		}
		into[key] = value
	}
}

// Param returns the positional parameter at index i, or "" when absent.
func (m *Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// Trailing returns the last parameter, conventionally the message text.
func (m *Message) Trailing() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[len(m.Params)-1]
}

// Tag returns the tag value for key, or "" when the tag is absent.
func (m *Message) Tag(key string) string { return m.Tags[key] }

// Nick extracts the nickname portion of the prefix (nick!user@host).
func (m *Message) Nick() string {
	nick, _, _ := strings.Cut(m.Prefix, "!")
	return nick
}

// Channel returns the first parameter with its leading '#' stripped; for most
// Twitch commands that is the channel name.
func (m *Message) Channel() string {
	return strings.TrimPrefix(m.Param(0), "#")
}

// String re-serializes the message. For well-formed input this round-trips
// ParseMessage (tags aside from ordering).
func (m *Message) String() string {
	var b strings.Builder
	if len(m.Tags) > 0 {
		b.WriteByte('@')
		first := true
		for k, v := range m.Tags {
			if !first {
				b.WriteByte(';')
			}
			first = false
			b.WriteString(k)
			if v != "" {
				b.WriteByte('=')
				b.WriteString(tagUnescapes.Replace(v))
			}
		}
		b.WriteByte(' ')
	}
	if m.Prefix != "" {
		b.WriteByte(':')
		b.WriteString(m.Prefix)
		b.WriteByte(' ')
	}
	b.WriteString(m.Command)
	for i, p := range m.Params {
		b.WriteByte(' ')
		if i == len(m.Params)-1 && (m.trailing || strings.ContainsRune(p, ' ') || strings.HasPrefix(p, ":") || p == "") {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}
	return b.String()
}
