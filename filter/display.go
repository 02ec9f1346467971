package filter

import (
	"strings"
	"sync"

	"github.com/onnwee/chat-tender/chat"
)

// DisplayOverrides substitutes per-user aliases and colors configured by the
// viewer. Overrides are attached as metadata, not applied destructively, so
// the real name remains recoverable.
type DisplayOverrides struct {
	mu     sync.RWMutex
	byName map[string]chat.UserDisplay
}

// NewDisplayOverrides returns an empty override table.
func NewDisplayOverrides() *DisplayOverrides {
	return &DisplayOverrides{byName: map[string]chat.UserDisplay{}}
}

// Set replaces the override table, keyed by login name.
func (d *DisplayOverrides) Set(overrides map[string]chat.UserDisplay) {
	byName := make(map[string]chat.UserDisplay, len(overrides))
	for name, o := range overrides {
		byName[strings.ToLower(name)] = o
	}
	d.mu.Lock()
	d.byName = byName
	d.mu.Unlock()
}

// Apply returns a derived message carrying the override for its author, or
// the message unchanged when no override exists.
func (d *DisplayOverrides) Apply(m *chat.PrivMessage) *chat.PrivMessage {
	d.mu.RLock()
	o, ok := d.byName[strings.ToLower(m.Name)]
	d.mu.RUnlock()
	if !ok {
		return m
	}
	out := *m
	out.UserDisplay = &chat.UserDisplay{Alias: o.Alias, Color: o.Color}
	return &out
}

// ApplyWhisper is the whisper-side counterpart of Apply.
func (d *DisplayOverrides) ApplyWhisper(m *chat.WhisperMessage) *chat.WhisperMessage {
	d.mu.RLock()
	o, ok := d.byName[strings.ToLower(m.Name)]
	d.mu.RUnlock()
	if !ok {
		return m
	}
	out := *m
	if o.Alias != "" {
		out.DisplayName = o.Alias
	}
	if o.Color != "" {
		out.Color = o.Color
	}
	return &out
}
