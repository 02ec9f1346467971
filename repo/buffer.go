// Package repo is the chat orchestrator: it owns the per-channel message
// buffers and state, consumes the merged event streams of the read
// connection, write connection, and push-event source in a single dispatch
// loop, and runs every inbound message through the
// ignore -> thread -> highlight -> display -> emote pipeline.
package repo

import (
	"sync/atomic"

	"github.com/onnwee/chat-tender/chat"
)

// DefaultScrollback is the per-channel buffer cap when the config does not
// override it.
const DefaultScrollback = 500

var itemTag atomic.Uint64

// ChatItem wraps a message with a process-wide monotonic tag, so consumers
// can diff snapshots cheaply and notification fan-out can dedupe.
type ChatItem struct {
	Tag     uint64
	Message chat.Message
}

func newChatItem(m chat.Message) ChatItem {
	return ChatItem{Tag: itemTag.Add(1), Message: m}
}

// Buffer is a bounded FIFO of chat items. It is not safe for concurrent use;
// the dispatch loop is its single writer, and readers get copies via Items.
type Buffer struct {
	cap     int
	items   []ChatItem
	onEvict func(ChatItem)
}

func NewBuffer(cap int, onEvict func(ChatItem)) *Buffer {
	if cap <= 0 {
		cap = DefaultScrollback
	}
	return &Buffer{cap: cap, onEvict: onEvict}
}

func (b *Buffer) Len() int { return len(b.items) }

// Add appends an item, evicting from the front when the cap is exceeded.
func (b *Buffer) Add(m chat.Message) ChatItem {
	item := newChatItem(m)
	b.items = append(b.items, item)
	for len(b.items) > b.cap {
		evicted := b.items[0]
		b.items = b.items[1:]
		if b.onEvict != nil {
			b.onEvict(evicted)
		}
	}
	return item
}

// Items returns a snapshot copy; the caller may hold it across dispatch.
func (b *Buffer) Items() []ChatItem {
	out := make([]ChatItem, len(b.items))
	copy(out, b.items)
	return out
}

// FindPriv returns the buffered PrivMessage with the given id, or nil. Child
// messages of user notices are included in the search.
func (b *Buffer) FindPriv(id string) *chat.PrivMessage {
	for i := len(b.items) - 1; i >= 0; i-- {
		switch m := b.items[i].Message.(type) {
		case *chat.PrivMessage:
			if m.ID == id {
				return m
			}
		case *chat.UserNoticeMessage:
			if m.Child != nil && m.Child.ID == id {
				return m.Child
			}
		}
	}
	return nil
}

// Replace swaps the message with the given id for the result of fn, keeping
// the item's position but assigning a fresh tag. It reports whether a match
// was found. fn returning nil leaves the item untouched.
func (b *Buffer) Replace(id string, fn func(chat.Message) chat.Message) bool {
	for i := range b.items {
		if b.items[i].Message.MessageID() != id {
			continue
		}
		if replaced := fn(b.items[i].Message); replaced != nil {
			b.items[i] = newChatItem(replaced)
		}
		return true
	}
	return false
}

// Each calls fn for every buffered item in order, replacing the item when fn
// returns a non-nil message. Used by bulk moderation (CLEARCHAT).
func (b *Buffer) Each(fn func(chat.Message) chat.Message) {
	for i := range b.items {
		if replaced := fn(b.items[i].Message); replaced != nil {
			b.items[i] = newChatItem(replaced)
		}
	}
}

// Last returns the most recent item, or a zero item when empty.
func (b *Buffer) Last() (ChatItem, bool) {
	if len(b.items) == 0 {
		return ChatItem{}, false
	}
	return b.items[len(b.items)-1], true
}

// Clear drops every buffered item without running eviction callbacks.
func (b *Buffer) Clear() {
	b.items = nil
}
