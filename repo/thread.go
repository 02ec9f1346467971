package repo

import (
	"strings"

	"github.com/onnwee/chat-tender/chat"
)

// threadTracker maintains reply threads per channel. Threads are keyed by
// the root message id; entries are torn down when the root is evicted from
// the buffer or the channel is parted.
type threadTracker struct {
	selfName string
	// threads maps root message id to the live header shared by every
	// message of that thread.
	threads map[string]*chat.ThreadHeader
	// rootOf maps a reply id back to its root, so transitive replies
	// (reply-parent pointing at a reply) land in the same thread.
	rootOf map[string]string
}

func newThreadTracker(selfName string) *threadTracker {
	return &threadTracker{
		selfName: strings.ToLower(selfName),
		threads:  make(map[string]*chat.ThreadHeader),
		rootOf:   make(map[string]string),
	}
}

func (t *threadTracker) setSelf(name string) {
	t.selfName = strings.ToLower(name)
}

// apply attaches the thread header to a reply message, creating the thread
// on first reference. find resolves an id against the channel buffer; a
// reply whose root was never buffered (or already evicted) degrades to a
// plain message.
func (t *threadTracker) apply(m *chat.PrivMessage, find func(id string) *chat.PrivMessage) *chat.PrivMessage {
	if m.ReplyParentID == "" {
		return m
	}

	out := *m
	out.MentionOffset = mentionOffset(out.Content, out.ReplyParentDisplayName, out.ReplyParentName)

	rootID := m.ReplyParentID
	if r, ok := t.rootOf[rootID]; ok {
		rootID = r
	}

	th, ok := t.threads[rootID]
	if !ok {
		root := find(rootID)
		if root == nil {
			// Unknown or evicted root: no thread header.
			return &out
		}
		th = &chat.ThreadHeader{
			RootID:   rootID,
			RootText: root.Content,
		}
		if strings.EqualFold(root.Name, t.selfName) {
			th.Participated = true
		}
		t.threads[rootID] = th
		if root.Thread == nil {
			root.Thread = th
		}
	}

	th.Replies++
	if strings.EqualFold(out.Name, t.selfName) {
		th.Participated = true
	}
	t.rootOf[out.ID] = rootID
	out.Thread = th
	return &out
}

// evict tears down thread state rooted at (or referencing) the evicted
// message id.
func (t *threadTracker) evict(id string) {
	delete(t.rootOf, id)
	if _, ok := t.threads[id]; ok {
		delete(t.threads, id)
		for reply, root := range t.rootOf {
			if root == id {
				delete(t.rootOf, reply)
			}
		}
	}
}

func (t *threadTracker) reset() {
	t.threads = make(map[string]*chat.ThreadHeader)
	t.rootOf = make(map[string]string)
}

// mentionOffset returns the length of the redundant leading "@Name " mention
// a reply carries, or 0 when the text does not start with one. The text is
// never modified; rendering inside the thread skips the prefix.
func mentionOffset(text, displayName, name string) int {
	for _, candidate := range []string{displayName, name} {
		if candidate == "" {
			continue
		}
		prefix := "@" + candidate + " "
		if len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
			return len(prefix)
		}
	}
	return 0
}
