package repo

import (
	"strconv"
	"testing"
	"time"

	"github.com/onnwee/chat-tender/chat"
)

func privN(i int) *chat.PrivMessage {
	return &chat.PrivMessage{
		ID:      "msg-" + strconv.Itoa(i),
		Time:    time.Now(),
		Channel: "pajlada",
		Name:    "user" + strconv.Itoa(i%7),
		Content: "line " + strconv.Itoa(i),
	}
}

func TestBufferNeverExceedsCap(t *testing.T) {
	var evicted []string
	b := NewBuffer(50, func(item ChatItem) {
		evicted = append(evicted, item.Message.MessageID())
	})

	for i := 0; i < 200; i++ {
		b.Add(privN(i))
		if b.Len() > 50 {
			t.Fatalf("buffer length %d exceeds cap after %d adds", b.Len(), i+1)
		}
	}

	items := b.Items()
	if len(items) != 50 {
		t.Fatalf("len = %d, want 50", len(items))
	}
	// FIFO: the retained items are the most recently added, in order.
	for i, item := range items {
		want := "msg-" + strconv.Itoa(150+i)
		if item.Message.MessageID() != want {
			t.Fatalf("items[%d] = %s, want %s", i, item.Message.MessageID(), want)
		}
	}
	if len(evicted) != 150 {
		t.Errorf("evictions = %d, want 150", len(evicted))
	}
	if evicted[0] != "msg-0" {
		t.Errorf("first eviction = %s, want msg-0 (oldest first)", evicted[0])
	}
}

func TestBufferTagsMonotonic(t *testing.T) {
	b := NewBuffer(10, nil)
	var last uint64
	for i := 0; i < 20; i++ {
		item := b.Add(privN(i))
		if item.Tag <= last {
			t.Fatalf("tag %d not greater than previous %d", item.Tag, last)
		}
		last = item.Tag
	}
}

func TestBufferReplaceKeepsPosition(t *testing.T) {
	b := NewBuffer(10, nil)
	for i := 0; i < 5; i++ {
		b.Add(privN(i))
	}

	ok := b.Replace("msg-2", func(m chat.Message) chat.Message {
		return &chat.ModerationMessage{
			ID:      "mod-1",
			Channel: "pajlada",
			Action:  chat.ActionDelete,
		}
	})
	if !ok {
		t.Fatal("replace should find msg-2")
	}

	items := b.Items()
	if items[2].Message.MessageID() != "mod-1" {
		t.Errorf("items[2] = %s, want mod-1 in place", items[2].Message.MessageID())
	}
	if items[3].Message.MessageID() != "msg-3" {
		t.Errorf("items[3] = %s, later items must not move", items[3].Message.MessageID())
	}

	if b.Replace("nope", func(m chat.Message) chat.Message { return m }) {
		t.Error("replace of unknown id should report false")
	}
}

func TestBufferFindPrivSeesUserNoticeChild(t *testing.T) {
	b := NewBuffer(10, nil)
	child := privN(99)
	b.Add(&chat.UserNoticeMessage{ID: "un-1", Channel: "pajlada", Child: child})

	if got := b.FindPriv("msg-99"); got != child {
		t.Error("FindPriv should resolve user-notice children")
	}
	if b.FindPriv("absent") != nil {
		t.Error("FindPriv of unknown id should be nil")
	}
}

func TestBufferItemsIsSnapshot(t *testing.T) {
	b := NewBuffer(10, nil)
	b.Add(privN(0))
	snap := b.Items()
	b.Add(privN(1))
	if len(snap) != 1 {
		t.Error("snapshot must not grow with later adds")
	}
}
