package server

import (
	"testing"
	"time"

	"github.com/onnwee/chat-tender/chat"
)

func TestViewOfModeration(t *testing.T) {
	v := viewOfMessage(&chat.ModerationMessage{
		ID:         "m1",
		Time:       time.Now(),
		Channel:    "pajlada",
		Action:     chat.ActionTimeout,
		TargetName: "weeb123",
		Duration:   10 * time.Minute,
		Count:      2,
	})
	if v.Type != "moderation" || v.Moderation == nil {
		t.Fatalf("view = %+v", v)
	}
	if v.Moderation.Action != "timeout" || v.Moderation.DurationSec != 600 || v.Moderation.Count != 2 {
		t.Errorf("moderation view = %+v", v.Moderation)
	}
}

func TestViewOfPrivCarriesThreadAndReward(t *testing.T) {
	v := viewOfMessage(&chat.PrivMessage{
		ID:      "p1",
		Channel: "pajlada",
		Content: "reply text",
		Thread:  &chat.ThreadHeader{RootID: "root-1", RootText: "root", Replies: 3},
		Reward:  &chat.PointReward{ID: "r-1", Title: "Highlight", Cost: 500},
		UserDisplay: &chat.UserDisplay{
			Alias: "Nickname",
			Color: "#ABCDEF",
		},
	})
	if v.Thread == nil || v.Thread.RootID != "root-1" || v.Thread.Replies != 3 {
		t.Errorf("thread view = %+v", v.Thread)
	}
	if v.Reward == nil || v.Reward.Title != "Highlight" || v.Reward.Cost != 500 {
		t.Errorf("reward view = %+v", v.Reward)
	}
	if v.Alias != "Nickname" || v.Color != "#ABCDEF" {
		t.Errorf("alias/color = %q/%q", v.Alias, v.Color)
	}
}

func TestViewOfUserNoticeNestsChild(t *testing.T) {
	v := viewOfMessage(&chat.UserNoticeMessage{
		ID:        "u1",
		Channel:   "pajlada",
		SystemMsg: "user subscribed",
		Child:     &chat.PrivMessage{ID: "c1", Content: "pog"},
	})
	if v.Type != "usernotice" || v.SystemMsg != "user subscribed" {
		t.Fatalf("view = %+v", v)
	}
	if v.Child == nil || v.Child.ID != "c1" || v.Child.Text != "pog" {
		t.Errorf("child view = %+v", v.Child)
	}
}

func TestViewOfSystemRendersText(t *testing.T) {
	v := viewOfMessage(&chat.SystemMessage{ID: "s1", Channel: "pajlada", Kind: chat.SystemConnected})
	if v.Type != "system" || v.Text != "connected" {
		t.Errorf("view = %+v", v)
	}
}
