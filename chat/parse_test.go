package chat

import (
	"testing"
	"time"

	"github.com/onnwee/chat-tender/irc"
)

func TestParsePriv(t *testing.T) {
	m := irc.ParseMessage(`@color=#2E8B57;display-name=Dank;first-msg=1;id=msg-1;room-id=99;tmi-sent-ts=1575159889499;user-id=42;custom-reward-id=rw-1 :dank!dank@dank.tmi.twitch.tv PRIVMSG #pajlada :hello there`)
	pm := ParsePriv(m)
	if pm.ID != "msg-1" || pm.UserID != "42" || pm.Channel != "pajlada" {
		t.Fatalf("unexpected message %+v", pm)
	}
	if pm.Content != "hello there" || pm.OriginalContent != "hello there" {
		t.Errorf("content = %q / %q", pm.Content, pm.OriginalContent)
	}
	if !pm.IsFirst {
		t.Error("expected first-msg flag")
	}
	if pm.RewardID != "rw-1" {
		t.Errorf("reward id = %q", pm.RewardID)
	}
	if want := time.UnixMilli(1575159889499); !pm.Time.Equal(want) {
		t.Errorf("time = %v, want %v", pm.Time, want)
	}
}

func TestParsePrivAction(t *testing.T) {
	m := irc.ParseMessage(":dank!dank@dank.tmi.twitch.tv PRIVMSG #chan :\x01ACTION waves\x01")
	pm := ParsePriv(m)
	if !pm.IsAction || pm.Content != "waves" {
		t.Fatalf("action parse: %+v", pm)
	}
}

func TestParsePrivMissingID(t *testing.T) {
	pm := ParsePriv(irc.ParseMessage(":a!a@a.tmi.twitch.tv PRIVMSG #chan :x"))
	if pm.ID == "" {
		t.Fatal("expected synthesized id for missing id tag")
	}
}

func TestParseReplyTags(t *testing.T) {
	m := irc.ParseMessage(`@id=r1;reply-parent-msg-id=root;reply-parent-display-name=Root;reply-parent-user-login=root;reply-parent-msg-body=original :b!b@b.tmi.twitch.tv PRIVMSG #chan :@Root hi`)
	pm := ParsePriv(m)
	if pm.ReplyParentID != "root" || pm.ReplyParentDisplayName != "Root" || pm.ReplyParentBody != "original" {
		t.Fatalf("reply tags: %+v", pm)
	}
}

func TestParseClearChatVariants(t *testing.T) {
	full := ParseClearChat(irc.ParseMessage(":tmi.twitch.tv CLEARCHAT #chan"))
	if full.Action != ActionClear {
		t.Errorf("full clear action = %v", full.Action)
	}
	ban := ParseClearChat(irc.ParseMessage(":tmi.twitch.tv CLEARCHAT #chan :baduser"))
	if ban.Action != ActionBan || ban.TargetName != "baduser" {
		t.Errorf("ban = %+v", ban)
	}
	to := ParseClearChat(irc.ParseMessage("@ban-duration=600;target-user-id=7 :tmi.twitch.tv CLEARCHAT #chan :baduser"))
	if to.Action != ActionTimeout || to.Duration != 600*time.Second || to.TargetID != "7" {
		t.Errorf("timeout = %+v", to)
	}
}

func TestParseClearMsg(t *testing.T) {
	mod := ParseClearMsg(irc.ParseMessage("@login=baduser;target-msg-id=dead :tmi.twitch.tv CLEARMSG #chan :the deleted text"))
	if mod.Action != ActionDelete || mod.TargetMsgID != "dead" || mod.TargetText != "the deleted text" {
		t.Fatalf("clearmsg = %+v", mod)
	}
}

func TestParseUserNoticeSub(t *testing.T) {
	m := irc.ParseMessage(`@id=u1;login=subber;msg-id=resub;system-msg=subber\ssubscribed\sfor\s12\smonths! :tmi.twitch.tv USERNOTICE #chan :still here!`)
	un := ParseUserNotice(m)
	if un.SystemMsg != "subber subscribed for 12 months!" {
		t.Errorf("system msg = %q", un.SystemMsg)
	}
	if !HasHighlight(un.Highlights, HighlightSubscription) {
		t.Error("expected subscription highlight")
	}
	if un.Child == nil || un.Child.Content != "still here!" {
		t.Errorf("child = %+v", un.Child)
	}
}

func TestParseUserNoticeRaidHasNoChild(t *testing.T) {
	m := irc.ParseMessage(`@id=u2;login=raider;msg-id=raid;msg-param-viewerCount=15 :tmi.twitch.tv USERNOTICE #chan`)
	un := ParseUserNotice(m)
	if un.Child != nil {
		t.Fatalf("raid should have no child message, got %+v", un.Child)
	}
}

func TestRoomStateApply(t *testing.T) {
	rs := NewRoomState("chan")
	rs = rs.ApplyTags(irc.ParseMessage("@emote-only=1;followers-only=10;r9k=0;slow=30;subs-only=0;room-id=99 :tmi.twitch.tv ROOMSTATE #chan"))
	if !rs.EmoteOnly || rs.FollowersOnly != 10 || rs.Slow != 30 || rs.SubOnly || rs.ChannelID != "99" {
		t.Fatalf("roomstate = %+v", rs)
	}
	// Partial replay keeps untouched flags.
	rs = rs.ApplyTags(irc.ParseMessage("@slow=0 :tmi.twitch.tv ROOMSTATE #chan"))
	if rs.Slow != 0 || !rs.EmoteOnly || rs.FollowersOnly != 10 {
		t.Fatalf("partial roomstate = %+v", rs)
	}
}

func TestUserStateSendDelay(t *testing.T) {
	us := NewUserState()
	us = us.ApplyUserState(irc.ParseMessage("@mod=1;display-name=Me;emote-sets=0,33 :tmi.twitch.tv USERSTATE #modded"))
	if us.SendDelay("modded") != fastSendDelay {
		t.Error("expected fast delay in moderated channel")
	}
	if us.SendDelay("elsewhere") != slowSendDelay {
		t.Error("expected slow delay elsewhere")
	}
	us = us.ApplyUserState(irc.ParseMessage("@mod=0;badges=vip/1 :tmi.twitch.tv USERSTATE #vipped"))
	if us.SendDelay("vipped") != fastSendDelay {
		t.Error("expected fast delay in vip channel")
	}
	// Mod status was replaced for #vipped only; #modded is untouched.
	if us.SendDelay("modded") != fastSendDelay {
		t.Error("mod set must survive an unrelated channel's USERSTATE")
	}
}

func TestUserStateFollowerEmoteSets(t *testing.T) {
	us := NewUserState()
	us = us.ApplyGlobalUserState(irc.ParseMessage("@user-id=1;emote-sets=0,42 :tmi.twitch.tv GLOBALUSERSTATE"))
	us = us.ApplyUserState(irc.ParseMessage("@emote-sets=0,42,300 :tmi.twitch.tv USERSTATE #chan"))
	got := us.FollowerEmoteSets["chan"]
	if len(got) != 1 || got[0] != "300" {
		t.Fatalf("follower sets = %v, want [300]", got)
	}
}
