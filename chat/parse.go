package chat

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/chat-tender/irc"
)

const actionMarker = "\x01ACTION "

// ParsePriv builds a PrivMessage from a PRIVMSG line. Emotes and badges stay
// unresolved here; the resolver stage fills them in from the retained tags.
func ParsePriv(m *irc.Message) *PrivMessage {
	text := m.Trailing()
	isAction := false
	if strings.HasPrefix(text, actionMarker) && strings.HasSuffix(text, "\x01") {
		text = strings.TrimSuffix(strings.TrimPrefix(text, actionMarker), "\x01")
		isAction = true
	}
	name := m.Nick()
	display := m.Tag("display-name")
	if display == "" {
		display = name
	}
	bits, _ := strconv.Atoi(m.Tag("bits"))
	return &PrivMessage{
		ID:              tagOrUUID(m, "id"),
		Time:            parseSentTS(m),
		Channel:         m.Channel(),
		ChannelID:       m.Tag("room-id"),
		UserID:          m.Tag("user-id"),
		Name:            name,
		DisplayName:     display,
		Color:           m.Tag("color"),
		Content:         text,
		OriginalContent: text,
		Tags:            m.Tags,
		IsAction:        isAction,
		IsFirst:         m.Tag("first-msg") == "1",
		Bits:            bits,
		RewardID:        m.Tag("custom-reward-id"),

		ReplyParentID:          m.Tag("reply-parent-msg-id"),
		ReplyParentName:        m.Tag("reply-parent-user-login"),
		ReplyParentDisplayName: m.Tag("reply-parent-display-name"),
		ReplyParentBody:        m.Tag("reply-parent-msg-body"),
	}
}

// ParseWhisper builds a WhisperMessage from a WHISPER line.
func ParseWhisper(m *irc.Message) *WhisperMessage {
	name := m.Nick()
	display := m.Tag("display-name")
	if display == "" {
		display = name
	}
	return &WhisperMessage{
		ID:          tagOrUUID(m, "message-id"),
		Time:        time.Now(),
		UserID:      m.Tag("user-id"),
		Name:        name,
		DisplayName: display,
		Color:       m.Tag("color"),
		Content:     m.Trailing(),
		Tags:        m.Tags,
	}
}

// ParseNotice builds a NoticeMessage from a NOTICE line.
func ParseNotice(m *irc.Message) *NoticeMessage {
	channel := m.Channel()
	if channel == "" || channel == "*" {
		channel = GlobalChannel
	}
	return &NoticeMessage{
		ID:      uuid.NewString(),
		Time:    time.Now(),
		Channel: channel,
		Content: m.Trailing(),
		MsgID:   m.Tag("msg-id"),
	}
}

// userNoticeTextless lists msg-id values whose USERNOTICE never carries user
// text worth piping through the message pipeline.
var userNoticeChildless = map[string]bool{
	"raid":   true,
	"unraid": true,
}

// ParseUserNotice builds a UserNoticeMessage. When the notice carries user
// text (resub messages, announcements), Child is populated with a
// PrivMessage over that text so the caller can run it through the pipeline.
func ParseUserNotice(m *irc.Message) *UserNoticeMessage {
	name := m.Tag("login")
	if name == "" {
		name = m.Nick()
	}
	display := m.Tag("display-name")
	if display == "" {
		display = name
	}
	msgID := m.Tag("msg-id")
	un := &UserNoticeMessage{
		ID:          tagOrUUID(m, "id"),
		Time:        parseSentTS(m),
		Channel:     m.Channel(),
		UserID:      m.Tag("user-id"),
		Name:        name,
		DisplayName: display,
		MsgID:       msgID,
		SystemMsg:   m.Tag("system-msg"),
		Tags:        m.Tags,
	}
	switch msgID {
	case "announcement":
		un.Highlights = append(un.Highlights, Highlight{Kind: HighlightAnnouncement})
	case "sub", "resub", "subgift", "submysterygift", "giftpaidupgrade", "anongiftpaidupgrade":
		un.Highlights = append(un.Highlights, Highlight{Kind: HighlightSubscription})
	}
	if text := m.Trailing(); len(m.Params) > 1 && text != "" && !userNoticeChildless[msgID] {
		child := ParsePriv(m)
		child.ID = un.ID
		child.UserID = un.UserID
		child.Name = un.Name
		child.DisplayName = un.DisplayName
		un.Child = child
	}
	return un
}

// ParseClearChat normalizes a CLEARCHAT line (full clear, ban, or timeout)
// into a ModerationMessage.
func ParseClearChat(m *irc.Message) *ModerationMessage {
	mod := &ModerationMessage{
		ID:      uuid.NewString(),
		Time:    parseSentTS(m),
		Channel: m.Channel(),
		Count:   1,
	}
	if len(m.Params) < 2 {
		mod.Action = ActionClear
		return mod
	}
	mod.TargetName = m.Trailing()
	mod.TargetID = m.Tag("target-user-id")
	if secs, err := strconv.Atoi(m.Tag("ban-duration")); err == nil && secs > 0 {
		mod.Action = ActionTimeout
		mod.Duration = time.Duration(secs) * time.Second
	} else {
		mod.Action = ActionBan
	}
	return mod
}

// ParseClearMsg normalizes a CLEARMSG single-message deletion.
func ParseClearMsg(m *irc.Message) *ModerationMessage {
	return &ModerationMessage{
		ID:          uuid.NewString(),
		Time:        parseSentTS(m),
		Channel:     m.Channel(),
		Action:      ActionDelete,
		TargetName:  m.Tag("login"),
		TargetMsgID: m.Tag("target-msg-id"),
		TargetText:  m.Trailing(),
		Count:       1,
	}
}

// NewSystemMessage synthesizes a channel-scoped status line.
func NewSystemMessage(channel string, kind SystemKind) *SystemMessage {
	return &SystemMessage{
		ID:      uuid.NewString(),
		Time:    time.Now(),
		Channel: channel,
		Kind:    kind,
	}
}

func tagOrUUID(m *irc.Message, key string) string {
	if id := m.Tag(key); id != "" {
		return id
	}
	return uuid.NewString()
}

func parseSentTS(m *irc.Message) time.Time {
	if ms, err := strconv.ParseInt(m.Tag("tmi-sent-ts"), 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms)
	}
	return time.Now()
}
