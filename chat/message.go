// Package chat defines the typed message model: the closed set of message
// variants produced by the pipeline, plus per-channel room state and the
// logged-in user's IRC state.
//
// Messages are values. A pipeline stage never mutates a message it was
// handed; it returns a derived copy (or nil, meaning "drop").
package chat

import (
	"strconv"
	"time"
)

// MessageType discriminates the message variants.
type MessageType int

const (
	TypePriv MessageType = iota
	TypeWhisper
	TypeNotice
	TypeUserNotice
	TypeModeration
	TypePointRedemption
	TypeSystem
)

// Message is the closed sum over chat entry variants.
type Message interface {
	Type() MessageType
	MessageID() string
	Created() time.Time
	// TargetChannel is the channel the message belongs in; GlobalChannel for
	// account-wide notices that fan out to every open channel.
	TargetChannel() string
}

// GlobalChannel is the synthetic channel marker for account-wide messages.
const GlobalChannel = "*"

// HighlightKind classifies why a message was elevated.
type HighlightKind int

const (
	HighlightUsername HighlightKind = iota
	HighlightSubscription
	HighlightAnnouncement
	HighlightReward
	HighlightFirstMessage
	HighlightElevatedMessage
	HighlightReply
	HighlightCustom
)

// Highlight tags a message with one elevation reason. Pattern is set for
// custom pattern matches.
type Highlight struct {
	Kind    HighlightKind
	Pattern string
}

// HasHighlight reports whether hs contains a highlight of the given kind.
func HasHighlight(hs []Highlight, kind HighlightKind) bool {
	for _, h := range hs {
		if h.Kind == kind {
			return true
		}
	}
	return false
}

// Emote is a positioned emote inside a message's rendered text. Start/End are
// UTF-16 code-unit indices into the original Twitch-supplied string, the unit
// Twitch uses in the emotes tag.
type Emote struct {
	ID        string
	Code      string
	URL       string
	LowResURL string
	Start     int
	End       int
	Scale     int
	Provider  string
	IsOverlay bool
	IsTwitch  bool
}

// Badge is resolved badge metadata ready for display.
type Badge struct {
	Set     string
	Version string
	Title   string
	URL     string
}

// ThreadHeader is the reply-thread summary attached to a message that is part
// of a thread.
type ThreadHeader struct {
	RootID       string
	RootText     string
	Participated bool
	Replies      int
}

// UserDisplay is a user-configured alias applied by the display override
// stage.
type UserDisplay struct {
	Alias string
	Color string
}

// PointReward is the metadata half of a channel-point redemption, carried by
// either a PointRedemptionMessage or a merged PrivMessage.
type PointReward struct {
	ID           string
	Title        string
	Cost         int
	ImageURL     string
	RequiresText bool
}

// PrivMessage is a regular channel chat line.
type PrivMessage struct {
	ID          string
	Time        time.Time
	Channel     string
	ChannelID   string
	UserID      string
	Name        string
	DisplayName string
	Color       string

	// Content is the rendered text (overlay-emote substrings excised,
	// whitespace normalized). OriginalContent is the text as received.
	Content         string
	OriginalContent string
	// MentionOffset hides this many leading characters of Content when the
	// message renders inside its thread (the redundant "@Name " mention).
	// The stripping is tracked, not destructive.
	MentionOffset int

	Tags       map[string]string
	Badges     []Badge
	Emotes     []Emote
	Highlights []Highlight

	Thread      *ThreadHeader
	UserDisplay *UserDisplay
	Reward      *PointReward

	IsAction bool
	IsFirst  bool
	Bits     int
	RewardID string

	ReplyParentID          string
	ReplyParentName        string
	ReplyParentDisplayName string
	ReplyParentBody        string

	Historic bool
	// Moderated marks a line removed by a ban, timeout, or chat clear;
	// renderers gray it out instead of dropping it.
	Moderated bool
}

func (m *PrivMessage) Type() MessageType     { return TypePriv }
func (m *PrivMessage) MessageID() string     { return m.ID }
func (m *PrivMessage) Created() time.Time    { return m.Time }
func (m *PrivMessage) TargetChannel() string { return m.Channel }

// WhisperMessage is a direct message; whispers have no channel and surface in
// the whisper tab only.
type WhisperMessage struct {
	ID          string
	Time        time.Time
	UserID      string
	Name        string
	DisplayName string
	Color       string
	Content     string
	Badges      []Badge
	Emotes      []Emote
	Highlights  []Highlight
	Tags        map[string]string
	// SelfSent marks the locally synthesized echo of an outgoing whisper.
	SelfSent bool
}

func (m *WhisperMessage) Type() MessageType     { return TypeWhisper }
func (m *WhisperMessage) MessageID() string     { return m.ID }
func (m *WhisperMessage) Created() time.Time    { return m.Time }
func (m *WhisperMessage) TargetChannel() string { return GlobalChannel }

// NoticeMessage is a server NOTICE, e.g. slow-mode confirmations.
type NoticeMessage struct {
	ID      string
	Time    time.Time
	Channel string
	Content string
	MsgID   string
}

func (m *NoticeMessage) Type() MessageType     { return TypeNotice }
func (m *NoticeMessage) MessageID() string     { return m.ID }
func (m *NoticeMessage) Created() time.Time    { return m.Time }
func (m *NoticeMessage) TargetChannel() string { return m.Channel }

// UserNoticeMessage covers USERNOTICE events: subs, resubs, raids,
// announcements. When the event carries user text, Child holds it as a
// regular PrivMessage run through the same pipeline.
type UserNoticeMessage struct {
	ID          string
	Time        time.Time
	Channel     string
	UserID      string
	Name        string
	DisplayName string
	MsgID       string
	SystemMsg   string
	Tags        map[string]string
	Highlights  []Highlight
	Child       *PrivMessage
	Historic    bool
}

func (m *UserNoticeMessage) Type() MessageType     { return TypeUserNotice }
func (m *UserNoticeMessage) MessageID() string     { return m.ID }
func (m *UserNoticeMessage) Created() time.Time    { return m.Time }
func (m *UserNoticeMessage) TargetChannel() string { return m.Channel }

// ModerationAction enumerates normalized moderation events.
type ModerationAction int

const (
	ActionTimeout ModerationAction = iota
	ActionUntimeout
	ActionBan
	ActionUnban
	ActionDelete
	ActionClear
)

// ModerationMessage is one normalized moderation event, produced from IRC
// CLEARCHAT/CLEARMSG or from PubSub/EventSub moderator actions. The shape is
// identical regardless of the source API.
type ModerationMessage struct {
	ID          string
	Time        time.Time
	Channel     string
	Action      ModerationAction
	TargetID    string
	TargetName  string
	TargetMsgID string
	TargetText  string
	CreatorName string
	Duration    time.Duration
	Reason      string
	// Count folds repeated identical timeouts into one annotated entry.
	Count int
}

func (m *ModerationMessage) Type() MessageType     { return TypeModeration }
func (m *ModerationMessage) MessageID() string     { return m.ID }
func (m *ModerationMessage) Created() time.Time    { return m.Time }
func (m *ModerationMessage) TargetChannel() string { return m.Channel }

// PointRedemptionMessage is a channel-point redemption that has no chat text
// attached (redemptions with text merge into the carrying PrivMessage
// instead).
type PointRedemptionMessage struct {
	ID          string
	Time        time.Time
	Channel     string
	UserID      string
	Name        string
	DisplayName string
	Reward      PointReward
}

func (m *PointRedemptionMessage) Type() MessageType     { return TypePointRedemption }
func (m *PointRedemptionMessage) MessageID() string     { return m.ID }
func (m *PointRedemptionMessage) Created() time.Time    { return m.Time }
func (m *PointRedemptionMessage) TargetChannel() string { return m.Channel }

// SystemKind is the typed reason of a synthesized system message.
type SystemKind int

const (
	SystemConnected SystemKind = iota
	SystemNotLoggedIn
	SystemDisconnected
	SystemReconnected
	SystemChannelNonExistent
	SystemLoginExpired
	SystemMessageHistoryUnavailable
	SystemMessageHistoryIgnored
	SystemMessageHistoryIncomplete
	SystemNoHistoryLoaded
)

// SystemMessage is a synthesized, channel-scoped status line. Failures always
// surface as one of these, never as a raw error in the chat stream.
type SystemMessage struct {
	ID      string
	Time    time.Time
	Channel string
	Kind    SystemKind
	// Status carries the HTTP status for SystemMessageHistoryUnavailable.
	Status int
}

func (m *SystemMessage) Type() MessageType     { return TypeSystem }
func (m *SystemMessage) MessageID() string     { return m.ID }
func (m *SystemMessage) Created() time.Time    { return m.Time }
func (m *SystemMessage) TargetChannel() string { return m.Channel }

// Text renders the human-readable status line.
func (m *SystemMessage) Text() string {
	switch m.Kind {
	case SystemConnected:
		return "connected"
	case SystemNotLoggedIn:
		return "connected (not logged in)"
	case SystemDisconnected:
		return "disconnected"
	case SystemReconnected:
		return "reconnected"
	case SystemChannelNonExistent:
		return "channel does not exist or has been suspended"
	case SystemLoginExpired:
		return "login expired, please log in again"
	case SystemMessageHistoryUnavailable:
		if m.Status > 0 {
			return "chat history is currently unavailable (status " + strconv.Itoa(m.Status) + ")"
		}
		return "chat history is currently unavailable"
	case SystemMessageHistoryIgnored:
		return "history for this channel is ignored"
	case SystemMessageHistoryIncomplete:
		return "chat history may be incomplete"
	case SystemNoHistoryLoaded:
		return "history loading is disabled"
	}
	return ""
}
