// Package pubsub models the out-of-band push events (legacy PubSub and
// EventSub) that merge into the chat stream: channel-point redemptions,
// moderator actions, and whispers. It owns the reward correlator that pairs
// redemption events with their chat messages, and the normalization of both
// moderation APIs into one message shape.
package pubsub

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/chat-tender/chat"
)

// PointRedemption is a channel-point redemption push event.
type PointRedemption struct {
	ID              string
	Channel         string
	UserID          string
	UserName        string
	UserDisplayName string
	Reward          chat.PointReward
	// Text is the user input for rewards that require it; the authoritative
	// text still arrives via the paired PRIVMSG.
	Text string
	Time time.Time
}

// ModeratorAction is a moderation push event, already source-agnostic: both
// the legacy PubSub and the EventSub decoders produce this shape.
type ModeratorAction struct {
	Channel     string
	Action      string // timeout | untimeout | ban | unban | delete | clear
	TargetID    string
	TargetName  string
	CreatorName string
	Duration    time.Duration
	Reason      string
	TargetMsgID string
	Time        time.Time
}

// Whisper is a whisper push event, used when the IRC transport has no
// whisper echo.
type Whisper struct {
	ID          string
	UserID      string
	UserName    string
	DisplayName string
	Color       string
	Text        string
	Time        time.Time
}

// Event is one push event; exactly one field is set.
type Event struct {
	Redemption *PointRedemption
	ModAction  *ModeratorAction
	Whisper    *Whisper
}

// Source is the push-event collaborator: anything delivering a stream of
// Events (a PubSub socket, an EventSub transport, a test feed).
type Source interface {
	Events() <-chan Event
}

// NormalizeModeration converts a push moderator action into the same
// ModerationMessage shape the IRC CLEARCHAT/CLEARMSG handlers produce.
// Unknown action keywords return nil.
func NormalizeModeration(a ModeratorAction) *chat.ModerationMessage {
	ts := a.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	m := &chat.ModerationMessage{
		ID:          uuid.NewString(),
		Time:        ts,
		Channel:     a.Channel,
		TargetID:    a.TargetID,
		TargetName:  a.TargetName,
		CreatorName: a.CreatorName,
		Duration:    a.Duration,
		Reason:      a.Reason,
		TargetMsgID: a.TargetMsgID,
		Count:       1,
	}
	switch a.Action {
	case "timeout":
		m.Action = chat.ActionTimeout
	case "untimeout":
		m.Action = chat.ActionUntimeout
	case "ban":
		m.Action = chat.ActionBan
	case "unban":
		m.Action = chat.ActionUnban
	case "delete":
		m.Action = chat.ActionDelete
	case "clear":
		m.Action = chat.ActionClear
	default:
		return nil
	}
	return m
}

// LegacyModerationData is the wire shape of a legacy PubSub moderator action.
type LegacyModerationData struct {
	ModerationAction string   `json:"moderation_action"`
	Args             []string `json:"args"`
	CreatedBy        string   `json:"created_by"`
	TargetUserID     string   `json:"target_user_id"`
	MsgID            string   `json:"msg_id"`
}

// FromLegacy maps a legacy PubSub payload onto a ModeratorAction. The args
// layout depends on the action: [target, duration, reason] for timeouts,
// [target, reason] for bans, [msgID] holds elsewhere.
func FromLegacy(channel string, d LegacyModerationData) ModeratorAction {
	a := ModeratorAction{
		Channel:     channel,
		Action:      d.ModerationAction,
		TargetID:    d.TargetUserID,
		CreatorName: d.CreatedBy,
		TargetMsgID: d.MsgID,
		Time:        time.Now(),
	}
	if len(d.Args) > 0 {
		a.TargetName = d.Args[0]
	}
	switch d.ModerationAction {
	case "timeout":
		if len(d.Args) > 1 {
			if secs, err := strconv.Atoi(d.Args[1]); err == nil {
				a.Duration = time.Duration(secs) * time.Second
			}
		}
		if len(d.Args) > 2 {
			a.Reason = d.Args[2]
		}
	case "ban":
		if len(d.Args) > 1 {
			a.Reason = d.Args[1]
		}
	case "delete":
		if len(d.Args) > 2 {
			a.TargetMsgID = d.Args[2]
		}
	}
	return a
}

// EventSubModerationData is the wire shape of an EventSub moderate event.
type EventSubModerationData struct {
	Action          string `json:"action"`
	ModeratorLogin  string `json:"moderator_user_login"`
	TargetUserID    string `json:"target_user_id"`
	TargetUserLogin string `json:"target_user_login"`
	Reason          string `json:"reason"`
	ExpiresAt       string `json:"expires_at"`
	MessageID       string `json:"message_id"`
}

// FromEventSub maps an EventSub payload onto a ModeratorAction.
func FromEventSub(channel string, d EventSubModerationData) ModeratorAction {
	a := ModeratorAction{
		Channel:     channel,
		Action:      d.Action,
		TargetID:    d.TargetUserID,
		TargetName:  d.TargetUserLogin,
		CreatorName: d.ModeratorLogin,
		Reason:      d.Reason,
		TargetMsgID: d.MessageID,
		Time:        time.Now(),
	}
	if d.ExpiresAt != "" {
		if until, err := time.Parse(time.RFC3339, d.ExpiresAt); err == nil {
			if dur := time.Until(until); dur > 0 {
				a.Duration = dur.Round(time.Second)
			}
		}
	}
	return a
}
