package server

import (
	"time"

	"github.com/onnwee/chat-tender/chat"
	"github.com/onnwee/chat-tender/repo"
)

// messageView is the JSON shape of one chat item. Fields are populated per
// variant; omitempty keeps the payloads small.
type messageView struct {
	Tag         uint64       `json:"tag"`
	Type        string       `json:"type"`
	ID          string       `json:"id"`
	Channel     string       `json:"channel,omitempty"`
	Time        time.Time    `json:"time"`
	UserID      string       `json:"user_id,omitempty"`
	Username    string       `json:"username,omitempty"`
	DisplayName string       `json:"display_name,omitempty"`
	Alias       string       `json:"alias,omitempty"`
	Color       string       `json:"color,omitempty"`
	Text        string       `json:"text,omitempty"`
	Action      bool         `json:"action,omitempty"`
	Historic    bool         `json:"historic,omitempty"`
	Moderated   bool         `json:"moderated,omitempty"`
	SelfSent    bool         `json:"self_sent,omitempty"`
	Badges      []chat.Badge `json:"badges,omitempty"`
	Emotes      []chat.Emote `json:"emotes,omitempty"`
	Highlights  []string     `json:"highlights,omitempty"`
	Thread      *threadView  `json:"thread,omitempty"`
	Reward      *rewardView  `json:"reward,omitempty"`
	Moderation  *modView     `json:"moderation,omitempty"`
	SystemMsg   string       `json:"system_msg,omitempty"`
	Child       *messageView `json:"child,omitempty"`
}

type threadView struct {
	RootID       string `json:"root_id"`
	RootText     string `json:"root_text,omitempty"`
	Participated bool   `json:"participated,omitempty"`
	Replies      int    `json:"replies"`
}

type rewardView struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Cost         int    `json:"cost"`
	RequiresText bool   `json:"requires_text,omitempty"`
}

type modView struct {
	Action      string `json:"action"`
	TargetID    string `json:"target_id,omitempty"`
	TargetName  string `json:"target_name,omitempty"`
	TargetMsgID string `json:"target_msg_id,omitempty"`
	TargetText  string `json:"target_text,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	DurationSec int    `json:"duration_seconds,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Count       int    `json:"count"`
}

func highlightNames(hs []chat.Highlight) []string {
	if len(hs) == 0 {
		return nil
	}
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, highlightName(h.Kind))
	}
	return out
}

func highlightName(k chat.HighlightKind) string {
	switch k {
	case chat.HighlightUsername:
		return "username"
	case chat.HighlightSubscription:
		return "subscription"
	case chat.HighlightAnnouncement:
		return "announcement"
	case chat.HighlightReward:
		return "reward"
	case chat.HighlightFirstMessage:
		return "first_message"
	case chat.HighlightElevatedMessage:
		return "elevated_message"
	case chat.HighlightReply:
		return "reply"
	case chat.HighlightCustom:
		return "custom"
	}
	return "unknown"
}

func actionName(a chat.ModerationAction) string {
	switch a {
	case chat.ActionTimeout:
		return "timeout"
	case chat.ActionUntimeout:
		return "untimeout"
	case chat.ActionBan:
		return "ban"
	case chat.ActionUnban:
		return "unban"
	case chat.ActionDelete:
		return "delete"
	case chat.ActionClear:
		return "clear"
	}
	return "unknown"
}

func viewOfItem(item repo.ChatItem) messageView {
	v := viewOfMessage(item.Message)
	v.Tag = item.Tag
	return v
}

func viewOfMessage(m chat.Message) messageView {
	switch msg := m.(type) {
	case *chat.PrivMessage:
		return privView(msg)
	case *chat.WhisperMessage:
		return messageView{
			Type:        "whisper",
			ID:          msg.ID,
			Time:        msg.Time,
			UserID:      msg.UserID,
			Username:    msg.Name,
			DisplayName: msg.DisplayName,
			Color:       msg.Color,
			Text:        msg.Content,
			SelfSent:    msg.SelfSent,
			Badges:      msg.Badges,
			Emotes:      msg.Emotes,
			Highlights:  highlightNames(msg.Highlights),
		}
	case *chat.NoticeMessage:
		return messageView{
			Type:    "notice",
			ID:      msg.ID,
			Channel: msg.Channel,
			Time:    msg.Time,
			Text:    msg.Content,
		}
	case *chat.UserNoticeMessage:
		v := messageView{
			Type:        "usernotice",
			ID:          msg.ID,
			Channel:     msg.Channel,
			Time:        msg.Time,
			UserID:      msg.UserID,
			Username:    msg.Name,
			DisplayName: msg.DisplayName,
			Historic:    msg.Historic,
			Highlights:  highlightNames(msg.Highlights),
			SystemMsg:   msg.SystemMsg,
		}
		if msg.Child != nil {
			child := privView(msg.Child)
			v.Child = &child
		}
		return v
	case *chat.ModerationMessage:
		return messageView{
			Type:    "moderation",
			ID:      msg.ID,
			Channel: msg.Channel,
			Time:    msg.Time,
			Moderation: &modView{
				Action:      actionName(msg.Action),
				TargetID:    msg.TargetID,
				TargetName:  msg.TargetName,
				TargetMsgID: msg.TargetMsgID,
				TargetText:  msg.TargetText,
				CreatedBy:   msg.CreatorName,
				DurationSec: int(msg.Duration / time.Second),
				Reason:      msg.Reason,
				Count:       msg.Count,
			},
		}
	case *chat.PointRedemptionMessage:
		return messageView{
			Type:        "redemption",
			ID:          msg.ID,
			Channel:     msg.Channel,
			Time:        msg.Time,
			UserID:      msg.UserID,
			Username:    msg.Name,
			DisplayName: msg.DisplayName,
			Reward: &rewardView{
				ID:           msg.Reward.ID,
				Title:        msg.Reward.Title,
				Cost:         msg.Reward.Cost,
				RequiresText: msg.Reward.RequiresText,
			},
		}
	case *chat.SystemMessage:
		return messageView{
			Type:    "system",
			ID:      msg.ID,
			Channel: msg.Channel,
			Time:    msg.Time,
			Text:    msg.Text(),
		}
	}
	return messageView{
		Type:    "unknown",
		ID:      m.MessageID(),
		Channel: m.TargetChannel(),
		Time:    m.Created(),
	}
}

func privView(msg *chat.PrivMessage) messageView {
	v := messageView{
		Type:        "privmsg",
		ID:          msg.ID,
		Channel:     msg.Channel,
		Time:        msg.Time,
		UserID:      msg.UserID,
		Username:    msg.Name,
		DisplayName: msg.DisplayName,
		Color:       msg.Color,
		Text:        msg.Content,
		Action:      msg.IsAction,
		Historic:    msg.Historic,
		Moderated:   msg.Moderated,
		Badges:      msg.Badges,
		Emotes:      msg.Emotes,
		Highlights:  highlightNames(msg.Highlights),
	}
	if msg.UserDisplay != nil {
		v.Alias = msg.UserDisplay.Alias
		if msg.UserDisplay.Color != "" {
			v.Color = msg.UserDisplay.Color
		}
	}
	if msg.Thread != nil {
		v.Thread = &threadView{
			RootID:       msg.Thread.RootID,
			RootText:     msg.Thread.RootText,
			Participated: msg.Thread.Participated,
			Replies:      msg.Thread.Replies,
		}
	}
	if msg.Reward != nil {
		v.Reward = &rewardView{
			ID:           msg.Reward.ID,
			Title:        msg.Reward.Title,
			Cost:         msg.Reward.Cost,
			RequiresText: msg.Reward.RequiresText,
		}
	}
	return v
}
