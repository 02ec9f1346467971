package chat

import (
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/chat-tender/irc"
)

// RoomState holds the per-channel IRC room flags. ROOMSTATE replays only the
// tags that changed, so ApplyTags updates present tags and leaves the rest.
type RoomState struct {
	Channel       string
	ChannelID     string
	EmoteOnly     bool
	FollowersOnly int // minutes; -1 means off
	R9K           bool
	Slow          int // seconds
	SubOnly       bool
}

// NewRoomState returns the default (all restrictions off) state.
func NewRoomState(channel string) RoomState {
	return RoomState{Channel: channel, FollowersOnly: -1}
}

// ApplyTags folds a ROOMSTATE line into the state, last writer wins per tag.
func (rs RoomState) ApplyTags(m *irc.Message) RoomState {
	if v, ok := m.Tags["room-id"]; ok {
		rs.ChannelID = v
	}
	if v, ok := m.Tags["emote-only"]; ok {
		rs.EmoteOnly = v == "1"
	}
	if v, ok := m.Tags["followers-only"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			rs.FollowersOnly = n
		}
	}
	if v, ok := m.Tags["r9k"]; ok {
		rs.R9K = v == "1"
	}
	if v, ok := m.Tags["slow"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			rs.Slow = n
		}
	}
	if v, ok := m.Tags["subs-only"]; ok {
		rs.SubOnly = v == "1"
	}
	return rs
}

// Send delays. Moderators and VIPs are exempt from Twitch's ~1s per-channel
// throttle, everyone else is not; the repository exposes the delay and the
// caller schedules around it.
const (
	fastSendDelay = 150 * time.Millisecond
	slowSendDelay = 1100 * time.Millisecond
)

// UserState is a snapshot of the logged-in user's IRC capabilities. It is
// replaced wholesale on every USERSTATE/GLOBALUSERSTATE, never mutated in
// place.
type UserState struct {
	UserID      string
	Color       string
	DisplayName string

	GlobalEmoteSets    []string
	FollowerEmoteSets  map[string][]string
	ModerationChannels map[string]struct{}
	VIPChannels        map[string]struct{}
}

// NewUserState returns an empty snapshot.
func NewUserState() UserState {
	return UserState{
		FollowerEmoteSets:  map[string][]string{},
		ModerationChannels: map[string]struct{}{},
		VIPChannels:        map[string]struct{}{},
	}
}

func (us UserState) clone() UserState {
	out := us
	out.GlobalEmoteSets = append([]string(nil), us.GlobalEmoteSets...)
	out.FollowerEmoteSets = make(map[string][]string, len(us.FollowerEmoteSets))
	for k, v := range us.FollowerEmoteSets {
		out.FollowerEmoteSets[k] = append([]string(nil), v...)
	}
	out.ModerationChannels = make(map[string]struct{}, len(us.ModerationChannels))
	for k := range us.ModerationChannels {
		out.ModerationChannels[k] = struct{}{}
	}
	out.VIPChannels = make(map[string]struct{}, len(us.VIPChannels))
	for k := range us.VIPChannels {
		out.VIPChannels[k] = struct{}{}
	}
	return out
}

// ApplyGlobalUserState folds a GLOBALUSERSTATE into a fresh snapshot.
func (us UserState) ApplyGlobalUserState(m *irc.Message) UserState {
	out := us.clone()
	if v, ok := m.Tags["user-id"]; ok {
		out.UserID = v
	}
	if v, ok := m.Tags["color"]; ok && v != "" {
		out.Color = v
	}
	if v, ok := m.Tags["display-name"]; ok && v != "" {
		out.DisplayName = v
	}
	if v, ok := m.Tags["emote-sets"]; ok && v != "" {
		out.GlobalEmoteSets = strings.Split(v, ",")
	}
	return out
}

// ApplyUserState folds a channel USERSTATE into a fresh snapshot.
func (us UserState) ApplyUserState(m *irc.Message) UserState {
	out := us.clone()
	channel := m.Channel()
	if v, ok := m.Tags["color"]; ok && v != "" {
		out.Color = v
	}
	if v, ok := m.Tags["display-name"]; ok && v != "" {
		out.DisplayName = v
	}
	if v, ok := m.Tags["emote-sets"]; ok && v != "" {
		sets := strings.Split(v, ",")
		follower := make([]string, 0, len(sets))
		global := map[string]struct{}{}
		for _, s := range us.GlobalEmoteSets {
			global[s] = struct{}{}
		}
		for _, s := range sets {
			if _, ok := global[s]; !ok {
				follower = append(follower, s)
			}
		}
		out.FollowerEmoteSets[channel] = follower
	}
	if m.Tag("mod") == "1" {
		out.ModerationChannels[channel] = struct{}{}
	} else {
		delete(out.ModerationChannels, channel)
	}
	if badges := m.Tag("badges"); strings.Contains(badges, "vip/") || strings.Contains(badges, "broadcaster/") {
		out.VIPChannels[channel] = struct{}{}
	} else {
		delete(out.VIPChannels, channel)
	}
	return out
}

// SendDelay returns the minimum spacing between sends for a channel: the
// short delay iff the user moderates or is VIP there, else the long
// anti-throttle delay.
func (us UserState) SendDelay(channel string) time.Duration {
	if _, ok := us.ModerationChannels[channel]; ok {
		return fastSendDelay
	}
	if _, ok := us.VIPChannels[channel]; ok {
		return fastSendDelay
	}
	return slowSendDelay
}
