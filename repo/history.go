package repo

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/chat-tender/chat"
	"github.com/onnwee/chat-tender/irc"
	"github.com/onnwee/chat-tender/telemetry"
	"github.com/onnwee/chat-tender/twitchapi"
)

// HistoryClient fetches recent raw IRC lines for a channel so a freshly
// joined channel is not empty.
type HistoryClient interface {
	RecentMessages(ctx context.Context, channel string, limit int) ([]string, error)
}

// ChattersClient fetches the current chatter list for suggestion seeding.
type ChattersClient interface {
	Chatters(ctx context.Context, channel string) ([]string, error)
}

// loadHistory fetches and parses recent messages for a channel, handing each
// resulting message to emit for pipeline processing. Failures degrade to a
// typed system message; they never block the join.
func (r *Repository) loadHistory(ctx context.Context, channel string, emit func(chat.Message)) {
	if !r.cfg.LoadHistory {
		emit(chat.NewSystemMessage(channel, chat.SystemNoHistoryLoaded))
		return
	}
	if r.history == nil {
		return
	}

	ctx, span := telemetry.StartSpan(ctx, "repo", "history.load",
		attribute.String("channel", channel))
	defer span.End()

	start := time.Now()
	lines, err := r.history.RecentMessages(ctx, channel, r.cfg.Scrollback)
	telemetry.ObserveHistoryLoad(time.Since(start))
	if err != nil {
		telemetry.RecordError(span, err)
		r.log.Warn("history load failed", "channel", channel, "error", err)
		sys := chat.NewSystemMessage(channel, chat.SystemMessageHistoryUnavailable)
		var herr *twitchapi.HistoryError
		if errors.As(err, &herr) {
			if herr.ChannelIgnored {
				sys = chat.NewSystemMessage(channel, chat.SystemMessageHistoryIgnored)
			} else {
				sys.Status = herr.Status
			}
		}
		emit(sys)
		return
	}
	telemetry.SetSpanSuccess(span)

	incomplete := false
	for _, line := range lines {
		m := irc.ParseMessage(line)
		parsed := r.parseHistoric(m)
		if parsed == nil {
			// One bad line never drops the batch.
			incomplete = true
			continue
		}
		emit(parsed)
	}
	if incomplete {
		emit(chat.NewSystemMessage(channel, chat.SystemMessageHistoryIncomplete))
	}
}

// parseHistoric maps a replayed history line onto a message variant, marking
// it historic so moderation replay and notifications treat it as old news.
func (r *Repository) parseHistoric(m *irc.Message) chat.Message {
	switch m.Command {
	case "PRIVMSG":
		p := chat.ParsePriv(m)
		if p == nil {
			return nil
		}
		p.Historic = true
		return p
	case "USERNOTICE":
		u := chat.ParseUserNotice(m)
		if u == nil {
			return nil
		}
		u.Historic = true
		if u.Child != nil {
			u.Child.Historic = true
		}
		return u
	case "CLEARCHAT":
		return chat.ParseClearChat(m)
	case "CLEARMSG":
		return chat.ParseClearMsg(m)
	case "NOTICE":
		return chat.ParseNotice(m)
	default:
		return nil
	}
}

// loadChatters seeds the channel suggestion cache, best effort.
func (r *Repository) loadChatters(ctx context.Context, channel string) {
	if r.chatters == nil {
		return
	}
	names, err := r.chatters.Chatters(ctx, channel)
	if err != nil {
		r.log.Debug("chatters load failed", "channel", channel, "error", err)
		return
	}
	r.mu.Lock()
	cd := r.channels[channel]
	r.mu.Unlock()
	if cd != nil {
		cd.suggestions.SeenAll(names)
	}
}
