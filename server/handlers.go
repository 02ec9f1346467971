package server

import (
	"context"
	"database/sql"

	"github.com/onnwee/chat-tender/chat"
	"github.com/onnwee/chat-tender/repo"
)

// ChatService is the slice of the chat repository the HTTP layer consumes.
// *repo.Repository satisfies it.
type ChatService interface {
	Channels() []string
	Snapshot(channel string) []repo.ChatItem
	ChannelState(channel string) (repo.ConnectionState, chat.RoomState)
	Mentions() map[string]int
	Unread() map[string]bool
	Suggest(channel, prefix string) []string
	Subscribe() <-chan repo.Update
	Unsubscribe(ch <-chan repo.Update)
	JoinChannel(ctx context.Context, channel string)
	PartChannel(channel string)
	SendMessage(channel, text string)
	SetActiveChannel(channel string)
	Clear(channel string)
	Reconnect(ctx context.Context)
}

// Handlers holds dependencies for all HTTP handlers. db may be nil when chat
// recording is disabled.
type Handlers struct {
	chat ChatService
	db   *sql.DB
	ctx  context.Context
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(ctx context.Context, svc ChatService, db *sql.DB) *Handlers {
	return &Handlers{
		chat: svc,
		db:   db,
		ctx:  ctx,
	}
}
