package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/onnwee/chat-tender/chat"
)

// RecorderConfig tunes the async chat sink.
type RecorderConfig struct {
	MaxBatch     int
	FlushEvery   time.Duration
	ChanBuffer   int
	FlushTimeout time.Duration
}

func (c RecorderConfig) withDefaults() RecorderConfig {
	if c.MaxBatch <= 0 {
		c.MaxBatch = 200
	}
	if c.FlushEvery <= 0 {
		c.FlushEvery = 2 * time.Second
	}
	if c.ChanBuffer <= 0 {
		c.ChanBuffer = 4096
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 5 * time.Second
	}
	return c
}

type logRow struct {
	channel string
	msg     chat.Message
}

// Recorder persists chat messages to the chat_log table asynchronously.
// Record never blocks the dispatch loop: when the queue is full the message
// is dropped and counted.
type Recorder struct {
	db      *sql.DB
	cfg     RecorderConfig
	input   chan logRow
	dropped atomic.Uint64
}

// NewRecorder starts the flush goroutine; it exits when ctx is done.
func NewRecorder(ctx context.Context, dbx *sql.DB, cfg RecorderConfig) *Recorder {
	r := &Recorder{
		db:    dbx,
		cfg:   cfg.withDefaults(),
		input: make(chan logRow, cfg.withDefaults().ChanBuffer),
	}
	go r.run(ctx)
	return r
}

// Record queues one message for persistence.
func (r *Recorder) Record(channel string, m chat.Message) {
	select {
	case r.input <- logRow{channel: channel, msg: m}:
	default:
		if dropped := r.dropped.Add(1); dropped%100 == 0 {
			slog.Warn("chat recorder queue full", slog.Uint64("dropped_total", dropped))
		}
	}
}

// Dropped returns the number of messages lost to queue overflow.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

func (r *Recorder) run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.FlushEvery)
	defer ticker.Stop()

	pending := make([]logRow, 0, r.cfg.MaxBatch)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		dbCtx, cancel := context.WithTimeout(context.Background(), r.cfg.FlushTimeout)
		if err := r.insertBatch(dbCtx, pending); err != nil {
			slog.Warn("chat recorder flush failed", slog.Any("err", err), slog.Int("rows", len(pending)))
		}
		cancel()
		pending = pending[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		case row := <-r.input:
			pending = append(pending, row)
			if len(pending) >= r.cfg.MaxBatch {
				flush()
			}
		}
	}
}

const insertLogQuery = `
INSERT INTO chat_log (
  message_id, channel, message_type, user_id, username, display_name,
  message, color, badges, emotes, reply_to_id, is_action, is_historic, sent_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (message_id) DO NOTHING`

func (r *Recorder) insertBatch(ctx context.Context, rows []logRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertLogQuery)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, row := range rows {
		args := rowArgs(row.channel, row.msg)
		if args == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}
	_ = stmt.Close()
	return tx.Commit()
}

// rowArgs flattens a message variant into the chat_log columns; nil means the
// variant is not persisted (system messages, transient state).
func rowArgs(channel string, m chat.Message) []any {
	switch v := m.(type) {
	case *chat.PrivMessage:
		badges, _ := json.Marshal(v.Badges)
		emotes, _ := json.Marshal(v.Emotes)
		return []any{
			v.ID, channel, "privmsg", v.UserID, v.Name, v.DisplayName,
			v.Content, v.Color, string(badges), string(emotes), v.ReplyParentID,
			v.IsAction, v.Historic, v.Time.UTC(),
		}
	case *chat.UserNoticeMessage:
		var text string
		if v.Child != nil {
			text = v.Child.Content
		}
		return []any{
			v.ID, channel, "usernotice", v.UserID, v.Name, v.DisplayName,
			text, "", "[]", "[]", "", false, v.Historic, v.Time.UTC(),
		}
	case *chat.ModerationMessage:
		return []any{
			v.ID, channel, "moderation", v.TargetID, v.TargetName, "",
			v.Reason, "", "[]", "[]", v.TargetMsgID, false, false, v.Time.UTC(),
		}
	case *chat.PointRedemptionMessage:
		return []any{
			v.ID, channel, "redemption", v.UserID, v.Name, v.DisplayName,
			v.Reward.Title, "", "[]", "[]", "", false, false, v.Time.UTC(),
		}
	default:
		return nil
	}
}
