package db

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/onnwee/chat-tender/chat"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func testPriv(id, channel, text string) *chat.PrivMessage {
	return &chat.PrivMessage{
		ID:          id,
		Time:        time.Now().UTC(),
		Channel:     channel,
		UserID:      "100",
		Name:        "selfuser",
		DisplayName: "SelfUser",
		Content:     text,
	}
}

func TestRecorderPersistsMessages(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping recorder test")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	cleanDatabase(t, ctx, db)
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	recCtx, cancel := context.WithCancel(ctx)
	rec := NewRecorder(recCtx, db, RecorderConfig{FlushEvery: 20 * time.Millisecond})

	rec.Record("pajlada", testPriv("rec-1", "pajlada", "first"))
	rec.Record("pajlada", testPriv("rec-2", "pajlada", "second"))
	// Duplicate delivery of the same message id must not produce a second row.
	rec.Record("pajlada", testPriv("rec-1", "pajlada", "first"))
	// System messages are transient and not persisted.
	rec.Record("pajlada", &chat.SystemMessage{ID: "sys-1", Time: time.Now(), Channel: "pajlada", Kind: chat.SystemConnected})

	deadline := time.Now().Add(2 * time.Second)
	var count int
	for time.Now().Before(deadline) {
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_log WHERE channel='pajlada'`).Scan(&count); err != nil {
			t.Fatalf("count: %v", err)
		}
		if count >= 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if count != 2 {
		t.Fatalf("chat_log row count = %d, want 2", count)
	}

	var text, msgType string
	if err := db.QueryRowContext(ctx,
		`SELECT message, message_type FROM chat_log WHERE message_id='rec-1'`).Scan(&text, &msgType); err != nil {
		t.Fatalf("select rec-1: %v", err)
	}
	if text != "first" || msgType != "privmsg" {
		t.Errorf("rec-1 = (%q, %q), want (first, privmsg)", text, msgType)
	}

	cancel()
}

func TestRecorderFinalFlushOnShutdown(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	cleanDatabase(t, ctx, db)
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	recCtx, cancel := context.WithCancel(ctx)
	// Long flush interval so only the shutdown flush can persist the rows.
	rec := NewRecorder(recCtx, db, RecorderConfig{FlushEvery: time.Hour})
	rec.Record("forsen", testPriv("shutdown-1", "forsen", "bye"))

	// Give the run loop a moment to drain the input channel, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	var count int
	for time.Now().Before(deadline) {
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_log WHERE message_id='shutdown-1'`).Scan(&count); err != nil {
			t.Fatalf("count: %v", err)
		}
		if count == 1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("row not flushed on shutdown, count = %d", count)
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Cancelled context: the run loop exits immediately, so the tiny queue
	// fills and overflow is counted instead of blocking.
	rec := NewRecorder(ctx, nil, RecorderConfig{ChanBuffer: 1, FlushEvery: time.Hour})
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < 5; i++ {
		rec.Record("pajlada", testPriv("drop-1", "pajlada", "x"))
	}
	if rec.Dropped() == 0 {
		t.Error("expected dropped counter to advance when queue is full")
	}
}
