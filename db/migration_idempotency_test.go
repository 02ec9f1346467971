package db

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// TestMigrateIdempotency tests that running the embedded fallback Migrate
// multiple times doesn't cause errors and preserves existing rows.
func TestMigrateIdempotency(t *testing.T) {
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping idempotency test")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close db: %v", err)
		}
	}()

	ctx := context.Background()
	cleanDatabase(t, ctx, db)

	// Run migration first time
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("first migrate: %v", err)
	}

	_, err = db.ExecContext(ctx, `INSERT INTO chat_log
		(message_id, channel, message_type, user_id, username, message, sent_at)
		VALUES ('idem-1', 'pajlada', 'privmsg', '100', 'selfuser', 'hello', NOW())`)
	if err != nil {
		t.Fatalf("insert chat_log row: %v", err)
	}

	// Run migration second and third time - should be idempotent
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("third migrate: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_log WHERE message_id='idem-1'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("chat_log row count = %d after re-migration, want 1", count)
	}
}

// TestOAuthTokenRoundTrip tests the oauth_tokens upsert and lookup helpers.
func TestOAuthTokenRoundTrip(t *testing.T) {
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

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := UpsertOAuthToken(ctx, db, "twitch-chat", "at-1", "rt-1", expiry, "chat:read chat:edit"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	access, refresh, gotExpiry, scope, err := GetOAuthToken(ctx, db, "twitch-chat")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if access != "at-1" || refresh != "rt-1" || scope != "chat:read chat:edit" {
		t.Errorf("got (%q, %q, %q), want (at-1, rt-1, chat:read chat:edit)", access, refresh, scope)
	}
	if !gotExpiry.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", gotExpiry, expiry)
	}

	// Upsert replaces in place
	if err := UpsertOAuthToken(ctx, db, "twitch-chat", "at-2", "rt-2", expiry, "chat:read"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	access, _, _, _, err = GetOAuthToken(ctx, db, "twitch-chat")
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if access != "at-2" {
		t.Errorf("access after upsert = %q, want at-2", access)
	}

	// Unknown provider yields zero values, not an error
	access, _, _, _, err = GetOAuthToken(ctx, db, "nonexistent")
	if err != nil {
		t.Fatalf("get unknown provider: %v", err)
	}
	if access != "" {
		t.Errorf("access for unknown provider = %q, want empty", access)
	}
}

// TestKVRoundTrip tests the kv helpers used for persisted client settings.
func TestKVRoundTrip(t *testing.T) {
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

	if _, ok, err := GetKV(ctx, db, "joined_channels"); err != nil || ok {
		t.Fatalf("GetKV on empty table = (ok=%v, err=%v), want (false, nil)", ok, err)
	}

	if err := SetKV(ctx, db, "joined_channels", "pajlada,forsen"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := GetKV(ctx, db, "joined_channels")
	if err != nil || !ok || v != "pajlada,forsen" {
		t.Fatalf("GetKV = (%q, %v, %v), want (pajlada,forsen, true, nil)", v, ok, err)
	}

	if err := SetKV(ctx, db, "joined_channels", "pajlada"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, _, err = GetKV(ctx, db, "joined_channels")
	if err != nil || v != "pajlada" {
		t.Fatalf("GetKV after overwrite = (%q, %v), want (pajlada, nil)", v, err)
	}
}
