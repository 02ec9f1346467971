package irc_test

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/chat-tender/irc"
	"github.com/onnwee/chat-tender/testutil"
)

func waitEvent(t *testing.T, events <-chan irc.Event, want irc.EventType) irc.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event type %d", want)
		}
	}
}

func TestConnectEmitsConnected(t *testing.T) {
	srv := testutil.NewMockIRCServer(t)
	c := irc.NewConn(irc.Config{Endpoint: srv.URL(), Login: "testbot", Token: "oauth:abc"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Connect(ctx)
	waitEvent(t, c.Events(), irc.EventConnected)
	c.Close()
	waitEvent(t, c.Events(), irc.EventClosed)
}

func TestReconnectIfNecessaryIdempotent(t *testing.T) {
	srv := testutil.NewMockIRCServer(t)
	c := irc.NewConn(irc.Config{Endpoint: srv.URL(), Login: "testbot"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Connect(ctx)
	waitEvent(t, c.Events(), irc.EventConnected)

	c.ReconnectIfNecessary(ctx)
	c.ReconnectIfNecessary(ctx)
	time.Sleep(100 * time.Millisecond)
	if n := srv.SessionCount(); n != 1 {
		t.Fatalf("session count = %d, want 1 (reconnect while connected must be a no-op)", n)
	}
	select {
	case ev := <-c.Events():
		t.Fatalf("unexpected event %d after idempotent reconnect", ev.Type)
	default:
	}
	c.Close()
}

func TestAutoRetryAfterDrop(t *testing.T) {
	srv := testutil.NewMockIRCServer(t)
	c := irc.NewConn(irc.Config{Endpoint: srv.URL(), Login: "testbot"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Connect(ctx)
	waitEvent(t, c.Events(), irc.EventConnected)

	srv.Sessions()[0].Drop()
	// The session retries without an explicit reconnect call.
	waitEvent(t, c.Events(), irc.EventConnected)
	if n := srv.SessionCount(); n < 2 {
		t.Fatalf("session count = %d, want >= 2 after transport drop", n)
	}
	c.Close()
}

func TestCloseIsTerminal(t *testing.T) {
	srv := testutil.NewMockIRCServer(t)
	c := irc.NewConn(irc.Config{Endpoint: srv.URL(), Login: "testbot"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Connect(ctx)
	waitEvent(t, c.Events(), irc.EventConnected)
	c.Close()
	waitEvent(t, c.Events(), irc.EventClosed)
	c.Close() // second close is a no-op

	time.Sleep(150 * time.Millisecond)
	if n := srv.SessionCount(); n != 1 {
		t.Fatalf("session count = %d, want 1 (no retry after Close)", n)
	}
}

func TestLoginFailed(t *testing.T) {
	srv := testutil.NewMockIRCServer(t)
	srv.RejectLogin = true
	c := irc.NewConn(irc.Config{Endpoint: srv.URL(), Login: "testbot", Token: "bad"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Connect(ctx)
	waitEvent(t, c.Events(), irc.EventLoginFailed)
}

func TestJoinRememberedAcrossReconnect(t *testing.T) {
	srv := testutil.NewMockIRCServer(t)
	c := irc.NewConn(irc.Config{Endpoint: srv.URL(), Login: "testbot"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Join("pajlada")
	c.Connect(ctx)
	waitEvent(t, c.Events(), irc.EventConnected)

	srv.Sessions()[0].Drop()
	waitEvent(t, c.Events(), irc.EventConnected)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sessions := srv.Sessions()
		if len(sessions) >= 2 {
			for _, line := range sessions[len(sessions)-1].Received() {
				if line == "JOIN #pajlada" {
					return
				}
			}
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("JOIN was not replayed on the new session")
}

func TestRelaysMessages(t *testing.T) {
	srv := testutil.NewMockIRCServer(t)
	c := irc.NewConn(irc.Config{Endpoint: srv.URL(), Login: "testbot"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Connect(ctx)
	waitEvent(t, c.Events(), irc.EventConnected)

	srv.Sessions()[0].Inject(":dank!dank@dank.tmi.twitch.tv PRIVMSG #pajlada :hello")
	ev := waitEvent(t, c.Events(), irc.EventMessage)
	if ev.Message.Command != "PRIVMSG" || ev.Message.Trailing() != "hello" {
		t.Fatalf("unexpected message %+v", ev.Message)
	}
	c.Close()
}

func TestChannelSuspendedNotice(t *testing.T) {
	srv := testutil.NewMockIRCServer(t)
	c := irc.NewConn(irc.Config{Endpoint: srv.URL(), Login: "testbot"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Connect(ctx)
	waitEvent(t, c.Events(), irc.EventConnected)

	srv.Sessions()[0].Inject("@msg-id=msg_channel_suspended :tmi.twitch.tv NOTICE #gone :This channel does not exist or has been suspended.")
	ev := waitEvent(t, c.Events(), irc.EventChannelNonExistent)
	if ev.Channel != "gone" {
		t.Fatalf("channel = %q, want gone", ev.Channel)
	}
	c.Close()
}
