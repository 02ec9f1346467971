package irc

import (
	"testing"
)

func TestParsePrivmsg(t *testing.T) {
	line := `@badge-info=subscriber/14;badges=subscriber/12,bits/1000;color=#FF0000;display-name=Dank;emotes=25:0-4;id=abc-123;room-id=11148817;tmi-sent-ts=1575159889499;user-id=12345 :dank!dank@dank.tmi.twitch.tv PRIVMSG #pajlada :Kappa hello world`
	m := ParseMessage(line)
	if m.Command != "PRIVMSG" {
		t.Fatalf("command = %q, want PRIVMSG", m.Command)
	}
	if got := m.Channel(); got != "pajlada" {
		t.Errorf("channel = %q", got)
	}
	if got := m.Trailing(); got != "Kappa hello world" {
		t.Errorf("trailing = %q", got)
	}
	if got := m.Nick(); got != "dank" {
		t.Errorf("nick = %q", got)
	}
	if got := m.Tag("display-name"); got != "Dank" {
		t.Errorf("display-name = %q", got)
	}
	if got := m.Tag("badges"); got != "subscriber/12,bits/1000" {
		t.Errorf("badges = %q", got)
	}
}

func TestParseTagEscapes(t *testing.T) {
	m := ParseMessage(`@system-msg=15\sraiders\sfrom\sTest\shave\sjoined!;msg-id=raid :tmi.twitch.tv USERNOTICE #chan`)
	if got := m.Tag("system-msg"); got != "15 raiders from Test have joined!" {
		t.Errorf("system-msg = %q", got)
	}
	m = ParseMessage(`@key=semi\:colon\\back\r\n :tmi.twitch.tv NOTICE #chan :x`)
	if got := m.Tag("key"); got != "semi;colon\\back\r\n" {
		t.Errorf("escaped tag = %q", got)
	}
}

func TestParseEmptyTagValue(t *testing.T) {
	m := ParseMessage(`@flags=;emotes= :tmi.twitch.tv CLEARCHAT #chan :target`)
	if _, ok := m.Tags["flags"]; !ok {
		t.Errorf("expected empty flags tag to be present")
	}
	if m.Command != "CLEARCHAT" {
		t.Errorf("command = %q", m.Command)
	}
}

func TestParseNoPrefix(t *testing.T) {
	m := ParseMessage("PING :tmi.twitch.tv")
	if m.Command != "PING" || m.Trailing() != "tmi.twitch.tv" {
		t.Errorf("got %+v", m)
	}
}

func TestParseMalformedLines(t *testing.T) {
	for _, line := range []string{"", "@", "@tags-only", ":prefix-only", "   ", "@a=b :p"} {
		m := ParseMessage(line)
		if m == nil {
			t.Fatalf("ParseMessage(%q) returned nil", line)
		}
		if m.Param(0) != "" || m.Param(-1) != "" {
			t.Errorf("Param on malformed %q should be empty", line)
		}
	}
}

func TestParseMiddleParams(t *testing.T) {
	m := ParseMessage(":tmi.twitch.tv 353 justinfan1 = #chan :a b c")
	if len(m.Params) != 4 {
		t.Fatalf("params = %v", m.Params)
	}
	if m.Param(2) != "#chan" || m.Param(3) != "a b c" {
		t.Errorf("params = %v", m.Params)
	}
}

func TestRoundTrip(t *testing.T) {
	lines := []string{
		":dank!dank@dank.tmi.twitch.tv PRIVMSG #pajlada :hello there friend",
		"PING :tmi.twitch.tv",
		":tmi.twitch.tv CLEARCHAT #forsen :nymn",
		":tmi.twitch.tv ROOMSTATE #forsen",
		":dank!dank@dank.tmi.twitch.tv JOIN #pajlada",
	}
	for _, line := range lines {
		if got := ParseMessage(line).String(); got != line {
			t.Errorf("round trip: got %q, want %q", got, line)
		}
	}
}

func TestRoundTripTags(t *testing.T) {
	line := `@msg-id=slow_on :tmi.twitch.tv NOTICE #chan :This room is now in slow mode.`
	m := ParseMessage(ParseMessage(line).String())
	if m.Tag("msg-id") != "slow_on" || m.Trailing() != "This room is now in slow mode." {
		t.Errorf("tag round trip failed: %+v", m)
	}
}

func TestTrailingCarriageReturn(t *testing.T) {
	m := ParseMessage("PING :tmi.twitch.tv\r\n")
	if m.Trailing() != "tmi.twitch.tv" {
		t.Errorf("trailing = %q", m.Trailing())
	}
}
