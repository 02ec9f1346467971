package repo

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/chat-tender/chat"
)

// duplicateMarker is the invisible character appended to defeat the
// server-side rejection of two identical consecutive messages. It never
// changes the visible content.
const duplicateMarker = "\U000E0000"

// prepareMessage returns the wire text for an outgoing message, appending
// the invisible marker when the exact wire string would otherwise repeat the
// previous send to the same channel. Repeated identical sends alternate
// between plain and marked, so no two consecutive payloads match.
func (r *Repository) prepareMessage(channel, text string) string {
	text = strings.TrimRight(text, " ")
	if r.lastSent[channel] == text {
		text += " " + duplicateMarker
	}
	r.lastSent[channel] = text
	return text
}

// fakeWhisper synthesizes the local echo of an outgoing whisper. Twitch IRC
// gives no echo for /w, so without this the sender would never see their own
// whisper.
func (r *Repository) fakeWhisper(target, text string) *chat.WhisperMessage {
	us := r.userState
	return &chat.WhisperMessage{
		ID:          uuid.NewString(),
		Time:        time.Now(),
		UserID:      r.cfg.UserID,
		Name:        r.cfg.Username,
		DisplayName: us.DisplayName,
		Color:       us.Color,
		Content:     "-> " + target + ": " + text,
		SelfSent:    true,
	}
}

// parseWhisperCommand recognizes "/w target text" and ".w target text".
// It returns ok=false for anything else.
func parseWhisperCommand(text string) (target, body string, ok bool) {
	if !strings.HasPrefix(text, "/w ") && !strings.HasPrefix(text, ".w ") {
		return "", "", false
	}
	rest := strings.TrimSpace(text[3:])
	target, body, found := strings.Cut(rest, " ")
	if !found || target == "" || body == "" {
		return "", "", false
	}
	return target, body, true
}
