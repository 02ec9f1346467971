package server

import (
	"encoding/json"
	"net/http"

	"github.com/onnwee/chat-tender/repo"
	"github.com/onnwee/chat-tender/telemetry"
)

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"chat", func() error {
			// The service is always present; listing channels also proves the
			// repository's locks are responsive.
			_ = h.chat.Channels()
			return nil
		}},
	}
	if h.db != nil {
		checks = append(checks, struct {
			name string
			fn   func() error
		}{"database", func() error { return h.db.PingContext(r.Context()) }})
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// channelStatus is one row of the /status response.
type channelStatus struct {
	Channel       string `json:"channel"`
	State         string `json:"state"`
	EmoteOnly     bool   `json:"emote_only,omitempty"`
	FollowersOnly int    `json:"followers_only_minutes"`
	R9K           bool   `json:"r9k,omitempty"`
	SlowSeconds   int    `json:"slow_seconds,omitempty"`
	SubOnly       bool   `json:"sub_only,omitempty"`
	Mentions      int    `json:"mentions,omitempty"`
	Unread        bool   `json:"unread,omitempty"`
}

func stateName(s repo.ConnectionState) string {
	switch s {
	case repo.StateConnected:
		return "connected"
	case repo.StateConnectedNotLoggedIn:
		return "connected_not_logged_in"
	}
	return "disconnected"
}

// HandleStatus reports per-channel connection and room state.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mentions := h.chat.Mentions()
	unread := h.chat.Unread()
	out := make([]channelStatus, 0)
	for _, name := range h.chat.Channels() {
		state, room := h.chat.ChannelState(name)
		out = append(out, channelStatus{
			Channel:       name,
			State:         stateName(state),
			EmoteOnly:     room.EmoteOnly,
			FollowersOnly: room.FollowersOnly,
			R9K:           room.R9K,
			SlowSeconds:   room.Slow,
			SubOnly:       room.SubOnly,
			Mentions:      mentions[name],
			Unread:        unread[name],
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"channels": out,
		"tracing":  telemetry.IsTracingEnabled(),
	})
}
