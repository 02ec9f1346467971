package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HandleChannels lists joined channels (GET) or joins a new one (POST).
func (h *Handlers) HandleChannels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"channels": h.chat.Channels()})
	case http.MethodPost:
		var req struct {
			Channel string `json:"channel"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Channel) == "" {
			http.Error(w, "channel required", http.StatusBadRequest)
			return
		}
		h.chat.JoinChannel(h.ctx, req.Channel)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"channel": strings.ToLower(strings.TrimSpace(req.Channel))})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleReconnect nudges both IRC connections. A no-op while they are healthy,
// so it is safe to call from a "chat looks stuck" button.
func (h *Handlers) HandleReconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.chat.Reconnect(h.ctx)
	w.WriteHeader(http.StatusAccepted)
}

// HandleChannelDispatcher routes /channels/{name}/... sub-resources.
func (h *Handlers) HandleChannelDispatcher(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/channels/")
	name, sub, _ := strings.Cut(rest, "/")
	name = strings.ToLower(name)
	if name == "" {
		http.Error(w, "channel required", http.StatusBadRequest)
		return
	}
	switch sub {
	case "":
		if r.Method == http.MethodDelete {
			h.chat.PartChannel(name)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	case "messages":
		h.handleMessages(w, r, name)
	case "stream":
		h.handleStream(w, r, name)
	case "suggest":
		h.handleSuggest(w, r, name)
	case "active":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.chat.SetActiveChannel(name)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

// handleMessages returns the buffer snapshot (GET), sends a message (POST) or
// clears the buffer (DELETE).
func (h *Handlers) handleMessages(w http.ResponseWriter, r *http.Request, channel string) {
	switch r.Method {
	case http.MethodGet:
		items := h.chat.Snapshot(channel)
		limit := parseIntQuery(r, "limit", len(items))
		if limit < len(items) && limit >= 0 {
			items = items[len(items)-limit:]
		}
		out := make([]messageView, 0, len(items))
		for _, item := range items {
			out = append(out, viewOfItem(item))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"messages": out})
	case http.MethodPost:
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
			http.Error(w, "text required", http.StatusBadRequest)
			return
		}
		h.chat.SendMessage(channel, req.Text)
		w.WriteHeader(http.StatusAccepted)
	case http.MethodDelete:
		h.chat.Clear(channel)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSuggest returns @-completion candidates for a prefix.
func (h *Handlers) handleSuggest(w http.ResponseWriter, r *http.Request, channel string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	prefix := r.URL.Query().Get("prefix")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"suggestions": h.chat.Suggest(channel, prefix)})
}

// handleStream pushes new chat items for the channel as Server-Sent Events.
func (h *Handlers) handleStream(w http.ResponseWriter, r *http.Request, channel string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates := h.chat.Subscribe()
	defer h.chat.Unsubscribe(updates)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ctx := r.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if upd.Channel != channel {
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				slog.Warn("failed to write SSE data prefix", slog.Any("err", err))
				return
			}
			if err := enc.Encode(viewOfItem(upd.Item)); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
