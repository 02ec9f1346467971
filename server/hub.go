package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced by the outer middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains the set of active WebSocket clients and fans every chat
// update out to them. Inbound client frames carry commands (join, part,
// send, active) that are applied to the chat service.
type Hub struct {
	chat ChatService
	// ctx outlives individual requests; hijacked WebSocket request contexts
	// are cancelled as soon as the handler returns.
	ctx context.Context

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte

	mu      sync.Mutex
	clients map[*wsClient]bool
}

// clientCommand is the expected format of frames from clients.
type clientCommand struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text,omitempty"`
}

// NewHub creates a Hub bound to the chat service.
func NewHub(ctx context.Context, svc ChatService) *Hub {
	return &Hub{
		chat:       svc,
		ctx:        ctx,
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[*wsClient]bool),
	}
}

// Run consumes chat updates and hub bookkeeping until the hub's context is
// done. It should be called in a goroutine.
func (h *Hub) Run() {
	ctx := h.ctx
	updates := h.chat.Subscribe()
	defer h.chat.Unsubscribe(updates)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				frame, err := json.Marshal(viewOfItem(upd.Item))
				if err != nil {
					continue
				}
				select {
				case h.broadcast <- frame:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			slog.Debug("websocket client connected", slog.Int("total", h.clientCount()))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			slog.Debug("websocket client disconnected", slog.Int("total", h.clientCount()))
		case frame := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- frame:
				default:
					// Slow consumer: drop it rather than stalling the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// ServeWS upgrades the request and attaches the client to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	client := &wsClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.register <- client
	go client.writePump()
	go client.readPump()
}

// wsClient represents a single WebSocket connection.
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump pumps command frames from the WebSocket connection to the chat
// service. Runs in its own goroutine per client.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", slog.Any("err", err))
			}
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(frame, &cmd); err != nil {
			continue
		}
		c.apply(cmd)
	}
}

func (c *wsClient) apply(cmd clientCommand) {
	channel := strings.ToLower(strings.TrimSpace(cmd.Channel))
	switch cmd.Type {
	case "join":
		if channel != "" {
			c.hub.chat.JoinChannel(c.hub.ctx, channel)
		}
	case "part":
		if channel != "" {
			c.hub.chat.PartChannel(channel)
		}
	case "send":
		if channel != "" && cmd.Text != "" {
			c.hub.chat.SendMessage(channel, cmd.Text)
		}
	case "active":
		c.hub.chat.SetActiveChannel(channel)
	case "clear":
		if channel != "" {
			c.hub.chat.Clear(channel)
		}
	}
}

// writePump pumps frames from the hub to the WebSocket connection. Runs in
// its own goroutine per client.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Each update goes out as its own frame so clients can parse
			// them independently.
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
