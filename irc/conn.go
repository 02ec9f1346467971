package irc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// DefaultEndpoint is the Twitch IRC-over-WebSocket endpoint.
const DefaultEndpoint = "wss://irc-ws.chat.twitch.tv"

// EventType discriminates connection events.
type EventType int

const (
	EventConnected EventType = iota
	EventMessage
	EventClosed
	EventError
	EventLoginFailed
	EventChannelNonExistent
)

// Event is one entry of a connection's ordered event stream.
type Event struct {
	Type    EventType
	Message *Message
	Channel string
	Err     error
}

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
	stateClosed
)

// Config carries the connection settings. An empty Token logs in anonymously
// (justinfan), which Twitch accepts for read-only connections.
type Config struct {
	Endpoint string
	Login    string
	Token    string

	// WritesPerSecond meters outbound lines. Zero applies the Twitch default
	// of 20 messages per 30 seconds for regular users.
	WritesPerSecond rate.Limit
	WriteBurst      int
}

// Conn is a single reconnecting IRC connection. The chat repository runs two
// of these: one read connection carrying the channel traffic and one write
// connection carrying sends and their USERSTATE echoes.
type Conn struct {
	cfg    Config
	events chan Event

	mu      sync.Mutex
	state   connState
	ws      *websocket.Conn
	cancel  context.CancelFunc
	joined  map[string]struct{}
	limiter *rate.Limiter
	out     chan string
}

// NewConn builds a connection; no network activity happens until Connect.
func NewConn(cfg Config) *Conn {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Login == "" {
		cfg.Login = fmt.Sprintf("justinfan%d", time.Now().Unix()%100000)
	}
	if cfg.WritesPerSecond == 0 {
		cfg.WritesPerSecond = rate.Limit(20.0 / 30.0)
	}
	if cfg.WriteBurst == 0 {
		cfg.WriteBurst = 20
	}
	return &Conn{
		cfg:     cfg,
		events:  make(chan Event, 64),
		joined:  make(map[string]struct{}),
		limiter: rate.NewLimiter(cfg.WritesPerSecond, cfg.WriteBurst),
		out:     make(chan string, 128),
	}
}

// Events returns the ordered event stream for this connection.
func (c *Conn) Events() <-chan Event { return c.events }

// SetToken replaces the OAuth token used at login. A live session keeps its
// current authentication; the new token applies on the next (re)connect.
func (c *Conn) SetToken(token string) {
	c.mu.Lock()
	c.cfg.Token = token
	c.mu.Unlock()
}

// Connect starts the connection session. Calling it while already connecting
// or connected is a no-op. After Close, Connect may be called again to start
// a fresh session.
func (c *Conn) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.state == stateConnecting || c.state == stateConnected {
		c.mu.Unlock()
		return
	}
	c.state = stateConnecting
	sessCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	go c.run(sessCtx)
}

// ReconnectIfNecessary re-establishes the session when it has dropped. It is
// idempotent: while connected it does nothing and emits nothing.
func (c *Conn) ReconnectIfNecessary(ctx context.Context) {
	c.mu.Lock()
	if c.state == stateConnecting || c.state == stateConnected {
		c.mu.Unlock()
		return
	}
	if c.state == stateClosed {
		c.state = stateDisconnected
	}
	c.mu.Unlock()
	c.Connect(ctx)
}

// Close terminates the session. Terminal: no automatic retry happens until
// Connect is explicitly called again. Closing an already closed connection is
// a no-op.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	c.state = stateClosed
	cancel := c.cancel
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if ws != nil {
		_ = ws.Close()
	}
	c.emit(Event{Type: EventClosed})
}

// Join subscribes the connection to one or more channels. Channels are
// remembered and re-joined after a reconnect.
func (c *Conn) Join(channels ...string) {
	c.mu.Lock()
	for _, ch := range channels {
		c.joined[strings.ToLower(ch)] = struct{}{}
	}
	connected := c.state == stateConnected
	c.mu.Unlock()
	if connected {
		c.queueJoin(channels)
	}
}

// Part unsubscribes from a channel.
func (c *Conn) Part(channel string) {
	channel = strings.ToLower(channel)
	c.mu.Lock()
	delete(c.joined, channel)
	connected := c.state == stateConnected
	c.mu.Unlock()
	if connected {
		c.Send("PART #" + channel)
	}
}

// Say sends a PRIVMSG to a channel.
func (c *Conn) Say(channel, text string) {
	c.Send(fmt.Sprintf("PRIVMSG #%s :%s", strings.ToLower(channel), text))
}

// Send queues a raw IRC line. Lines are metered by the write limiter; when
// the outbound queue is full the line is dropped rather than blocking the
// dispatch loop.
func (c *Conn) Send(raw string) {
	select {
	case c.out <- raw:
	default:
		slog.Warn("irc outbound queue full, dropping line", slog.String("login", c.cfg.Login))
	}
}

func (c *Conn) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		// Receiver has stalled; dropping beats deadlocking the socket pumps.
		slog.Warn("irc event queue full, dropping event", slog.Int("type", int(ev.Type)))
	}
}

// run is one connection session: dial, handshake, pump until failure, then
// retry immediately unless the session context was cancelled (Close).
func (c *Conn) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		err := c.dialAndPump(ctx)
		c.mu.Lock()
		closed := c.state == stateClosed
		if !closed {
			c.state = stateConnecting
		}
		c.mu.Unlock()
		if closed || ctx.Err() != nil {
			return
		}
		if err != nil {
			c.emit(Event{Type: EventError, Err: err})
		}
	}
}

func (c *Conn) dialAndPump(ctx context.Context) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.Endpoint, err)
	}
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		_ = ws.Close()
		return nil
	}
	c.ws = ws
	token := c.cfg.Token
	c.mu.Unlock()

	send := func(line string) error {
		return ws.WriteMessage(websocket.TextMessage, []byte(line))
	}
	if err := send("CAP REQ :twitch.tv/tags twitch.tv/commands"); err != nil {
		return err
	}
	if token != "" {
		tok := token
		if !strings.HasPrefix(tok, "oauth:") {
			tok = "oauth:" + tok
		}
		if err := send("PASS " + tok); err != nil {
			return err
		}
	}
	if err := send("NICK " + c.cfg.Login); err != nil {
		return err
	}

	pumpCtx, cancelPump := context.WithCancel(ctx)
	defer cancelPump()
	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-pumpCtx.Done():
				return
			case line := <-c.out:
				if err := c.limiter.Wait(pumpCtx); err != nil {
					return
				}
				if err := ws.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
					select {
					case writeErr <- err:
					default:
					}
					return
				}
			}
		}
	}()

	for {
		select {
		case err := <-writeErr:
			_ = ws.Close()
			return err
		default:
		}
		_, payload, err := ws.ReadMessage()
		if err != nil {
			_ = ws.Close()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		for _, line := range strings.Split(string(payload), "\r\n") {
			if line == "" {
				continue
			}
			c.handleLine(line)
		}
	}
}

func (c *Conn) handleLine(line string) {
	msg := ParseMessage(line)
	switch msg.Command {
	case "PING":
		c.Send("PONG :" + msg.Trailing())
		return
	case "001":
		c.mu.Lock()
		c.state = stateConnected
		joined := make([]string, 0, len(c.joined))
		for ch := range c.joined {
			joined = append(joined, ch)
		}
		c.mu.Unlock()
		c.emit(Event{Type: EventConnected})
		c.queueJoin(joined)
		return
	case "RECONNECT":
		// Server asks us to cycle; dropping the socket lets run() redial.
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws != nil {
			_ = ws.Close()
		}
		return
	case "NOTICE":
		switch msg.Tag("msg-id") {
		case "msg_channel_suspended", "tos_ban":
			c.emit(Event{Type: EventChannelNonExistent, Channel: msg.Channel(), Message: msg})
			return
		}
		if msg.Tag("msg-id") == "" && strings.Contains(msg.Trailing(), "Login authentication failed") {
			c.emit(Event{Type: EventLoginFailed, Message: msg})
			c.Close()
			return
		}
	}
	c.emit(Event{Type: EventMessage, Message: msg})
}

func (c *Conn) queueJoin(channels []string) {
	// Twitch caps JOINs per 10s window; batching a handful per line keeps
	// join storms inside the write limiter's budget.
	const perLine = 8
	for len(channels) > 0 {
		n := min(perLine, len(channels))
		parts := make([]string, 0, n)
		for _, ch := range channels[:n] {
			parts = append(parts, "#"+strings.ToLower(ch))
		}
		c.Send("JOIN " + strings.Join(parts, ","))
		channels = channels[n:]
	}
}
