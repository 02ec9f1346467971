package repo

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/chat-tender/chat"
	"github.com/onnwee/chat-tender/emote"
	"github.com/onnwee/chat-tender/filter"
	"github.com/onnwee/chat-tender/irc"
	"github.com/onnwee/chat-tender/pubsub"
	"github.com/onnwee/chat-tender/telemetry"
)

// ConnectionState is the per-channel view of the transport.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnected
	StateConnectedNotLoggedIn
)

// Config carries the identity and behavior knobs of the orchestrator.
type Config struct {
	Username    string
	UserID      string
	Scrollback  int
	LoadHistory bool
}

// Recorder receives every message that survives the pipeline, e.g. for
// persisting chat logs. Implementations must not block.
type Recorder interface {
	Record(channel string, m chat.Message)
}

// Update is one change notification: a new or replaced item in a channel
// buffer.
type Update struct {
	Channel string
	Item    ChatItem
}

type channelData struct {
	name        string
	buffer      *Buffer
	threads     *threadTracker
	suggestions *UserSuggestions
	room        chat.RoomState
	state       ConnectionState
	mentions    int
	unread      bool
}

// Repository owns all per-channel chat state. A single dispatch goroutine
// consumes the merged event streams of the read connection, write
// connection, and push-event source; every buffer mutation happens on that
// goroutine (or under the same mutex for imperative operations), preserving
// the single-writer-per-channel invariant.
type Repository struct {
	cfg Config
	log *slog.Logger

	read  *irc.Conn
	write *irc.Conn
	push  pubsub.Source

	correlator *pubsub.Correlator
	ignores    *filter.IgnoreFilter
	highlights *filter.HighlightEngine
	displays   *filter.DisplayOverrides
	resolver   *emote.Resolver

	history  HistoryClient
	chatters ChattersClient
	recorder Recorder

	onChannelID      func(channel, channelID string)
	onChannelRemoved func(channel string)

	mu        sync.Mutex
	channels  map[string]*channelData
	active    string
	userState chat.UserState
	lastSent  map[string]string
	loggedIn  bool
	connected bool

	subsMu sync.Mutex
	subs   []chan Update

	// injected carries messages produced off the dispatch goroutine (reward
	// correlation results, history lines) back onto it.
	injected chan chat.Message
	done     chan struct{}
}

// Options bundles the collaborators; nil entries disable the concern.
type Options struct {
	Read       *irc.Conn
	Write      *irc.Conn
	Push       pubsub.Source
	Ignores    *filter.IgnoreFilter
	Highlights *filter.HighlightEngine
	Displays   *filter.DisplayOverrides
	Resolver   *emote.Resolver
	History    HistoryClient
	Chatters   ChattersClient
	Recorder   Recorder
	Logger     *slog.Logger

	// OnChannelID fires once per joined channel, when ROOMSTATE first
	// reveals the numeric channel id. Called on its own goroutine.
	OnChannelID func(channel, channelID string)
	// OnChannelRemoved fires after PartChannel has dropped the channel's
	// state, so channel-scoped caches elsewhere can be evicted too.
	OnChannelRemoved func(channel string)
}

func New(cfg Config, opts Options) *Repository {
	if cfg.Scrollback <= 0 {
		cfg.Scrollback = DefaultScrollback
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &Repository{
		cfg:        cfg,
		log:        log.With("component", "repo"),
		read:       opts.Read,
		write:      opts.Write,
		push:       opts.Push,
		correlator: pubsub.NewCorrelator(),
		ignores:    opts.Ignores,
		highlights: opts.Highlights,
		displays:   opts.Displays,
		resolver:   opts.Resolver,
		history:    opts.History,
		chatters:   opts.Chatters,
		recorder:   opts.Recorder,

		onChannelID:      opts.OnChannelID,
		onChannelRemoved: opts.OnChannelRemoved,
		channels:         make(map[string]*channelData),
		userState:        chat.NewUserState(),
		lastSent:         make(map[string]string),
		injected:         make(chan chat.Message, 64),
		done:             make(chan struct{}),
	}
	r.loggedIn = cfg.UserID != ""
	return r
}

// Run starts the connections and consumes their merged event streams until
// ctx is done. All buffer mutations funnel through this loop.
func (r *Repository) Run(ctx context.Context) {
	defer close(r.done)
	defer r.correlator.Stop()

	if r.read != nil {
		r.read.Connect(ctx)
	}
	if r.write != nil {
		r.write.Connect(ctx)
	}

	var readEvents, writeEvents <-chan irc.Event
	if r.read != nil {
		readEvents = r.read.Events()
	}
	if r.write != nil {
		writeEvents = r.write.Events()
	}
	var pushEvents <-chan pubsub.Event
	if r.push != nil {
		pushEvents = r.push.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-readEvents:
			if !ok {
				readEvents = nil
				continue
			}
			r.handleConnEvent(ctx, ev, false)
		case ev, ok := <-writeEvents:
			if !ok {
				writeEvents = nil
				continue
			}
			r.handleConnEvent(ctx, ev, true)
		case ev, ok := <-pushEvents:
			if !ok {
				pushEvents = nil
				continue
			}
			r.handlePushEvent(ev)
		case m := <-r.injected:
			r.mu.Lock()
			r.append(m)
			r.mu.Unlock()
		}
	}
}

// Done is closed when the dispatch loop has exited.
func (r *Repository) Done() <-chan struct{} { return r.done }

func (r *Repository) handleConnEvent(ctx context.Context, ev irc.Event, fromWrite bool) {
	switch ev.Type {
	case irc.EventConnected:
		if fromWrite {
			return
		}
		r.mu.Lock()
		r.connected = true
		kind := chat.SystemConnected
		if !r.loggedIn {
			kind = chat.SystemNotLoggedIn
		}
		for _, cd := range r.channels {
			wasDisconnected := cd.state == StateDisconnected
			if r.loggedIn {
				cd.state = StateConnected
			} else {
				cd.state = StateConnectedNotLoggedIn
			}
			if wasDisconnected {
				r.append(chat.NewSystemMessage(cd.name, kind))
			}
		}
		r.mu.Unlock()
	case irc.EventMessage:
		if ev.Message == nil {
			return
		}
		// The write connection's stream only contributes USERSTATE and
		// GLOBALUSERSTATE (the sender-side tags); its message echo is
		// ignored so nothing is double-appended.
		if fromWrite {
			switch ev.Message.Command {
			case "USERSTATE", "GLOBALUSERSTATE":
				r.dispatch(ctx, ev.Message)
			}
			return
		}
		r.dispatch(ctx, ev.Message)
	case irc.EventClosed, irc.EventError:
		if fromWrite {
			return
		}
		telemetry.IncDisconnects()
		r.mu.Lock()
		r.connected = false
		for _, cd := range r.channels {
			if cd.state != StateDisconnected {
				cd.state = StateDisconnected
				r.append(chat.NewSystemMessage(cd.name, chat.SystemDisconnected))
			}
		}
		r.mu.Unlock()
	case irc.EventLoginFailed:
		r.mu.Lock()
		r.loggedIn = false
		for _, cd := range r.channels {
			r.append(chat.NewSystemMessage(cd.name, chat.SystemLoginExpired))
		}
		r.mu.Unlock()
	case irc.EventChannelNonExistent:
		r.mu.Lock()
		if cd := r.channels[ev.Channel]; cd != nil {
			r.append(chat.NewSystemMessage(cd.name, chat.SystemChannelNonExistent))
		}
		r.mu.Unlock()
	}
}

// dispatch routes one inbound IRC line. State commands get dedicated
// handlers; the rest runs the full message pipeline.
func (r *Repository) dispatch(ctx context.Context, m *irc.Message) {
	switch m.Command {
	case "CLEARCHAT":
		r.handleClearChat(m)
	case "CLEARMSG":
		r.handleClearMsg(m)
	case "ROOMSTATE":
		var revealed func()
		r.mu.Lock()
		if cd := r.channels[m.Channel()]; cd != nil {
			hadID := cd.room.ChannelID != ""
			cd.room = cd.room.ApplyTags(m)
			if !hadID && cd.room.ChannelID != "" && r.onChannelID != nil {
				name, id := cd.name, cd.room.ChannelID
				revealed = func() { r.onChannelID(name, id) }
			}
		}
		r.mu.Unlock()
		if revealed != nil {
			go revealed()
		}
	case "USERSTATE":
		r.mu.Lock()
		r.userState = r.userState.ApplyUserState(m)
		r.mu.Unlock()
	case "GLOBALUSERSTATE":
		r.mu.Lock()
		r.userState = r.userState.ApplyGlobalUserState(m)
		r.mu.Unlock()
	case "WHISPER":
		r.handleWhisper(m)
	case "PRIVMSG":
		r.handlePriv(ctx, m)
	case "USERNOTICE":
		r.handleUserNotice(m)
	case "NOTICE":
		if n := chat.ParseNotice(m); n != nil {
			r.mu.Lock()
			r.append(n)
			r.mu.Unlock()
		}
	}
}

func (r *Repository) handlePriv(ctx context.Context, m *irc.Message) {
	p := chat.ParsePriv(m)
	if p == nil {
		telemetry.IncParseDropped()
		return
	}
	telemetry.IncParsed("privmsg")

	if p.RewardID != "" && !p.Historic {
		// The redemption event may not have arrived yet; wait off the
		// dispatch goroutine so other channels keep flowing.
		go func() {
			if red := r.correlator.Await(ctx, p.RewardID); red != nil {
				p.Reward = &red.Reward
				telemetry.IncRewardCorrelated()
			} else {
				telemetry.IncRewardTimeout()
			}
			select {
			case r.injected <- p:
			case <-r.done:
			}
		}()
		return
	}

	r.mu.Lock()
	r.append(p)
	r.mu.Unlock()
}

func (r *Repository) handleUserNotice(m *irc.Message) {
	u := chat.ParseUserNotice(m)
	if u == nil {
		telemetry.IncParseDropped()
		return
	}
	telemetry.IncParsed("usernotice")
	r.mu.Lock()
	r.append(u)
	r.mu.Unlock()
}

func (r *Repository) handleWhisper(m *irc.Message) {
	w := chat.ParseWhisper(m)
	if w == nil {
		telemetry.IncParseDropped()
		return
	}
	telemetry.IncParsed("whisper")
	r.mu.Lock()
	r.append(w)
	r.mu.Unlock()
}

func (r *Repository) handleClearChat(m *irc.Message) {
	mod := chat.ParseClearChat(m)
	if mod == nil {
		return
	}
	r.mu.Lock()
	r.applyModeration(mod)
	r.mu.Unlock()
}

func (r *Repository) handleClearMsg(m *irc.Message) {
	mod := chat.ParseClearMsg(m)
	if mod == nil {
		return
	}
	r.mu.Lock()
	r.applyModeration(mod)
	r.mu.Unlock()
}

func (r *Repository) handlePushEvent(ev pubsub.Event) {
	switch {
	case ev.Redemption != nil:
		red := *ev.Redemption
		if r.correlator.Offer(red) {
			return
		}
		// No text attached: emit the standalone redemption message.
		msg := &chat.PointRedemptionMessage{
			ID:          red.ID,
			Time:        red.Time,
			Channel:     red.Channel,
			UserID:      red.UserID,
			Name:        red.UserName,
			DisplayName: red.UserDisplayName,
			Reward:      red.Reward,
		}
		r.mu.Lock()
		r.append(msg)
		r.mu.Unlock()
	case ev.ModAction != nil:
		if mod := pubsub.NormalizeModeration(*ev.ModAction); mod != nil {
			r.mu.Lock()
			r.applyModeration(mod)
			r.mu.Unlock()
		}
	case ev.Whisper != nil:
		w := ev.Whisper
		msg := &chat.WhisperMessage{
			ID:          w.ID,
			Time:        w.Time,
			UserID:      w.UserID,
			Name:        w.UserName,
			DisplayName: w.DisplayName,
			Color:       w.Color,
			Content:     w.Text,
		}
		r.mu.Lock()
		r.append(msg)
		r.mu.Unlock()
	}
}

// applyModeration merges a moderation message into its channel: delete
// replaces the targeted message in place; ban/timeout/clear annotate matching
// buffered messages and then append (or fold into) a moderation entry.
// Caller holds r.mu.
func (r *Repository) applyModeration(mod *chat.ModerationMessage) {
	cd := r.channels[mod.Channel]
	if cd == nil {
		return
	}

	switch mod.Action {
	case chat.ActionDelete:
		// Replace the targeted message in place, keeping its position.
		if mod.TargetMsgID != "" {
			if p := cd.buffer.FindPriv(mod.TargetMsgID); p != nil {
				mod.TargetName = p.Name
				mod.TargetText = p.Content
			}
			if cd.buffer.Replace(mod.TargetMsgID, func(chat.Message) chat.Message {
				return mod
			}) {
				r.notifyReplaced(cd, mod.ID)
				return
			}
		}
	case chat.ActionTimeout, chat.ActionBan, chat.ActionClear:
		// Gray out the target's buffered lines (every line for a full clear).
		cd.buffer.Each(func(m chat.Message) chat.Message {
			p, ok := m.(*chat.PrivMessage)
			if !ok || p.Moderated {
				return nil
			}
			if mod.Action != chat.ActionClear {
				targeted := (mod.TargetID != "" && p.UserID == mod.TargetID) ||
					(mod.TargetName != "" && p.Name == mod.TargetName)
				if !targeted {
					return nil
				}
			}
			marked := *p
			marked.Moderated = true
			return &marked
		})
		if mod.Action == chat.ActionClear {
			break
		}
		// Fold repeated identical timeouts into the previous entry.
		if last, ok := cd.buffer.Last(); ok {
			if prev, isMod := last.Message.(*chat.ModerationMessage); isMod &&
				prev.Action == mod.Action &&
				prev.TargetName == mod.TargetName &&
				prev.Duration == mod.Duration {
				cd.buffer.Replace(prev.ID, func(m chat.Message) chat.Message {
					folded := *prev
					folded.Count++
					folded.Time = mod.Time
					return &folded
				})
				r.notifyReplaced(cd, prev.ID)
				return
			}
		}
	}
	item := cd.buffer.Add(mod)
	if r.recorder != nil {
		r.recorder.Record(cd.name, mod)
	}
	r.notify(cd.name, item)
}

// append runs the pipeline and adds the result to the right buffer(s).
// Caller holds r.mu.
func (r *Repository) append(m chat.Message) {
	m = r.runPipeline(m)
	if m == nil {
		return
	}

	// Account-wide notices fan out to every open channel.
	if m.TargetChannel() == chat.GlobalChannel {
		if _, isWhisper := m.(*chat.WhisperMessage); !isWhisper {
			for _, cd := range r.channels {
				item := cd.buffer.Add(m)
				r.notify(cd.name, item)
			}
			return
		}
		// Whispers live in the whisper tab keyed by the global marker.
	}

	cd := r.channels[m.TargetChannel()]
	if cd == nil {
		cd = r.createChannelData(m.TargetChannel())
	}
	item := cd.buffer.Add(m)
	r.trackMessage(cd, m)
	if r.recorder != nil {
		r.recorder.Record(cd.name, m)
	}
	r.notify(cd.name, item)
}

// runPipeline is the ordered stage chain: ignore -> thread -> highlight ->
// display -> emotes. Every stage is copy-on-write; nil means drop.
func (r *Repository) runPipeline(m chat.Message) chat.Message {
	if r.ignores != nil {
		if m = r.ignores.Apply(m); m == nil {
			telemetry.IncIgnored()
			return nil
		}
	}

	switch v := m.(type) {
	case *chat.PrivMessage:
		v = r.threadStage(v)
		if r.highlights != nil {
			v = r.highlights.Apply(v)
		}
		if r.displays != nil {
			v = r.displays.Apply(v)
		}
		if r.resolver != nil {
			v = r.resolver.ParseEmotesAndBadges(v)
		}
		return v
	case *chat.WhisperMessage:
		if r.displays != nil {
			v = r.displays.ApplyWhisper(v)
		}
		if r.resolver != nil {
			v = r.resolver.ParseWhisper(v)
		}
		return v
	case *chat.UserNoticeMessage:
		if v.Child != nil {
			child := v.Child
			if r.highlights != nil {
				child = r.highlights.Apply(child)
			}
			if r.displays != nil {
				child = r.displays.Apply(child)
			}
			if r.resolver != nil {
				child = r.resolver.ParseEmotesAndBadges(child)
			}
			out := *v
			out.Child = child
			return &out
		}
		return v
	default:
		return m
	}
}

func (r *Repository) threadStage(m *chat.PrivMessage) *chat.PrivMessage {
	cd := r.channels[m.Channel]
	if cd == nil {
		return m
	}
	return cd.threads.apply(m, cd.buffer.FindPriv)
}

// trackMessage updates suggestion caches and mention/unread counters.
// Caller holds r.mu.
func (r *Repository) trackMessage(cd *channelData, m chat.Message) {
	p, ok := m.(*chat.PrivMessage)
	if !ok {
		return
	}
	cd.suggestions.Seen(p.Name, p.DisplayName)
	if p.Historic || cd.name == r.active {
		return
	}
	if len(p.Highlights) > 0 {
		cd.mentions++
		telemetry.IncMention()
	}
	if !cd.unread {
		cd.unread = true
	}
}

// createChannelData builds the per-channel arena entry. Caller holds r.mu.
func (r *Repository) createChannelData(channel string) *channelData {
	channel = strings.ToLower(channel)
	// Channels joined after the connection came up inherit its state; the
	// Connected event only promotes channels that already exist.
	state := StateDisconnected
	if r.connected {
		state = StateConnectedNotLoggedIn
		if r.loggedIn {
			state = StateConnected
		}
	}
	cd := &channelData{
		name:        channel,
		threads:     newThreadTracker(r.cfg.Username),
		suggestions: NewUserSuggestions(),
		room:        chat.NewRoomState(channel),
		state:       state,
	}
	cd.buffer = NewBuffer(r.cfg.Scrollback, func(evicted ChatItem) {
		cd.threads.evict(evicted.Message.MessageID())
		telemetry.IncEvicted()
	})
	r.channels[channel] = cd
	return cd
}

// removeChannelData tears the entry down. Caller holds r.mu.
func (r *Repository) removeChannelData(channel string) {
	if cd := r.channels[channel]; cd != nil {
		cd.threads.reset()
		delete(r.channels, channel)
	}
	delete(r.lastSent, channel)
}

// JoinChannel joins on both connections, creates the channel state, and
// kicks off history and chatter loads.
func (r *Repository) JoinChannel(ctx context.Context, channel string) {
	channel = strings.ToLower(channel)
	r.mu.Lock()
	if _, exists := r.channels[channel]; exists {
		r.mu.Unlock()
		return
	}
	cd := r.createChannelData(channel)
	if cd.state != StateDisconnected {
		kind := chat.SystemConnected
		if cd.state == StateConnectedNotLoggedIn {
			kind = chat.SystemNotLoggedIn
		}
		r.append(chat.NewSystemMessage(channel, kind))
	}
	r.mu.Unlock()

	if r.read != nil {
		r.read.Join(channel)
	}
	if r.write != nil {
		r.write.Join(channel)
	}

	go r.loadHistory(ctx, channel, func(m chat.Message) {
		select {
		case r.injected <- m:
		case <-r.done:
		}
	})
	go r.loadChatters(ctx, channel)
}

// PartChannel leaves the channel and drops all its state.
func (r *Repository) PartChannel(channel string) {
	channel = strings.ToLower(channel)
	if r.read != nil {
		r.read.Part(channel)
	}
	if r.write != nil {
		r.write.Part(channel)
	}
	r.mu.Lock()
	r.removeChannelData(channel)
	r.mu.Unlock()
	if r.onChannelRemoved != nil {
		r.onChannelRemoved(channel)
	}
}

// SendMessage prepares and sends text to a channel via the write connection.
// Whisper commands additionally synthesize a local echo.
func (r *Repository) SendMessage(channel, text string) {
	text = strings.TrimSpace(text)
	if text == "" || r.write == nil {
		return
	}

	if target, body, ok := parseWhisperCommand(text); ok {
		r.write.Say(channel, text)
		r.mu.Lock()
		r.append(r.fakeWhisper(target, body))
		r.mu.Unlock()
		telemetry.IncSent("whisper")
		return
	}

	r.mu.Lock()
	wire := r.prepareMessage(channel, text)
	r.mu.Unlock()
	r.write.Say(channel, wire)
	telemetry.IncSent("privmsg")
}

// SendDelay returns the anti-throttle delay a caller should wait between
// consecutive sends to the channel. It is advice, not enforcement.
func (r *Repository) SendDelay(channel string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userState.SendDelay(channel)
}

// SetActiveChannel marks the foreground channel and clears its counters.
func (r *Repository) SetActiveChannel(channel string) {
	channel = strings.ToLower(channel)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = channel
	if cd := r.channels[channel]; cd != nil {
		cd.mentions = 0
		cd.unread = false
	}
}

// Clear empties a channel's buffer without leaving the channel.
func (r *Repository) Clear(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cd := r.channels[strings.ToLower(channel)]; cd != nil {
		cd.buffer.Clear()
		cd.threads.reset()
	}
}

// Reconnect nudges both connections; a no-op while they are connected.
func (r *Repository) Reconnect(ctx context.Context) {
	if r.read != nil {
		r.read.ReconnectIfNecessary(ctx)
	}
	if r.write != nil {
		r.write.ReconnectIfNecessary(ctx)
	}
}

// Snapshot returns a copy of the channel's buffer.
func (r *Repository) Snapshot(channel string) []ChatItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cd := r.channels[strings.ToLower(channel)]; cd != nil {
		return cd.buffer.Items()
	}
	return nil
}

// Channels lists the currently joined channels.
func (r *Repository) Channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.channels))
	for name := range r.channels {
		out = append(out, name)
	}
	return out
}

// ChannelState reports the channel's connection state and room state.
func (r *Repository) ChannelState(channel string) (ConnectionState, chat.RoomState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cd := r.channels[strings.ToLower(channel)]; cd != nil {
		return cd.state, cd.room
	}
	return StateDisconnected, chat.NewRoomState(channel)
}

// Mentions returns the per-channel mention counters.
func (r *Repository) Mentions() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.channels))
	for name, cd := range r.channels {
		if cd.mentions > 0 {
			out[name] = cd.mentions
		}
	}
	return out
}

// Unread returns the channels holding unseen messages.
func (r *Repository) Unread() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.channels))
	for name, cd := range r.channels {
		if cd.unread {
			out[name] = true
		}
	}
	return out
}

// Suggest returns @-completion candidates for the channel.
func (r *Repository) Suggest(channel, prefix string) []string {
	r.mu.Lock()
	cd := r.channels[strings.ToLower(channel)]
	r.mu.Unlock()
	if cd == nil {
		return nil
	}
	return cd.suggestions.Match(prefix)
}

// Subscribe returns a channel receiving every buffer update. Slow consumers
// miss updates rather than stalling dispatch.
func (r *Repository) Subscribe() <-chan Update {
	ch := make(chan Update, 256)
	r.subsMu.Lock()
	r.subs = append(r.subs, ch)
	r.subsMu.Unlock()
	return ch
}

// Unsubscribe detaches a channel returned by Subscribe and closes it.
func (r *Repository) Unsubscribe(ch <-chan Update) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for i, sub := range r.subs {
		if sub == ch {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// notifyReplaced re-announces an in-place replaced item. Caller holds r.mu.
func (r *Repository) notifyReplaced(cd *channelData, id string) {
	for _, item := range cd.buffer.Items() {
		if item.Message.MessageID() == id {
			r.notify(cd.name, item)
			return
		}
	}
}

func (r *Repository) notify(channel string, item ChatItem) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- Update{Channel: channel, Item: item}:
		default:
		}
	}
}
