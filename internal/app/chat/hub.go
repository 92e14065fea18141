/*
Package chat contains the realtime broadcast engine.

This file defines the Hub, the single owner of the subscriber list, the Presence registry and
the TypingSet. All of that state is touched only by the Run loop; other goroutines talk to the
Hub through its channels, so mutations are serialized and broadcasts leave in the order the
loop accepted them.
*/
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"babelchat/internal/app/user"
	"babelchat/internal/pkg/logx"
)

const (
	commandBuffer = 1024

	// lastSeenTimeout bounds the write of a last-seen timestamp after a user goes offline.
	lastSeenTimeout = 5 * time.Second
)

// ErrHubStopped is returned by queries made after the Hub loop exited.
var ErrHubStopped = errors.New("hub stopped")

// Conn is a registered connection as seen by the Hub.
type Conn interface {
	// ID is unique per connection, not per user.
	ID() string
	Profile() user.Profile
	// Enqueue queues a frame without blocking and reports whether it was accepted.
	Enqueue(frame []byte) bool
	// Close terminates the connection with a websocket close code.
	Close(code int, reason string)
}

// LastSeenRecorder persists the moment a user went offline.
type LastSeenRecorder interface {
	TouchLastSeen(ctx context.Context, userID string, at time.Time) error
}

// Snapshot is a consistent view of the realtime state.
type Snapshot struct {
	OnlineUserIDs []string
	Typing        TypingUpdate
}

// hubCommand is one unit of work for the Run loop.
type hubCommand interface {
	hubCommand()
}

type registerCmd struct{ conn Conn }

type unregisterCmd struct{ conn Conn }

type publishCmd struct {
	events []OutboundEvent
	// clearTypingFor removes that user from the typing set after the events are sent.
	clearTypingFor string
}

type typingCmd struct {
	conn  Conn
	start bool
}

type directCmd struct {
	conn  Conn
	event OutboundEvent
}

type blockCmd struct {
	userID  string
	blocked bool
}

type snapshotCmd struct {
	reply chan Snapshot
}

func (registerCmd) hubCommand()   {}
func (unregisterCmd) hubCommand() {}
func (publishCmd) hubCommand()    {}
func (typingCmd) hubCommand()     {}
func (directCmd) hubCommand()     {}
func (blockCmd) hubCommand()      {}
func (snapshotCmd) hubCommand()   {}

// Hub fans events out to every registered connection.
type Hub struct {
	presence    *Presence
	typing      *TypingSet
	subscribers map[string]Conn
	blocked     map[string]struct{}

	// commands is a single FIFO queue, so commands submitted by one goroutine
	// are applied in submission order whatever their kind.
	commands chan hubCommand

	typingTTL time.Duration
	lastSeen  LastSeenRecorder
	now       func() time.Time

	stop chan struct{}
	done chan struct{}

	// started is claimed by whichever of Run or Stop comes first; the claimant owns closing done.
	started  sync.Once
	stopOnce sync.Once

	logger zerolog.Logger
}

// HubOption configures optional Hub behavior.
type HubOption func(*Hub)

// WithTypingTTL expires typing entries that were not refreshed within ttl. Zero disables expiry.
func WithTypingTTL(ttl time.Duration) HubOption {
	return func(h *Hub) { h.typingTTL = ttl }
}

// WithLastSeenRecorder persists last-seen timestamps when users go offline.
func WithLastSeenRecorder(r LastSeenRecorder) HubOption {
	return func(h *Hub) { h.lastSeen = r }
}

func withClock(now func() time.Time) HubOption {
	return func(h *Hub) { h.now = now }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		presence:    NewPresence(),
		typing:      NewTypingSet(),
		subscribers: make(map[string]Conn),
		blocked:     make(map[string]struct{}),
		commands:    make(chan hubCommand, commandBuffer),
		now:         time.Now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logx.Component("Hub"),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Run is the event loop. It returns after Stop, closing every remaining connection.
// Run after Stop returns immediately.
func (h *Hub) Run() {
	owner := false
	h.started.Do(func() { owner = true })
	if !owner {
		return
	}
	defer close(h.done)

	var sweep <-chan time.Time
	if h.typingTTL > 0 {
		ticker := time.NewTicker(h.typingTTL / 2)
		defer ticker.Stop()
		sweep = ticker.C
	}

	h.logger.Info().Dur("typing_ttl", h.typingTTL).Msg("Hub loop started.")

	for {
		select {
		case cmd := <-h.commands:
			h.apply(cmd)

		case <-sweep:
			if expired := h.typing.Expire(h.now().Add(-h.typingTTL)); len(expired) > 0 {
				h.logger.Debug().Strs("user_ids", expired).Msg("Typing entries expired.")
				h.broadcast(h.typing.Names())
			}

		case <-h.stop:
			h.logger.Info().Int("connections", len(h.subscribers)).Msg("Hub stopping, closing connections.")
			for _, c := range h.subscribers {
				c.Close(CloseGoingAway, "server shutting down")
			}
			return
		}
	}
}

// Stop terminates Run and waits for it to return. Stopping a Hub whose Run never started
// does not block.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	h.started.Do(func() { close(h.done) })
	<-h.done
}

func (h *Hub) apply(cmd hubCommand) {
	switch cmd := cmd.(type) {
	case registerCmd:
		h.handleRegister(cmd.conn)

	case unregisterCmd:
		h.removeConn(cmd.conn, "disconnected")

	case publishCmd:
		for _, ev := range cmd.events {
			h.broadcast(ev)
		}
		if cmd.clearTypingFor != "" {
			h.typing.Stop(cmd.clearTypingFor)
			h.broadcast(h.typing.Names())
		}

	case typingCmd:
		h.handleTyping(cmd)

	case directCmd:
		if _, ok := h.subscribers[cmd.conn.ID()]; ok {
			h.deliver(cmd.conn, cmd.event)
		}

	case blockCmd:
		h.handleBlock(cmd)

	case snapshotCmd:
		cmd.reply <- Snapshot{
			OnlineUserIDs: h.presence.OnlineUserIDs(),
			Typing:        h.typing.Names(),
		}
	}
}

func (h *Hub) handleRegister(c Conn) {
	profile := c.Profile()

	if _, ok := h.blocked[profile.ID]; ok {
		h.logger.Warn().Str("user_id", profile.ID).Msg("Rejected registration of blocked user.")
		c.Close(CloseForbidden, "account blocked")
		return
	}

	h.subscribers[c.ID()] = c
	firstConn, firstSeen := h.presence.Register(profile, c.ID())

	h.logger.Info().
		Str("user_id", profile.ID).
		Str("conn_id", c.ID()).
		Int("user_connections", h.presence.ConnectionCount(profile.ID)).
		Int("total_connections", len(h.subscribers)).
		Msg("Connection registered.")

	h.deliver(c, SessionReady{
		User:          profile,
		OnlineUserIDs: h.presence.OnlineUserIDs(),
		Typing:        h.typing.Names(),
	})

	if firstConn {
		h.broadcast(UserStatus{
			UserID:      profile.ID,
			DisplayName: profile.DisplayName,
			Online:      true,
			Avatar:      profile.Avatar,
		})
	}

	if firstSeen {
		h.broadcast(UserNew{
			ID:                profile.ID,
			DisplayName:       profile.DisplayName,
			Online:            true,
			Avatar:            profile.Avatar,
			PreferredLanguage: profile.PreferredLanguage,
		})
	}
}

// removeConn drops c from the subscriber list and the registry. Unknown or stale connections are ignored,
// so a connection is cleaned up exactly once however many paths request it.
func (h *Hub) removeConn(c Conn, reason string) {
	if current, ok := h.subscribers[c.ID()]; !ok || current != c {
		return
	}
	delete(h.subscribers, c.ID())

	profile := c.Profile()
	entry, wentOffline := h.presence.Unregister(profile.ID, c.ID(), h.now())

	h.logger.Info().
		Str("user_id", profile.ID).
		Str("conn_id", c.ID()).
		Str("reason", reason).
		Bool("went_offline", wentOffline).
		Int("total_connections", len(h.subscribers)).
		Msg("Connection unregistered.")

	h.typing.Stop(profile.ID)
	h.broadcast(h.typing.Names())

	if !wentOffline {
		return
	}

	lastSeen := entry.LastSeen
	h.broadcast(UserStatus{
		UserID:      profile.ID,
		DisplayName: profile.DisplayName,
		Online:      false,
		LastSeen:    &lastSeen,
	})

	if h.lastSeen != nil {
		go h.recordLastSeen(profile.ID, lastSeen)
	}
}

func (h *Hub) recordLastSeen(userID string, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), lastSeenTimeout)
	defer cancel()

	if err := h.lastSeen.TouchLastSeen(ctx, userID, at); err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to persist last-seen.")
	}
}

func (h *Hub) handleTyping(cmd typingCmd) {
	if _, ok := h.subscribers[cmd.conn.ID()]; !ok {
		return
	}

	profile := cmd.conn.Profile()
	if cmd.start {
		h.typing.Start(profile.ID, profile.DisplayName, h.now())
	} else {
		h.typing.Stop(profile.ID)
	}

	h.broadcast(h.typing.Names())
}

func (h *Hub) handleBlock(cmd blockCmd) {
	if !cmd.blocked {
		delete(h.blocked, cmd.userID)
		return
	}

	h.blocked[cmd.userID] = struct{}{}

	for _, connID := range h.presence.Connections(cmd.userID) {
		c, ok := h.subscribers[connID]
		if !ok {
			continue
		}
		c.Close(CloseForbidden, "account blocked")
		h.removeConn(c, "blocked")
	}
}

// broadcast sends ev to every subscriber. Subscribers whose queue is full are closed and removed.
func (h *Hub) broadcast(ev OutboundEvent) {
	frame, err := Encode(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(ev.EventType())).Msg("Failed to encode broadcast.")
		return
	}

	var slow []Conn
	for _, c := range h.subscribers {
		if !c.Enqueue(frame) {
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		h.logger.Warn().Str("conn_id", c.ID()).Msg("Send queue full, dropping subscriber.")
		c.Close(ClosePolicyViolation, "send queue full")
		h.removeConn(c, "slow consumer")
	}
}

func (h *Hub) deliver(c Conn, ev OutboundEvent) {
	frame, err := Encode(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(ev.EventType())).Msg("Failed to encode event.")
		return
	}

	if !c.Enqueue(frame) {
		h.logger.Warn().Str("conn_id", c.ID()).Msg("Send queue full, dropping subscriber.")
		c.Close(ClosePolicyViolation, "send queue full")
		h.removeConn(c, "slow consumer")
	}
}

// Register adds c to the subscriber list. It returns false when the Hub has stopped.
func (h *Hub) Register(c Conn) bool {
	return h.submit(registerCmd{conn: c})
}

// Unregister removes c. Calling it more than once, or for a connection that was never registered, is a no-op.
func (h *Hub) Unregister(c Conn) {
	h.submit(unregisterCmd{conn: c})
}

// Publish broadcasts events in order to every subscriber.
func (h *Hub) Publish(events ...OutboundEvent) {
	h.submit(publishCmd{events: events})
}

// PublishAndClearTyping broadcasts ev, then removes userID from the typing set and broadcasts the new set.
func (h *Hub) PublishAndClearTyping(ev OutboundEvent, userID string) {
	h.submit(publishCmd{events: []OutboundEvent{ev}, clearTypingFor: userID})
}

// StartTyping marks the user behind c as typing.
func (h *Hub) StartTyping(c Conn) {
	h.submit(typingCmd{conn: c, start: true})
}

// StopTyping removes the user behind c from the typing set.
func (h *Hub) StopTyping(c Conn) {
	h.submit(typingCmd{conn: c, start: false})
}

// SendTo delivers ev to c only, if c is still registered.
func (h *Hub) SendTo(c Conn, ev OutboundEvent) {
	h.submit(directCmd{conn: c, event: ev})
}

// Block closes every connection of userID and rejects its future registrations until Unblock.
func (h *Hub) Block(userID string) {
	h.submit(blockCmd{userID: userID, blocked: true})
}

func (h *Hub) Unblock(userID string) {
	h.submit(blockCmd{userID: userID, blocked: false})
}

// Snapshot returns the current online users and typing set. Commands submitted earlier
// by the calling goroutine are applied before the snapshot is taken.
func (h *Hub) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)

	if !h.submitCtx(ctx, snapshotCmd{reply: reply}) {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}
		return Snapshot{}, ErrHubStopped
	}

	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return Snapshot{}, ErrHubStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (h *Hub) submitCtx(ctx context.Context, cmd hubCommand) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.commands <- cmd:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) submit(cmd hubCommand) bool {
	return h.submitCtx(context.Background(), cmd)
}
