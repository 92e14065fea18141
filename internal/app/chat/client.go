/*
Package chat contains the realtime broadcast engine.

This file defines the Client, one authenticated websocket connection. ReadPump handles each
inbound event to completion before reading the next one; WritePump drains the send queue and
keeps the connection alive with pings.
*/
package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"babelchat/internal/app/user"
	"babelchat/internal/pkg/errs"
	"babelchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 16 << 10

	// sendQueueSize is the number of outbound frames buffered per connection.
	sendQueueSize = 256

	// eventTimeout bounds the store calls made for one inbound event.
	eventTimeout = 10 * time.Second
)

// Close codes sent to clients.
const (
	CloseGoingAway       = websocket.CloseGoingAway
	ClosePolicyViolation = websocket.ClosePolicyViolation
	CloseTryAgainLater   = websocket.CloseTryAgainLater
	CloseUnauthenticated = 4401
	CloseForbidden       = 4403
)

// State is the lifecycle stage of a Client.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client represents an authenticated WebSocket connection and its user.
type Client struct {
	id      string
	conn    *websocket.Conn
	profile user.Profile
	engine  *Engine

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// closed when the connection is shutting down; send is never closed.
	done        chan struct{}
	closeOnce   sync.Once
	closeCode   int
	closeReason string

	cleanupOnce sync.Once
	state       atomic.Int32

	// structured logger with client context.
	logger zerolog.Logger
}

// NewClient wraps an authenticated connection for u.
func NewClient(conn *websocket.Conn, u *user.User, engine *Engine) *Client {
	id := uuid.NewString()

	c := &Client{
		id:      id,
		conn:    conn,
		profile: u.Profile(),
		engine:  engine,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		logger: logx.Logger().With().
			Str("component", "Client").
			Str("user_id", u.ID).
			Str("conn_id", id).
			Logger(),
	}
	c.state.Store(int32(StateAuthenticated))

	return c
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Profile() user.Profile {
	return c.profile
}

func (c *Client) State() State {
	return State(c.state.Load())
}

// Enqueue implements Conn. It never blocks.
func (c *Client) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close starts shutting the connection down. WritePump sends the close frame; only the first call counts.
func (c *Client) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		c.state.Store(int32(StateClosed))
		close(c.done)
	})
}

// Serve registers the client with the Hub and runs both pumps. It returns when the connection is closed.
func (c *Client) Serve() {
	hub := c.engine.Hub()

	go c.WritePump()

	if !hub.Register(c) {
		c.Close(CloseGoingAway, "server shutting down")
		c.cleanup()
		return
	}

	c.state.CompareAndSwap(int32(StateAuthenticated), int32(StateActive))
	c.logger.Info().Msg("Client active.")

	c.ReadPump()
}

// ReadPump handles reading events from the WebSocket connection.
// It handles heartbeats (Pong), event decoding, and performs cleanup upon connection closure.
func (c *Client) ReadPump() {
	defer c.cleanup()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		if c.State() == StateClosed {
			return
		}

		c.processFrame(frame)
	}
}

func (c *Client) processFrame(frame []byte) {
	ev, err := DecodeInbound(frame)
	if err != nil {
		c.logger.Warn().Err(err).Int("frame_bytes", len(frame)).Msg("Client sent invalid event")
		c.engine.report(c, errs.NewError(errs.ErrInvalidEvent))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	c.engine.Handle(ctx, c, ev)
}

// cleanup runs once per connection, however ReadPump ended.
func (c *Client) cleanup() {
	c.cleanupOnce.Do(func() {
		c.logger.Info().Msg("Client connection cleanup starting.")

		c.Close(CloseGoingAway, "")
		c.engine.Hub().Unregister(c)
	})
}

// WritePump handles writing frames from the send queue to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				c.Close(CloseGoingAway, "")
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				c.Close(CloseGoingAway, "")
				return
			}

		case <-c.done:
			c.flush()
			c.writeClose()
			return
		}
	}
}

// flush writes frames already queued when the connection started closing.
func (c *Client) flush() {
	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

func (c *Client) writeClose() {
	c.logger.Info().
		Int("close_code", c.closeCode).
		Str("reason", c.closeReason).
		Msg("Sending WS close message.")

	msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to send WS close message.")
	}
}
