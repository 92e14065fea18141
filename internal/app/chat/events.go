/*
Package chat contains the realtime broadcast engine: connection handling, presence and typing state,
and fan-out of message events to every connected client.

This file defines the wire events. Every frame is an envelope {"type": ..., "payload": ...}.
Inbound and outbound events are closed sets: each kind is a distinct Go type and the sets are
sealed with unexported marker methods.
*/
package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"babelchat/internal/app/message"
	"babelchat/internal/app/user"
)

// EventType is the "type" field of a frame.
type EventType string

// Inbound event types.
const (
	TypeAuth          EventType = "auth"
	TypeMessageSend   EventType = "message:send"
	TypeMessageEdit   EventType = "message:edit"
	TypeMessageDelete EventType = "message:delete"
	TypeTypingStart   EventType = "typing:start"
	TypeTypingStop    EventType = "typing:stop"
)

// Outbound event types.
const (
	TypeUserNew        EventType = "user:new"
	TypeUserStatus     EventType = "user:status"
	TypeMessageNew     EventType = "message:new"
	TypeMessageEdited  EventType = "message:edited"
	TypeMessageDeleted EventType = "message:deleted"
	TypeTypingUpdate   EventType = "typing:update"
	TypeError          EventType = "error"
	TypeSessionReady   EventType = "session:ready"
)

var (
	// ErrMalformedFrame is returned for frames that are not a JSON envelope.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownEvent is returned for an envelope with an unsupported type.
	ErrUnknownEvent = errors.New("unknown event type")
)

type envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageID accepts a JSON number or a numeric string.
type MessageID int64

func (id *MessageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil || n <= 0 {
		return fmt.Errorf("invalid message id %q", data)
	}

	*id = MessageID(n)
	return nil
}

// InboundEvent is one of AuthEvent, SendEvent, EditEvent, DeleteEvent, TypingStartEvent or TypingStopEvent.
type InboundEvent interface {
	inbound()
}

// AuthEvent carries the bearer credential when it is not presented in the upgrade request.
type AuthEvent struct {
	Token string `json:"token"`
}

type SendEvent struct {
	Text string `json:"text"`
}

type EditEvent struct {
	MessageID MessageID `json:"messageId"`
	Text      string    `json:"text"`
}

type DeleteEvent struct {
	MessageID MessageID
}

type TypingStartEvent struct{}

type TypingStopEvent struct{}

func (AuthEvent) inbound()        {}
func (SendEvent) inbound()        {}
func (EditEvent) inbound()        {}
func (DeleteEvent) inbound()      {}
func (TypingStartEvent) inbound() {}
func (TypingStopEvent) inbound()  {}

// DecodeInbound parses a client frame into its typed event.
func DecodeInbound(frame []byte) (InboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch env.Type {
	case TypeAuth:
		var ev AuthEvent
		return ev, decodePayload(env, &ev)

	case TypeMessageSend:
		var ev SendEvent
		return ev, decodePayload(env, &ev)

	case TypeMessageEdit:
		var ev EditEvent
		if err := decodePayload(env, &ev); err != nil {
			return nil, err
		}
		if ev.MessageID == 0 {
			return nil, fmt.Errorf("%w: %s without messageId", ErrMalformedFrame, env.Type)
		}
		return ev, nil

	case TypeMessageDelete:
		return decodeDelete(env)

	case TypeTypingStart:
		return TypingStartEvent{}, nil

	case TypeTypingStop:
		return TypingStopEvent{}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

// decodeDelete accepts a bare id or {"messageId": id}.
func decodeDelete(env envelope) (InboundEvent, error) {
	var ev DeleteEvent
	if err := json.Unmarshal(env.Payload, &ev.MessageID); err == nil {
		return ev, nil
	}

	var wrapped struct {
		MessageID MessageID `json:"messageId"`
	}
	if err := decodePayload(env, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.MessageID == 0 {
		return nil, fmt.Errorf("%w: %s without messageId", ErrMalformedFrame, env.Type)
	}

	ev.MessageID = wrapped.MessageID
	return ev, nil
}

func decodePayload(env envelope, dst any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s without payload", ErrMalformedFrame, env.Type)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedFrame, env.Type, err)
	}
	return nil
}

// OutboundEvent is an event the server sends to clients.
type OutboundEvent interface {
	EventType() EventType
}

// UserNew announces a user seen for the first time since the process started.
type UserNew struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Online            bool   `json:"online"`
	Avatar            string `json:"avatar,omitempty"`
	PreferredLanguage string `json:"preferredLanguage"`
}

type UserStatus struct {
	UserID      string     `json:"userId"`
	DisplayName string     `json:"displayName"`
	Online      bool       `json:"online"`
	Avatar      string     `json:"avatar,omitempty"`
	LastSeen    *time.Time `json:"lastSeen,omitempty"`
}

type MessageNew struct {
	message.Message
}

type MessageEdited struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	IsEdited bool   `json:"isEdited"`
}

type MessageDeleted struct {
	ID int64 `json:"id"`
}

// TypingUpdate is the ordered list of display names currently typing.
type TypingUpdate []string

// ErrorEvent is sent only to the connection whose event failed.
type ErrorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SessionReady is sent to a connection once it is registered.
type SessionReady struct {
	User          user.Profile `json:"user"`
	OnlineUserIDs []string     `json:"onlineUserIds"`
	Typing        TypingUpdate `json:"typing"`
}

func (UserNew) EventType() EventType        { return TypeUserNew }
func (UserStatus) EventType() EventType     { return TypeUserStatus }
func (MessageNew) EventType() EventType     { return TypeMessageNew }
func (MessageEdited) EventType() EventType  { return TypeMessageEdited }
func (MessageDeleted) EventType() EventType { return TypeMessageDeleted }
func (TypingUpdate) EventType() EventType   { return TypeTypingUpdate }
func (ErrorEvent) EventType() EventType     { return TypeError }
func (SessionReady) EventType() EventType   { return TypeSessionReady }

// MarshalJSON renders an empty set as [] rather than null.
func (t TypingUpdate) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// Encode renders ev as a wire frame.
func Encode(ev OutboundEvent) ([]byte, error) {
	return json.Marshal(struct {
		Type    EventType     `json:"type"`
		Payload OutboundEvent `json:"payload"`
	}{
		Type:    ev.EventType(),
		Payload: ev,
	})
}
