package event

import (
	"encoding/json"
	"fmt"

	"blogchat/internal/apperr"
)

// WsEvent is the envelope of every frame in both directions.
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New builds a server event. Payloads are plain structs, so a marshal failure is a programming error
// and yields an event without payload.
func New(name string, payload any) WsEvent {
	ev := WsEvent{Event: name}
	if payload == nil {
		return ev
	}
	data, err := json.Marshal(payload)
	if err == nil {
		ev.Payload = data
	}
	return ev
}

// Decode unmarshals the payload into v and validates it.
func (e WsEvent) Decode(v any) error {
	payload := e.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: malformed %s payload", apperr.ErrValidation, e.Event)
	}
	return Validate(v)
}

// -----------------------------------------------------------------
// Client to Server payloads
// -----------------------------------------------------------------

type SendMessagePayload struct {
	Content   string `json:"content" validate:"notblank,max=5000"`
	Room      string `json:"room,omitempty" validate:"omitempty,max=64"`
	Recipient string `json:"recipient,omitempty" validate:"omitempty,mongodb"`
}

// TypingPayload is shared by typing and stopTyping.
type TypingPayload struct {
	Room      string `json:"room,omitempty" validate:"omitempty,max=64"`
	Recipient string `json:"recipient,omitempty" validate:"omitempty,mongodb"`
}

type RoomPayload struct {
	Room string `json:"room" validate:"notblank,max=64"`
}

type StatusPayload struct {
	Status string `json:"status" validate:"max=140"`
}

type SendNotificationPayload struct {
	RecipientID string `json:"recipientId" validate:"required,mongodb"`
	Type        string `json:"type" validate:"required,max=64"`
	Message     string `json:"message" validate:"max=1000"`
	Data        any    `json:"data,omitempty"`
}

type NotificationIDPayload struct {
	ID string `json:"id" validate:"required"`
}

type UserProfileRequest struct {
	UserID string `json:"userId" validate:"required,mongodb"`
}

type EditMessagePayload struct {
	MessageID string `json:"messageId" validate:"required,mongodb"`
	Content   string `json:"content" validate:"notblank,max=5000"`
}

type ReactionPayload struct {
	MessageID string `json:"messageId" validate:"required,mongodb"`
	Emoji     string `json:"emoji" validate:"notblank,max=32"`
}

type MessageRefPayload struct {
	MessageID string `json:"messageId" validate:"required,mongodb"`
}

// -----------------------------------------------------------------
// Server to Client payloads
// -----------------------------------------------------------------

type UserTyping struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type JoinedUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type UserJoined struct {
	User JoinedUser `json:"user"`
}

type UserLeft struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type RoomMembership struct {
	Room string `json:"room"`
}

type NotificationRead struct {
	ID string `json:"id"`
}

// ErrorPayload represents an error response sent to client via WebSocket
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
