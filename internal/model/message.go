package model

import (
	"encoding/json"
	"strings"
	"time"
)

// GlobalRoom is the room every connection joins and the default message scope.
const GlobalRoom = "global"

// Scope is where a message lives: exactly one of RoomScope or DirectScope.
type Scope interface {
	isScope()
}

// History selects a conversation to read back: a RoomScope or a Between pair.
type History interface {
	isHistory()
}

type RoomScope struct {
	Room string
}

type DirectScope struct {
	Recipient string
}

// Between is the direct conversation of two users, in either direction.
type Between struct {
	UserA string
	UserB string
}

func (RoomScope) isScope()   {}
func (RoomScope) isHistory() {}
func (DirectScope) isScope() {}
func (Between) isHistory()   {}

// NewScope resolves the optional room and recipient of a send request.
// A recipient wins over a room; with neither the message goes to the global room.
func NewScope(room, recipient string) Scope {
	if recipient = strings.TrimSpace(recipient); recipient != "" {
		return DirectScope{Recipient: recipient}
	}
	if room = strings.TrimSpace(room); room != "" {
		return RoomScope{Room: room}
	}
	return RoomScope{Room: GlobalRoom}
}

// File describes an attachment uploaded out of band.
type File struct {
	Filename string `json:"filename" bson:"filename"`
	URL      string `json:"url" bson:"url"`
	Type     string `json:"type" bson:"type"`
	Size     int64  `json:"size" bson:"size"`
}

type Reaction struct {
	User      string    `json:"user"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReadReceipt struct {
	User   string    `json:"user"`
	ReadAt time.Time `json:"readAt"`
}

// Message is a persisted chat message with sender and recipient resolved for delivery.
type Message struct {
	ID        string
	Content   string
	Sender    UserRef
	Scope     Scope
	Recipient *UserRef
	File      *File
	Reactions []Reaction
	ReadBy    []ReadReceipt
	Edited    bool
	EditedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Room returns the room of a room-scoped message.
func (m *Message) Room() (string, bool) {
	rs, ok := m.Scope.(RoomScope)
	return rs.Room, ok
}

// RecipientID returns the recipient of a direct message.
func (m *Message) RecipientID() (string, bool) {
	ds, ok := m.Scope.(DirectScope)
	return ds.Recipient, ok
}

// HasReadBy reports whether userID already has a read receipt on the message.
func (m *Message) HasReadBy(userID string) bool {
	for _, r := range m.ReadBy {
		if r.User == userID {
			return true
		}
	}
	return false
}

type messageJSON struct {
	ID        string        `json:"_id"`
	Content   string        `json:"content"`
	Sender    UserRef       `json:"sender"`
	Room      *string       `json:"room"`
	Recipient *UserRef      `json:"recipient"`
	File      *File         `json:"file,omitempty"`
	Reactions []Reaction    `json:"reactions"`
	ReadBy    []ReadReceipt `json:"readBy"`
	Edited    bool          `json:"edited"`
	EditedAt  *time.Time    `json:"editedAt,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// MarshalJSON flattens the scope into the room/recipient pair clients render.
func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{
		ID:        m.ID,
		Content:   m.Content,
		Sender:    m.Sender,
		File:      m.File,
		Reactions: m.Reactions,
		ReadBy:    m.ReadBy,
		Edited:    m.Edited,
		EditedAt:  m.EditedAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if out.Reactions == nil {
		out.Reactions = []Reaction{}
	}
	if out.ReadBy == nil {
		out.ReadBy = []ReadReceipt{}
	}

	switch s := m.Scope.(type) {
	case RoomScope:
		room := s.Room
		out.Room = &room
	case DirectScope:
		if m.Recipient != nil {
			out.Recipient = m.Recipient
		} else {
			out.Recipient = &UserRef{ID: s.Recipient}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the scope from the flattened wire form.
func (m *Message) UnmarshalJSON(data []byte) error {
	var in messageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*m = Message{
		ID:        in.ID,
		Content:   in.Content,
		Sender:    in.Sender,
		File:      in.File,
		Reactions: in.Reactions,
		ReadBy:    in.ReadBy,
		Edited:    in.Edited,
		EditedAt:  in.EditedAt,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
	switch {
	case in.Recipient != nil:
		m.Scope = DirectScope{Recipient: in.Recipient.ID}
		m.Recipient = in.Recipient
	case in.Room != nil:
		m.Scope = RoomScope{Room: *in.Room}
	default:
		m.Scope = RoomScope{Room: GlobalRoom}
	}
	return nil
}
