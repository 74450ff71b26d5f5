package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewScope(t *testing.T) {
	req := require.New(t)

	req.Equal(RoomScope{Room: GlobalRoom}, NewScope("", ""))
	req.Equal(RoomScope{Room: "general"}, NewScope("general", ""))
	req.Equal(DirectScope{Recipient: "u2"}, NewScope("", "u2"))
	// recipient wins, room is ignored
	req.Equal(DirectScope{Recipient: "u2"}, NewScope("general", "u2"))
	req.Equal(RoomScope{Room: GlobalRoom}, NewScope("  ", "  "))
}

func TestMessage_JSONFlattensScope(t *testing.T) {
	t.Run("room message has null recipient", func(t *testing.T) {
		req := require.New(t)
		msg := Message{
			ID:        "m1",
			Content:   "hello",
			Sender:    UserRef{ID: "u1", Username: "alice"},
			Scope:     RoomScope{Room: GlobalRoom},
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		data, err := json.Marshal(msg)
		req.NoError(err)

		var raw map[string]any
		req.NoError(json.Unmarshal(data, &raw))
		req.Equal("global", raw["room"])
		req.Nil(raw["recipient"])
		req.Equal([]any{}, raw["reactions"])

		var back Message
		req.NoError(json.Unmarshal(data, &back))
		req.Equal(RoomScope{Room: GlobalRoom}, back.Scope)
	})

	t.Run("direct message carries the resolved recipient and no room", func(t *testing.T) {
		req := require.New(t)
		msg := Message{
			ID:        "m2",
			Content:   "psst",
			Sender:    UserRef{ID: "u1", Username: "alice"},
			Scope:     DirectScope{Recipient: "u2"},
			Recipient: &UserRef{ID: "u2", Username: "bob"},
		}

		data, err := json.Marshal(msg)
		req.NoError(err)

		var raw map[string]any
		req.NoError(json.Unmarshal(data, &raw))
		req.Nil(raw["room"])
		req.Equal("bob", raw["recipient"].(map[string]any)["username"])

		var back Message
		req.NoError(json.Unmarshal(data, &back))
		req.Equal(DirectScope{Recipient: "u2"}, back.Scope)
		id, ok := back.RecipientID()
		req.True(ok)
		req.Equal("u2", id)
	})
}
