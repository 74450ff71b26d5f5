package hub

import (
	"blogchat/internal/event"
	"blogchat/internal/model"
)

// TypingCoordinator relays typing signals. It keeps no state: deduplication and the idle
// timeout belong to the client.
type TypingCoordinator struct {
	presence *PresenceRegistry
	rooms    *Rooms
}

func NewTypingCoordinator(presence *PresenceRegistry, rooms *Rooms) *TypingCoordinator {
	return &TypingCoordinator{presence: presence, rooms: rooms}
}

func (t *TypingCoordinator) Start(from model.Identity, origin Conn, room, recipient string) int {
	return t.relay(event.EventUserTyping, from, origin, room, recipient)
}

func (t *TypingCoordinator) Stop(from model.Identity, origin Conn, room, recipient string) int {
	return t.relay(event.EventUserStoppedTyping, from, origin, room, recipient)
}

// relay delivers to the other party only, never back to origin.
func (t *TypingCoordinator) relay(name string, from model.Identity, origin Conn, room, recipient string) int {
	ev := event.New(name, event.UserTyping{UserID: from.ID, Username: from.Username})

	switch scope := model.NewScope(room, recipient).(type) {
	case model.DirectScope:
		conn, ok := t.presence.Lookup(scope.Recipient)
		if !ok || conn.ID() == origin.ID() {
			return 0
		}
		if conn.Send(ev) {
			return 1
		}
	case model.RoomScope:
		delivered := 0
		for _, conn := range t.rooms.Members(scope.Room) {
			if conn.ID() == origin.ID() {
				continue
			}
			if conn.Send(ev) {
				delivered++
			}
		}
		return delivered
	}
	return 0
}
