package hub

import (
	"time"

	"github.com/google/uuid"

	"blogchat/internal/event"
	"blogchat/internal/model"
)

// NotificationRelay delivers ad hoc notifications to one online user. Nothing is queued or retried.
type NotificationRelay struct {
	presence *PresenceRegistry
	now      func() time.Time
}

func NewNotificationRelay(presence *PresenceRegistry) *NotificationRelay {
	return &NotificationRelay{
		presence: presence,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Notify reports whether the recipient was online and accepted the notification.
func (n *NotificationRelay) Notify(recipientID, kind, message string, data any) bool {
	conn, ok := n.presence.Lookup(recipientID)
	if !ok {
		return false
	}

	return conn.Send(event.New(event.EventNotification, model.Notification{
		ID:        uuid.NewString(),
		Type:      kind,
		Message:   message,
		Data:      data,
		Timestamp: n.now(),
	}))
}
