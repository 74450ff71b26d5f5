package model

import "time"

// OnlineUser is one entry of the onlineUsers snapshot.
type OnlineUser struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	Status   string    `json:"status,omitempty"`
	LastSeen time.Time `json:"lastSeen"`
}

// PresenceStatus answers the presence REST endpoint.
type PresenceStatus struct {
	UserID   string     `json:"userId"`
	Online   bool       `json:"online"`
	Status   string     `json:"status,omitempty"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// Notification is relayed point to point and never persisted.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
