package hub

import (
	"sync"

	"blogchat/internal/event"
)

// Conn is a live connection handle as seen by presence and routing.
// Send never blocks; false means the event was not queued.
type Conn interface {
	ID() string
	Send(ev event.WsEvent) bool
}

// Broadcaster fans an event out to every open connection.
type Broadcaster interface {
	Broadcast(ev event.WsEvent, except Conn) int
}

// Connections is the set of every open connection, including ones whose
// presence entry was replaced by a newer connection of the same user.
type Connections struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewConnections() *Connections {
	return &Connections{conns: make(map[string]Conn)}
}

func (cs *Connections) Add(c Conn) {
	cs.mu.Lock()
	cs.conns[c.ID()] = c
	cs.mu.Unlock()
}

func (cs *Connections) Remove(c Conn) {
	cs.mu.Lock()
	delete(cs.conns, c.ID())
	cs.mu.Unlock()
}

func (cs *Connections) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.conns)
}

// Broadcast returns how many connections accepted the event.
func (cs *Connections) Broadcast(ev event.WsEvent, except Conn) int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	delivered := 0
	for id, c := range cs.conns {
		if except != nil && id == except.ID() {
			continue
		}
		if c.Send(ev) {
			delivered++
		}
	}
	return delivered
}

// All returns every open connection.
func (cs *Connections) All() []Conn {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	out := make([]Conn, 0, len(cs.conns))
	for _, c := range cs.conns {
		out = append(out, c)
	}
	return out
}
