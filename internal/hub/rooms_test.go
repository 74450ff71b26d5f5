package hub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blogchat/internal/event"
	"blogchat/internal/model"
)

func TestRooms(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms()
	a, b := newFakeConn("a"), newFakeConn("b")

	rooms.Join("global", a)
	rooms.Join("global", b)
	rooms.Join("golang", a)
	rooms.Join("golang", a)

	req.Len(rooms.Members("global"), 2)
	req.Len(rooms.Members("golang"), 1)
	req.True(rooms.IsMember("golang", a))
	req.False(rooms.IsMember("golang", b))
	req.Equal([]model.RoomInfo{
		{Room: "global", Connections: 2},
		{Room: "golang", Connections: 1},
	}, rooms.Stats())

	rooms.Leave("golang", a)
	req.Empty(rooms.Members("golang"))
	req.Len(rooms.Stats(), 1)
}

func TestConnectionsBroadcast(t *testing.T) {
	req := require.New(t)
	conns := NewConnections()
	a, b := newFakeConn("a"), newFakeConn("b")
	conns.Add(a)
	conns.Add(b)

	req.Equal(1, conns.Broadcast(event.New(event.EventUserOffline, nil), a))
	req.Zero(a.count())
	req.Equal(1, b.count())

	conns.Remove(b)
	req.Equal(1, conns.Len())
}

func TestMonitorStats(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	ms := NewMonitorService(f.conns, f.rooms, f.presence)

	req.Equal("idle", ms.GetStats().Status)

	alice, bob := identity("alice"), identity("bob")
	f.connect(alice, "a1")
	f.connect(bob, "b1")
	f.connect(alice, "a2")
	f.presence.UpdateStatus(bob, mustLookup(t, f, bob.ID), "away")

	stats := ms.GetStats()
	req.Equal("healthy", stats.Status)
	req.Equal(2, stats.Connections.OnlineUsers)
	req.Equal(3, stats.Connections.OpenConnections)
	req.Equal(1, stats.Rooms.TotalRooms)
	req.Equal(map[string]int{"online": 1, "away": 1}, stats.StatusCount)
}

func mustLookup(t *testing.T, f *fixture, userID string) Conn {
	t.Helper()
	conn, ok := f.presence.Lookup(userID)
	require.True(t, ok)
	return conn
}
