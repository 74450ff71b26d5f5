package hub

import (
	"crypto/sha1"
	"encoding/binary"
	"sort"
	"sync"

	"blogchat/internal/model"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type roomBucket struct {
	sync.RWMutex
	rooms map[string]map[string]Conn
}

// Rooms maps room names to their member connections, sharded by room name.
type Rooms struct {
	shards [shardCount]*roomBucket
}

func NewRooms() *Rooms {
	r := &Rooms{}
	for i := 0; i < shardCount; i++ {
		r.shards[i] = &roomBucket{
			rooms: make(map[string]map[string]Conn),
		}
	}
	return r
}

func getShard(key string) uint32 {
	if key == "" {
		return 0
	}

	h := sha1.Sum([]byte(key))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

func (r *Rooms) Join(room string, c Conn) {
	b := r.shards[getShard(room)]
	b.Lock()
	defer b.Unlock()

	members, ok := b.rooms[room]
	if !ok {
		members = make(map[string]Conn)
		b.rooms[room] = members
	}
	members[c.ID()] = c
}

func (r *Rooms) Leave(room string, c Conn) {
	b := r.shards[getShard(room)]
	b.Lock()
	defer b.Unlock()

	if members, ok := b.rooms[room]; ok {
		delete(members, c.ID())
		if len(members) == 0 {
			delete(b.rooms, room)
		}
	}
}

// Members collects a room's connections while holding the read lock; delivery happens without it.
func (r *Rooms) Members(room string) []Conn {
	b := r.shards[getShard(room)]
	b.RLock()
	defer b.RUnlock()

	members := b.rooms[room]
	out := make([]Conn, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

func (r *Rooms) IsMember(room string, c Conn) bool {
	b := r.shards[getShard(room)]
	b.RLock()
	defer b.RUnlock()

	_, ok := b.rooms[room][c.ID()]
	return ok
}

// Stats lists every non-empty room, sorted by name.
func (r *Rooms) Stats() []model.RoomInfo {
	out := make([]model.RoomInfo, 0)
	for _, b := range r.shards {
		b.RLock()
		for room, members := range b.rooms {
			out = append(out, model.RoomInfo{Room: room, Connections: len(members)})
		}
		b.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out
}
