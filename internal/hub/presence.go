package hub

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"blogchat/internal/event"
	"blogchat/internal/model"
)

type presenceEntry struct {
	identity model.Identity
	conn     Conn
	status   string
	lastSeen time.Time
}

// PresenceRegistry owns the id to connection mapping of online users.
// At most one entry exists per user id; the latest connection wins.
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[string]*presenceEntry
	out     Broadcaster
	logger  *zap.Logger
	now     func() time.Time
}

func NewPresenceRegistry(out Broadcaster, logger *zap.Logger) *PresenceRegistry {
	return &PresenceRegistry{
		entries: make(map[string]*presenceEntry),
		out:     out,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Join inserts or replaces the entry of id and broadcasts the new snapshot.
func (p *PresenceRegistry) Join(id model.Identity, conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.entries[id.ID]; ok && prev.conn.ID() != conn.ID() {
		p.logger.Info("presence entry replaced by newer connection",
			zap.String("user_id", id.ID),
			zap.String("previous_conn", prev.conn.ID()),
			zap.String("conn", conn.ID()))
	}

	p.entries[id.ID] = &presenceEntry{
		identity: id,
		conn:     conn,
		lastSeen: p.now(),
	}
	p.broadcastLocked()
}

// Leave removes the entry of id only if it is still bound to conn. It reports whether
// anything was removed; a stale or repeated leave changes nothing and broadcasts nothing.
func (p *PresenceRegistry) Leave(id model.Identity, conn Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[id.ID]
	if !ok || entry.conn.ID() != conn.ID() {
		return false
	}
	delete(p.entries, id.ID)

	p.broadcastLocked()
	p.out.Broadcast(event.New(event.EventUserOffline, event.UserLeft{
		UserID:   id.ID,
		Username: id.Username,
	}), conn)
	return true
}

// UpdateStatus sets the free-form status of an online user. Only the connection that owns
// the entry may change it.
func (p *PresenceRegistry) UpdateStatus(id model.Identity, conn Conn, status string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[id.ID]
	if !ok || entry.conn.ID() != conn.ID() {
		return false
	}
	entry.status = status
	entry.lastSeen = p.now()

	p.broadcastLocked()
	return true
}

func (p *PresenceRegistry) Lookup(userID string) (Conn, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[userID]
	if !ok {
		return nil, false
	}
	return entry.conn, true
}

// Get returns the snapshot entry of one user.
func (p *PresenceRegistry) Get(userID string) (model.OnlineUser, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[userID]
	if !ok {
		return model.OnlineUser{}, false
	}
	return entry.online(), true
}

func (p *PresenceRegistry) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Snapshot lists every online user ordered by username, then id.
func (p *PresenceRegistry) Snapshot() []model.OnlineUser {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

func (p *PresenceRegistry) snapshotLocked() []model.OnlineUser {
	users := lo.MapToSlice(p.entries, func(_ string, e *presenceEntry) model.OnlineUser {
		return e.online()
	})
	sort.Slice(users, func(i, j int) bool {
		if users[i].Username != users[j].Username {
			return users[i].Username < users[j].Username
		}
		return users[i].ID < users[j].ID
	})
	return users
}

// broadcastLocked sends the snapshot while the write lock is held, so every client observes
// snapshots in mutation order. Sends are non-blocking.
func (p *PresenceRegistry) broadcastLocked() {
	p.out.Broadcast(event.New(event.EventOnlineUsers, p.snapshotLocked()), nil)
}

func (e *presenceEntry) online() model.OnlineUser {
	return model.OnlineUser{
		ID:       e.identity.ID,
		Username: e.identity.Username,
		Avatar:   e.identity.Avatar,
		Status:   e.status,
		LastSeen: e.lastSeen,
	}
}
