package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"blogchat/internal/apperr"
	"blogchat/internal/event"
	"blogchat/internal/model"
	"blogchat/internal/repo"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []event.WsEvent
	closed bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(ev event.WsEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeConn) named(name string) []event.WsEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []event.WsEvent
	for _, ev := range f.events {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.events = nil
	f.mu.Unlock()
}

func decodePayload[T any](ev event.WsEvent) T {
	var v T
	if err := json.Unmarshal(ev.Payload, &v); err != nil {
		panic(err)
	}
	return v
}

type fakeStore struct {
	mu      sync.Mutex
	saved   []*model.Message
	saveErr error

	stall  map[string]chan struct{}
	saving chan string
}

var _ repo.MessageRepository = (*fakeStore)(nil)

func (s *fakeStore) Save(ctx context.Context, msg *model.Message) (*model.Message, error) {
	s.mu.Lock()
	release, ok := s.stall[msg.Sender.ID]
	saving := s.saving
	s.mu.Unlock()

	if ok {
		saving <- msg.Sender.ID
		select {
		case <-release:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, ctx.Err())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return nil, s.saveErr
	}

	out := *msg
	out.ID = primitive.NewObjectID().Hex()
	out.CreatedAt = time.Now().UTC()
	out.UpdatedAt = out.CreatedAt
	if recipient, ok := out.RecipientID(); ok {
		out.Recipient = &model.UserRef{ID: recipient}
	}
	s.saved = append(s.saved, &out)
	return &out, nil
}

func (s *fakeStore) Query(context.Context, model.History, repo.Page) ([]model.Message, error) {
	return nil, nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.findLocked(id)
	if err != nil {
		return nil, err
	}
	out := *msg
	return &out, nil
}

func (s *fakeStore) findLocked(id string) (*model.Message, error) {
	for _, m := range s.saved {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: message %s", apperr.ErrNotFound, id)
}

func (s *fakeStore) Edit(_ context.Context, id string, editorID string, content string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.findLocked(id)
	if err != nil {
		return nil, err
	}
	if msg.Sender.ID != editorID {
		return nil, fmt.Errorf("%w: only the sender can edit", apperr.ErrForbidden)
	}
	now := time.Now().UTC()
	msg.Content = content
	msg.Edited = true
	msg.EditedAt = &now
	out := *msg
	return &out, nil
}

func (s *fakeStore) AddReaction(_ context.Context, id string, reaction model.Reaction) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.findLocked(id)
	if err != nil {
		return nil, err
	}
	msg.Reactions = append(msg.Reactions, reaction)
	out := *msg
	return &out, nil
}

func (s *fakeStore) MarkRead(_ context.Context, id string, receipt model.ReadReceipt) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, err := s.findLocked(id)
	if err != nil {
		return nil, err
	}
	if !msg.HasReadBy(receipt.User) {
		msg.ReadBy = append(msg.ReadBy, receipt)
	}
	out := *msg
	return &out, nil
}

// hold makes every Save from senderID wait for the returned release func.
func (s *fakeStore) hold(senderID string) (saving <-chan string, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{})
	if s.stall == nil {
		s.stall = make(map[string]chan struct{})
	}
	s.stall[senderID] = ch
	s.saving = make(chan string, 4)

	var once sync.Once
	return s.saving, func() { once.Do(func() { close(ch) }) }
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

// fixture wires the shared registry, rooms and connection set the way the container does.
type fixture struct {
	conns    *Connections
	rooms    *Rooms
	presence *PresenceRegistry
	store    *fakeStore
	router   *Router
	typing   *TypingCoordinator
	relay    *NotificationRelay
}

func newFixture() *fixture {
	logger := zap.NewNop()
	f := &fixture{
		conns: NewConnections(),
		rooms: NewRooms(),
		store: &fakeStore{},
	}
	f.presence = NewPresenceRegistry(f.conns, logger)
	f.router = NewRouter(f.store, f.presence, f.rooms, logger)
	f.typing = NewTypingCoordinator(f.presence, f.rooms)
	f.relay = NewNotificationRelay(f.presence)
	return f
}

// connect mimics the hub: open, join global, register presence.
func (f *fixture) connect(id model.Identity, connID string) *fakeConn {
	c := newFakeConn(connID)
	f.conns.Add(c)
	f.rooms.Join(model.GlobalRoom, c)
	f.presence.Join(id, c)
	return c
}

func identity(name string) model.Identity {
	return model.Identity{ID: primitive.NewObjectID().Hex(), Username: name, Avatar: name + ".png", Role: "user"}
}
