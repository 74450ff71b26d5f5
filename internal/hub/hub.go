package hub

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"blogchat/internal/apperr"
	"blogchat/internal/auth"
	"blogchat/internal/event"
	"blogchat/internal/model"
	"blogchat/internal/repo"
)

const handlerTimeout = 10 * time.Second

// Options carries the collaborators a Hub is built from. Presence, Rooms and Connections are
// shared with the Router, TypingCoordinator and NotificationRelay.
type Options struct {
	Gate          *auth.Gate
	Connections   *Connections
	Rooms         *Rooms
	Presence      *PresenceRegistry
	Router        *Router
	Typing        *TypingCoordinator
	Notifications *NotificationRelay
	Users         repo.UserRepository
	LastSeen      repo.LastSeenRepository
	Logger        *zap.Logger

	AllowedOrigins []string
	InboundBuffer  int
	SendBuffer     int
}

// Hub accepts websocket connections and dispatches their events.
type Hub struct {
	gate          *auth.Gate
	conns         *Connections
	rooms         *Rooms
	presence      *PresenceRegistry
	router        *Router
	typing        *TypingCoordinator
	notifications *NotificationRelay
	users         repo.UserRepository
	lastSeen      repo.LastSeenRepository
	logger        *zap.Logger

	upgrader      websocket.Upgrader
	sendBuffer    int
	inboundBuffer int

	unregister chan *Client
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewHub(opts Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	inboundBuffer := opts.InboundBuffer
	if inboundBuffer <= 0 {
		inboundBuffer = defaultInboundBuffer
	}
	sendBuffer := opts.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}

	h := &Hub{
		gate:          opts.Gate,
		conns:         opts.Connections,
		rooms:         opts.Rooms,
		presence:      opts.Presence,
		router:        opts.Router,
		typing:        opts.Typing,
		notifications: opts.Notifications,
		users:         opts.Users,
		lastSeen:      opts.LastSeen,
		logger:        opts.Logger,
		sendBuffer:    sendBuffer,
		inboundBuffer: inboundBuffer,
		unregister:    make(chan *Client, 1024),
		ctx:           ctx,
		cancel:        cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(opts.AllowedOrigins),
	}

	go h.run()

	return h
}

// checkOrigin allows requests without an Origin header (non-browser clients) and, when
// origins are configured, only those origins. "*" allows everything.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// ServeWS authenticates the handshake and upgrades it. A refused handshake never touches
// presence or room state.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(r)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, apperr.ErrUnauthorized) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Info("connection refused", zap.String("remote", r.RemoteAddr), zap.Error(err))
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(h, conn, identity)
	h.connect(c)

	h.wg.Add(1)
	go c.processPump()
	go c.writePump()
	go c.readPump()
}

func (h *Hub) connect(c *Client) {
	h.conns.Add(c)

	for _, member := range h.rooms.Members(model.GlobalRoom) {
		member.Send(event.New(event.EventUserJoined, event.UserJoined{User: event.JoinedUser{
			ID:       c.identity.ID,
			Username: c.identity.Username,
			Avatar:   c.identity.Avatar,
		}}))
	}
	h.rooms.Join(model.GlobalRoom, c)
	c.joinRoom(model.GlobalRoom)

	h.presence.Join(c.identity, c)
	c.logger.Info("client connected")
}

// release hands a finished client to the run loop, which disconnects it exactly once.
func (h *Hub) release(c *Client) {
	if h.ctx.Err() != nil {
		h.disconnect(c)
		return
	}

	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
		h.disconnect(c)
	case <-time.After(unregisterTimeout):
		h.logger.Warn("unregister timeout, disconnecting inline", zap.String("conn_id", c.id))
		h.disconnect(c)
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.unregister:
			h.disconnect(c)
		}
	}
}

// disconnect is reached once per client, from release. Presence only changes when this
// connection still owns the user's entry.
func (h *Hub) disconnect(c *Client) {
	c.Close()
	h.conns.Remove(c)
	for _, room := range c.joinedRooms() {
		h.rooms.Leave(room, c)
	}

	if !h.presence.Leave(c.identity, c) {
		c.logger.Debug("stale connection closed")
		return
	}

	for _, member := range h.rooms.Members(model.GlobalRoom) {
		member.Send(event.New(event.EventUserLeft, event.UserLeft{
			UserID:   c.identity.ID,
			Username: c.identity.Username,
		}))
	}

	if h.lastSeen != nil {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		if err := h.lastSeen.Touch(ctx, c.identity.ID, time.Now().UTC()); err != nil {
			c.logger.Warn("failed to record last seen", zap.Error(err))
		}
	}
	c.logger.Info("client disconnected")
}

// dispatch queues an inbound event on the client's own queue, so a slow handler only
// holds back the connection that sent it. False means the client should be dropped.
func (h *Hub) dispatch(c *Client, ev event.WsEvent) bool {
	select {
	case c.inbound <- ev:
		return true
	case <-time.After(inboundSendTimeout):
		c.logger.Warn("inbound queue full, dropping client")
		return false
	case <-c.ctx.Done():
		return false
	}
}

// Stop closes every connection and waits for in-flight handlers.
func (h *Hub) Stop() {
	for _, c := range h.conns.All() {
		if client, ok := c.(*Client); ok {
			client.Close()
		}
	}
	h.cancel()
	h.wg.Wait()
}

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	if c.IsClosed() {
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, handlerTimeout)
	defer cancel()

	var err error
	switch ev.Event {
	case event.EventSendMessage:
		var p event.SendMessagePayload
		if err = ev.Decode(&p); err == nil {
			_, err = h.router.RouteMessage(ctx, c.identity, c, p.Content, p.Room, p.Recipient)
		}

	case event.EventTyping, event.EventStopTyping:
		var p event.TypingPayload
		if err = ev.Decode(&p); err == nil {
			if ev.Event == event.EventTyping {
				h.typing.Start(c.identity, c, p.Room, p.Recipient)
			} else {
				h.typing.Stop(c.identity, c, p.Room, p.Recipient)
			}
		}

	case event.EventUpdateStatus:
		var p event.StatusPayload
		if err = ev.Decode(&p); err == nil {
			h.presence.UpdateStatus(c.identity, c, p.Status)
		}

	case event.EventSendNotification:
		var p event.SendNotificationPayload
		if err = ev.Decode(&p); err == nil {
			delivered := h.notifications.Notify(p.RecipientID, p.Type, p.Message, p.Data)
			c.logger.Debug("notification relayed",
				zap.String("recipient", p.RecipientID),
				zap.Bool("delivered", delivered))
		}

	case event.EventMarkNotificationRead:
		var p event.NotificationIDPayload
		if err = ev.Decode(&p); err == nil {
			c.Send(event.New(event.EventNotificationRead, event.NotificationRead{ID: p.ID}))
		}

	case event.EventJoinRoom:
		var p event.RoomPayload
		if err = ev.Decode(&p); err == nil {
			h.rooms.Join(p.Room, c)
			c.joinRoom(p.Room)
			c.Send(event.New(event.EventRoomJoined, event.RoomMembership{Room: p.Room}))
		}

	case event.EventLeaveRoom:
		var p event.RoomPayload
		if err = ev.Decode(&p); err == nil {
			h.rooms.Leave(p.Room, c)
			c.leaveRoom(p.Room)
			c.Send(event.New(event.EventRoomLeft, event.RoomMembership{Room: p.Room}))
		}

	case event.EventGetUserProfile:
		var p event.UserProfileRequest
		if err = ev.Decode(&p); err == nil {
			var user *model.User
			if user, err = h.users.GetUser(ctx, p.UserID); err == nil {
				c.Send(event.New(event.EventUserProfile, user))
			}
		}

	case event.EventEditMessage:
		var p event.EditMessagePayload
		if err = ev.Decode(&p); err == nil {
			_, err = h.router.EditMessage(ctx, c.identity, c, p.MessageID, p.Content)
		}

	case event.EventAddReaction:
		var p event.ReactionPayload
		if err = ev.Decode(&p); err == nil {
			_, err = h.router.AddReaction(ctx, c.identity, c, p.MessageID, p.Emoji)
		}

	case event.EventMarkRead:
		var p event.MessageRefPayload
		if err = ev.Decode(&p); err == nil {
			_, err = h.router.MarkRead(ctx, c.identity, c, p.MessageID)
		}

	default:
		c.logger.Info("unknown event type", zap.String("event", ev.Event))
		c.Send(event.New(event.EventError, event.ErrorPayload{
			Code:    "unknown_event",
			Message: "Unknown event: " + ev.Event,
		}))
		return
	}

	if err != nil {
		h.sendError(c, ev.Event, err)
	}
}

// sendError reports a failed event to the originating connection only.
func (h *Hub) sendError(c *Client, name string, err error) {
	code := apperr.Code(err)
	msg := err.Error()

	switch code {
	case "persistence_error", "internal_error":
		c.logger.Error("event failed", zap.String("event", name), zap.Error(err))
		msg = failureMessage(name)
	default:
		c.logger.Info("event rejected", zap.String("event", name), zap.Error(err))
	}

	c.Send(event.New(event.EventError, event.ErrorPayload{Code: code, Message: msg}))
}

func failureMessage(name string) string {
	switch name {
	case event.EventSendMessage:
		return "Failed to send message"
	case event.EventGetUserProfile:
		return "Failed to load user profile"
	case event.EventEditMessage, event.EventAddReaction, event.EventMarkRead:
		return "Failed to update message"
	default:
		return "Request failed"
	}
}
