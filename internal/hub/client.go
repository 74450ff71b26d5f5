package hub

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"blogchat/internal/event"
	"blogchat/internal/model"
)

var (
	// tuning parameters
	writeWait            = 10 * time.Second       // time allowed to write a message to the peer
	pongWait             = 60 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval         = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize       = 64 * 1024              // max inbound message size (64KB)
	defaultSendBuffer    = 256                    // per-connection outbound buffer size
	defaultInboundBuffer = 64                     // per-connection inbound buffer size
	unregisterTimeout    = 5 * time.Second        // timeout for handing a closed client to the run loop
	inboundSendTimeout   = 500 * time.Millisecond // timeout for sending to the inbound queue
)

// Client is one authenticated websocket connection. Its identity never changes.
type Client struct {
	id       string
	identity model.Identity
	conn     *websocket.Conn
	hub      *Hub
	inbound  chan event.WsEvent
	egress   chan event.WsEvent
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	roomsMu sync.Mutex
	rooms   map[string]struct{}
}

func newClient(h *Hub, conn *websocket.Conn, identity model.Identity) *Client {
	ctx, cancel := context.WithCancel(h.ctx)
	id := uuid.NewString()

	return &Client{
		id:       id,
		identity: identity,
		conn:     conn,
		hub:      h,
		inbound:  make(chan event.WsEvent, h.inboundBuffer),
		egress:   make(chan event.WsEvent, h.sendBuffer),
		logger:   h.logger.With(zap.String("conn_id", id), zap.String("user_id", identity.ID)),
		ctx:      ctx,
		cancel:   cancel,
		rooms:    make(map[string]struct{}),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Identity() model.Identity { return c.identity }

// Send queues ev without blocking. A client whose buffer is full cannot keep up and is dropped.
func (c *Client) Send(ev event.WsEvent) bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	select {
	case c.egress <- ev:
		return true
	default:
		c.logger.Warn("egress full, disconnecting client", zap.String("event", ev.Event))
		c.Close()
		return false
	}
}

// Close stops all pumps. Neither queue is ever closed, so late senders are safe.
func (c *Client) Close() {
	c.once.Do(func() {
		c.cancel()
	})
}

func (c *Client) IsClosed() bool {
	return c.ctx.Err() != nil
}

func (c *Client) joinRoom(room string) {
	c.roomsMu.Lock()
	c.rooms[room] = struct{}{}
	c.roomsMu.Unlock()
}

func (c *Client) leaveRoom(room string) {
	c.roomsMu.Lock()
	delete(c.rooms, room)
	c.roomsMu.Unlock()
}

func (c *Client) joinedRooms() []string {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()

	out := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		out = append(out, room)
	}
	return out
}

func (c *Client) readPump() {
	defer func() {
		c.Close()
		c.hub.release(c)
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev event.WsEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			c.logReadError(err)
			return
		}

		if !c.hub.dispatch(c, ev) {
			return
		}
	}
}

// processPump handles the client's events one at a time, in arrival order.
func (c *Client) processPump() {
	defer c.hub.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.inbound:
			c.hub.handleEvent(ev, c)
		}
	}
}

func (c *Client) logReadError(err error) {
	if c.IsClosed() {
		return
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		c.logger.Debug("client disconnected")
		return
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		c.logger.Info("client timed out, closing connection")
		return
	}

	if websocket.IsUnexpectedCloseError(err) {
		c.logger.Info("unexpected close", zap.Error(err))
		return
	}

	// malformed frames end the connection too
	c.logger.Warn("error reading from client", zap.Error(err))
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case ev := <-c.egress:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Info("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Info("ping failed", zap.Error(err))
				return
			}
		}
	}
}
