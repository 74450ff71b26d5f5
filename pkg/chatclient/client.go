// Package chatclient speaks the blogchat real-time protocol over a websocket.
package chatclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"blogchat/internal/event"
)

const writeWait = 10 * time.Second

// Client is a connected protocol client. Events delivers every server event in order and
// is closed when the connection ends.
type Client struct {
	conn   *websocket.Conn
	events chan event.WsEvent

	writeMu   sync.Mutex
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	err       error
}

// Dial connects to the socket endpoint (ws:// or wss://) with a bearer token. A refused
// handshake returns an error carrying the HTTP status.
func Dial(ctx context.Context, endpoint, token string) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", u.Host, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}

	c := &Client{
		conn:   conn,
		events:  make(chan event.WsEvent, 64),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) Events() <-chan event.WsEvent { return c.events }

// Emit sends a named event. It is safe for concurrent use.
func (c *Client) Emit(name string, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closing:
		return websocket.ErrCloseSent
	default:
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(event.New(name, payload))
}

func (c *Client) SendMessage(content, room, recipient string) error {
	return c.Emit(event.EventSendMessage, event.SendMessagePayload{
		Content:   content,
		Room:      room,
		Recipient: recipient,
	})
}

// Next waits for the next event named name, discarding others.
func (c *Client) Next(ctx context.Context, name string) (event.WsEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return event.WsEvent{}, ctx.Err()
		case ev, ok := <-c.events:
			if !ok {
				return event.WsEvent{}, c.Err()
			}
			if ev.Event == name {
				return ev, nil
			}
		}
	}
}

// Err reports why the connection ended, once Events is closed.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close sends a close frame and releases the connection. Events is closed shortly after.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		close(c.closing)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	var err error
	defer func() {
		c.err = err
		close(c.done)
		close(c.events)
	}()

	for {
		var ev event.WsEvent
		if err = c.conn.ReadJSON(&ev); err != nil {
			select {
			case <-c.closing:
				err = nil
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					err = nil
				}
			}
			return
		}

		select {
		case c.events <- ev:
		case <-c.closing:
			err = nil
			return
		}
	}
}
