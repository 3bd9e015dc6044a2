package hub

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client bridges one websocket connection to the hub. Messages sent with
// Send go only to this client, broadcasts reach every client.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	sub    *Subscriber
	direct chan Message

	onMessage func(*Client, Message)

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
	onClose   []func()
	done      chan struct{}
}

// Upgrade switches the request to a websocket and starts pumping.
// onMessage may be nil.
func Upgrade(h *Hub, w http.ResponseWriter, r *http.Request, onMessage func(*Client, Message)) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		hub:       h,
		conn:      conn,
		sub:       h.Subscribe(64),
		direct:    make(chan Message, 16),
		onMessage: onMessage,
		done:      make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()
	return c, nil
}

// OnClose registers fn to run once when the connection goes away. On an
// already closed client fn runs right away.
func (c *Client) OnClose(fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fn()
		return
	}
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

// Send queues msg for this client only; false when the client is gone or
// its queue is full.
func (c *Client) Send(msgType string, data any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.direct <- Message{Type: msgType, Data: data}:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.Unsubscribe(c.sub)
		_ = c.conn.Close()
		c.mu.Lock()
		c.closed = true
		onClose := c.onClose
		c.onClose = nil
		c.mu.Unlock()
		for _, fn := range onClose {
			fn()
		}
	})
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Error("can't set read deadline", "error", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("unexpected websocket close", "error", err)
			}
			return
		}
		if msg.Type == MessageTypePing {
			c.Send(MessageTypePong, nil)
			continue
		}
		if c.onMessage != nil {
			c.onMessage(c, msg)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	write := func(msg Message) bool {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return false
		}
		if err := c.conn.WriteJSON(msg); err != nil {
			slog.Debug("can't write websocket message", "error", err)
			return false
		}
		return true
	}

	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-c.sub.C():
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !write(msg) {
				return
			}
		case msg := <-c.direct:
			if !write(msg) {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
