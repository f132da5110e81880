package signaling

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client is a wrapper for a single websocket connection.
//
// The identity fields (UserID, UserName, UserAvatar, RoomID) are written and
// read only by the hub goroutine.
type Client struct {
	hub *Hub

	// conn is the websocket connection. It is nil for clients created in tests.
	conn *websocket.Conn

	// ID identifies the connection itself, not the user behind it.
	ID string

	// Send is a buffered channel of outbound messages. The hub writes to it and
	// WritePump drains it onto the websocket.
	Send chan *Message

	UserID     string
	UserName   string
	UserAvatar string
	RoomID     string

	closed  bool
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient wraps conn for use with hub. conn may be nil when the client is
// driven directly through the hub (tests).
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	id := uuid.NewString()
	c := &Client{
		hub:     hub,
		conn:    conn,
		ID:      id,
		Send:    make(chan *Message, hub.cfg.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(hub.cfg.MessagesPerSecond), hub.cfg.MessageBurst),
		log:     hub.log.With("conn", id),
	}
	if conn != nil {
		c.log = c.log.With("remote", conn.RemoteAddr().String())
	}
	return c
}

// Joined reports whether the client currently holds a room membership.
func (c *Client) Joined() bool {
	return c.RoomID != ""
}

// deliver queues msg without blocking the hub. A full buffer or a closed
// client drops the message.
func (c *Client) deliver(msg *Message) bool {
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		c.log.Warn("send buffer full, dropping message", "type", msg.Type)
		c.hub.metrics.Inc(metricSendDropped)
		return false
	}
}

func (c *Client) close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	// When this function exits (e.g., connection closes), tell the hub
	defer func() {
		c.hub.submit(disconnectCmd{client: c})
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Info("read failed", "err", err)
			}
			return
		}

		if !c.limiter.Allow() {
			c.log.Warn("rate limit exceeded, closing connection")
			c.hub.metrics.Inc(metricRateLimited)
			deadline := time.Now().Add(writeWait)
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limit"), deadline)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.submit(rejectCmd{client: c, err: ErrInvalidMessage})
			continue
		}

		if !c.hub.submit(decodeCommand(c, &msg)) {
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.writeMessage(message); err != nil {
				c.log.Info("write failed", "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeMessage encodes msg as one text frame. HTML escaping is off so relayed
// SDP and candidate strings reach the peer as sent.
func (c *Client) writeMessage(msg *Message) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
