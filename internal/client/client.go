package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the websocket connection to the signaling server.
type Client struct {
	conn     *websocket.Conn
	wsURL    string
	incoming chan *signaling.Message
	outgoing chan *signaling.Message
	done     chan struct{}
	once     sync.Once
	log      *slog.Logger
}

// New creates a client for the given ws:// or wss:// endpoint.
func New(wsURL string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		wsURL:    wsURL,
		incoming: make(chan *signaling.Message, 16),
		outgoing: make(chan *signaling.Message, 16),
		done:     make(chan struct{}),
		log:      log.With("server", wsURL),
	}
}

// Connect dials the server and starts the read and write pumps.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		NetDialContext:   dialContext,
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		if resp != nil {
			return WrapError("connect", ErrConnectionFailed, resp.Status)
		}
		return WrapError("connect", ErrConnectionFailed, err.Error())
	}
	c.conn = conn

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	c.log.Debug("connected to signaling server")
	return nil
}

// readPump reads messages from the websocket connection.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg signaling.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.log.Debug("read pump stopped", "err", err)
			return
		}

		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the websocket connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.log.Debug("write failed", "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues msg for the server.
func (c *Client) Send(msg *signaling.Message) error {
	select {
	case <-c.done:
		return NewError("send "+msg.Type, ErrClosed)
	default:
	}
	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return NewError("send "+msg.Type, ErrClosed)
	}
}

// Incoming returns the channel of messages from the server. It is closed
// when the connection ends.
func (c *Client) Incoming() <-chan *signaling.Message {
	return c.incoming
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// JoinRoom asks to join roomID as userID.
func (c *Client) JoinRoom(roomID, userID, userName, avatar string) error {
	return c.sendPayload(signaling.TypeJoinRoom, "", signaling.JoinRoomPayload{
		RoomID:     roomID,
		UserID:     userID,
		UserName:   userName,
		UserAvatar: avatar,
	})
}

func (c *Client) LeaveRoom() error {
	return c.sendPayload(signaling.TypeLeaveRoom, "", struct{}{})
}

// SendSignal sends an offer, answer or ice-candidate to a single peer.
func (c *Client) SendSignal(kind, targetUserID string, payload any) error {
	return c.sendPayload(kind, targetUserID, payload)
}

func (c *Client) SendStatus(muted, videoOn bool) error {
	return c.sendPayload(signaling.TypeUserStatus, "", signaling.UserStatusPayload{IsMuted: muted, IsVideoOn: videoOn})
}

func (c *Client) Ping() error {
	return c.sendPayload(signaling.TypePing, "", struct{}{})
}

func (c *Client) sendPayload(t, target string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WrapError("send "+t, err, "encode payload")
	}
	return c.Send(&signaling.Message{Type: t, TargetUserID: target, Payload: raw})
}
