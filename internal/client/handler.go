package client

import (
	"encoding/json"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/signaling"
)

// Signal is a relayed offer, answer or ice-candidate.
type Signal struct {
	Kind       string
	SenderID   string
	SenderName string
	Payload    json.RawMessage
	Timestamp  int64
}

// PeerLeft reports a peer leaving the room, by request or by dropping off.
type PeerLeft struct {
	UserID            string
	UserName          string
	Disconnected      bool
	ParticipantsCount int
}

// Handler routes incoming signaling messages to typed channels.
type Handler struct {
	client        *Client
	RoomJoined    chan *signaling.RoomJoinedPayload
	RoomCreated   chan *signaling.RoomCreatedPayload
	PeerJoined    chan *signaling.UserJoinedPayload
	PeerLeft      chan *PeerLeft
	StatusChanged chan *signaling.UserStatusChangedPayload
	Signal        chan *Signal
	Pong          chan int64
	Error         chan error
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:        client,
		RoomJoined:    make(chan *signaling.RoomJoinedPayload, 1),
		RoomCreated:   make(chan *signaling.RoomCreatedPayload, 1),
		PeerJoined:    make(chan *signaling.UserJoinedPayload, 8),
		PeerLeft:      make(chan *PeerLeft, 8),
		StatusChanged: make(chan *signaling.UserStatusChangedPayload, 8),
		Signal:        make(chan *Signal, 32),
		Pong:          make(chan int64, 1),
		Error:         make(chan error, 4),
	}
}

// Start routes messages until the connection ends, then closes every
// channel. Run it in its own goroutine.
func (h *Handler) Start() {
	defer h.close()

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case signaling.TypeRoomJoined:
			route(h, msg, h.RoomJoined)

		case signaling.TypeRoomCreated:
			route(h, msg, h.RoomCreated)

		case signaling.TypeUserJoined:
			route(h, msg, h.PeerJoined)

		case signaling.TypeUserLeft:
			var p signaling.UserLeftPayload
			if h.decode(msg, &p) {
				h.PeerLeft <- &PeerLeft{UserID: p.UserID, UserName: p.UserName, ParticipantsCount: p.ParticipantsCount}
			}

		case signaling.TypeUserDisconnected:
			var p signaling.UserDisconnectedPayload
			if h.decode(msg, &p) {
				h.PeerLeft <- &PeerLeft{UserID: p.UserID, UserName: p.UserName, Disconnected: true, ParticipantsCount: p.ParticipantsCount}
			}

		case signaling.TypeUserStatusChanged:
			route(h, msg, h.StatusChanged)

		case signaling.TypeOffer, signaling.TypeAnswer, signaling.TypeICECandidate:
			h.Signal <- &Signal{
				Kind:       msg.Type,
				SenderID:   msg.SenderID,
				SenderName: msg.SenderName,
				Payload:    msg.Payload,
				Timestamp:  msg.Timestamp,
			}

		case signaling.TypePong:
			var p signaling.PongPayload
			if h.decode(msg, &p) {
				select {
				case h.Pong <- p.Timestamp:
				default:
				}
			}

		case signaling.TypeRoomError:
			var p signaling.RoomErrorPayload
			if h.decode(msg, &p) {
				h.Error <- roomError(p.Code, p.Message)
			}

		case signaling.TypeError:
			var p signaling.ErrorPayload
			if h.decode(msg, &p) {
				h.Error <- WrapError("server", ErrServer, p.Message)
			}

		default:
			h.client.log.Debug("ignoring unknown message", "type", msg.Type)
		}
	}
}

func route[T any](h *Handler, msg *signaling.Message, ch chan *T) {
	var v T
	if h.decode(msg, &v) {
		ch <- &v
	}
}

func (h *Handler) decode(msg *signaling.Message, v any) bool {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		h.Error <- WrapError("decode "+msg.Type, ErrServer, err.Error())
		return false
	}
	return true
}

func (h *Handler) close() {
	close(h.RoomJoined)
	close(h.RoomCreated)
	close(h.PeerJoined)
	close(h.PeerLeft)
	close(h.StatusChanged)
	close(h.Signal)
	close(h.Pong)
	close(h.Error)
}
