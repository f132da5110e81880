package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages.
//
// For offer, answer and ice-candidate the Payload is opaque: the server reads
// TargetUserID on the way in, stamps SenderID/SenderName/Timestamp on the way
// out and forwards the payload bytes untouched.
type Message struct {
	Type         string          `json:"type"`
	RoomID       string          `json:"roomId,omitempty"`
	TargetUserID string          `json:"targetUserId,omitempty"`
	SenderID     string          `json:"senderId,omitempty"`
	SenderName   string          `json:"senderName,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Timestamp    int64           `json:"timestamp,omitempty"`
}

// Client to server.
const (
	TypeJoinRoom     = "join-room"
	TypeLeaveRoom    = "leave-room"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeUserStatus   = "user-status"
	TypePing         = "ping"
	TypeCreateRoom   = "create-room"
)

// Server to client. offer, answer and ice-candidate keep their names.
const (
	TypeRoomJoined        = "room-joined"
	TypeRoomCreated       = "room-created"
	TypeRoomError         = "room-error"
	TypeUserJoined        = "user-joined"
	TypeUserLeft          = "user-left"
	TypeUserDisconnected  = "user-disconnected"
	TypeUserStatusChanged = "user-status-changed"
	TypePong              = "pong"
	TypeError             = "error"
)

// ReasonDisconnected is the reason carried by user-disconnected when the
// transport went away.
const ReasonDisconnected = "disconnected"

type JoinRoomPayload struct {
	RoomID     string `json:"roomId" validate:"required,max=64"`
	UserID     string `json:"userId" validate:"required,max=128"`
	UserName   string `json:"userName" validate:"max=128"`
	UserAvatar string `json:"userAvatar" validate:"max=2048"`
}

type CreateRoomPayload struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Type   string `json:"type" validate:"max=32"`
}

type UserStatusPayload struct {
	IsMuted   bool `json:"isMuted"`
	IsVideoOn bool `json:"isVideoOn"`
}

// Participant is one entry of the roster sent in room-joined.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

type RoomJoinedPayload struct {
	RoomID       string        `json:"roomId"`
	Type         string        `json:"type"`
	Participants []Participant `json:"participants"`
	IsCreator    bool          `json:"isCreator"`
}

type RoomCreatedPayload struct {
	RoomID    string `json:"roomId"`
	Type      string `json:"type"`
	CreatedAt int64  `json:"createdAt"`
}

type UserJoinedPayload struct {
	UserID            string `json:"userId"`
	UserName          string `json:"userName"`
	UserAvatar        string `json:"userAvatar"`
	ParticipantsCount int    `json:"participantsCount"`
}

type UserLeftPayload struct {
	UserID            string `json:"userId"`
	UserName          string `json:"userName"`
	ParticipantsCount int    `json:"participantsCount"`
}

type UserDisconnectedPayload struct {
	UserID            string `json:"userId"`
	UserName          string `json:"userName"`
	Reason            string `json:"reason"`
	ParticipantsCount int    `json:"participantsCount"`
}

type UserStatusChangedPayload struct {
	UserID    string `json:"userId"`
	IsMuted   bool   `json:"isMuted"`
	IsVideoOn bool   `json:"isVideoOn"`
	Timestamp int64  `json:"timestamp"`
}

type PongPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// RoomErrorPayload is sent for rejected joins.
type RoomErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ErrorPayload is sent for frames the server could not make sense of.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewMessage creates a Message of type t with payload encoded as JSON.
func NewMessage(t string, payload any) (*Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return &Message{Type: t, Payload: b}, nil
}

var validate = validator.New()

// decodePayload unmarshals and validates the payload of msg into v.
func decodePayload(msg *Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: %s without payload", ErrInvalidMessage, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMessage, msg.Type, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMessage, msg.Type, err)
	}
	return nil
}
