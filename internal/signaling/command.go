package signaling

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// command is one event for the hub loop. Every inbound frame, connection
// lifecycle change and control-surface request is turned into one of the
// concrete types below and handled by Hub.handle.
type command interface {
	isCommand()
}

type registerCmd struct{ client *Client }

// disconnectCmd is queued by ReadPump when the transport goes away.
type disconnectCmd struct{ client *Client }

type joinCmd struct {
	client *Client
	JoinRoomPayload
}

type leaveCmd struct{ client *Client }

type signalCmd struct {
	client  *Client
	kind    string
	target  string
	payload json.RawMessage
}

type statusCmd struct {
	client *Client
	UserStatusPayload
}

type pingCmd struct{ client *Client }

// createRoomCmd comes either from a websocket client (client set) or from the
// HTTP control surface (reply set).
type createRoomCmd struct {
	client   *Client
	userID   string
	roomType string
	reply    chan RoomInfo
}

type roomInfoCmd struct {
	roomID string
	reply  chan roomInfoResult
}

type statsCmd struct{ reply chan Stats }

// rejectCmd carries a frame that failed to decode back to its sender.
type rejectCmd struct {
	client *Client
	err    error
}

func (registerCmd) isCommand()   {}
func (disconnectCmd) isCommand() {}
func (joinCmd) isCommand()       {}
func (leaveCmd) isCommand()      {}
func (signalCmd) isCommand()     {}
func (statusCmd) isCommand()     {}
func (pingCmd) isCommand()       {}
func (createRoomCmd) isCommand() {}
func (roomInfoCmd) isCommand()   {}
func (statsCmd) isCommand()      {}
func (rejectCmd) isCommand()     {}

// RoomInfo is the public view of a room.
type RoomInfo struct {
	RoomID            string    `json:"roomId"`
	Type              string    `json:"type"`
	CreatorID         string    `json:"creatorId"`
	ParticipantsCount int       `json:"participantsCount"`
	CreatedAt         time.Time `json:"createdAt"`
	IsActive          bool      `json:"isActive"`
}

type roomInfoResult struct {
	info RoomInfo
	err  error
}

// Stats is a point-in-time count of hub state.
type Stats struct {
	Rooms   int `json:"rooms"`
	Clients int `json:"clients"`
	Bound   int `json:"bound"`
}

// DefaultRoomType is used when a create request names no type.
const DefaultRoomType = "video"

// decodeCommand turns a frame read from c into a hub command.
func decodeCommand(c *Client, msg *Message) command {
	switch msg.Type {
	case TypeJoinRoom:
		var p JoinRoomPayload
		if err := decodePayload(msg, &p); err != nil {
			return rejectCmd{client: c, err: err}
		}
		return joinCmd{client: c, JoinRoomPayload: p}

	case TypeLeaveRoom:
		return leaveCmd{client: c}

	case TypeOffer, TypeAnswer, TypeICECandidate:
		if msg.TargetUserID == "" {
			return rejectCmd{client: c, err: fmt.Errorf("%w: %s without targetUserId", ErrInvalidMessage, msg.Type)}
		}
		return signalCmd{client: c, kind: msg.Type, target: msg.TargetUserID, payload: msg.Payload}

	case TypeUserStatus:
		var p UserStatusPayload
		if err := decodePayload(msg, &p); err != nil {
			return rejectCmd{client: c, err: err}
		}
		return statusCmd{client: c, UserStatusPayload: p}

	case TypePing:
		return pingCmd{client: c}

	case TypeCreateRoom:
		var p CreateRoomPayload
		if err := decodePayload(msg, &p); err != nil {
			return rejectCmd{client: c, err: err}
		}
		return createRoomCmd{client: c, userID: p.UserID, roomType: roomTypeOrDefault(p.Type)}

	default:
		return rejectCmd{client: c, err: fmt.Errorf("%w: unknown message type %q", ErrInvalidMessage, msg.Type)}
	}
}

func roomTypeOrDefault(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return DefaultRoomType
	}
	return t
}
