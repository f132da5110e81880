package signaling

import (
	"errors"

	"github.com/samber/lo"
)

// join moves c into the requested room. Admission is checked before any
// other state changes, so a rejected join leaves the client where it was.
func (h *Hub) join(c *Client, p JoinRoomPayload) {
	// Same connection, same identity, same room: refresh the profile and
	// resend the roster without telling the others again.
	if c.Joined() && c.RoomID == p.RoomID && c.UserID == p.UserID && h.conns.Owns(c.UserID, c) {
		c.UserName, c.UserAvatar = p.UserName, p.UserAvatar
		h.conns.Bind(h.bindingFor(c))
		if room, err := h.rooms.Room(p.RoomID); err == nil {
			h.sendRoster(c, room)
		}
		return
	}

	if err := h.rooms.AddParticipant(p.RoomID, p.UserID); err != nil {
		switch {
		case errors.Is(err, ErrRoomNotFound):
			h.metrics.Inc(metricJoinsNotFound)
		case errors.Is(err, ErrRoomFull):
			h.metrics.Inc(metricJoinsFull)
		}
		c.log.Info("room join failed", "room", p.RoomID, "user", p.UserID, "err", err)
		h.send(c, TypeRoomError, RoomErrorPayload{Message: err.Error(), Code: errorCode(err)})
		return
	}

	// Joining somewhere else implies leaving the current room first. A stale
	// connection rejoining its own room as the same user keeps its membership.
	if c.Joined() && (c.RoomID != p.RoomID || c.UserID != p.UserID) {
		h.depart(c, TypeUserLeft)
	}

	room, err := h.rooms.Room(p.RoomID)
	if err != nil {
		c.RoomID = ""
		c.log.Warn("room vanished during join", "room", p.RoomID, "user", p.UserID)
		h.send(c, TypeRoomError, RoomErrorPayload{Message: err.Error(), Code: errorCode(err)})
		return
	}

	c.UserID, c.UserName, c.UserAvatar, c.RoomID = p.UserID, p.UserName, p.UserAvatar, p.RoomID
	if prev := h.conns.Bind(h.bindingFor(c)); prev != nil && prev.Conn != c {
		c.log.Info("identity rebound to new connection", "user", c.UserID, "previous_conn", prev.Conn.ID)
	}

	h.metrics.Inc(metricJoins)
	c.log.Info("client joined room", "room", room.ID, "user", c.UserID, "participants", len(room.Participants))

	h.sendRoster(c, room)
	h.broadcast(room, c.UserID, TypeUserJoined, UserJoinedPayload{
		UserID:            c.UserID,
		UserName:          c.UserName,
		UserAvatar:        c.UserAvatar,
		ParticipantsCount: len(room.Participants),
	})
}

// leave handles an explicit leave-room. Leaving when not joined is a no-op.
func (h *Hub) leave(c *Client) {
	if !c.Joined() {
		return
	}
	h.metrics.Inc(metricLeaves)
	h.depart(c, TypeUserLeft)
}

// disconnect handles loss of the transport: it unwinds any membership and
// releases the connection.
func (h *Hub) disconnect(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.metrics.Inc(metricDisconnects)
	c.log.Debug("client unregistered")

	if c.Joined() {
		h.depart(c, TypeUserDisconnected)
	}
	delete(h.clients, c)
	c.close()
}

// depart removes c from its room and notifies whoever is left with a
// notification of kind (user-left or user-disconnected).
//
// If c's identity has since been bound to another connection, that newer
// connection owns the binding: it is left alone, and so is the membership
// when the newer connection sits in the same room.
func (h *Hub) depart(c *Client, kind string) {
	userID, userName, roomID := c.UserID, c.UserName, c.RoomID
	c.RoomID = ""

	if h.conns.Owns(userID, c) {
		h.conns.Unbind(userID)
	} else if b, ok := h.conns.Resolve(userID); ok && b.RoomID == roomID {
		c.log.Debug("superseded connection left, membership kept", "room", roomID, "user", userID)
		return
	}

	room, _ := h.rooms.Room(roomID)
	count, err := h.rooms.RemoveParticipant(roomID, userID)
	if err != nil {
		c.log.Warn("room vanished before departure", "room", roomID, "user", userID)
		return
	}

	c.log.Info("client left room", "room", roomID, "user", userID, "reason", kind, "participants", count)
	if count == 0 {
		h.metrics.Inc(metricRoomsDeleted)
		h.log.Info("room deleted", "room", roomID)
		return
	}

	switch kind {
	case TypeUserDisconnected:
		h.broadcast(room, userID, TypeUserDisconnected, UserDisconnectedPayload{
			UserID:            userID,
			UserName:          userName,
			Reason:            ReasonDisconnected,
			ParticipantsCount: count,
		})
	default:
		h.broadcast(room, userID, TypeUserLeft, UserLeftPayload{
			UserID:            userID,
			UserName:          userName,
			ParticipantsCount: count,
		})
	}
}

// status relays ephemeral mute/video flags to the rest of the room.
func (h *Hub) status(c *Client, p UserStatusPayload) {
	if !c.Joined() {
		h.send(c, TypeError, ErrorPayload{Message: ErrNotJoined.Error()})
		return
	}
	room, err := h.rooms.Room(c.RoomID)
	if err != nil {
		return
	}
	h.metrics.Inc(metricStatusUpdates)
	h.broadcast(room, c.UserID, TypeUserStatusChanged, UserStatusChangedPayload{
		UserID:    c.UserID,
		IsMuted:   p.IsMuted,
		IsVideoOn: p.IsVideoOn,
		Timestamp: h.now().UnixMilli(),
	})
}

func (h *Hub) sendRoster(c *Client, room *Room) {
	h.send(c, TypeRoomJoined, RoomJoinedPayload{
		RoomID:       room.ID,
		Type:         room.Type,
		Participants: h.roster(room),
		IsCreator:    room.CreatorID == c.UserID,
	})
}

func (h *Hub) roster(room *Room) []Participant {
	return lo.Map(room.Participants, func(id string, _ int) Participant {
		p := Participant{ID: id}
		if b, ok := h.conns.Resolve(id); ok {
			p.Name, p.Avatar = b.DisplayName, b.Avatar
		}
		return p
	})
}

// broadcast sends payload to every member of room bound to it, except the
// user identified by except.
func (h *Hub) broadcast(room *Room, except, t string, payload any) {
	msg, err := NewMessage(t, payload)
	if err != nil {
		h.log.Error("failed to build message", "type", t, "err", err)
		return
	}

	members := lo.Filter(room.Participants, func(id string, _ int) bool { return id != except })
	for _, id := range members {
		b, ok := h.conns.Resolve(id)
		if !ok || b.RoomID != room.ID {
			continue
		}
		b.Conn.deliver(msg)
	}
}

func (h *Hub) bindingFor(c *Client) *Binding {
	return &Binding{
		ClientID:    c.UserID,
		Conn:        c,
		DisplayName: c.UserName,
		Avatar:      c.UserAvatar,
		RoomID:      c.RoomID,
	}
}
