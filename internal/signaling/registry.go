package signaling

import (
	"slices"
	"time"
)

// MaxParticipants is the hard cap on room membership.
const MaxParticipants = 4

// Room is a rendezvous point for up to MaxParticipants peers.
type Room struct {
	// ID is the unique identifier for the room.
	ID string

	// Type is the session kind requested at creation ("video", "audio", ...).
	Type string

	// CreatorID is the user that asked for the room.
	CreatorID string

	// Participants holds the user ids currently in the room, in join order.
	Participants []string

	CreatedAt time.Time

	// IsActive is true while the room is present in the registry.
	IsActive bool
}

// Has reports whether clientID is a participant.
func (r *Room) Has(clientID string) bool {
	return slices.Contains(r.Participants, clientID)
}

// Registry is the in-memory store of active rooms.
//
// It performs no locking: the hub's run loop is its only caller, so every
// operation is atomic with respect to every other event.
type Registry struct {
	rooms map[string]*Room
	newID IDGenerator
}

// NewRegistry creates an empty registry. A nil generator falls back to
// NewIDGenerator("").
func NewRegistry(newID IDGenerator) *Registry {
	if newID == nil {
		newID = NewIDGenerator("")
	}
	return &Registry{
		rooms: make(map[string]*Room),
		newID: newID,
	}
}

// CreateRoom allocates a fresh room with no participants.
func (r *Registry) CreateRoom(creatorID, roomType string, now time.Time) *Room {
	id := r.newID(func(id string) bool {
		_, ok := r.rooms[id]
		return ok
	})

	room := &Room{
		ID:        id,
		Type:      roomType,
		CreatorID: creatorID,
		CreatedAt: now,
		IsActive:  true,
	}
	r.rooms[id] = room
	return room
}

// Room looks up a room by id.
func (r *Registry) Room(roomID string) (*Room, error) {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// AddParticipant admits clientID into the room. Either the client is admitted
// or nothing changes. Adding a client that is already a member succeeds
// without changing the participant list.
func (r *Registry) AddParticipant(roomID, clientID string) error {
	room, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if room.Has(clientID) {
		return nil
	}
	if len(room.Participants) >= MaxParticipants {
		return ErrRoomFull
	}
	room.Participants = append(room.Participants, clientID)
	return nil
}

// RemoveParticipant removes clientID and returns the remaining participant
// count. A room that becomes empty is deleted before returning.
func (r *Registry) RemoveParticipant(roomID, clientID string) (int, error) {
	room, ok := r.rooms[roomID]
	if !ok {
		return 0, ErrRoomNotFound
	}

	room.Participants = slices.DeleteFunc(room.Participants, func(id string) bool {
		return id == clientID
	})

	count := len(room.Participants)
	if count == 0 {
		r.delete(room)
	}
	return count, nil
}

// SweepIdle deletes every empty room created before now-maxAge and returns
// the deleted ids. Rooms with at least one participant are never swept.
func (r *Registry) SweepIdle(maxAge time.Duration, now time.Time) []string {
	cutoff := now.Add(-maxAge)

	var deleted []string
	for id, room := range r.rooms {
		if len(room.Participants) == 0 && room.CreatedAt.Before(cutoff) {
			r.delete(room)
			deleted = append(deleted, id)
		}
	}
	slices.Sort(deleted)
	return deleted
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	return len(r.rooms)
}

func (r *Registry) delete(room *Room) {
	room.IsActive = false
	delete(r.rooms, room.ID)
}
