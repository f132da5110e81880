package signaling

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sequentialIDs() IDGenerator {
	n := 0
	return func(exists func(string) bool) string {
		for {
			n++
			id := fmt.Sprintf("room-%04d", n)
			if !exists(id) {
				return id
			}
		}
	}
}

func TestRegistry_CreateRoom(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(sequentialIDs())
	now := time.Unix(1700000000, 0)

	// When a room is created
	room := reg.CreateRoom("alice", "video", now)

	// Then it is active, empty and retrievable
	req.Equal("room-0001", room.ID)
	req.Equal("video", room.Type)
	req.Equal("alice", room.CreatorID)
	req.Equal(now, room.CreatedAt)
	req.True(room.IsActive)
	req.Empty(room.Participants)

	got, err := reg.Room(room.ID)
	req.NoError(err)
	req.Same(room, got)
	req.Equal(1, reg.Len())
}

func TestRegistry_CreateRoom_UniqueIDs(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(nil)

	seen := make(map[string]struct{})
	for range 200 {
		room := reg.CreateRoom("alice", "video", time.Now())
		_, dup := seen[room.ID]
		req.False(dup, "duplicate room id %s", room.ID)
		seen[room.ID] = struct{}{}
	}
	req.Equal(200, reg.Len())
}

func TestRegistry_Room_NotFound(t *testing.T) {
	reg := NewRegistry(sequentialIDs())

	_, err := reg.Room("nope-0000")

	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegistry_AddParticipant_Capacity(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(sequentialIDs())
	room := reg.CreateRoom("u1", "video", time.Now())

	// Given a room filled to capacity
	for i := 1; i <= MaxParticipants; i++ {
		req.NoError(reg.AddParticipant(room.ID, fmt.Sprintf("u%d", i)))
	}

	// When a fifth participant tries to join
	err := reg.AddParticipant(room.ID, "u5")

	// Then it is refused and nothing changes
	req.ErrorIs(err, ErrRoomFull)
	req.Equal([]string{"u1", "u2", "u3", "u4"}, room.Participants)
}

func TestRegistry_AddParticipant_ExistingMemberIsNoop(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(sequentialIDs())
	room := reg.CreateRoom("u1", "video", time.Now())

	req.NoError(reg.AddParticipant(room.ID, "u1"))
	req.NoError(reg.AddParticipant(room.ID, "u1"))

	req.Equal([]string{"u1"}, room.Participants)
}

func TestRegistry_AddParticipant_ExistingMemberOfFullRoom(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(sequentialIDs())
	room := reg.CreateRoom("u1", "video", time.Now())
	for i := 1; i <= MaxParticipants; i++ {
		req.NoError(reg.AddParticipant(room.ID, fmt.Sprintf("u%d", i)))
	}

	req.NoError(reg.AddParticipant(room.ID, "u3"))
	req.Len(room.Participants, MaxParticipants)
}

func TestRegistry_AddParticipant_UnknownRoom(t *testing.T) {
	reg := NewRegistry(sequentialIDs())

	err := reg.AddParticipant("ghost-0000", "u1")

	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegistry_RemoveParticipant_DeletesEmptyRoom(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(sequentialIDs())
	room := reg.CreateRoom("u1", "video", time.Now())
	req.NoError(reg.AddParticipant(room.ID, "u1"))
	req.NoError(reg.AddParticipant(room.ID, "u2"))

	// When the first participant leaves
	count, err := reg.RemoveParticipant(room.ID, "u1")

	// Then the room survives with one member
	req.NoError(err)
	req.Equal(1, count)
	req.Equal([]string{"u2"}, room.Participants)

	// When the last participant leaves
	count, err = reg.RemoveParticipant(room.ID, "u2")

	// Then the room is gone
	req.NoError(err)
	req.Zero(count)
	req.False(room.IsActive)
	_, err = reg.Room(room.ID)
	req.ErrorIs(err, ErrRoomNotFound)
	req.Zero(reg.Len())
}

func TestRegistry_RemoveParticipant_NonMember(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(sequentialIDs())
	room := reg.CreateRoom("u1", "video", time.Now())
	req.NoError(reg.AddParticipant(room.ID, "u1"))

	count, err := reg.RemoveParticipant(room.ID, "stranger")

	req.NoError(err)
	req.Equal(1, count)
}

func TestRegistry_RemoveParticipant_UnknownRoom(t *testing.T) {
	reg := NewRegistry(sequentialIDs())

	_, err := reg.RemoveParticipant("ghost-0000", "u1")

	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegistry_SweepIdle(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(sequentialIDs())
	now := time.Unix(1700000000, 0)

	// Given an old empty room, an old occupied room and a fresh empty room
	oldEmpty := reg.CreateRoom("a", "video", now.Add(-48*time.Hour))
	oldBusy := reg.CreateRoom("b", "video", now.Add(-48*time.Hour))
	req.NoError(reg.AddParticipant(oldBusy.ID, "b"))
	fresh := reg.CreateRoom("c", "video", now.Add(-time.Hour))

	// When the sweep runs with a 24h retention
	deleted := reg.SweepIdle(24*time.Hour, now)

	// Then only the old empty room is removed
	req.Equal([]string{oldEmpty.ID}, deleted)
	req.False(oldEmpty.IsActive)
	_, err := reg.Room(oldBusy.ID)
	req.NoError(err)
	_, err = reg.Room(fresh.ID)
	req.NoError(err)
}
