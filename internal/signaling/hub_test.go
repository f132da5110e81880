package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1700000000, 0)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(DefaultConfig(), slog.New(slog.DiscardHandler), nil)
	h.now = func() time.Time { return testNow }
	return h
}

// connect registers a connection-less client the way the websocket handler
// would.
func connect(h *Hub) *Client {
	c := NewClient(h, nil)
	h.handle(registerCmd{client: c})
	return c
}

func createRoom(t *testing.T, h *Hub, creator string) string {
	t.Helper()
	reply := make(chan RoomInfo, 1)
	h.handle(createRoomCmd{userID: creator, roomType: DefaultRoomType, reply: reply})
	return (<-reply).RoomID
}

func join(h *Hub, c *Client, roomID, userID, userName string) {
	h.handle(joinCmd{client: c, JoinRoomPayload: JoinRoomPayload{RoomID: roomID, UserID: userID, UserName: userName}})
}

// frame feeds a raw client frame through the decoder and into the hub.
func frame(t *testing.T, h *Hub, c *Client, raw string) {
	t.Helper()
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	h.handle(decodeCommand(c, &msg))
}

func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return msg
	default:
		require.FailNow(t, "expected a queued message")
		return nil
	}
}

func recvType(t *testing.T, c *Client, typ string) *Message {
	t.Helper()
	msg := recv(t, c)
	require.Equal(t, typ, msg.Type)
	return msg
}

func requireQuiet(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		if ok {
			require.FailNow(t, "unexpected message", "type %s payload %s", msg.Type, msg.Payload)
		}
	default:
	}
}

func payloadOf[T any](t *testing.T, msg *Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}

func TestHub_TwoPeersNegotiate(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	alice, bob := connect(h), connect(h)
	roomID := createRoom(t, h, "alice")

	// Given alice joins her own room
	join(h, alice, roomID, "alice", "Alice")
	joined := payloadOf[RoomJoinedPayload](t, recvType(t, alice, TypeRoomJoined))
	req.Equal(roomID, joined.RoomID)
	req.True(joined.IsCreator)
	req.Equal([]Participant{{ID: "alice", Name: "Alice"}}, joined.Participants)

	// When bob joins
	join(h, bob, roomID, "bob", "Bob")

	// Then bob gets the roster and alice hears about him
	joined = payloadOf[RoomJoinedPayload](t, recvType(t, bob, TypeRoomJoined))
	req.False(joined.IsCreator)
	req.Equal([]Participant{{ID: "alice", Name: "Alice"}, {ID: "bob", Name: "Bob"}}, joined.Participants)

	userJoined := payloadOf[UserJoinedPayload](t, recvType(t, alice, TypeUserJoined))
	req.Equal("bob", userJoined.UserID)
	req.Equal("Bob", userJoined.UserName)
	req.Equal(2, userJoined.ParticipantsCount)
	requireQuiet(t, bob)

	// When bob sends alice an offer
	offer := `{"sdp":"v=0\r\no=- 1 2 IN IP4 127.0.0.1","type":"offer","extra":[1,2,3]}`
	frame(t, h, bob, `{"type":"offer","targetUserId":"alice","payload":`+offer+`}`)

	// Then only alice receives it, payload untouched and sender stamped
	msg := recvType(t, alice, TypeOffer)
	req.Equal("bob", msg.SenderID)
	req.Equal("Bob", msg.SenderName)
	req.Equal(testNow.UnixMilli(), msg.Timestamp)
	req.JSONEq(offer, string(msg.Payload))
	req.Equal(offer, string(msg.Payload))
	requireQuiet(t, bob)

	// When alice answers and trickles a candidate
	frame(t, h, alice, `{"type":"answer","targetUserId":"bob","payload":{"sdp":"answer-sdp"}}`)
	frame(t, h, alice, `{"type":"ice-candidate","targetUserId":"bob","payload":{"candidate":"candidate:1 1 UDP 1 10.0.0.1 9 typ host"}}`)

	// Then bob receives both in order, without a sender name
	msg = recvType(t, bob, TypeAnswer)
	req.Equal("alice", msg.SenderID)
	req.Empty(msg.SenderName)
	req.Equal(`{"sdp":"answer-sdp"}`, string(msg.Payload))
	msg = recvType(t, bob, TypeICECandidate)
	req.Equal("alice", msg.SenderID)
	requireQuiet(t, alice)

	// When bob leaves
	frame(t, h, bob, `{"type":"leave-room"}`)

	// Then alice is told and the room keeps one member
	left := payloadOf[UserLeftPayload](t, recvType(t, alice, TypeUserLeft))
	req.Equal("bob", left.UserID)
	req.Equal(1, left.ParticipantsCount)
	_, ok := h.conns.Resolve("bob")
	req.False(ok)

	// When alice disconnects
	h.handle(disconnectCmd{client: alice})

	// Then the room is deleted
	_, err := h.rooms.Room(roomID)
	req.ErrorIs(err, ErrRoomNotFound)
	req.Zero(h.conns.Len())
	req.Equal(uint64(3), h.metrics.Get(metricRelayed))
	req.Equal(uint64(1), h.metrics.Get(metricRoomsDeleted))
}

func TestHub_JoinFullRoom(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	roomID := createRoom(t, h, "u1")

	// Given a room with four members
	members := make([]*Client, 0, MaxParticipants)
	for i := 1; i <= MaxParticipants; i++ {
		c := connect(h)
		join(h, c, roomID, fmt.Sprintf("u%d", i), "")
		members = append(members, c)
	}
	for _, c := range members {
		for len(c.Send) > 0 {
			<-c.Send
		}
	}

	// When a fifth peer tries to join
	late := connect(h)
	join(h, late, roomID, "u5", "")

	// Then it gets ROOM_FULL and nobody else hears anything
	roomErr := payloadOf[RoomErrorPayload](t, recvType(t, late, TypeRoomError))
	req.Equal(CodeRoomFull, roomErr.Code)
	req.False(late.Joined())
	for _, c := range members {
		requireQuiet(t, c)
	}
	room, err := h.rooms.Room(roomID)
	req.NoError(err)
	req.Len(room.Participants, MaxParticipants)
	_, ok := h.conns.Resolve("u5")
	req.False(ok)
	req.Equal(uint64(1), h.metrics.Get(metricJoinsFull))
}

func TestHub_JoinUnknownRoom(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	c := connect(h)

	join(h, c, "missing-0000", "alice", "Alice")

	roomErr := payloadOf[RoomErrorPayload](t, recvType(t, c, TypeRoomError))
	req.Equal(CodeRoomNotFound, roomErr.Code)
	req.Equal(ErrRoomNotFound.Error(), roomErr.Message)
	req.False(c.Joined())
	req.Zero(h.conns.Len())
}

func TestHub_RejoinSameRoomResendsRoster(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	alice, bob := connect(h), connect(h)
	roomID := createRoom(t, h, "alice")
	join(h, alice, roomID, "alice", "Alice")
	join(h, bob, roomID, "bob", "Bob")
	recvType(t, alice, TypeRoomJoined)
	recvType(t, alice, TypeUserJoined)
	recvType(t, bob, TypeRoomJoined)

	// When bob repeats his join
	join(h, bob, roomID, "bob", "Bobby")

	// Then only bob gets a fresh roster
	joined := payloadOf[RoomJoinedPayload](t, recvType(t, bob, TypeRoomJoined))
	req.Len(joined.Participants, 2)
	req.Equal("Bobby", joined.Participants[1].Name)
	requireQuiet(t, alice)
}

func TestHub_SwitchRooms(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	alice, bob := connect(h), connect(h)
	first := createRoom(t, h, "alice")
	second := createRoom(t, h, "alice")
	join(h, alice, first, "alice", "Alice")
	join(h, bob, first, "bob", "Bob")
	recvType(t, alice, TypeRoomJoined)
	recvType(t, alice, TypeUserJoined)
	recvType(t, bob, TypeRoomJoined)

	// When alice joins another room
	join(h, alice, second, "alice", "Alice")

	// Then bob sees her leave and she lands in the new room
	left := payloadOf[UserLeftPayload](t, recvType(t, bob, TypeUserLeft))
	req.Equal("alice", left.UserID)
	req.Equal(1, left.ParticipantsCount)

	joined := payloadOf[RoomJoinedPayload](t, recvType(t, alice, TypeRoomJoined))
	req.Equal(second, joined.RoomID)
	req.Equal(second, alice.RoomID)

	b, ok := h.conns.Resolve("alice")
	req.True(ok)
	req.Equal(second, b.RoomID)

	room, err := h.rooms.Room(first)
	req.NoError(err)
	req.Equal([]string{"bob"}, room.Participants)
}

func TestHub_FailedSwitchKeepsMembership(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	alice := connect(h)
	roomID := createRoom(t, h, "alice")
	join(h, alice, roomID, "alice", "Alice")
	recvType(t, alice, TypeRoomJoined)

	join(h, alice, "missing-0000", "alice", "Alice")

	recvType(t, alice, TypeRoomError)
	req.Equal(roomID, alice.RoomID)
	room, err := h.rooms.Room(roomID)
	req.NoError(err)
	req.Equal([]string{"alice"}, room.Participants)
}

func TestHub_LeaveIsIdempotent(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	alice, bob := connect(h), connect(h)
	roomID := createRoom(t, h, "alice")
	join(h, alice, roomID, "alice", "")
	join(h, bob, roomID, "bob", "")
	recvType(t, alice, TypeRoomJoined)
	recvType(t, alice, TypeUserJoined)
	recvType(t, bob, TypeRoomJoined)

	// When bob leaves twice
	h.handle(leaveCmd{client: bob})
	h.handle(leaveCmd{client: bob})

	// Then alice hears about it once and bob gets nothing
	recvType(t, alice, TypeUserLeft)
	requireQuiet(t, alice)
	requireQuiet(t, bob)
	req.Equal(uint64(1), h.metrics.Get(metricLeaves))

	// And a leave from a client that never joined is silent
	stranger := connect(h)
	h.handle(leaveCmd{client: stranger})
	requireQuiet(t, stranger)
}

func TestHub_DisconnectNotifiesRoom(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	alice, bob := connect(h), connect(h)
	roomID := createRoom(t, h, "alice")
	join(h, alice, roomID, "alice", "Alice")
	join(h, bob, roomID, "bob", "Bob")
	recvType(t, alice, TypeRoomJoined)
	recvType(t, alice, TypeUserJoined)

	h.handle(disconnectCmd{client: bob})

	gone := payloadOf[UserDisconnectedPayload](t, recvType(t, alice, TypeUserDisconnected))
	req.Equal("bob", gone.UserID)
	req.Equal("Bob", gone.UserName)
	req.Equal(ReasonDisconnected, gone.Reason)
	req.Equal(1, gone.ParticipantsCount)

	// Bob's send channel is closed after his queued messages
	recvType(t, bob, TypeRoomJoined)
	_, ok := <-bob.Send
	req.False(ok)

	// A second disconnect for the same connection changes nothing
	h.handle(disconnectCmd{client: bob})
	requireQuiet(t, alice)
	req.Equal(uint64(1), h.metrics.Get(metricDisconnects))
}

func TestHub_DisconnectUnjoinedClient(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	c := connect(h)

	h.handle(disconnectCmd{client: c})

	_, ok := <-c.Send
	req.False(ok)
	req.Empty(h.clients)
}

func TestHub_SupersededConnection(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	oldAlice, newAlice, bob := connect(h), connect(h), connect(h)
	roomID := createRoom(t, h, "alice")
	join(h, oldAlice, roomID, "alice", "Alice")
	join(h, bob, roomID, "bob", "Bob")
	recvType(t, bob, TypeRoomJoined)

	// When alice reconnects on a new connection into the same room
	join(h, newAlice, roomID, "alice", "Alice")

	// Then bob sees her join again and the count is unchanged
	again := payloadOf[UserJoinedPayload](t, recvType(t, bob, TypeUserJoined))
	req.Equal("alice", again.UserID)
	req.Equal(2, again.ParticipantsCount)
	req.True(h.conns.Owns("alice", newAlice))

	// When the stale connection finally drops
	h.handle(disconnectCmd{client: oldAlice})

	// Then nothing changes for the room or the new binding
	requireQuiet(t, bob)
	req.True(h.conns.Owns("alice", newAlice))
	room, err := h.rooms.Room(roomID)
	req.NoError(err)
	req.ElementsMatch([]string{"alice", "bob"}, room.Participants)

	// And relays to alice land on the new connection
	recvType(t, newAlice, TypeRoomJoined)
	frame(t, h, bob, `{"type":"offer","targetUserId":"alice","payload":{"sdp":"x"}}`)
	recvType(t, newAlice, TypeOffer)
}

func TestHub_SupersededConnectionInOtherRoom(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	oldAlice, newAlice, bob := connect(h), connect(h), connect(h)
	first := createRoom(t, h, "alice")
	second := createRoom(t, h, "alice")
	join(h, oldAlice, first, "alice", "Alice")
	join(h, bob, first, "bob", "Bob")
	recvType(t, bob, TypeRoomJoined)

	// Given alice has moved to another room on a new connection
	join(h, newAlice, second, "alice", "Alice")

	// When the stale connection drops
	h.handle(disconnectCmd{client: oldAlice})

	// Then her stale membership is cleaned up but her binding survives
	recvType(t, bob, TypeUserDisconnected)
	room, err := h.rooms.Room(first)
	req.NoError(err)
	req.Equal([]string{"bob"}, room.Participants)

	b, ok := h.conns.Resolve("alice")
	req.True(ok)
	req.Same(newAlice, b.Conn)
	req.Equal(second, b.RoomID)
}

func TestHub_StaleConnectionRejoinsItsRoom(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	oldAlice, newAlice := connect(h), connect(h)
	first := createRoom(t, h, "alice")
	second := createRoom(t, h, "alice")

	// Given alice moved to the second room on a new connection
	join(h, oldAlice, first, "alice", "Alice")
	join(h, newAlice, second, "alice", "Alice")
	recvType(t, oldAlice, TypeRoomJoined)
	recvType(t, newAlice, TypeRoomJoined)

	// When the old connection joins the first room again
	req.NotPanics(func() { join(h, oldAlice, first, "alice", "Alice") })

	// Then it is admitted and the first room survives
	joined := payloadOf[RoomJoinedPayload](t, recvType(t, oldAlice, TypeRoomJoined))
	req.Equal(first, joined.RoomID)
	room, err := h.rooms.Room(first)
	req.NoError(err)
	req.Equal([]string{"alice"}, room.Participants)
	req.True(h.conns.Owns("alice", oldAlice))

	// When the connection that lost the binding drops
	h.handle(disconnectCmd{client: newAlice})

	// Then its stale membership goes and the rejoined binding stays
	_, err = h.rooms.Room(second)
	req.ErrorIs(err, ErrRoomNotFound)
	b, ok := h.conns.Resolve("alice")
	req.True(ok)
	req.Equal(first, b.RoomID)
}

func TestHub_RelayToUnboundTargetIsSilent(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	alice := connect(h)
	roomID := createRoom(t, h, "alice")
	join(h, alice, roomID, "alice", "")
	recvType(t, alice, TypeRoomJoined)

	frame(t, h, alice, `{"type":"offer","targetUserId":"ghost","payload":{"sdp":"x"}}`)

	requireQuiet(t, alice)
	req.Equal(uint64(1), h.metrics.Get(metricRelayUnreachable))
	req.Zero(h.metrics.Get(metricRelayed))
}

func TestHub_RelayRequiresJoin(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	alice, bob := connect(h), connect(h)
	roomID := createRoom(t, h, "bob")
	join(h, bob, roomID, "bob", "")
	recvType(t, bob, TypeRoomJoined)

	frame(t, h, alice, `{"type":"offer","targetUserId":"bob","payload":{"sdp":"x"}}`)

	errMsg := payloadOf[ErrorPayload](t, recvType(t, alice, TypeError))
	req.Equal(ErrNotJoined.Error(), errMsg.Message)
	requireQuiet(t, bob)
}

func TestHub_RelayWithoutTargetIsRejected(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	alice := connect(h)

	frame(t, h, alice, `{"type":"answer","payload":{"sdp":"x"}}`)

	errMsg := payloadOf[ErrorPayload](t, recvType(t, alice, TypeError))
	req.Contains(errMsg.Message, "targetUserId")
	req.Equal(uint64(1), h.metrics.Get(metricInvalidMessages))
}

func TestHub_StatusBroadcast(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	alice, bob, carol := connect(h), connect(h), connect(h)
	roomID := createRoom(t, h, "alice")
	for _, p := range []struct {
		c  *Client
		id string
	}{{alice, "alice"}, {bob, "bob"}, {carol, "carol"}} {
		join(h, p.c, roomID, p.id, "")
	}
	for _, c := range []*Client{alice, bob, carol} {
		for len(c.Send) > 0 {
			<-c.Send
		}
	}

	frame(t, h, bob, `{"type":"user-status","payload":{"isMuted":true,"isVideoOn":false}}`)

	for _, c := range []*Client{alice, carol} {
		st := payloadOf[UserStatusChangedPayload](t, recvType(t, c, TypeUserStatusChanged))
		req.Equal("bob", st.UserID)
		req.True(st.IsMuted)
		req.False(st.IsVideoOn)
		req.Equal(testNow.UnixMilli(), st.Timestamp)
	}
	requireQuiet(t, bob)

	room, err := h.rooms.Room(roomID)
	req.NoError(err)
	req.Len(room.Participants, 3)
}

func TestHub_StatusRequiresJoin(t *testing.T) {
	h := newTestHub(t)
	c := connect(h)

	frame(t, h, c, `{"type":"user-status","payload":{"isMuted":true,"isVideoOn":true}}`)

	recvType(t, c, TypeError)
}

func TestHub_PingPong(t *testing.T) {
	h := newTestHub(t)
	c := connect(h)

	frame(t, h, c, `{"type":"ping","payload":{}}`)

	pong := payloadOf[PongPayload](t, recvType(t, c, TypePong))
	require.Equal(t, testNow.UnixMilli(), pong.Timestamp)
}

func TestHub_CreateRoomOverWebsocket(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	c := connect(h)

	frame(t, h, c, `{"type":"create-room","payload":{"userId":"alice"}}`)

	created := payloadOf[RoomCreatedPayload](t, recvType(t, c, TypeRoomCreated))
	req.Equal(DefaultRoomType, created.Type)
	req.Equal(testNow.UnixMilli(), created.CreatedAt)
	room, err := h.rooms.Room(created.RoomID)
	req.NoError(err)
	req.Equal("alice", room.CreatorID)
}

func TestHub_MalformedFrames(t *testing.T) {
	h := newTestHub(t)
	c := connect(h)

	frames := []string{
		`{"type":"dance"}`,
		`{"type":"join-room"}`,
		`{"type":"join-room","payload":{"roomId":"x"}}`,
		`{"type":"join-room","payload":"nope"}`,
	}
	for _, f := range frames {
		frame(t, h, c, f)
		recvType(t, c, TypeError)
	}
	require.Equal(t, uint64(len(frames)), h.metrics.Get(metricInvalidMessages))
}

func TestHub_SlowConsumerDropsMessages(t *testing.T) {
	req := require.New(t)
	cfg := DefaultConfig()
	cfg.SendBuffer = 1
	h := NewHub(cfg, slog.New(slog.DiscardHandler), nil)
	c := connect(h)

	h.handle(pingCmd{client: c})
	h.handle(pingCmd{client: c})

	recvType(t, c, TypePong)
	requireQuiet(t, c)
	req.Equal(uint64(1), h.metrics.Get(metricSendDropped))
}

func TestHub_ReapOnlyEmptyExpiredRooms(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	alice := connect(h)
	busy := createRoom(t, h, "alice")
	idle := createRoom(t, h, "bob")
	join(h, alice, busy, "alice", "")

	// When the reaper runs well past the retention period
	reaped := h.reap(testNow.Add(h.cfg.RoomRetention + time.Minute))

	// Then only the empty room is gone
	req.Equal([]string{idle}, reaped)
	_, err := h.rooms.Room(busy)
	req.NoError(err)
	_, err = h.rooms.Room(idle)
	req.ErrorIs(err, ErrRoomNotFound)
	req.Equal(uint64(1), h.metrics.Get(metricRoomsReaped))

	// And nothing is reaped before the retention period ends
	fresh := createRoom(t, h, "carol")
	req.Empty(h.reap(testNow.Add(time.Minute)))
	_, err = h.rooms.Room(fresh)
	req.NoError(err)
}

func TestHub_RunServesControlRequests(t *testing.T) {
	req := require.New(t)
	h := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	info, err := h.CreateRoom(ctx, "alice", "")
	req.NoError(err)
	req.Equal(DefaultRoomType, info.Type)
	req.Equal("alice", info.CreatorID)
	req.True(info.IsActive)

	got, err := h.RoomInfo(ctx, info.RoomID)
	req.NoError(err)
	req.Equal(info, got)

	_, err = h.RoomInfo(ctx, "missing-0000")
	req.ErrorIs(err, ErrRoomNotFound)

	stats, err := h.Stats(ctx)
	req.NoError(err)
	req.Equal(Stats{Rooms: 1}, stats)

	cancel()
	<-stopped

	_, err = h.Stats(context.Background())
	req.ErrorIs(err, ErrHubStopped)
	req.False(h.Register(NewClient(h, nil)))
}
