package signaling

import (
	"context"
	"log/slog"
	"time"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/metrics"
)

// Metric names recorded by the hub.
const (
	metricConnections      = "connections"
	metricDisconnects      = "disconnects"
	metricRoomsCreated     = "rooms_created"
	metricRoomsDeleted     = "rooms_deleted"
	metricRoomsReaped      = "rooms_reaped"
	metricJoins            = "joins"
	metricJoinsNotFound    = "joins_rejected_not_found"
	metricJoinsFull        = "joins_rejected_full"
	metricLeaves           = "leaves"
	metricRelayed          = "relayed"
	metricRelayUnreachable = "relay_target_unreachable"
	metricStatusUpdates    = "status_updates"
	metricInvalidMessages  = "invalid_messages"
	metricSendDropped      = "send_dropped"
	metricRateLimited      = "rate_limited"
)

// Config tunes the hub and the connections it serves.
type Config struct {
	// MaxMessageBytes caps a single inbound websocket frame.
	MaxMessageBytes int64

	// MessagesPerSecond and MessageBurst bound inbound frames per connection.
	MessagesPerSecond float64
	MessageBurst      int

	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int

	// ReapInterval is how often the idle reaper runs. Zero disables it.
	ReapInterval time.Duration

	// RoomRetention is how long an empty room may live before it is reaped.
	RoomRetention time.Duration

	// RoomIDPrefix replaces the random word in generated room ids.
	RoomIDPrefix string
}

func DefaultConfig() Config {
	return Config{
		MaxMessageBytes:   64 * 1024, // 64 KB - enough for WebRTC SDP messages
		MessagesPerSecond: 50,
		MessageBurst:      100,
		SendBuffer:        256,
		ReapInterval:      time.Hour,
		RoomRetention:     24 * time.Hour,
	}
}

// Hub is the central brain of the signaling server.
// It owns the room registry and the connection bindings; Run is the single
// goroutine that touches them.
type Hub struct {
	cfg     Config
	rooms   *Registry
	conns   *Connections
	clients map[*Client]struct{}

	inbox chan command
	done  chan struct{}

	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewHub creates a new Hub instance. A nil logger uses slog.Default() and a
// nil metrics registry gets a private one.
func NewHub(cfg Config, log *slog.Logger, m *metrics.Metrics) *Hub {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	def := DefaultConfig()
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = def.MaxMessageBytes
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = def.MessagesPerSecond
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = def.MessageBurst
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.RoomRetention <= 0 {
		cfg.RoomRetention = def.RoomRetention
	}

	return &Hub{
		cfg:     cfg,
		rooms:   NewRegistry(NewIDGenerator(cfg.RoomIDPrefix)),
		conns:   NewConnections(),
		clients: make(map[*Client]struct{}),
		inbox:   make(chan command, 256),
		done:    make(chan struct{}),
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// Metrics returns the counters the hub records into.
func (h *Hub) Metrics() *metrics.Metrics {
	return h.metrics
}

// Run starts the hub's main processing loop and blocks until ctx is done.
// Each command runs to completion before the next one is taken.
func (h *Hub) Run(ctx context.Context) {
	reapTick, stopReaper := h.newReapTicker()
	defer stopReaper()

	defer func() {
		close(h.done)
		for c := range h.clients {
			c.close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("hub stopping", "rooms", h.rooms.Len(), "clients", len(h.clients))
			return

		case cmd := <-h.inbox:
			h.handle(cmd)

		case now := <-reapTick:
			h.reap(now)
		}
	}
}

// Register hands a freshly upgraded connection to the hub.
func (h *Hub) Register(c *Client) bool {
	return h.submit(registerCmd{client: c})
}

// submit queues cmd for the run loop. It returns false once the hub has
// stopped.
func (h *Hub) submit(cmd command) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.inbox <- cmd:
		return true
	case <-h.done:
		return false
	}
}

// ask queues cmd and waits for the loop to answer on reply.
func ask[T any](ctx context.Context, h *Hub, cmd command, reply <-chan T) (T, error) {
	var zero T
	select {
	case <-h.done:
		return zero, ErrHubStopped
	default:
	}

	select {
	case h.inbox <- cmd:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.done:
		return zero, ErrHubStopped
	}

	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrHubStopped
		}
	}
}

// CreateRoom allocates a room on behalf of the control surface.
func (h *Hub) CreateRoom(ctx context.Context, userID, roomType string) (RoomInfo, error) {
	reply := make(chan RoomInfo, 1)
	return ask(ctx, h, createRoomCmd{userID: userID, roomType: roomTypeOrDefault(roomType), reply: reply}, reply)
}

// RoomInfo reports on a single room.
func (h *Hub) RoomInfo(ctx context.Context, roomID string) (RoomInfo, error) {
	reply := make(chan roomInfoResult, 1)
	res, err := ask(ctx, h, roomInfoCmd{roomID: roomID, reply: reply}, reply)
	if err != nil {
		return RoomInfo{}, err
	}
	return res.info, res.err
}

// Stats reports current room and connection counts.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	return ask(ctx, h, statsCmd{reply: reply}, reply)
}

// handle dispatches one command. It is only called from Run (and directly
// from tests, which stand in for the loop).
func (h *Hub) handle(cmd command) {
	switch cmd := cmd.(type) {
	case registerCmd:
		h.clients[cmd.client] = struct{}{}
		h.metrics.Inc(metricConnections)
		cmd.client.log.Debug("client registered")

	case disconnectCmd:
		h.disconnect(cmd.client)

	case joinCmd:
		h.join(cmd.client, cmd.JoinRoomPayload)

	case leaveCmd:
		h.leave(cmd.client)

	case signalCmd:
		h.relay(cmd)

	case statusCmd:
		h.status(cmd.client, cmd.UserStatusPayload)

	case pingCmd:
		h.send(cmd.client, TypePong, PongPayload{Timestamp: h.now().UnixMilli()})

	case createRoomCmd:
		h.createRoom(cmd)

	case roomInfoCmd:
		room, err := h.rooms.Room(cmd.roomID)
		if err != nil {
			cmd.reply <- roomInfoResult{err: err}
			return
		}
		cmd.reply <- roomInfoResult{info: roomInfo(room)}

	case statsCmd:
		cmd.reply <- Stats{Rooms: h.rooms.Len(), Clients: len(h.clients), Bound: h.conns.Len()}

	case rejectCmd:
		h.metrics.Inc(metricInvalidMessages)
		cmd.client.log.Debug("rejected message", "err", cmd.err)
		h.send(cmd.client, TypeError, ErrorPayload{Message: cmd.err.Error()})

	default:
		h.log.Error("unhandled hub command", "command", cmd)
	}
}

func (h *Hub) createRoom(cmd createRoomCmd) {
	room := h.rooms.CreateRoom(cmd.userID, cmd.roomType, h.now())
	h.metrics.Inc(metricRoomsCreated)
	h.log.Info("room created", "room", room.ID, "type", room.Type, "creator", room.CreatorID)

	info := roomInfo(room)
	if cmd.reply != nil {
		cmd.reply <- info
	}
	if cmd.client != nil {
		h.send(cmd.client, TypeRoomCreated, RoomCreatedPayload{
			RoomID:    room.ID,
			Type:      room.Type,
			CreatedAt: room.CreatedAt.UnixMilli(),
		})
	}
}

// send encodes payload and queues it on c.
func (h *Hub) send(c *Client, t string, payload any) {
	msg, err := NewMessage(t, payload)
	if err != nil {
		h.log.Error("failed to build message", "type", t, "err", err)
		return
	}
	c.deliver(msg)
}

func roomInfo(room *Room) RoomInfo {
	return RoomInfo{
		RoomID:            room.ID,
		Type:              room.Type,
		CreatorID:         room.CreatorID,
		ParticipantsCount: len(room.Participants),
		CreatedAt:         room.CreatedAt,
		IsActive:          room.IsActive,
	}
}
