package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/client"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/config"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/signaling"
)

const joinTimeout = 15 * time.Second

var (
	flagServer   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagUserID   string
	flagName     string
	flagRelay    bool
)

// addServerFlags registers the flags every client command shares.
func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagServer, "server", "", "Signaling server URL (env SERVER_URL)")
	cmd.Flags().StringVar(&flagUserID, "user-id", "", "User id to act as (random if empty)")
}

// addPeerFlags registers the identity and ICE flags used by commands that
// join a room.
func addPeerFlags(cmd *cobra.Command) {
	addServerFlags(cmd)
	cmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name shown to other participants")
	cmd.Flags().StringVar(&flagSTUN, "stun", "", "STUN server URL (env STUN_SERVER)")
	cmd.Flags().StringVar(&flagTURN, "turn", "", "TURN server URL (env TURN_SERVER)")
	cmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username (env TURN_USERNAME)")
	cmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password (env TURN_PASSWORD)")
	cmd.Flags().BoolVar(&flagRelay, "relay", false, "Only use TURN relay candidates (env FORCE_RELAY)")
}

func LoadConfig() (*config.Client, error) {
	return config.LoadClient(config.ClientOptions{
		ServerURL:  flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
}

// currentUserID returns --user-id, generating and remembering one if unset.
func currentUserID() string {
	if flagUserID == "" {
		flagUserID = uuid.NewString()
	}
	return flagUserID
}

// ConnectionContext bundles a live signaling connection with the handler
// reading from it.
type ConnectionContext struct {
	Client  *client.Client
	Handler *client.Handler
	Config  *config.Client
	UserID  string
	Name    string
}

func NewConnectionContext(ctx context.Context, cfg *config.Client) (*ConnectionContext, error) {
	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		return nil, err
	}

	c := client.New(wsURL, slog.Default())
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	handler := client.NewHandler(c)
	go handler.Start()

	return &ConnectionContext{
		Client:  c,
		Handler: handler,
		Config:  cfg,
		UserID:  currentUserID(),
		Name:    flagName,
	}, nil
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

// Join enters roomID and waits for the server's answer.
func (c *ConnectionContext) Join(ctx context.Context, roomID string) (*signaling.RoomJoinedPayload, error) {
	if err := c.Client.JoinRoom(roomID, c.UserID, c.Name, ""); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	select {
	case joined, ok := <-c.Handler.RoomJoined:
		if !ok {
			return nil, client.NewError("join room", client.ErrClosed)
		}
		return joined, nil
	case err, ok := <-c.Handler.Error:
		if !ok {
			return nil, client.NewError("join room", client.ErrClosed)
		}
		return nil, err
	case <-ctx.Done():
		return nil, client.WrapError("join room", client.ErrTimeout, roomID)
	}
}
