package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/client"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/peer"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/signaling"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/ui"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/version"
)

const connectTimeout = 30 * time.Second

var callCmd = &cobra.Command{
	Use:   "call <roomId>",
	Short: "Open a direct peer connection with someone in a room",
	Long: `Join a room and open a WebRTC data channel with another participant.

The newcomer sends the offer to whoever is already in the room; if the room is
empty, call waits for the next peer to arrive and answers their offer. Once
connected, lines typed on stdin are sent as chat messages.

Examples:
  assma call otter-ab12 --name Alice
  assma call otter-ab12 --turn turn:turn.example.com:3478 --turn-user u --turn-pass p`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callRoom(cmd.Context(), args[0])
	},
}

func init() {
	addPeerFlags(callCmd)
}

func callRoom(ctx context.Context, roomID string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	sp := ui.NewConnectionSpinner("Connecting to server...")
	sp.Start()
	defer sp.Stop()
	conn, err := NewConnectionContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	sp.UpdateMessage("Joining " + roomID + "...")
	joined, err := conn.Join(ctx, roomID)
	if err != nil {
		return err
	}
	sp.Success(fmt.Sprintf("Joined %s as %s", roomID, conn.UserID))

	greeting := peer.GreetingPayload{
		UserID:  conn.UserID,
		Name:    conn.Name,
		Client:  version.ClientName,
		Version: version.Version,
	}

	session, err := dialPeer(ctx, conn, joined, greeting)
	if err != nil {
		return err
	}
	defer session.Close()

	return chat(ctx, conn, session)
}

// dialPeer negotiates a session with the first other participant, or with
// whoever offers next when the room is empty.
func dialPeer(ctx context.Context, conn *ConnectionContext, joined *signaling.RoomJoinedPayload, greeting peer.GreetingPayload) (*peer.Session, error) {
	for _, p := range joined.Participants {
		if p.ID == conn.UserID {
			continue
		}
		session, err := peer.NewSession(conn.Config, conn.Client, p.ID, greeting, slog.Default())
		if err != nil {
			return nil, err
		}
		if err := session.Offer(); err != nil {
			session.Close()
			return nil, err
		}
		return session, nil
	}

	stopSpinner := ui.RunWaitingSpinner("Waiting for a peer to call...")
	defer stopSpinner()

	for {
		select {
		case sig, ok := <-conn.Handler.Signal:
			if !ok {
				return nil, client.NewError("wait for peer", client.ErrClosed)
			}
			if sig.Kind != signaling.TypeOffer {
				slog.Debug("ignoring signal before offer", "kind", sig.Kind, "from", sig.SenderID)
				continue
			}
			session, err := peer.NewSession(conn.Config, conn.Client, sig.SenderID, greeting, slog.Default())
			if err != nil {
				return nil, err
			}
			if err := session.HandleSignal(sig.Kind, sig.Payload); err != nil {
				session.Close()
				return nil, err
			}
			return session, nil

		case err, ok := <-conn.Handler.Error:
			if ok {
				return nil, err
			}
			return nil, client.NewError("wait for peer", client.ErrClosed)

		case p, ok := <-conn.Handler.PeerJoined:
			if !ok {
				return nil, client.NewError("wait for peer", client.ErrClosed)
			}
			stopSpinner()
			ui.PrintInfof("%s joined, waiting for their offer", displayName(p.UserName, p.UserID))

		case _, ok := <-conn.Handler.StatusChanged:
			if !ok {
				return nil, client.NewError("wait for peer", client.ErrClosed)
			}

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// chat pumps signals into the session and stdin lines onto the data channel
// until either side hangs up.
func chat(ctx context.Context, conn *ConnectionContext, session *peer.Session) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	connected := false
	timeout := time.NewTimer(connectTimeout)
	defer timeout.Stop()
	stopSpinner := ui.RunConnectionSpinner("Opening peer connection...")
	defer stopSpinner()

	for {
		select {
		case sig, ok := <-conn.Handler.Signal:
			if !ok {
				return client.NewError("signaling", client.ErrClosed)
			}
			if err := session.HandleSignal(sig.Kind, sig.Payload); err != nil {
				slog.Warn("failed to apply signal", "kind", sig.Kind, "err", err)
			}

		case g := <-session.Greeting():
			connected = true
			timeout.Stop()
			stopSpinner()
			ui.PrintSuccessf("Connected to %s (%s %s). Type to chat, Ctrl+D to hang up.", displayName(g.Name, g.UserID), g.Client, g.Version)

		case msg := <-session.Messages():
			switch msg.Type {
			case peer.MessageTypeChat:
				var c peer.ChatPayload
				if err := msg.DecodePayload(&c); err == nil {
					fmt.Printf("%s %s\n", ui.IconChat, c.Text)
				}
			case peer.MessageTypeBye:
				ui.PrintInfo("Peer hung up")
				return nil
			}

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := session.SendChat(line); err != nil {
				ui.PrintWarning("Not connected yet, message not sent")
			}

		case left, ok := <-conn.Handler.PeerLeft:
			if !ok {
				return client.NewError("signaling", client.ErrClosed)
			}
			ui.PrintInfof("%s left the room", displayName(left.UserName, left.UserID))

		case p, ok := <-conn.Handler.PeerJoined:
			if !ok {
				return client.NewError("signaling", client.ErrClosed)
			}
			ui.PrintInfof("%s joined the room", displayName(p.UserName, p.UserID))

		case _, ok := <-conn.Handler.StatusChanged:
			if !ok {
				return client.NewError("signaling", client.ErrClosed)
			}

		case err, ok := <-conn.Handler.Error:
			if !ok {
				return client.NewError("signaling", client.ErrClosed)
			}
			ui.PrintWarning(err.Error())

		case <-session.Failed():
			return peer.NewError("peer connection", peer.ErrConnectionFailed)

		case <-timeout.C:
			if !connected {
				return peer.WrapError("open peer connection", peer.ErrTimeout, connectTimeout.String())
			}

		case <-ctx.Done():
			return nil
		}
	}
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
