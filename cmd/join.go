package cmd

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/client"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/signaling"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:     "join <roomId>",
	Aliases: []string{"j"},
	Short:   "Join a room and watch who comes and goes",
	Long: `Join a room and show the live roster and room events.

Press m to toggle mute, v to toggle video and q to leave.

Examples:
  assma join otter-ab12 --name Alice
  assma join otter-ab12 --user-id alice --server https://signal.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(cmd.Context(), args[0])
	},
}

func init() {
	addPeerFlags(joinCmd)
}

func joinRoom(ctx context.Context, roomID string) error {
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
	sp.Stop()

	roomUI := ui.NewRoomUI(roomID, conn.UserID, func(muted, videoOn bool) {
		if err := conn.Client.SendStatus(muted, videoOn); err != nil {
			slog.Debug("status update failed", "err", err)
		}
	})
	roomUI.Start()
	roomUI.Push(ui.RoomEvent{Kind: ui.EventJoined, Roster: rosterEntries(joined.Participants)})
	if joined.IsCreator {
		roomUI.Push(ui.RoomEvent{Kind: ui.EventInfo, Text: "you created this room"})
	}

	done := make(chan struct{})
	defer close(done)
	go forwardRoomEvents(conn.Handler, roomUI)
	go func() {
		select {
		case <-ctx.Done():
			roomUI.Stop()
		case <-done:
		}
	}()

	roomUI.Wait()
	_ = conn.Client.LeaveRoom()
	return nil
}

func rosterEntries(participants []signaling.Participant) []ui.RosterEntry {
	return lo.Map(participants, func(p signaling.Participant, _ int) ui.RosterEntry {
		return ui.RosterEntry{ID: p.ID, Name: p.Name, VideoOn: true}
	})
}

// forwardRoomEvents turns handler traffic into room view events until the
// connection ends.
func forwardRoomEvents(h *client.Handler, roomUI *ui.RoomUI) {
	for {
		select {
		case p, ok := <-h.PeerJoined:
			if !ok {
				roomUI.Push(lostConnection())
				return
			}
			roomUI.Push(ui.RoomEvent{Kind: ui.EventPeerJoined, UserID: p.UserID, Name: p.UserName})

		case p, ok := <-h.PeerLeft:
			if !ok {
				roomUI.Push(lostConnection())
				return
			}
			reason := "left"
			if p.Disconnected {
				reason = "disconnected"
			}
			roomUI.Push(ui.RoomEvent{Kind: ui.EventPeerLeft, UserID: p.UserID, Name: p.UserName, Text: reason})

		case st, ok := <-h.StatusChanged:
			if !ok {
				roomUI.Push(lostConnection())
				return
			}
			roomUI.Push(ui.RoomEvent{Kind: ui.EventStatus, UserID: st.UserID, Muted: st.IsMuted, VideoOn: st.IsVideoOn})

		case sig, ok := <-h.Signal:
			if !ok {
				roomUI.Push(lostConnection())
				return
			}
			roomUI.Push(ui.RoomEvent{Kind: ui.EventSignal, UserID: sig.SenderID, Name: sig.SenderName, Text: sig.Kind})

		case err, ok := <-h.Error:
			if !ok {
				roomUI.Push(lostConnection())
				return
			}
			roomUI.Push(ui.RoomEvent{Kind: ui.EventError, Text: err.Error()})
		}
	}
}

func lostConnection() ui.RoomEvent {
	return ui.RoomEvent{Kind: ui.EventError, Text: "connection to the signaling server was lost"}
}
