package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/client"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/signaling"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/ui"
)

var roomCmd = &cobra.Command{
	Use:     "room <roomId>",
	Aliases: []string{"info"},
	Short:   "Show a room's details",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}

		info, err := client.GetRoom(cmd.Context(), cfg.ServerURL, args[0])
		if err != nil {
			return err
		}

		fmt.Println(ui.RoomDetailsTable(ui.RoomDetails{
			RoomID:       info.RoomID,
			Type:         info.Type,
			CreatorID:    info.CreatorID,
			Participants: info.ParticipantsCount,
			Capacity:     signaling.MaxParticipants,
			CreatedAt:    info.CreatedAt,
			Active:       info.IsActive,
		}))
		return nil
	},
}

func init() {
	addServerFlags(roomCmd)
}
