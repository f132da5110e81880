package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/client"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/ui"
)

var flagRoomType string

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c"},
	Short:   "Create a new room",
	Long: `Create a room on the signaling server and print its id.

Examples:
  assma create
  assma create --type audio --user-id alice
  assma create --server https://signal.example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}

		userID := currentUserID()
		stopSpinner := ui.RunConnectionSpinner("Creating room...")
		created, err := client.CreateRoom(cmd.Context(), cfg.ServerURL, userID, flagRoomType)
		stopSpinner()
		if err != nil {
			return err
		}

		hint := fmt.Sprintf("Join as creator: assma join %s --user-id %s", created.RoomID, userID)
		fmt.Println(ui.RoomCreatedView(created.RoomID, created.Type, hint))
		return nil
	},
}

func init() {
	addServerFlags(createCmd)
	createCmd.Flags().StringVarP(&flagRoomType, "type", "t", "", "Room type, e.g. video or audio (server default: video)")
}
