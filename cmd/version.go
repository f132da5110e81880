package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the assma version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "assma %s\n", version.Version)
	},
}
