package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/ui"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "assma",
	Short: "WebRTC signaling server for small video and audio rooms",
	Long: `assma runs a WebRTC signaling server and talks to it.

The server keeps a registry of rooms of up to four participants, tracks who is
connected, and relays offers, answers and ICE candidates between peers. The
client commands create rooms, join them and open a direct peer connection.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(serveCmd, createCmd, roomCmd, joinCmd, callCmd, versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
