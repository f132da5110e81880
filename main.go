package main

import (
	"github.com/AskiaMohamed22/assma-signaling-server/cmd"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
