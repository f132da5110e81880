package version

// Version is the current version of assma.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/AskiaMohamed22/assma-signaling-server/internal/version.Version=v1.0.0'"
var Version = "dev"

// ClientName identifies this CLI in peer greetings.
const ClientName = "assma-cli"
