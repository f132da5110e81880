package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	env "github.com/Netflix/go-env"
)

// Default client settings.
const (
	DefaultServerURL = "http://localhost:3001"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
)

var ErrRelayWithoutTURN = errors.New("config: cannot force relay mode without a TURN server")

// Client holds the settings used by the interactive commands.
type Client struct {
	// ServerURL is the signaling server's HTTP base URL.
	ServerURL string `env:"SERVER_URL,default=http://localhost:3001" validate:"required,url"`

	// ICE servers for WebRTC
	STUNServer string `env:"STUN_SERVER,default=stun:stun.l.google.com:19302" validate:"required"`
	TURNServer string `env:"TURN_SERVER"`
	TURNUser   string `env:"TURN_USERNAME"`
	TURNPass   string `env:"TURN_PASSWORD"`

	// ForceRelay restricts ICE to TURN relay candidates.
	ForceRelay bool `env:"FORCE_RELAY"`
}

// ClientOptions for loading config with CLI flag overrides
type ClientOptions struct {
	ServerURL  string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// LoadClient reads configuration with the following priority:
// 1. CLI flags (passed via ClientOptions) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func LoadClient(opts ClientOptions) (*Client, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var cfg Client
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if opts.ServerURL != "" {
		cfg.ServerURL = opts.ServerURL
	}
	if opts.STUNServer != "" {
		cfg.STUNServer = opts.STUNServer
	}
	if opts.TURNServer != "" {
		cfg.TURNServer = opts.TURNServer
	}
	if opts.TURNUser != "" {
		cfg.TURNUser = opts.TURNUser
	}
	if opts.TURNPass != "" {
		cfg.TURNPass = opts.TURNPass
	}
	if opts.ForceRelay {
		cfg.ForceRelay = true
	}
	cfg.ServerURL = strings.TrimSuffix(cfg.ServerURL, "/")

	if cfg.ForceRelay && cfg.TURNServer == "" {
		return nil, ErrRelayWithoutTURN
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// WebSocketURL derives the /ws endpoint from ServerURL.
func (c *Client) WebSocketURL() (string, error) {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "", fmt.Errorf("config: parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("config: unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Client) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Client) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Client) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
