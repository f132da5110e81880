package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/server"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/signaling"
)

var validate = validator.New()

// Server holds the settings for `assma serve`.
type Server struct {
	Host           string   `envconfig:"HOST"`
	Port           int      `envconfig:"PORT" default:"3001" validate:"min=1,max=65535"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string   `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*" validate:"min=1,dive,required"`

	// RoomIDPrefix replaces the random word in room ids ("assma" gives "assma-ab12").
	RoomIDPrefix string `envconfig:"ROOM_ID_PREFIX" validate:"omitempty,max=32,alphanum,lowercase"`

	ReapInterval  time.Duration `envconfig:"REAP_INTERVAL" default:"1h" validate:"gte=0"`
	RoomRetention time.Duration `envconfig:"ROOM_RETENTION" default:"24h" validate:"gt=0"`

	MaxMessageBytes   int64   `envconfig:"MAX_MESSAGE_BYTES" default:"65536" validate:"gt=0"`
	MessagesPerSecond float64 `envconfig:"MESSAGES_PER_SECOND" default:"50" validate:"gt=0"`
	MessageBurst      int     `envconfig:"MESSAGE_BURST" default:"100" validate:"gt=0"`
	SendBuffer        int     `envconfig:"SEND_BUFFER" default:"256" validate:"gt=0"`
}

// ServerOptions carries CLI flag overrides. Zero values mean "not set".
type ServerOptions struct {
	Host           string
	Port           int
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
}

// LoadServer reads server configuration with the following priority:
// 1. CLI flags (passed via ServerOptions) - highest priority
// 2. Environment variables (and a .env file, if present)
// 3. Defaults - lowest priority
func LoadServer(opts ServerOptions) (*Server, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	if len(opts.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = opts.AllowedOrigins
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	for i, o := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(o)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Addr is the listen address.
func (c *Server) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Hub returns the hub settings.
func (c *Server) Hub() signaling.Config {
	return signaling.Config{
		MaxMessageBytes:   c.MaxMessageBytes,
		MessagesPerSecond: c.MessagesPerSecond,
		MessageBurst:      c.MessageBurst,
		SendBuffer:        c.SendBuffer,
		ReapInterval:      c.ReapInterval,
		RoomRetention:     c.RoomRetention,
		RoomIDPrefix:      c.RoomIDPrefix,
	}
}

// HTTP returns the HTTP server settings.
func (c *Server) HTTP() server.Config {
	return server.Config{
		Addr:           c.Addr(),
		AllowedOrigins: c.AllowedOrigins,
	}
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load .env: %w", err)
	}
	return nil
}
