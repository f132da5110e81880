package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/config"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/logging"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/metrics"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/server"
	"github.com/AskiaMohamed22/assma-signaling-server/internal/signaling"
)

const shutdownTimeout = 10 * time.Second

var (
	flagHost      string
	flagPort      int
	flagLogLevel  string
	flagLogFormat string
	flagOrigins   []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling server",
	Long: `Run the signaling server.

Settings come from flags, then environment variables (PORT, HOST, LOG_LEVEL,
LOG_FORMAT, ALLOWED_ORIGINS, REAP_INTERVAL, ROOM_RETENTION, ...), then a .env
file in the working directory, then defaults.

Examples:
  assma serve
  assma serve --port 8080 --origin https://app.example.com
  LOG_FORMAT=json assma serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServer(config.ServerOptions{
			Host:           flagHost,
			Port:           flagPort,
			LogLevel:       flagLogLevel,
			LogFormat:      flagLogFormat,
			AllowedOrigins: flagOrigins,
		})
		if err != nil {
			return err
		}
		return runServer(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagHost, "host", "", "Interface to listen on (env HOST)")
	serveCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "Port to listen on (env PORT, default 3001)")
	serveCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	serveCmd.Flags().StringVar(&flagLogFormat, "log-format", "", "text or json (env LOG_FORMAT)")
	serveCmd.Flags().StringSliceVar(&flagOrigins, "origin", nil, "Allowed browser origin, repeatable (env ALLOWED_ORIGINS)")
}

func runServer(ctx context.Context, cfg *config.Server) error {
	log := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel, slog.LevelInfo), cfg.LogFormat)
	slog.SetDefault(log)

	hub := signaling.NewHub(cfg.Hub(), log, metrics.New())
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()
	defer func() {
		stopHub()
		<-hubDone
	}()

	l, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
	}

	srv := server.New(cfg.HTTP(), hub, log)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(l)
	}()

	log.Info("signaling server listening",
		"addr", l.Addr().String(),
		"origins", cfg.AllowedOrigins,
		"reap_interval", cfg.ReapInterval,
		"room_retention", cfg.RoomRetention,
	)

	select {
	case err := <-serveErr:
		if !errors.Is(err, server.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("signaling server stopped")
	return nil
}
