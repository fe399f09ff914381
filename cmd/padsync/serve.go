package main

import (
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/padsync-dev/padsync/internal/config"
	"github.com/padsync-dev/padsync/pkg/registry"
	"github.com/padsync-dev/padsync/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		address   string
		configDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the padsync server",
		Long: `Start the realtime notepad server.

Configuration is resolved from padsync.json (if present), PADSYNC_*
environment variables, and flags, in that order of precedence.

Examples:
  padsync serve
  padsync serve --address :4000
  PADSYNC_LOG_FORMAT=json padsync serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configDir, address)
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Address to listen on (default from padsync.json)")
	cmd.Flags().StringVarP(&configDir, "config-dir", "c", ".", "Directory containing padsync.json")

	return cmd
}

func runServe(configDir, address string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if address != "" {
		cfg.Address = address
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	reg := registry.New(nil, logger)
	srv := server.New(&server.ServerConfig{
		Address:         cfg.Address,
		ReadTimeout:     time.Duration(cfg.Timeouts.Read),
		WriteTimeout:    time.Duration(cfg.Timeouts.Write),
		PingInterval:    time.Duration(cfg.Timeouts.Ping),
		ShutdownTimeout: time.Duration(cfg.Timeouts.Shutdown),
	}, reg, logger)

	printBanner()
	success("%s listening on %s", cfg.Name, cfg.Address)
	info("local:   http://localhost%s", displayPort(cfg.Address))
	if ip := localIP(); ip != "" {
		info("network: http://%s%s", ip, displayPort(cfg.Address))
		info("share the network URL with participants")
	}

	return srv.Run()
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// displayPort renders the port part of a listen address for URLs, so ":3000"
// and "0.0.0.0:3000" both come out as ":3000".
func displayPort(address string) string {
	if i := strings.LastIndex(address, ":"); i >= 0 {
		return address[i:]
	}
	return ""
}

// localIP returns the first non-loopback IPv4 address, for the "share this
// URL" hint. Empty when none is found.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}
