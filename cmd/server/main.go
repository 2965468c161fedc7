// Package main provides the jukebox server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/osa030/sonobox/internal/api/rest"
	"github.com/osa030/sonobox/internal/app/notification"
	"github.com/osa030/sonobox/internal/app/playback"
	"github.com/osa030/sonobox/internal/infra/catalog"
	"github.com/osa030/sonobox/internal/infra/config"
	"github.com/osa030/sonobox/internal/infra/logger"
	"github.com/osa030/sonobox/internal/infra/sonos"
)

var (
	app        = kingpin.New("sonobox-server", "sonobox jukebox server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	speaker := sonos.NewSpeaker(cfg.Device.IP, cfg.DeviceTimeout())

	var cat playback.Catalog
	if cfg.Catalog.DBPath != "" {
		loaded, err := catalog.Load(cfg.Catalog.DBPath, cfg.MediaBaseURL(), cfg.Media.Path)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		cat = loaded
	} else {
		zlog.Warn().Msg("No catalog configured; album commands will be no-ops")
	}

	ctrl := playback.NewController(speaker, cat, sonos.Resolver(cfg.DeviceTimeout()), playback.Config{
		QueueSize:      cfg.Queue.MaxPending,
		EnqueueTimeout: cfg.EnqueueTimeout(),
	})

	broadcaster := notification.NewBroadcaster(cfg.Notify.MailboxSize)
	notification.Attach(ctrl, broadcaster)

	ctrl.Start()
	defer ctrl.Stop()

	monitor := playback.NewMonitor(ctrl, playback.MonitorConfig{
		PollInterval: cfg.PollInterval(),
	})
	monitor.Start()
	defer monitor.Stop()

	var playlists *catalog.Playlists
	if cfg.Media.PlaylistPath != "" {
		playlists = catalog.NewPlaylists(cfg.Media.PlaylistPath, cfg.MediaBaseURL())
	}

	api := rest.New(ctrl, broadcaster, playlists, cfg.Keepalive())

	// h2c lets SSE clients multiplex over HTTP/2 without TLS.
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(api.Routes(), &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s device=%s", cfg.Server.Addr, cfg.Device.IP)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Warn().Msgf("Server shutdown: %v", err)
	}
	broadcaster.Close()
	return nil
}
