// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	apiconnect "github.com/osa030/ytlounge/internal/api/connect"
	"github.com/osa030/ytlounge/internal/app/integration"
	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/app/notification"
	"github.com/osa030/ytlounge/internal/app/supervisor"
	"github.com/osa030/ytlounge/internal/infra/config"
	"github.com/osa030/ytlounge/internal/infra/entrystore"
	"github.com/osa030/ytlounge/internal/infra/logger"
	"github.com/osa030/ytlounge/internal/infra/metrics"
	_ "github.com/osa030/ytlounge/internal/infra/simulator"
	"github.com/osa030/ytlounge/internal/infra/youtube"
)

const shutdownTimeout = 10 * time.Second

var (
	app        = kingpin.New("ytlounge-server", "YouTube lounge screen control server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	logFormat  = app.Flag("log-format", "Log format (console or json)").Enum("console", "json")

	// list-drivers command
	listDriversCmd = app.Command("list-drivers", "List available lounge drivers and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listDriversCmd.FullCommand() {
		fmt.Println("Available Drivers:")
		for _, name := range lounge.Registered() {
			fmt.Printf("  %s\n", name)
		}
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		Format: *logFormat,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := lounge.Lookup(cfg.Lounge.Driver); err != nil {
		return errors.Wrapf(err, "driver=%s", cfg.Lounge.Driver)
	}

	store := entrystore.New(cfg.Entries.Path)
	notifier := notification.NewManager()
	manager := integration.NewManager(
		store,
		integration.CachedOpener(cfg.Lounge.DeviceName, cfg.DriverSettings),
		youtube.NewFactory(youtube.Config{
			Endpoint: cfg.Metadata.Endpoint,
			Timeout:  cfg.Metadata.Timeout(),
		}),
		notifier,
		integration.Config{
			DefaultDriver: cfg.Lounge.Driver,
			DefaultAPIKey: cfg.Metadata.GoogleAPIKey,
			Supervisor: supervisor.Config{
				ConnectRetryInterval:   cfg.Supervisor.ConnectRetryInterval(),
				ErrorRetryInterval:     cfg.Supervisor.ErrorRetryInterval(),
				SubscribeRetryInterval: cfg.Supervisor.SubscribeRetryInterval(),
			},
			RetryFailedAfter: cfg.Metadata.RetryFailedAfter(),
			WatchDebounce:    cfg.Entries.WatchDebounce(),
		},
	)

	playerService := apiconnect.NewPlayerService(manager, notifier)

	mux := http.NewServeMux()
	playerPath, playerHandler := apiconnect.NewPlayerServiceHandler(
		playerService,
		connect.WithInterceptors(apiconnect.NewAdminAuthInterceptor(cfg.Admin.Token)),
	)
	mux.Handle(playerPath, playerHandler)
	if !cfg.Metrics.Disabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return manager.Run(gctx)
	})

	g.Go(func() error {
		zlog.Info().Msgf("Starting server: addr=%s entries=%s", cfg.Server.Addr, cfg.Entries.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zlog.Info().Msg("Shutting down...")

		// Close watch streams first so Shutdown does not wait on them
		playerService.Close()
		notifier.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown server: %v", err)
		}
		return nil
	})

	err := g.Wait()
	zlog.Info().Msg("Server stopped")
	return err
}
