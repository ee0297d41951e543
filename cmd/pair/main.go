// Package main provides the screen pairing tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/app/pairing"
	"github.com/osa030/ytlounge/internal/infra/config"
	"github.com/osa030/ytlounge/internal/infra/entrystore"
	"github.com/osa030/ytlounge/internal/infra/logger"
	_ "github.com/osa030/ytlounge/internal/infra/simulator"
	"github.com/osa030/ytlounge/internal/infra/youtube"
)

var (
	app        = kingpin.New("ytlounge-pair", "Pair a screen with ytlounge")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	driverName = app.Flag("driver", "Lounge driver (default: lounge.driver from config)").String()
	apiKey     = app.Flag("api-key", "Google API key for video metadata").Envar("YTLOUNGE_GOOGLE_API_KEY").String()
	timeout    = app.Flag("timeout", "Pairing timeout").Default("30s").Duration()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()

	// code command
	codeCmd  = app.Command("code", "Pair using the TV code shown on the screen")
	codeCode = codeCmd.Arg("code", "TV code (digits, spaces and dashes are ignored)").Required().String()

	// screen command
	screenCmd  = app.Command("screen", "Pair with a discovered screen")
	screenID   = screenCmd.Arg("screen-id", "Screen ID").Required().String()
	screenName = screenCmd.Arg("name", "Screen name").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	level := "warn"
	if *verbose {
		level = "debug"
	}
	if _, err := logger.Init(logger.Config{Output: "stderr", Level: level}); err != nil {
		fmt.Printf("Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	name := *driverName
	if name == "" {
		name = cfg.Lounge.Driver
	}
	driver, err := lounge.Open(name, cfg.Lounge.DeviceName, cfg.DriverSettings(name))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	flow := pairing.NewFlow(
		name,
		driver,
		entrystore.New(cfg.Entries.Path),
		youtube.NewValidatorFactory(youtube.Config{
			Endpoint: cfg.Metadata.Endpoint,
			Timeout:  cfg.Metadata.Timeout(),
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	var res *pairing.Result
	switch command {
	case codeCmd.FullCommand():
		res, err = flow.PairWithCode(ctx, *codeCode)
	case screenCmd.FullCommand():
		res, err = flow.PairWithScreenID(ctx, *screenID, *screenName)
	}
	if err != nil {
		fail(err)
	}

	fmt.Printf("Paired with %s (screen id %s)\n", res.ScreenName, res.ScreenID)

	entry, err := flow.Complete(ctx, res, *apiKey)
	if err != nil {
		fail(err)
	}

	fmt.Println("")
	fmt.Println("=== Pairing Successful ===")
	fmt.Println("")
	fmt.Printf("Entry ID: %s\n", entry.ID)
	fmt.Printf("Title: %s\n", entry.Title)
	fmt.Printf("Saved to: %s\n", cfg.Entries.Path)
	if entry.GoogleAPIKey == "" && cfg.Metadata.GoogleAPIKey == "" {
		fmt.Println("")
		fmt.Println("No Google API key configured: video titles and thumbnails will not be shown.")
	}
	fmt.Printf("\nA running server picks up the entry within %v.\n", cfg.Entries.WatchDebounce()+time.Second)
}

func fail(err error) {
	switch {
	case errors.Is(err, pairing.ErrAlreadyConfigured):
		fmt.Println("Error: this screen is already paired")
	case errors.Is(err, pairing.ErrScreenIDMissing):
		fmt.Println("Error: screen id is missing")
	case errors.Is(err, pairing.ErrInvalidAuth):
		fmt.Printf("Error: rejected, check the code or API key: %v\n", err)
	case errors.Is(err, pairing.ErrCannotConnect):
		fmt.Printf("Error: cannot connect: %v\n", err)
	default:
		fmt.Printf("Error: %v\n", err)
	}
	os.Exit(1)
}
