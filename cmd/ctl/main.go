// Package main provides the player control CLI.
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
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/ytlounge/internal/api/connect"
)

var (
	app    = kingpin.New("ytlounge-ctl", "ytlounge player control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set YTLOUNGE_ADMIN_TOKEN env)").Envar("YTLOUNGE_ADMIN_TOKEN").String()

	// list command
	listCmd = app.Command("list", "List players").Alias("ls")

	// get command
	getCmd    = app.Command("get", "Show a player")
	getPlayer = getCmd.Arg("player-id", "Player (screen) ID").Required().String()

	// command commands
	playCmd        = app.Command("play", "Resume playback")
	playPlayer     = playCmd.Arg("player-id", "Player (screen) ID").Required().String()
	pauseCmd       = app.Command("pause", "Pause playback")
	pausePlayer    = pauseCmd.Arg("player-id", "Player (screen) ID").Required().String()
	previousCmd    = app.Command("previous", "Skip to the previous video").Alias("prev")
	previousPlayer = previousCmd.Arg("player-id", "Player (screen) ID").Required().String()
	nextCmd        = app.Command("next", "Skip to the next video")
	nextPlayer     = nextCmd.Arg("player-id", "Player (screen) ID").Required().String()

	// seek command
	seekCmd      = app.Command("seek", "Seek to a position")
	seekPlayer   = seekCmd.Arg("player-id", "Player (screen) ID").Required().String()
	seekPosition = seekCmd.Arg("position", "Position (seconds)").Required().Float64()

	// reconnect command
	reconnectCmd    = app.Command("reconnect", "Force the player to reconnect")
	reconnectPlayer = reconnectCmd.Arg("player-id", "Player (screen) ID").Required().String()

	// watch command
	watchCmd    = app.Command("watch", "Watch status updates")
	watchPlayer = watchCmd.Arg("player-id", "Player (screen) ID (default: all players)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewPlayerServiceClient(
		http.DefaultClient,
		*server,
		connect.WithInterceptors(apiconnect.NewAdminTokenInterceptor(*token)),
	)

	ctx := context.Background()

	switch command {
	case listCmd.FullCommand():
		list(ctx, client)
	case getCmd.FullCommand():
		get(ctx, client, *getPlayer)
	case playCmd.FullCommand():
		report(client.Play(ctx, connect.NewRequest(&apiconnect.CommandRequest{PlayerID: *playPlayer})))
	case pauseCmd.FullCommand():
		report(client.Pause(ctx, connect.NewRequest(&apiconnect.CommandRequest{PlayerID: *pausePlayer})))
	case previousCmd.FullCommand():
		report(client.Previous(ctx, connect.NewRequest(&apiconnect.CommandRequest{PlayerID: *previousPlayer})))
	case nextCmd.FullCommand():
		report(client.Next(ctx, connect.NewRequest(&apiconnect.CommandRequest{PlayerID: *nextPlayer})))
	case seekCmd.FullCommand():
		report(client.Seek(ctx, connect.NewRequest(&apiconnect.SeekRequest{
			PlayerID: *seekPlayer,
			Position: *seekPosition,
		})))
	case reconnectCmd.FullCommand():
		report(client.Reconnect(ctx, connect.NewRequest(&apiconnect.ReconnectRequest{PlayerID: *reconnectPlayer})))
	case watchCmd.FullCommand():
		watch(ctx, client, *watchPlayer)
	}
}

func checkToken() {
	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or YTLOUNGE_ADMIN_TOKEN env)")
		os.Exit(1)
	}
}

func list(ctx context.Context, client *apiconnect.PlayerServiceClient) {
	resp, err := client.ListPlayers(ctx, connect.NewRequest(&apiconnect.ListPlayersRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if len(resp.Msg.Players) == 0 {
		fmt.Println("No players")
		return
	}
	for _, p := range resp.Msg.Players {
		fmt.Printf("%-24s %-20s %-8s %s\n", p.PlayerID, p.Name, p.State, p.Title)
	}
}

func get(ctx context.Context, client *apiconnect.PlayerServiceClient, playerID string) {
	resp, err := client.GetPlayer(ctx, connect.NewRequest(&apiconnect.GetPlayerRequest{PlayerID: playerID}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n=== PLAYER ===")
	if d := resp.Msg.Device; d != nil {
		fmt.Printf("Device: %s (%s)\n", d.Name, d.Manufacturer)
	}
	printPlayer(resp.Msg.Player)
	fmt.Println()
}

func report(resp *connect.Response[apiconnect.CommandResponse], err error) {
	if err != nil {
		if connect.CodeOf(err) == connect.CodeUnauthenticated {
			checkToken()
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if resp.Msg.Success {
		fmt.Println(resp.Msg.Message)
	} else {
		fmt.Printf("Failed: %s\n", resp.Msg.Message)
	}
}

func watch(ctx context.Context, client *apiconnect.PlayerServiceClient, playerID string) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := client.WatchPlayer(ctx, connect.NewRequest(&apiconnect.WatchPlayerRequest{PlayerID: playerID}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	fmt.Println("Watching players. Press Ctrl+C to exit.")

	for stream.Receive() {
		u := stream.Msg()
		fmt.Printf("\n[Sequence: %d] ", u.SequenceNo)
		switch u.Type {
		case apiconnect.UpdateTypeInitialState:
			fmt.Println("=== INITIAL STATE ===")
		default:
			fmt.Println("=== STATUS CHANGED ===")
		}
		printPlayer(u.Player)
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printPlayer(p *apiconnect.PlayerInfo) {
	if p == nil {
		return
	}
	fmt.Printf("  Player ID: %s\n", p.PlayerID)
	fmt.Printf("  Name: %s\n", p.Name)
	fmt.Printf("  State: %s\n", formatState(p.State))
	fmt.Printf("  Connection: %s\n", p.Phase)
	if p.MediaID == "" {
		return
	}
	fmt.Printf("  Video ID: %s\n", p.MediaID)
	fmt.Printf("  URL: %s\n", p.MediaURL)
	if p.Title != "" {
		fmt.Printf("  Title: %s\n", p.Title)
		fmt.Printf("  Channel: %s\n", p.Channel)
	}
	if p.Position != nil && p.Duration != nil {
		fmt.Printf("  Position: %s / %s\n", formatSeconds(*p.Position), formatSeconds(*p.Duration))
	}
	if p.ImageURL != "" {
		fmt.Printf("  Thumbnail: %s\n", p.ImageURL)
	}
}

func formatState(state string) string {
	switch state {
	case "playing":
		return "▶️  Playing"
	case "paused":
		return "⏸  Paused"
	case "on":
		return "⏹  Idle"
	default:
		return "⏻  Off"
	}
}

func formatSeconds(s int) string {
	return (time.Duration(s) * time.Second).String()
}
