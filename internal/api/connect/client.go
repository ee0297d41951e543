package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// PlayerServiceClient is a client for the player service.
type PlayerServiceClient struct {
	listPlayers *connect.Client[ListPlayersRequest, ListPlayersResponse]
	getPlayer   *connect.Client[GetPlayerRequest, GetPlayerResponse]
	play        *connect.Client[CommandRequest, CommandResponse]
	pause       *connect.Client[CommandRequest, CommandResponse]
	previous    *connect.Client[CommandRequest, CommandResponse]
	next        *connect.Client[CommandRequest, CommandResponse]
	seek        *connect.Client[SeekRequest, CommandResponse]
	reconnect   *connect.Client[ReconnectRequest, CommandResponse]
	watchPlayer *connect.Client[WatchPlayerRequest, PlayerUpdate]
}

// NewPlayerServiceClient creates a client for the service at baseURL.
func NewPlayerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PlayerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &PlayerServiceClient{
		listPlayers: connect.NewClient[ListPlayersRequest, ListPlayersResponse](httpClient, baseURL+ListPlayersProcedure, opts...),
		getPlayer:   connect.NewClient[GetPlayerRequest, GetPlayerResponse](httpClient, baseURL+GetPlayerProcedure, opts...),
		play:        connect.NewClient[CommandRequest, CommandResponse](httpClient, baseURL+PlayProcedure, opts...),
		pause:       connect.NewClient[CommandRequest, CommandResponse](httpClient, baseURL+PauseProcedure, opts...),
		previous:    connect.NewClient[CommandRequest, CommandResponse](httpClient, baseURL+PreviousProcedure, opts...),
		next:        connect.NewClient[CommandRequest, CommandResponse](httpClient, baseURL+NextProcedure, opts...),
		seek:        connect.NewClient[SeekRequest, CommandResponse](httpClient, baseURL+SeekProcedure, opts...),
		reconnect:   connect.NewClient[ReconnectRequest, CommandResponse](httpClient, baseURL+ReconnectProcedure, opts...),
		watchPlayer: connect.NewClient[WatchPlayerRequest, PlayerUpdate](httpClient, baseURL+WatchPlayerProcedure, opts...),
	}
}

func (c *PlayerServiceClient) ListPlayers(ctx context.Context, req *connect.Request[ListPlayersRequest]) (*connect.Response[ListPlayersResponse], error) {
	return c.listPlayers.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) GetPlayer(ctx context.Context, req *connect.Request[GetPlayerRequest]) (*connect.Response[GetPlayerResponse], error) {
	return c.getPlayer.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Play(ctx context.Context, req *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error) {
	return c.play.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Pause(ctx context.Context, req *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error) {
	return c.pause.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Previous(ctx context.Context, req *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error) {
	return c.previous.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Next(ctx context.Context, req *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error) {
	return c.next.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Seek(ctx context.Context, req *connect.Request[SeekRequest]) (*connect.Response[CommandResponse], error) {
	return c.seek.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Reconnect(ctx context.Context, req *connect.Request[ReconnectRequest]) (*connect.Response[CommandResponse], error) {
	return c.reconnect.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) WatchPlayer(ctx context.Context, req *connect.Request[WatchPlayerRequest]) (*connect.ServerStreamForClient[PlayerUpdate], error) {
	return c.watchPlayer.CallServerStream(ctx, req)
}
