package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ytlounge/internal/app/entity"
	"github.com/osa030/ytlounge/internal/app/integration"
	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/app/notification"
)

// PlayerServiceName is the fully-qualified name of the player service.
const PlayerServiceName = "ytlounge.v1.PlayerService"

const (
	ListPlayersProcedure = "/" + PlayerServiceName + "/ListPlayers"
	GetPlayerProcedure   = "/" + PlayerServiceName + "/GetPlayer"
	PlayProcedure        = "/" + PlayerServiceName + "/Play"
	PauseProcedure       = "/" + PlayerServiceName + "/Pause"
	PreviousProcedure    = "/" + PlayerServiceName + "/Previous"
	NextProcedure        = "/" + PlayerServiceName + "/Next"
	SeekProcedure        = "/" + PlayerServiceName + "/Seek"
	ReconnectProcedure   = "/" + PlayerServiceName + "/Reconnect"
	WatchPlayerProcedure = "/" + PlayerServiceName + "/WatchPlayer"
)

// Players looks up running players.
type Players interface {
	Players() []*entity.Entity
	Player(id string) (*entity.Entity, error)
}

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	players  Players
	notifier *notification.Manager

	done      chan struct{}
	closeOnce sync.Once
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(players Players, notifier *notification.Manager) *PlayerService {
	return &PlayerService{
		players:  players,
		notifier: notifier,
		done:     make(chan struct{}),
	}
}

// Close ends all open watch streams.
func (s *PlayerService) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// NewPlayerServiceHandler builds an HTTP handler for the service.
// It returns the path prefix to mount the handler on.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ListPlayersProcedure, connect.NewUnaryHandler(ListPlayersProcedure, svc.ListPlayers, opts...))
	mux.Handle(GetPlayerProcedure, connect.NewUnaryHandler(GetPlayerProcedure, svc.GetPlayer, opts...))
	mux.Handle(PlayProcedure, connect.NewUnaryHandler(PlayProcedure, svc.Play, opts...))
	mux.Handle(PauseProcedure, connect.NewUnaryHandler(PauseProcedure, svc.Pause, opts...))
	mux.Handle(PreviousProcedure, connect.NewUnaryHandler(PreviousProcedure, svc.Previous, opts...))
	mux.Handle(NextProcedure, connect.NewUnaryHandler(NextProcedure, svc.Next, opts...))
	mux.Handle(SeekProcedure, connect.NewUnaryHandler(SeekProcedure, svc.Seek, opts...))
	mux.Handle(ReconnectProcedure, connect.NewUnaryHandler(ReconnectProcedure, svc.Reconnect, opts...))
	mux.Handle(WatchPlayerProcedure, connect.NewServerStreamHandler(WatchPlayerProcedure, svc.WatchPlayer, opts...))
	return "/" + PlayerServiceName + "/", mux
}

// ListPlayers returns every running player.
func (s *PlayerService) ListPlayers(
	ctx context.Context,
	req *connect.Request[ListPlayersRequest],
) (*connect.Response[ListPlayersResponse], error) {
	players := s.players.Players()
	infos := make([]*PlayerInfo, len(players))
	for i, p := range players {
		infos[i] = playerInfo(p.Status())
	}

	return connect.NewResponse(&ListPlayersResponse{
		Players: infos,
	}), nil
}

// GetPlayer returns one player.
func (s *PlayerService) GetPlayer(
	ctx context.Context,
	req *connect.Request[GetPlayerRequest],
) (*connect.Response[GetPlayerResponse], error) {
	p, err := s.lookup(req.Msg.PlayerID)
	if err != nil {
		return nil, err
	}

	d := p.DeviceInfo()
	return connect.NewResponse(&GetPlayerResponse{
		Player: playerInfo(p.Status()),
		Device: &DeviceInfo{
			Identifier:   d.Identifier,
			Manufacturer: d.Manufacturer,
			Name:         d.Name,
		},
	}), nil
}

// Play resumes playback.
func (s *PlayerService) Play(
	ctx context.Context,
	req *connect.Request[CommandRequest],
) (*connect.Response[CommandResponse], error) {
	return s.command(ctx, req.Msg.PlayerID, "Playing", (*entity.Entity).Play)
}

// Pause pauses playback.
func (s *PlayerService) Pause(
	ctx context.Context,
	req *connect.Request[CommandRequest],
) (*connect.Response[CommandResponse], error) {
	return s.command(ctx, req.Msg.PlayerID, "Paused", (*entity.Entity).Pause)
}

// Previous skips to the previous video.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[CommandRequest],
) (*connect.Response[CommandResponse], error) {
	return s.command(ctx, req.Msg.PlayerID, "Skipped to previous video", (*entity.Entity).Previous)
}

// Next skips to the next video.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[CommandRequest],
) (*connect.Response[CommandResponse], error) {
	return s.command(ctx, req.Msg.PlayerID, "Skipped to next video", (*entity.Entity).Next)
}

// Seek moves playback to a position.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[SeekRequest],
) (*connect.Response[CommandResponse], error) {
	if req.Msg.Position < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.Newf("position must not be negative: %v", req.Msg.Position))
	}
	return s.command(ctx, req.Msg.PlayerID, "Seeked", func(p *entity.Entity, ctx context.Context) error {
		return p.Seek(ctx, req.Msg.Position)
	})
}

// Reconnect forces the player to drop its connection and connect again.
// The player always restarts; failures of the refresh or connect step are
// reported in the response.
func (s *PlayerService) Reconnect(
	ctx context.Context,
	req *connect.Request[ReconnectRequest],
) (*connect.Response[CommandResponse], error) {
	p, err := s.lookup(req.Msg.PlayerID)
	if err != nil {
		return nil, err
	}

	if err := p.ManualReconnect(ctx); err != nil {
		if errors.Is(err, entity.ErrNotRunning) || ctx.Err() != nil {
			return nil, toConnectError(err)
		}
		return connect.NewResponse(&CommandResponse{
			Success: false,
			Message: err.Error(),
		}), nil
	}

	return connect.NewResponse(&CommandResponse{
		Success: true,
		Message: "Reconnected",
	}), nil
}

// WatchPlayer streams status updates of one player, or of all players.
func (s *PlayerService) WatchPlayer(
	ctx context.Context,
	req *connect.Request[WatchPlayerRequest],
	stream *connect.ServerStream[PlayerUpdate],
) error {
	var (
		initial []*entity.Entity
		filter  string
	)
	if req.Msg.PlayerID != "" {
		p, err := s.lookup(req.Msg.PlayerID)
		if err != nil {
			return err
		}
		initial = []*entity.Entity{p}
		filter = p.UniqueID()
	} else {
		initial = s.players.Players()
	}

	adapter := &updateStream{stream: stream}
	defer adapter.close()
	for _, p := range initial {
		update := &PlayerUpdate{
			Type:       UpdateTypeInitialState,
			SequenceNo: s.notifier.NextSequenceNo(),
			Player:     playerInfo(p.Status()),
		}
		if err := adapter.send(update); err != nil {
			return err
		}
	}

	subscriptionID := s.notifier.Subscribe(adapter, filter)
	defer s.notifier.Unsubscribe(subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

func (s *PlayerService) lookup(id string) (*entity.Entity, error) {
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("player_id is required"))
	}
	p, err := s.players.Player(id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return p, nil
}

func (s *PlayerService) command(
	ctx context.Context,
	id string,
	message string,
	fn func(*entity.Entity, context.Context) error,
) (*connect.Response[CommandResponse], error) {
	p, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := fn(p, ctx); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CommandResponse{
		Success: true,
		Message: message,
	}), nil
}

func toConnectError(err error) error {
	code := connect.CodeInternal
	switch {
	case errors.Is(err, integration.ErrPlayerNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, entity.ErrNotRunning):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, lounge.ErrUnreachable):
		code = connect.CodeUnavailable
	}
	if code == connect.CodeInternal {
		zlog.Error().Err(err).Msg("connect: request failed")
	}
	return connect.NewError(code, err)
}

var errStreamClosed = errors.New("update stream closed")

// updateStream adapts connect.ServerStream to notification.Stream.
// Broadcasts from different players may overlap, so sends are serialized.
// Once the handler returns the stream is closed and sends fail.
type updateStream struct {
	mu     sync.Mutex
	closed bool
	stream *connect.ServerStream[PlayerUpdate]
}

func (a *updateStream) Send(u *notification.Update) error {
	return a.send(&PlayerUpdate{
		Type:       UpdateTypeStatus,
		SequenceNo: u.SequenceNo,
		Player:     playerInfo(u.Player),
	})
}

func (a *updateStream) send(u *PlayerUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errStreamClosed
	}
	return a.stream.Send(u)
}

func (a *updateStream) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}
