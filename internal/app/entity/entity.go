// Package entity exposes a paired screen as a controllable media player.
package entity

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/app/metadata"
	"github.com/osa030/ytlounge/internal/app/playback"
	"github.com/osa030/ytlounge/internal/app/supervisor"
	"github.com/osa030/ytlounge/internal/domain/snapshot"
	"github.com/osa030/ytlounge/internal/domain/video"
	"github.com/osa030/ytlounge/internal/infra/metrics"
)

var (
	// ErrNotRunning is returned when an operation needs Run to be active.
	ErrNotRunning = errors.New("entity is not running")
	// ErrAlreadyRunning is returned when Run is called more than once.
	ErrAlreadyRunning = errors.New("entity is already running")
)

// Observer receives the status after every state change.
type Observer func(Status)

// Option configures an Entity.
type Option func(*Entity)

// WithClock sets the clock used for timestamps and supervisor waits.
func WithClock(c supervisor.Clock) Option {
	return func(e *Entity) { e.clock = c }
}

// WithSupervisorConfig sets the keep-alive intervals.
func WithSupervisorConfig(cfg supervisor.Config) Option {
	return func(e *Entity) { e.supervisorConfig = cfg }
}

// WithResolver sets the metadata resolver.
func WithResolver(r *metadata.Resolver) Option {
	return func(e *Entity) { e.resolver = r }
}

// WithObserver registers an observer at construction.
func WithObserver(o Observer) Option {
	return func(e *Entity) { e.observers = append(e.observers, o) }
}

type reconnectRequest struct {
	ctx  context.Context
	done chan error
}

// task is a running supervision loop.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop cancels the task and waits until it has fully stopped.
func (t *task) stop() {
	if t == nil {
		return
	}
	t.cancel()
	<-t.done
}

// Entity is the media player facade over one screen. Run owns the
// supervision task, so at most one subscription is ever active.
type Entity struct {
	titleMu  sync.RWMutex
	title    string
	client   lounge.Client
	cache    *playback.Cache
	resolver *metadata.Resolver

	clock            supervisor.Clock
	supervisorConfig supervisor.Config

	// updateMu serializes cache replace, metadata resolve and notify.
	updateMu  sync.Mutex
	obsMu     sync.RWMutex
	observers []Observer

	started    atomic.Bool
	stopped    chan struct{}
	requests   chan reconnectRequest
	supervisor atomic.Pointer[supervisor.Supervisor]
}

// New creates an entity for a screen titled title.
func New(title string, client lounge.Client, opts ...Option) *Entity {
	e := &Entity{
		title:            title,
		client:           client,
		clock:            supervisor.RealClock(),
		supervisorConfig: supervisor.DefaultConfig(),
		stopped:          make(chan struct{}),
		requests:         make(chan reconnectRequest),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = metadata.NewResolver(metadata.WithNow(e.clock.Now))
	}
	e.cache = playback.NewCache(e.clock.Now())
	return e
}

// Title returns the screen title.
func (e *Entity) Title() string {
	e.titleMu.RLock()
	defer e.titleMu.RUnlock()
	return e.title
}

// SetTitle renames the screen and notifies observers.
func (e *Entity) SetTitle(title string) {
	e.titleMu.Lock()
	e.title = title
	e.titleMu.Unlock()

	e.updateMu.Lock()
	defer e.updateMu.Unlock()
	e.notify()
}

// UniqueID returns the screen id.
func (e *Entity) UniqueID() string {
	if auth := e.client.Auth(); auth != nil {
		return auth.ScreenID
	}
	return ""
}

// DeviceInfo returns the device description of the screen.
func (e *Entity) DeviceInfo() DeviceInfo {
	return DeviceInfo{
		Identifier:   e.UniqueID(),
		Manufacturer: "YouTube",
		Name:         fmt.Sprintf("YouTube on %s", e.Title()),
	}
}

// AddObserver registers an observer for status changes.
func (e *Entity) AddObserver(o Observer) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observers = append(e.observers, o)
}

// Run starts supervision and serves manual reconnects until ctx is
// cancelled. It returns after the supervision task has stopped.
func (e *Entity) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(e.stopped)

	current := e.startTask(ctx)
	defer func() { current.stop() }()

	for {
		select {
		case <-ctx.Done():
			zlog.Debug().Msgf("entity: stopping: screen=%s", e.UniqueID())
			return nil
		case req := <-e.requests:
			zlog.Debug().Msgf("manual_reconnect: cancelling subscription: screen=%s", e.UniqueID())
			current.stop()
			current = nil
			zlog.Debug().Msgf("manual_reconnect: subscription ended: screen=%s", e.UniqueID())

			err := e.reconnect(req.ctx)
			current = e.startTask(ctx)
			req.done <- err
		}
	}
}

// ManualReconnect replaces the running supervision task: the task is
// stopped, the credential refreshed, the channel connected and a new task
// started. The new task is started even if refresh or connect fail.
func (e *Entity) ManualReconnect(ctx context.Context) error {
	if !e.started.Load() {
		return ErrNotRunning
	}
	req := reconnectRequest{ctx: ctx, done: make(chan error, 1)}
	select {
	case e.requests <- req:
	case <-e.stopped:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Entity) reconnect(ctx context.Context) error {
	screenID := e.UniqueID()

	refreshed, refreshErr := e.client.RefreshAuth(ctx)
	metrics.AuthRefreshTotal.WithLabelValues(screenID, metrics.Result(refreshed, refreshErr)).Inc()
	zlog.Debug().Msgf("manual_reconnect: refresh auth: screen=%s refreshed=%v", screenID, refreshed)
	if refreshErr != nil {
		refreshErr = errors.Wrap(refreshErr, "refresh auth")
	}

	connected, connectErr := e.client.Connect(ctx)
	metrics.ConnectAttemptsTotal.WithLabelValues(screenID, metrics.Result(connected, connectErr)).Inc()
	zlog.Debug().Msgf("manual_reconnect: connect: screen=%s connected=%v", screenID, connected)
	if connectErr != nil {
		connectErr = errors.Wrap(connectErr, "connect")
	}

	return errors.CombineErrors(refreshErr, connectErr)
}

func (e *Entity) startTask(parent context.Context) *task {
	ctx, cancel := context.WithCancel(parent)
	t := &task{cancel: cancel, done: make(chan struct{})}

	sup := supervisor.New(e.UniqueID(), e.client, func(s *snapshot.Snapshot) {
		e.onSnapshot(ctx, s)
	}, e.supervisorConfig, supervisor.WithClock(e.clock))
	e.supervisor.Store(sup)

	go func() {
		defer close(t.done)
		sup.Run(ctx)
	}()
	return t
}

// onSnapshot applies a notification from the subscription.
func (e *Entity) onSnapshot(ctx context.Context, s *snapshot.Snapshot) {
	e.updateMu.Lock()
	defer e.updateMu.Unlock()

	e.cache.Replace(s, e.clock.Now())
	e.resolver.Resolve(ctx, s)
	e.notify()
}

// SetMetadataService attaches a metadata service and resolves the media
// already playing, if any.
func (e *Entity) SetMetadataService(ctx context.Context, svc metadata.Service) {
	e.updateMu.Lock()
	defer e.updateMu.Unlock()

	e.resolver.SetService(svc)
	if snap := e.cache.Snapshot(); snap.HasMedia() {
		e.resolver.Resolve(ctx, snap)
		e.notify()
	}
}

// HasMetadataService reports whether a metadata service is attached.
func (e *Entity) HasMetadataService() bool {
	return e.resolver.HasService()
}

func (e *Entity) notify() {
	status := e.Status()

	e.obsMu.RLock()
	observers := make([]Observer, len(e.observers))
	copy(observers, e.observers)
	e.obsMu.RUnlock()

	for _, o := range observers {
		o(status)
	}
}

// Status returns the current observable status.
func (e *Entity) Status() Status {
	snap, at := e.cache.Get()

	st := Status{
		UniqueID: e.UniqueID(),
		Name:     e.Title(),
		State:    stateOf(snap),
		Phase:    e.phase(),
	}
	if snap == nil {
		return st
	}

	pos := int(snap.Position)
	dur := int(snap.Duration)
	st.Position = &pos
	st.Duration = &dur
	st.PositionUpdatedAt = &at
	st.MediaID = snap.MediaID
	st.ImageURL = video.ThumbnailURL(snap.MediaID)
	st.MediaURL = video.WatchURL(snap.MediaID)

	if rec := e.resolver.Record(); rec != nil && rec.ID == snap.MediaID {
		st.Title = rec.Title
		st.Channel = rec.ChannelTitle
	}
	return st
}

func (e *Entity) phase() string {
	if sup := e.supervisor.Load(); sup != nil {
		return sup.Phase().String()
	}
	return "stopped"
}

// Play resumes playback.
func (e *Entity) Play(ctx context.Context) error {
	return e.command(ctx, "play", e.client.Play)
}

// Pause pauses playback.
func (e *Entity) Pause(ctx context.Context) error {
	return e.command(ctx, "pause", e.client.Pause)
}

// Previous skips to the previous video.
func (e *Entity) Previous(ctx context.Context) error {
	return e.command(ctx, "previous", e.client.Previous)
}

// Next skips to the next video.
func (e *Entity) Next(ctx context.Context) error {
	return e.command(ctx, "next", e.client.Next)
}

// Seek moves playback to position seconds.
func (e *Entity) Seek(ctx context.Context, position float64) error {
	return e.command(ctx, "seek", func(ctx context.Context) error {
		return e.client.SeekTo(ctx, position)
	})
}

func (e *Entity) command(ctx context.Context, name string, fn func(context.Context) error) error {
	err := fn(ctx)
	metrics.CommandsTotal.WithLabelValues(e.UniqueID(), name, metrics.Result(err == nil, err)).Inc()
	if err != nil {
		zlog.Warn().Err(err).Msgf("entity: command failed: screen=%s command=%s", e.UniqueID(), name)
		return errors.Wrap(err, name)
	}
	zlog.Debug().Msgf("entity: command sent: screen=%s command=%s", e.UniqueID(), name)
	return nil
}
