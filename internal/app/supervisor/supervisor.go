package supervisor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/domain/snapshot"
	"github.com/osa030/ytlounge/internal/infra/metrics"
)

// Default intervals.
const (
	DefaultConnectRetryInterval   = 10 * time.Second
	DefaultErrorRetryInterval     = 30 * time.Second
	DefaultSubscribeRetryInterval = 1 * time.Second
)

// Config holds keep-alive intervals.
type Config struct {
	ConnectRetryInterval   time.Duration // Wait between reconnect attempts while disconnected
	ErrorRetryInterval     time.Duration // Wait before restarting after an error
	SubscribeRetryInterval time.Duration // Wait after a subscription ends
}

// DefaultConfig returns the default intervals.
func DefaultConfig() Config {
	return Config{
		ConnectRetryInterval:   DefaultConnectRetryInterval,
		ErrorRetryInterval:     DefaultErrorRetryInterval,
		SubscribeRetryInterval: DefaultSubscribeRetryInterval,
	}
}

func (c Config) withDefaults() Config {
	if c.ConnectRetryInterval <= 0 {
		c.ConnectRetryInterval = DefaultConnectRetryInterval
	}
	if c.ErrorRetryInterval <= 0 {
		c.ErrorRetryInterval = DefaultErrorRetryInterval
	}
	if c.SubscribeRetryInterval <= 0 {
		c.SubscribeRetryInterval = DefaultSubscribeRetryInterval
	}
	return c
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithClock sets the clock used for all waits.
func WithClock(c Clock) Option {
	return func(s *Supervisor) { s.clock = c }
}

// Supervisor keeps exactly one subscription to a screen alive across
// disconnects, expired credentials and transient errors.
// A Supervisor must not be run concurrently with itself.
type Supervisor struct {
	name    string
	client  lounge.Client
	handler lounge.SnapshotFunc
	config  Config
	clock   Clock

	phase atomic.Int32
}

// New creates a supervisor for client. handler receives every snapshot from
// the subscription and a nil snapshot whenever the state becomes unknown.
func New(name string, client lounge.Client, handler lounge.SnapshotFunc, cfg Config, opts ...Option) *Supervisor {
	s := &Supervisor{
		name:    name,
		client:  client,
		handler: handler,
		config:  cfg.withDefaults(),
		clock:   RealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.phase.Store(int32(PhaseAttemptingConnect))
	return s
}

// Phase returns the current phase.
func (s *Supervisor) Phase() Phase {
	return Phase(s.phase.Load())
}

// Run runs the keep-alive loop until ctx is cancelled. Errors restart the
// loop after the error retry interval; there is no retry limit.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		zlog.Debug().Msgf("supervisor: starting subscribe and keep alive: screen=%s", s.name)
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			zlog.Debug().Msgf("supervisor: stopped: screen=%s", s.name)
			return
		}

		metrics.SupervisorRestartsTotal.WithLabelValues(s.name).Inc()
		zlog.Error().Err(err).Msgf("supervisor: subscribe and keep alive encountered error, waiting %v: screen=%s",
			s.config.ErrorRetryInterval, s.name)
		s.publish(nil)
		s.setPhase(PhaseDisconnected)

		if err := Sleep(ctx, s.clock, s.config.ErrorRetryInterval); err != nil {
			zlog.Debug().Msgf("supervisor: stopped during error backoff: screen=%s", s.name)
			return
		}
	}
}

// runOnce runs the state machine from the connect phase until an error.
func (s *Supervisor) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic in keep alive loop: %v", r)
		}
	}()

	phase := PhaseAttemptingConnect
	if s.client.Connected() {
		phase = PhaseSubscribed
	}

	for {
		s.setPhase(phase)
		next, err := s.step(ctx, phase)
		if err != nil {
			return err
		}
		phase = next
	}
}

// step performs the work of one phase and returns the next phase.
func (s *Supervisor) step(ctx context.Context, phase Phase) (Phase, error) {
	switch phase {
	case PhaseAttemptingConnect:
		connected, err := s.client.Connect(ctx)
		metrics.ConnectAttemptsTotal.WithLabelValues(s.name, metrics.Result(connected, err)).Inc()
		if err != nil {
			return phase, errors.Wrap(err, "connect")
		}
		zlog.Debug().Msgf("supervisor: connect: screen=%s connected=%v", s.name, connected)
		return s.afterConnect(), nil

	case PhaseDisconnected:
		zlog.Debug().Msgf("supervisor: reconnecting: screen=%s", s.name)
		s.publish(nil)
		if err := Sleep(ctx, s.clock, s.config.ConnectRetryInterval); err != nil {
			return phase, err
		}
		if !s.client.Linked() {
			return PhaseAttemptingRefresh, nil
		}
		return PhaseAttemptingConnect, nil

	case PhaseAttemptingRefresh:
		refreshed, err := s.client.RefreshAuth(ctx)
		metrics.AuthRefreshTotal.WithLabelValues(s.name, metrics.Result(refreshed, err)).Inc()
		if err != nil {
			return phase, errors.Wrap(err, "refresh auth")
		}
		zlog.Debug().Msgf("supervisor: refresh auth: screen=%s refreshed=%v", s.name, refreshed)
		return PhaseAttemptingConnect, nil

	case PhaseSubscribed:
		zlog.Debug().Msgf("supervisor: subscribing: screen=%s", s.name)
		if err := s.client.Subscribe(ctx, s.publish); err != nil {
			return phase, errors.Wrap(err, "subscribe")
		}
		if err := Sleep(ctx, s.clock, s.config.SubscribeRetryInterval); err != nil {
			return phase, err
		}
		return s.afterConnect(), nil

	default:
		return phase, errors.Newf("unknown phase: %d", phase)
	}
}

func (s *Supervisor) afterConnect() Phase {
	if s.client.Connected() {
		return PhaseSubscribed
	}
	return PhaseDisconnected
}

func (s *Supervisor) publish(snap *snapshot.Snapshot) {
	kind := "snapshot"
	if snap == nil {
		kind = "empty"
	}
	metrics.StateNotificationsTotal.WithLabelValues(s.name, kind).Inc()
	if s.handler != nil {
		s.handler(snap)
	}
}

func (s *Supervisor) setPhase(p Phase) {
	s.phase.Store(int32(p))
	metrics.SetSupervisorPhase(s.name, p.String(), phaseNames)
}
