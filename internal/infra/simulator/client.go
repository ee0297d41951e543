package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/domain/screen"
	"github.com/osa030/ytlounge/internal/domain/snapshot"
)

var errNotConnected = errors.Mark(errors.New("simulated screen is not connected"), lounge.ErrUnreachable)

// Client simulates the control channel of a screen.
type Client struct {
	driver *Driver

	mu           sync.Mutex
	auth         *screen.Auth
	connected    bool
	closed       bool
	sessionStart time.Time

	// stateCode is the state as a screen reports it on the control channel.
	stateCode int
	index     int
	position  float64
	lastTick  time.Time

	// changed wakes the subscription after a command.
	changed chan struct{}
}

var _ lounge.Client = (*Client)(nil)

func newClient(d *Driver, auth *screen.Auth) *Client {
	return &Client{
		driver:    d,
		auth:      auth,
		stateCode: snapshot.StatePlaying.Code(),
		changed:   make(chan struct{}, 1),
	}
}

// Paired returns true if the client holds a credential.
func (c *Client) Paired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth.Paired()
}

// Linked returns true if the credential has not expired.
func (c *Client) Linked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.linkedLocked()
}

func (c *Client) linkedLocked() bool {
	return c.auth.Paired() && !c.auth.Expired(c.driver.now())
}

// Connected returns true if the session is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect opens a session if the credential is valid.
func (c *Client) Connect(ctx context.Context) (bool, error) {
	if err := c.reachable(ctx); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.linkedLocked() {
		c.connected = false
		return false, nil
	}
	c.connected = true
	c.sessionStart = c.driver.now()
	c.lastTick = c.sessionStart
	zlog.Debug().Msgf("simulator: connected: screen=%s", c.auth.ScreenID)
	return true, nil
}

// RefreshAuth issues a new lounge token.
func (c *Client) RefreshAuth(ctx context.Context) (bool, error) {
	if err := c.reachable(ctx); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth.ScreenID == "" || c.auth.RefreshToken == "" {
		return false, nil
	}
	c.auth.LoungeIDToken = uuid.NewString()
	c.auth.Expiry = c.driver.settings.expiry(c.driver.now())
	zlog.Debug().Msgf("simulator: token refreshed: screen=%s", c.auth.ScreenID)
	return true, nil
}

// Subscribe emits the playback state every tick and after every command.
// It returns when the simulated session ends or the token expires.
func (c *Client) Subscribe(ctx context.Context, fn lounge.SnapshotFunc) error {
	if err := c.reachable(ctx); err != nil {
		return err
	}
	snap, err := c.advance()
	if err != nil {
		return err
	}
	fn(snap)

	ticker := time.NewTicker(c.driver.settings.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-c.changed:
		}

		if c.sessionEnded() {
			fn(nil)
			return nil
		}
		snap, err := c.advance()
		if err != nil {
			return err
		}
		fn(snap)
	}
}

// sessionEnded drops the session once it outlives the configured length or the token.
func (c *Client) sessionEnded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.driver.now()
	length := time.Duration(c.driver.settings.SessionLengthSec) * time.Second
	if (length > 0 && now.Sub(c.sessionStart) >= length) || !c.linkedLocked() {
		c.connected = false
		zlog.Debug().Msgf("simulator: session ended: screen=%s", c.auth.ScreenID)
		return true
	}
	return false
}

// advance moves playback forward to now and returns the snapshot.
func (c *Client) advance() (*snapshot.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, errNotConnected
	}

	now := c.driver.now()
	if c.playing() {
		c.position += now.Sub(c.lastTick).Seconds()
		duration := float64(c.driver.settings.VideoDurationSec)
		if c.position >= duration {
			c.skip(1)
		}
	}
	c.lastTick = now
	return c.snapshotLocked(), nil
}

func (c *Client) snapshotLocked() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		State:    snapshot.StateFromCode(c.stateCode),
		MediaID:  c.driver.settings.Playlist[c.index],
		Position: c.position,
		Duration: float64(c.driver.settings.VideoDurationSec),
	}
}

func (c *Client) skip(delta int) {
	n := len(c.driver.settings.Playlist)
	c.index = ((c.index+delta)%n + n) % n
	c.position = 0
	c.stateCode = snapshot.StatePlaying.Code()
}

func (c *Client) playing() bool {
	return snapshot.StateFromCode(c.stateCode) == snapshot.StatePlaying
}

func (c *Client) command(ctx context.Context, name string, fn func()) error {
	if err := c.reachable(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return errors.Wrap(errNotConnected, name)
	}
	now := c.driver.now()
	if c.playing() {
		c.position += now.Sub(c.lastTick).Seconds()
	}
	c.lastTick = now
	fn()
	c.mu.Unlock()

	select {
	case c.changed <- struct{}{}:
	default:
	}
	zlog.Debug().Msgf("simulator: command: screen=%s command=%s", c.auth.ScreenID, name)
	return nil
}

// Play resumes playback.
func (c *Client) Play(ctx context.Context) error {
	return c.command(ctx, "play", func() { c.stateCode = snapshot.StatePlaying.Code() })
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	return c.command(ctx, "pause", func() { c.stateCode = snapshot.StatePaused.Code() })
}

// Previous restarts the playlist entry before the current one.
func (c *Client) Previous(ctx context.Context) error {
	return c.command(ctx, "previous", func() { c.skip(-1) })
}

// Next skips to the next playlist entry.
func (c *Client) Next(ctx context.Context) error {
	return c.command(ctx, "next", func() { c.skip(1) })
}

// SeekTo moves playback to position seconds, clamped to the video.
func (c *Client) SeekTo(ctx context.Context, position float64) error {
	return c.command(ctx, "seek", func() {
		duration := float64(c.driver.settings.VideoDurationSec)
		c.position = min(max(position, 0), duration)
	})
}

// Auth returns a copy of the current credential.
func (c *Client) Auth() *screen.Auth {
	c.mu.Lock()
	defer c.mu.Unlock()
	a := *c.auth
	return &a
}

// Close ends the session. The client cannot reconnect afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.closed = true
	return nil
}

func (c *Client) reachable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.driver.settings.Unreachable {
		return errors.Wrap(lounge.ErrUnreachable, "simulated lounge service")
	}
	return nil
}
