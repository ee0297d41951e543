package entity

import (
	"context"
	"sync"
	"time"

	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/domain/screen"
	"github.com/osa030/ytlounge/internal/domain/video"
)

// tickClock advances one second on every Now call and never waits.
type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickClock() *tickClock {
	return &tickClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *tickClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

type fakeClient struct {
	mu        sync.Mutex
	connected bool
	linked    bool
	calls     []string
	seek      []float64

	refreshErr error
	commandErr error
	subscribe  func(ctx context.Context, fn lounge.SnapshotFunc) error

	active    int
	maxActive int
}

var _ lounge.Client = (*fakeClient)(nil)

func (c *fakeClient) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *fakeClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeClient) count(name string) int {
	n := 0
	for _, call := range c.Calls() {
		if call == name {
			n++
		}
	}
	return n
}

func (c *fakeClient) MaxActive() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxActive
}

func (c *fakeClient) Paired() bool { return true }

func (c *fakeClient) Linked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.linked
}

func (c *fakeClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Connect(ctx context.Context) (bool, error) {
	c.record("connect")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return true, nil
}

func (c *fakeClient) RefreshAuth(ctx context.Context) (bool, error) {
	c.record("refresh")
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshErr != nil {
		return false, c.refreshErr
	}
	c.linked = true
	return true, nil
}

func (c *fakeClient) Subscribe(ctx context.Context, fn lounge.SnapshotFunc) error {
	c.mu.Lock()
	c.calls = append(c.calls, "subscribe")
	c.active++
	if c.active > c.maxActive {
		c.maxActive = c.active
	}
	hook := c.subscribe
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.active--
		c.calls = append(c.calls, "subscribe-end")
		c.mu.Unlock()
	}()

	if hook != nil {
		return hook(ctx, fn)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *fakeClient) cmd(name string) error {
	c.record(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commandErr
}

func (c *fakeClient) Play(ctx context.Context) error     { return c.cmd("play") }
func (c *fakeClient) Pause(ctx context.Context) error    { return c.cmd("pause") }
func (c *fakeClient) Previous(ctx context.Context) error { return c.cmd("previous") }
func (c *fakeClient) Next(ctx context.Context) error     { return c.cmd("next") }

func (c *fakeClient) SeekTo(ctx context.Context, pos float64) error {
	c.mu.Lock()
	c.seek = append(c.seek, pos)
	c.mu.Unlock()
	return c.cmd("seek")
}

func (c *fakeClient) Auth() *screen.Auth { return &screen.Auth{ScreenID: "screen-1", LoungeIDToken: "token"} }
func (c *fakeClient) Close() error       { return nil }

type fakeService struct {
	mu    sync.Mutex
	calls []string
}

func (s *fakeService) Lookup(ctx context.Context, id string) (*video.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	return &video.Record{ID: id, Title: "Title " + id, ChannelTitle: "Channel " + id}, nil
}

func (s *fakeService) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// statusLog collects observed statuses.
type statusLog struct {
	mu       sync.Mutex
	statuses []Status
}

func (l *statusLog) observe(s Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

func (l *statusLog) All() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Status(nil), l.statuses...)
}
