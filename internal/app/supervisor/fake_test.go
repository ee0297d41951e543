package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/domain/screen"
	"github.com/osa030/ytlounge/internal/domain/snapshot"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakeClient is a scripted lounge.Client.
type fakeClient struct {
	mu        sync.Mutex
	connected bool
	linked    bool
	calls     []string

	// connectResults is consumed per Connect call; when empty Connect succeeds.
	connectResults []bool
	connectErr     error
	refreshResult  bool
	subscribe      func(ctx context.Context, n int, fn lounge.SnapshotFunc) error
	subscribeCalls int
}

var _ lounge.Client = (*fakeClient)(nil)

func (c *fakeClient) record(name string) {
	c.calls = append(c.calls, name)
}

func (c *fakeClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
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

func (c *fakeClient) SetConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = v
}

func (c *fakeClient) Connect(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("connect")
	if c.connectErr != nil {
		return false, c.connectErr
	}
	ok := true
	if len(c.connectResults) > 0 {
		ok = c.connectResults[0]
		c.connectResults = c.connectResults[1:]
	}
	c.connected = ok
	return ok, nil
}

func (c *fakeClient) RefreshAuth(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("refresh")
	if c.refreshResult {
		c.linked = true
	}
	return c.refreshResult, nil
}

func (c *fakeClient) Subscribe(ctx context.Context, fn lounge.SnapshotFunc) error {
	c.mu.Lock()
	c.record("subscribe")
	c.subscribeCalls++
	n := c.subscribeCalls
	hook := c.subscribe
	c.mu.Unlock()
	if hook == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return hook(ctx, n, fn)
}

func (c *fakeClient) Play(ctx context.Context) error                { return nil }
func (c *fakeClient) Pause(ctx context.Context) error               { return nil }
func (c *fakeClient) Previous(ctx context.Context) error            { return nil }
func (c *fakeClient) Next(ctx context.Context) error                { return nil }
func (c *fakeClient) SeekTo(ctx context.Context, pos float64) error { return nil }
func (c *fakeClient) Auth() *screen.Auth                            { return &screen.Auth{ScreenID: "screen"} }
func (c *fakeClient) Close() error                                  { return nil }

// recorder collects published snapshots.
type recorder struct {
	mu    sync.Mutex
	snaps []*snapshot.Snapshot
}

func (r *recorder) handle(s *snapshot.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) Snapshots() []*snapshot.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*snapshot.Snapshot(nil), r.snaps...)
}
