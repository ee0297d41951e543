package integration

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/app/metadata"
	"github.com/osa030/ytlounge/internal/domain/screen"
	"github.com/osa030/ytlounge/internal/domain/snapshot"
	"github.com/osa030/ytlounge/internal/domain/video"
)

type instantClock struct{}

func (instantClock) Now() time.Time { return time.Now() }

func (instantClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

type fakeClient struct {
	mu             sync.Mutex
	auth           *screen.Auth
	connected      bool
	connectResults []bool
	connectErr     error
	refreshResult  bool
	calls          []string
	closed         bool
	emit           *snapshot.Snapshot
}

var _ lounge.Client = (*fakeClient)(nil)

func (c *fakeClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeClient) Paired() bool { return c.auth.Paired() }
func (c *fakeClient) Linked() bool { return true }

func (c *fakeClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Connect(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "connect")
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
	c.calls = append(c.calls, "refresh")
	return c.refreshResult, nil
}

func (c *fakeClient) Subscribe(ctx context.Context, fn lounge.SnapshotFunc) error {
	c.mu.Lock()
	emit := c.emit
	c.mu.Unlock()
	if emit != nil {
		fn(emit)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *fakeClient) Play(ctx context.Context) error                { return nil }
func (c *fakeClient) Pause(ctx context.Context) error               { return nil }
func (c *fakeClient) Previous(ctx context.Context) error            { return nil }
func (c *fakeClient) Next(ctx context.Context) error                { return nil }
func (c *fakeClient) SeekTo(ctx context.Context, pos float64) error { return nil }
func (c *fakeClient) Auth() *screen.Auth                            { return c.auth }

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.connected = false
	return nil
}

// fakeDriver builds clients through configure, which may adjust each new client.
type fakeDriver struct {
	mu        sync.Mutex
	clients   []*fakeClient
	configure func(n int, c *fakeClient)
}

func (d *fakeDriver) NewClient(auth *screen.Auth) (lounge.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &fakeClient{auth: auth}
	if d.configure != nil {
		d.configure(len(d.clients), c)
	}
	d.clients = append(d.clients, c)
	return c, nil
}

func (d *fakeDriver) NewPairer() (lounge.Pairer, error) {
	return nil, errors.New("not implemented")
}

func (d *fakeDriver) Clients() []*fakeClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeClient(nil), d.clients...)
}

func (d *fakeDriver) clientFor(screenID string) *fakeClient {
	for _, c := range d.Clients() {
		if c.auth.ScreenID == screenID {
			return c
		}
	}
	return nil
}

type fakeMetadata struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeMetadata) factory(ctx context.Context, apiKey string) (metadata.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, apiKey)
	return staticService{}, nil
}

func (f *fakeMetadata) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

type staticService struct{}

func (staticService) Lookup(ctx context.Context, id string) (*video.Record, error) {
	return &video.Record{ID: id, Title: "Title " + id}, nil
}
