package connect

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/osa030/ytlounge/internal/app/entity"
	"github.com/osa030/ytlounge/internal/app/integration"
	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/domain/screen"
)

type fakeClient struct {
	mu         sync.Mutex
	screenID   string
	connected  bool
	commands   []string
	commandErr error
}

var _ lounge.Client = (*fakeClient)(nil)

func (c *fakeClient) Paired() bool { return true }
func (c *fakeClient) Linked() bool { return true }

func (c *fakeClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Connect(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return true, nil
}

func (c *fakeClient) RefreshAuth(ctx context.Context) (bool, error) { return true, nil }

func (c *fakeClient) Subscribe(ctx context.Context, fn lounge.SnapshotFunc) error {
	<-ctx.Done()
	return ctx.Err()
}

func (c *fakeClient) command(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commandErr != nil {
		return c.commandErr
	}
	c.commands = append(c.commands, name)
	return nil
}

func (c *fakeClient) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commands...)
}

func (c *fakeClient) Play(ctx context.Context) error     { return c.command("play") }
func (c *fakeClient) Pause(ctx context.Context) error    { return c.command("pause") }
func (c *fakeClient) Previous(ctx context.Context) error { return c.command("previous") }
func (c *fakeClient) Next(ctx context.Context) error     { return c.command("next") }

func (c *fakeClient) SeekTo(ctx context.Context, position float64) error {
	return c.command("seek")
}

func (c *fakeClient) Auth() *screen.Auth {
	return &screen.Auth{ScreenID: c.screenID, LoungeIDToken: "token"}
}

func (c *fakeClient) Close() error { return nil }

type fakePlayers struct {
	list []*entity.Entity
}

func (f *fakePlayers) Players() []*entity.Entity { return f.list }

func (f *fakePlayers) Player(id string) (*entity.Entity, error) {
	for _, e := range f.list {
		if e.UniqueID() == id {
			return e, nil
		}
	}
	return nil, errors.Wrapf(integration.ErrPlayerNotFound, "id=%s", id)
}
