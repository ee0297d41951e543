// Package integration runs one media player entity per paired screen entry.
package integration

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/domain/screen"
	"github.com/osa030/ytlounge/internal/infra/entrystore"
)

var (
	// ErrNotPaired is returned when an entry holds no usable credential.
	// It is permanent: the screen must be paired again.
	ErrNotPaired = errors.New("screen is not paired")
	// ErrSetupFailed is returned when the screen could not be connected.
	ErrSetupFailed = errors.New("setup failed")
	// ErrPlayerNotFound is returned when no running player matches.
	ErrPlayerNotFound = errors.New("player not found")
)

// DriverOpener returns the lounge driver registered under name.
type DriverOpener func(name string) (lounge.Driver, error)

// CachedOpener opens drivers from the lounge registry once per name.
func CachedOpener(deviceName string, settings func(name string) map[string]any) DriverOpener {
	var mu sync.Mutex
	drivers := make(map[string]lounge.Driver)
	return func(name string) (lounge.Driver, error) {
		mu.Lock()
		defer mu.Unlock()
		if d, ok := drivers[name]; ok {
			return d, nil
		}
		d, err := lounge.Open(name, deviceName, settings(name))
		if err != nil {
			return nil, err
		}
		drivers[name] = d
		return d, nil
	}
}

// Setup creates a client for entry and connects it, refreshing the
// credential once if the first connect fails.
func Setup(ctx context.Context, driver lounge.Driver, entry entrystore.Entry) (lounge.Client, error) {
	auth, err := screen.Deserialize(entry.Auth)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "entry=%s", entry.ID), ErrNotPaired)
	}

	client, err := driver.NewClient(auth)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}
	if !client.Paired() {
		_ = client.Close()
		return nil, errors.Wrapf(ErrNotPaired, "entry=%s", entry.ID)
	}

	ok, err := connect(ctx, client)
	if err == nil && ok {
		return client, nil
	}
	_ = client.Close()
	if err != nil {
		return nil, errors.Mark(err, ErrSetupFailed)
	}
	return nil, errors.Wrapf(ErrSetupFailed, "entry=%s", entry.ID)
}

func connect(ctx context.Context, client lounge.Client) (bool, error) {
	screenID := client.Auth().ScreenID

	ok, err := client.Connect(ctx)
	if err != nil {
		return false, errors.Wrap(err, "connect")
	}
	if ok {
		zlog.Debug().Msgf("integration: connected: screen=%s", screenID)
		return true, nil
	}

	zlog.Debug().Msgf("integration: connect failed, refreshing auth: screen=%s", screenID)
	refreshed, err := client.RefreshAuth(ctx)
	if err != nil {
		return false, errors.Wrap(err, "refresh auth")
	}
	if !refreshed {
		return false, nil
	}

	ok, err = client.Connect(ctx)
	if err != nil {
		return false, errors.Wrap(err, "connect after refresh")
	}
	return ok, nil
}

// Unload releases the client of a stopped player.
func Unload(client lounge.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return errors.Wrap(err, "failed to close client")
	}
	return nil
}
