// Package lounge defines the boundary to the screen control channel library.
package lounge

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/ytlounge/internal/domain/screen"
	"github.com/osa030/ytlounge/internal/domain/snapshot"
)

// ErrUnreachable marks errors caused by the screen or the lounge service being unreachable.
// Drivers wrap transport failures with it so callers can tell them apart from rejected credentials.
var ErrUnreachable = errors.New("lounge service unreachable")

// SnapshotFunc receives playback state changes. A nil snapshot means there is
// no active session on the screen.
type SnapshotFunc func(s *snapshot.Snapshot)

// Client is a control channel to a paired screen.
type Client interface {
	// Paired returns true if the client holds a credential for a screen.
	Paired() bool
	// Linked returns true if the long-lived credential is currently valid.
	Linked() bool
	// Connected returns true if a control channel session is open.
	Connected() bool

	// Connect attempts to open the control channel.
	Connect(ctx context.Context) (bool, error)
	// RefreshAuth attempts to renew the credential.
	RefreshAuth(ctx context.Context) (bool, error)
	// Subscribe delivers state changes to fn and blocks until the subscription ends.
	Subscribe(ctx context.Context, fn SnapshotFunc) error

	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Previous(ctx context.Context) error
	Next(ctx context.Context) error
	SeekTo(ctx context.Context, position float64) error

	// Auth returns the credential the client uses.
	Auth() *screen.Auth
	// Close releases the client resources.
	Close() error
}

// Pairer performs the one-time pairing handshake with a screen.
type Pairer interface {
	// Pair pairs using the code shown on the screen.
	Pair(ctx context.Context, code string) (bool, error)
	// PairWithScreenID pairs with a screen found through local discovery.
	PairWithScreenID(ctx context.Context, screenID, screenName string) (bool, error)
	// ScreenName returns the name of the paired screen.
	ScreenName() string
	// Auth returns the credential obtained by pairing.
	Auth() *screen.Auth
	Close() error
}

// Driver creates control channel clients and pairers.
type Driver interface {
	// NewClient returns a client for a previously paired screen.
	NewClient(auth *screen.Auth) (Client, error)
	// NewPairer returns a pairer for a new screen.
	NewPairer() (Pairer, error)
}
