// Package pairing implements the flow that pairs a new screen and records it
// as an entry.
package pairing

import (
	"context"
	"net"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/app/metadata"
	"github.com/osa030/ytlounge/internal/infra/entrystore"
)

var (
	// ErrCannotConnect is returned when the lounge or metadata service cannot be reached.
	ErrCannotConnect = errors.New("cannot connect")
	// ErrInvalidAuth is returned when the pairing code, screen or API key is rejected.
	ErrInvalidAuth = errors.New("invalid auth")
	// ErrAlreadyConfigured is returned when the screen is already paired.
	ErrAlreadyConfigured = errors.New("screen already configured")
	// ErrScreenIDMissing is returned when a discovered screen has no id.
	ErrScreenIDMissing = errors.New("screen id missing")
)

// EntryStore is the subset of the entry store used by the flow.
type EntryStore interface {
	FindByScreenID(screenID string) (*entrystore.Entry, error)
	Add(e entrystore.Entry) (entrystore.Entry, error)
}

// ValidatorFactory creates an API key validator.
type ValidatorFactory func(ctx context.Context, apiKey string) (metadata.Validator, error)

// Result is a successfully paired screen.
type Result struct {
	ScreenName string
	ScreenID   string
	Auth       map[string]any
}

// Flow pairs screens through a lounge driver.
type Flow struct {
	driverName string
	driver     lounge.Driver
	store      EntryStore
	validators ValidatorFactory
}

// NewFlow creates a pairing flow. validators may be nil when API keys are
// never supplied.
func NewFlow(driverName string, driver lounge.Driver, store EntryStore, validators ValidatorFactory) *Flow {
	return &Flow{
		driverName: driverName,
		driver:     driver,
		store:      store,
		validators: validators,
	}
}

// PairWithCode pairs using the code shown on the screen.
func (f *Flow) PairWithCode(ctx context.Context, code string) (*Result, error) {
	res, err := f.pair(ctx, func(p lounge.Pairer) (bool, error) {
		return p.Pair(ctx, code)
	})
	if err != nil {
		return nil, err
	}
	if err := f.checkUnique(res.ScreenID); err != nil {
		return nil, err
	}
	return res, nil
}

// PairWithScreenID pairs with a screen found through discovery.
func (f *Flow) PairWithScreenID(ctx context.Context, screenID, screenName string) (*Result, error) {
	if screenID == "" {
		return nil, ErrScreenIDMissing
	}
	if err := f.checkUnique(screenID); err != nil {
		return nil, err
	}
	return f.pair(ctx, func(p lounge.Pairer) (bool, error) {
		return p.PairWithScreenID(ctx, screenID, screenName)
	})
}

func (f *Flow) pair(ctx context.Context, fn func(lounge.Pairer) (bool, error)) (*Result, error) {
	pairer, err := f.driver.NewPairer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pairer")
	}
	defer func() { _ = pairer.Close() }()

	ok, err := fn(pairer)
	if err != nil {
		zlog.Warn().Err(err).Msg("pairing: pairing failed")
		return nil, classifyPairError(err)
	}
	auth := pairer.Auth()
	if !ok || !auth.Paired() {
		return nil, errors.Wrap(ErrInvalidAuth, "screen rejected pairing")
	}

	data, err := auth.Serialize()
	if err != nil {
		return nil, err
	}
	zlog.Info().Msgf("pairing: paired: screen=%s name=%q", auth.ScreenID, pairer.ScreenName())
	return &Result{
		ScreenName: pairer.ScreenName(),
		ScreenID:   auth.ScreenID,
		Auth:       data,
	}, nil
}

func (f *Flow) checkUnique(screenID string) error {
	existing, err := f.store.FindByScreenID(screenID)
	if errors.Is(err, entrystore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to look up existing entries")
	}
	return errors.Wrapf(ErrAlreadyConfigured, "screen_id=%s entry=%s", screenID, existing.ID)
}

// ValidateAPIKey checks an optional metadata API key. An empty key is valid.
func (f *Flow) ValidateAPIKey(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return nil
	}
	if f.validators == nil {
		return errors.Wrap(ErrCannotConnect, "no metadata service configured")
	}

	v, err := f.validators(ctx, apiKey)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "failed to create validator"), ErrCannotConnect)
	}
	if err := v.Validate(ctx); err != nil {
		if metadata.IsInvalidAPIKey(err) {
			return errors.Mark(err, ErrInvalidAuth)
		}
		return errors.Mark(err, ErrCannotConnect)
	}
	return nil
}

// Complete validates apiKey and records the paired screen as an entry.
func (f *Flow) Complete(ctx context.Context, res *Result, apiKey string) (entrystore.Entry, error) {
	if err := f.ValidateAPIKey(ctx, apiKey); err != nil {
		return entrystore.Entry{}, err
	}

	entry, err := f.store.Add(entrystore.Entry{
		Title:        res.ScreenName,
		Driver:       f.driverName,
		Auth:         res.Auth,
		GoogleAPIKey: apiKey,
	})
	if errors.Is(err, entrystore.ErrDuplicate) {
		return entrystore.Entry{}, errors.Mark(err, ErrAlreadyConfigured)
	}
	if err != nil {
		return entrystore.Entry{}, errors.Wrap(err, "failed to save entry")
	}
	return entry, nil
}

// classifyPairError maps a pairing failure to ErrCannotConnect or ErrInvalidAuth.
func classifyPairError(err error) error {
	var netErr net.Error
	if errors.Is(err, lounge.ErrUnreachable) || errors.As(err, &netErr) {
		return errors.Mark(err, ErrCannotConnect)
	}
	return errors.Mark(err, ErrInvalidAuth)
}
