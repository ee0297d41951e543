package simulator

import (
	"context"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/domain/screen"
)

// pairingCodeLength is the number of digits of a pairing code.
const pairingCodeLength = 12

// Pairer simulates the pairing handshake.
type Pairer struct {
	driver     *Driver
	auth       *screen.Auth
	screenName string
}

// Pair accepts any 12 digit code. The screen id is derived from the code so
// pairing twice with the same code yields the same screen.
func (p *Pairer) Pair(ctx context.Context, code string) (bool, error) {
	if err := p.reachable(ctx); err != nil {
		return false, err
	}

	digits := normalizeCode(code)
	if len(digits) != pairingCodeLength {
		zlog.Debug().Msgf("simulator: rejected pairing code: length=%d", len(digits))
		return false, nil
	}

	screenID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("ytlounge-simulator:"+digits)).String()
	p.issue(screenID, p.driver.settings.ScreenName)
	return true, nil
}

// PairWithScreenID pairs with a discovered screen.
func (p *Pairer) PairWithScreenID(ctx context.Context, screenID, screenName string) (bool, error) {
	if err := p.reachable(ctx); err != nil {
		return false, err
	}
	if screenID == "" {
		return false, nil
	}
	if screenName == "" {
		screenName = p.driver.settings.ScreenName
	}
	p.issue(screenID, screenName)
	return true, nil
}

func (p *Pairer) issue(screenID, screenName string) {
	p.screenName = screenName
	p.auth = &screen.Auth{
		ScreenID:      screenID,
		LoungeIDToken: uuid.NewString(),
		RefreshToken:  uuid.NewString(),
		Expiry:        p.driver.settings.expiry(p.driver.now()),
	}
	zlog.Info().Msgf("simulator: paired: screen=%s name=%q device=%q", screenID, screenName, p.driver.deviceName)
}

func (p *Pairer) reachable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.driver.settings.Unreachable {
		return errors.Wrap(lounge.ErrUnreachable, "simulated pairing service")
	}
	return nil
}

// ScreenName returns the name of the paired screen.
func (p *Pairer) ScreenName() string {
	return p.screenName
}

// Auth returns the credential obtained by pairing, or nil.
func (p *Pairer) Auth() *screen.Auth {
	if p.auth == nil {
		return nil
	}
	a := *p.auth
	return &a
}

// Close releases nothing.
func (p *Pairer) Close() error {
	return nil
}

func normalizeCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-':
		default:
			return ""
		}
	}
	return b.String()
}
