// Package simulator provides an in-process lounge driver that simulates a
// screen playing a playlist. It is registered as the "simulator" driver.
package simulator

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/domain/screen"
)

// DriverName is the registry name of the simulator driver.
const DriverName = "simulator"

func init() {
	lounge.Register(DriverName, func(deviceName string, settings map[string]any) (lounge.Driver, error) {
		return NewDriver(deviceName, settings)
	})
}

// Settings are the simulator driver settings.
type Settings struct {
	ScreenName       string   `yaml:"screen_name" mapstructure:"screen_name" default:"Simulated TV" validate:"required"`
	Playlist         []string `yaml:"playlist" mapstructure:"playlist" default:"[\"oa__fLArsFk\",\"dQw4w9WgXcQ\",\"9bZkp7q19f0\"]" validate:"min=1,dive,required"`
	TickMs           int      `yaml:"tick_ms" mapstructure:"tick_ms" default:"1000" validate:"gte=10"`
	VideoDurationSec int      `yaml:"video_duration_sec" mapstructure:"video_duration_sec" default:"240" validate:"gte=1"`
	SessionLengthSec int      `yaml:"session_length_sec" mapstructure:"session_length_sec" validate:"gte=0"`
	TokenLifetimeSec int      `yaml:"token_lifetime_sec" mapstructure:"token_lifetime_sec" validate:"gte=0"`
	Unreachable      bool     `yaml:"unreachable" mapstructure:"unreachable"`
}

func (s Settings) tick() time.Duration {
	return time.Duration(s.TickMs) * time.Millisecond
}

func (s Settings) expiry(now time.Time) int64 {
	if s.TokenLifetimeSec == 0 {
		return 0
	}
	return now.Add(time.Duration(s.TokenLifetimeSec) * time.Second).UnixMilli()
}

// Driver creates simulated clients and pairers.
type Driver struct {
	deviceName string
	settings   Settings
	now        func() time.Time
}

// NewDriver creates a simulator driver from raw settings.
func NewDriver(deviceName string, settings map[string]any) (*Driver, error) {
	var s Settings
	if err := mapstructure.Decode(settings, &s); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&s); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(s); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &Driver{deviceName: deviceName, settings: s, now: time.Now}, nil
}

// Settings returns the decoded settings.
func (d *Driver) Settings() Settings {
	return d.settings
}

// NewClient returns a simulated control channel for auth.
func (d *Driver) NewClient(auth *screen.Auth) (lounge.Client, error) {
	if auth == nil {
		return nil, errors.New("auth is required")
	}
	a := *auth
	return newClient(d, &a), nil
}

// NewPairer returns a simulated pairer.
func (d *Driver) NewPairer() (lounge.Pairer, error) {
	return &Pairer{driver: d}, nil
}
