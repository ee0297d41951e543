// Package screen provides the paired screen credential.
package screen

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// Auth is the long-lived credential obtained by pairing with a screen.
type Auth struct {
	ScreenID      string `mapstructure:"screen_id"`       // Stable screen identifier
	LoungeIDToken string `mapstructure:"lounge_id_token"` // Token used to open the control channel
	RefreshToken  string `mapstructure:"refresh_token"`   // Token used to renew LoungeIDToken
	Expiry        int64  `mapstructure:"expiry"`          // LoungeIDToken expiry (unix milliseconds, 0 if unknown)
}

// Paired returns true if the credential identifies a screen and carries a token.
func (a *Auth) Paired() bool {
	return a != nil && a.ScreenID != "" && a.LoungeIDToken != ""
}

// Expired returns true if the lounge token is known to be expired at now.
func (a *Auth) Expired(now time.Time) bool {
	if a == nil || a.Expiry == 0 {
		return false
	}
	return now.UnixMilli() >= a.Expiry
}

// Serialize converts the credential to a map for persistence.
func (a *Auth) Serialize() (map[string]any, error) {
	out := make(map[string]any)
	if err := mapstructure.Decode(a, &out); err != nil {
		return nil, errors.Wrap(err, "failed to serialize auth")
	}
	return out, nil
}

// Deserialize restores a credential from its persisted form.
func Deserialize(data map[string]any) (*Auth, error) {
	if len(data) == 0 {
		return nil, errors.New("auth data is empty")
	}

	var auth Auth
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &auth,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(data); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize auth")
	}
	return &auth, nil
}
