package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Preferences adapts a [Settings] store to the typed token and volume accessors used by auth.Manager and player.Player.
type Preferences struct {
	settings Settings
}

// NewPreferences creates a new [Preferences] over the given store.
func NewPreferences(settings Settings) *Preferences {
	return &Preferences{settings: settings}
}

// LoadToken returns the persisted access token, or "" when none is stored.
func (p *Preferences) LoadToken() (string, error) {
	v, err := p.settings.Get(context.Background(), KeyAccessToken)
	if errors.Is(err, ErrSettingNotFound) {
		return "", nil
	}
	return v, err
}

// SaveToken persists the access token.
func (p *Preferences) SaveToken(token string) error {
	return p.settings.Set(context.Background(), KeyAccessToken, token)
}

// ClearToken forgets the access token. The volume key is untouched.
func (p *Preferences) ClearToken() error {
	return p.settings.Delete(context.Background(), KeyAccessToken)
}

// LoadVolume returns the persisted volume and whether a valid one was found.
func (p *Preferences) LoadVolume() (float64, bool) {
	v, err := p.settings.Get(context.Background(), KeyVolume)
	if err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		return 0, false
	}
	return f, true
}

// SaveVolume persists the volume level.
func (p *Preferences) SaveVolume(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("volume %v out of range", v)
	}
	return p.settings.Set(context.Background(), KeyVolume, strconv.FormatFloat(v, 'f', -1, 64))
}
