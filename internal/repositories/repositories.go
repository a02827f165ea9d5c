// package repositories provides persistence layer implementations for local client settings.
package repositories

import (
	"context"
	"errors"
)

const (
	KeyAccessToken = "access_token"
	KeyVolume      = "volume"
)

// ErrSettingNotFound is returned by [Settings.Get] when no row exists for the key.
var ErrSettingNotFound = errors.New("setting not found")

// Setting is a single persisted key/value pair.
type Setting struct {
	Key   string
	Value string
}

// Settings is the key/value contract shared by the SQLite and in-memory implementations.
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Setting, error)
}
