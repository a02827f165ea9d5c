package player

import (
	"context"
	"sync/atomic"
	"time"
)

// Element is the audio output the player drives.
type Element interface {
	// Load assigns src as the current audio. It does not release the previous source.
	Load(src *Source) error
	Play() error
	Pause()
	// Seek moves the playhead. Out-of-range values are clamped by the element.
	Seek(d time.Duration) error
	Position() time.Duration
	Duration() time.Duration
	// SetVolume applies a level in [0,1].
	SetVolume(v float64)
	// OnEnded registers the callback run when the loaded audio plays to completion.
	OnEnded(fn func())
	// Close pauses output and detaches listeners.
	Close() error
}

// Fetcher downloads the audio bytes of a track.
type Fetcher interface {
	FetchAudio(ctx context.Context, trackID string) (*Source, error)
}

// TokenSource exposes the bearer token required to fetch audio.
type TokenSource interface {
	AccessToken() string
}

// VolumeStore persists the volume level across runs.
type VolumeStore interface {
	LoadVolume() (float64, bool)
	SaveVolume(v float64) error
}

// Source is fetched audio held in memory.
type Source struct {
	ID          string
	Data        []byte
	ContentType string

	released atomic.Bool
}

// NewSource wraps fetched bytes.
func NewSource(id string, data []byte, contentType string) *Source {
	return &Source{ID: id, Data: data, ContentType: contentType}
}

// Release drops the buffered bytes. Calling it again is a no-op.
func (s *Source) Release() {
	if s == nil || !s.released.CompareAndSwap(false, true) {
		return
	}
	s.Data = nil
}

// Released reports whether [Source.Release] has been called.
func (s *Source) Released() bool {
	return s != nil && s.released.Load()
}

// Size returns the buffered byte count.
func (s *Source) Size() int {
	if s == nil {
		return 0
	}
	return len(s.Data)
}
