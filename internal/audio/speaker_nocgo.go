//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonance/internal/player"
	"github.com/desertthunder/sonance/internal/shared"
)

// Available reports whether this build has a speaker backend.
const Available = false

// Speaker is unavailable in this build.
type Speaker struct {
	player.Element
}

// New always fails with [shared.ErrAudioUnavailable] in builds without a speaker backend.
func New(_ *log.Logger) (*Speaker, error) {
	return nil, shared.ErrAudioUnavailable
}
