//go:build (linux && cgo) || windows || darwin

package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonance/internal/player"
	"github.com/desertthunder/sonance/internal/shared"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// Available reports whether this build has a speaker backend.
const Available = true

const speakerRate = beep.SampleRate(44100)

var (
	initOnce sync.Once
	initErr  error
)

func initSpeaker() error {
	initOnce.Do(func() {
		initErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return initErr
}

var _ player.Element = (*Speaker)(nil)

// Speaker is a [player.Element] backed by the system audio device.
type Speaker struct {
	logger *log.Logger

	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	level    float64
	queued   bool   // the current streamer is attached to the speaker
	loadGen  uint64 // bumped on every Load so a late end callback is ignored
	onEnded  func()
}

// New initializes the speaker (once per process) and returns an idle [Speaker].
func New(logger *log.Logger) (*Speaker, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if err := initSpeaker(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAudioUnavailable, err)
	}
	return &Speaker{logger: shared.WithLogger(logger, "component", "audio"), level: 1}, nil
}

// Load decodes src and detaches whatever was playing. Playback starts with [Speaker.Play].
func (s *Speaker) Load(src *player.Source) error {
	streamer, format, err := Decode(src)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked()
	s.streamer = streamer
	s.format = format
	s.loadGen++
	s.logger.Debug("loaded", "track", src.ID, "rate", format.SampleRate, "length", format.SampleRate.D(streamer.Len()))
	return nil
}

// Play resumes, or attaches the streamer to the speaker when it is not attached (first play or after the end).
func (s *Speaker) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return errors.New("no audio loaded")
	}

	if s.queued {
		speaker.Lock()
		s.ctrl.Paused = false
		speaker.Unlock()
		return nil
	}

	var out beep.Streamer = s.streamer
	if s.format.SampleRate != speakerRate {
		out = beep.Resample(4, s.format.SampleRate, speakerRate, s.streamer)
	}
	s.ctrl = &beep.Ctrl{Streamer: out}
	vol, silent := levelToVolume(s.level)
	s.volume = &effects.Volume{Streamer: s.ctrl, Base: 2, Volume: vol, Silent: silent}
	s.queued = true

	gen := s.loadGen
	speaker.Play(beep.Seq(s.volume, beep.Callback(func() {
		// runs on the speaker goroutine with the speaker lock held
		go s.finished(gen)
	})))
	return nil
}

func (s *Speaker) finished(gen uint64) {
	s.mu.Lock()
	if gen != s.loadGen || !s.queued {
		s.mu.Unlock()
		return
	}
	s.queued = false
	fn := s.onEnded
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (s *Speaker) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		speaker.Lock()
		s.ctrl.Paused = true
		speaker.Unlock()
	}
}

// Seek clamps d to the track length.
func (s *Speaker) Seek(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return nil
	}

	n := min(max(s.format.SampleRate.N(d), 0), max(s.streamer.Len()-1, 0))
	speaker.Lock()
	defer speaker.Unlock()
	return s.streamer.Seek(n)
}

func (s *Speaker) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := s.streamer.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(pos)
}

func (s *Speaker) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return 0
	}
	return s.format.SampleRate.D(s.streamer.Len())
}

func (s *Speaker) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = min(max(v, 0), 1)
	if s.volume != nil {
		vol, silent := levelToVolume(s.level)
		speaker.Lock()
		s.volume.Volume = vol
		s.volume.Silent = silent
		speaker.Unlock()
	}
}

func (s *Speaker) OnEnded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnded = fn
}

// Close stops output and drops the end listener.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked()
	s.onEnded = nil
	speaker.Clear()
	return nil
}

func (s *Speaker) detachLocked() {
	if s.ctrl != nil {
		speaker.Lock()
		s.ctrl.Paused = true
		s.ctrl.Streamer = nil
		speaker.Unlock()
	}
	if s.streamer != nil {
		if err := s.streamer.Close(); err != nil {
			s.logger.Warn("failed to close streamer", "error", err)
		}
		s.streamer = nil
	}
	s.ctrl = nil
	s.volume = nil
	s.queued = false
}
