package player

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonance/internal/models"
	"github.com/desertthunder/sonance/internal/shared"
)

const (
	// DefaultRestartThreshold is the elapsed time after which PlayPrevious at the queue head restarts the track.
	DefaultRestartThreshold = 3 * time.Second
	defaultVolume           = 1.0
)

// ErrClosed is returned by operations on a closed [Player].
var ErrClosed = errors.New("player closed")

// Opts contains configuration options for creating a [Player].
type Opts struct {
	Element          Element
	Fetcher          Fetcher
	Tokens           TokenSource
	Volumes          VolumeStore   // optional
	RestartThreshold time.Duration // defaults to DefaultRestartThreshold
	DefaultVolume    float64       // used when no volume is persisted; zero means full volume
	Logger           *log.Logger
}

// State is a snapshot of the player.
type State struct {
	CurrentTrack *models.Track
	IsPlaying    bool
	Volume       float64
	CurrentTime  time.Duration
	Duration     time.Duration
	IsRepeat     bool
	Loading      bool // audio for CurrentTrack is being fetched
	Queue        []models.Track
	Index        int
}

// Player is the now-playing state machine. It is safe for concurrent use.
type Player struct {
	element   Element
	fetcher   Fetcher
	tokens    TokenSource
	volumes   VolumeStore
	threshold time.Duration
	logger    *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	current     *models.Track
	source      *Source
	playing     bool
	volume      float64
	repeat      bool
	queue       []models.Track
	index       int
	generation  uint64
	cancelFetch context.CancelFunc
	subscribers []*Subscription
	closed      bool
}

// New creates a [Player] and applies the persisted volume to the element.
func New(opts Opts) *Player {
	if opts.RestartThreshold <= 0 {
		opts.RestartThreshold = DefaultRestartThreshold
	}
	if opts.DefaultVolume <= 0 || opts.DefaultVolume > 1 {
		opts.DefaultVolume = defaultVolume
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		element:   opts.Element,
		fetcher:   opts.Fetcher,
		tokens:    opts.Tokens,
		volumes:   opts.Volumes,
		threshold: opts.RestartThreshold,
		logger:    shared.WithLogger(opts.Logger, "component", "player"),
		ctx:       ctx,
		cancel:    cancel,
		volume:    opts.DefaultVolume,
	}

	if p.volumes != nil {
		if v, ok := p.volumes.LoadVolume(); ok {
			p.volume = v
		}
	}

	p.element.SetVolume(p.volume)
	p.element.OnEnded(func() { go p.handleEnded() })
	return p
}

// PlayTrack makes track current and starts it once its audio has been fetched.
//
// Without an access token it logs and does nothing. A call superseded by a later PlayTrack or Stop returns nil,
// unless its fetch failed with [shared.ErrSessionExpired], which is returned and published as an [ErrorEvent].
func (p *Player) PlayTrack(ctx context.Context, track models.Track) error {
	if p.tokens == nil || p.tokens.AccessToken() == "" {
		p.logger.Warn("cannot play without an access token", "track", track.ID)
		return nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}

	previous := p.current
	p.current = &track
	p.generation++
	gen := p.generation
	if p.cancelFetch != nil {
		p.cancelFetch()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancelFetch = cancel

	p.emitTrackLocked(previous, &track)
	p.emitStateLocked()
	p.mu.Unlock()

	src, err := p.fetcher.FetchAudio(fetchCtx, track.ID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation || p.closed {
		src.Release()
		if errors.Is(err, shared.ErrSessionExpired) {
			err = fmt.Errorf("failed to fetch audio for %s: %w", track.ID, err)
			p.logger.Error("session expired during fetch", "track", track.ID)
			for _, s := range p.subscribers {
				s.sendError(ErrorEvent{TrackID: track.ID, Err: err})
			}
			return err
		}
		p.logger.Debug("discarding superseded fetch", "track", track.ID)
		return nil
	}
	cancel()
	p.cancelFetch = nil

	if err != nil {
		return p.failLocked(track, fmt.Errorf("failed to fetch audio for %s: %w", track.ID, err))
	}

	if err := p.element.Load(src); err != nil {
		src.Release()
		return p.failLocked(track, fmt.Errorf("failed to load audio for %s: %w", track.ID, err))
	}
	p.source.Release()
	p.source = src

	if err := p.element.Play(); err != nil {
		return p.failLocked(track, fmt.Errorf("failed to start %s: %w", track.ID, err))
	}

	p.playing = true
	p.logger.Info("playing", "track", track.String())
	p.emitStateLocked()
	return nil
}

func (p *Player) failLocked(track models.Track, err error) error {
	p.playing = false
	p.logger.Error("playback failed", "track", track.ID, "error", err)
	for _, s := range p.subscribers {
		s.sendError(ErrorEvent{TrackID: track.ID, Err: err})
	}
	p.emitStateLocked()
	return err
}

// TogglePlayPause flips between paused and playing. It is a no-op without a current track.
//
// If the current track never loaded (its fetch failed) it is fetched again.
func (p *Player) TogglePlayPause() error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return nil
	}

	if !p.loadedLocked() {
		if p.cancelFetch != nil {
			p.mu.Unlock()
			return nil
		}
		track := *p.current
		p.mu.Unlock()
		return p.PlayTrack(p.ctx, track)
	}
	defer p.mu.Unlock()

	if p.playing {
		p.element.Pause()
		p.playing = false
	} else {
		if err := p.element.Play(); err != nil {
			return fmt.Errorf("failed to resume: %w", err)
		}
		p.playing = true
	}
	p.emitStateLocked()
	return nil
}

// SeekTo moves the playhead of the loaded track.
func (p *Player) SeekTo(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loadedLocked() {
		return nil
	}
	if err := p.element.Seek(d); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	p.emitStateLocked()
	return nil
}

// SeekBy moves the playhead relative to the current position.
func (p *Player) SeekBy(delta time.Duration) error {
	p.mu.Lock()
	if !p.loadedLocked() {
		p.mu.Unlock()
		return nil
	}
	target := max(p.element.Position()+delta, 0)
	p.mu.Unlock()
	return p.SeekTo(target)
}

// SetVolume clamps v to [0,1], applies it and persists it.
func (p *Player) SetVolume(v float64) error {
	v = min(max(v, 0), 1)

	p.mu.Lock()
	p.volume = v
	p.element.SetVolume(v)
	p.emitStateLocked()
	p.mu.Unlock()

	if p.volumes != nil {
		if err := p.volumes.SaveVolume(v); err != nil {
			return fmt.Errorf("failed to persist volume: %w", err)
		}
	}
	return nil
}

// PlayNext advances the queue and plays the new entry. At the tail it does nothing.
func (p *Player) PlayNext(ctx context.Context) error {
	p.mu.Lock()
	if p.index+1 >= len(p.queue) {
		p.mu.Unlock()
		return nil
	}
	p.index++
	track := p.queue[p.index]
	p.emitQueueLocked()
	p.mu.Unlock()

	return p.PlayTrack(ctx, track)
}

// PlayPrevious steps back in the queue. At the head it restarts the current track once
// more than the restart threshold has elapsed, and otherwise does nothing.
func (p *Player) PlayPrevious(ctx context.Context) error {
	p.mu.Lock()
	if len(p.queue) > 0 && p.index > 0 {
		p.index--
		track := p.queue[p.index]
		p.emitQueueLocked()
		p.mu.Unlock()
		return p.PlayTrack(ctx, track)
	}
	defer p.mu.Unlock()

	if !p.loadedLocked() || p.element.Position() <= p.threshold {
		return nil
	}
	if err := p.element.Seek(0); err != nil {
		return fmt.Errorf("failed to restart track: %w", err)
	}
	p.emitStateLocked()
	return nil
}

// AddToQueue appends track without starting playback.
func (p *Player) AddToQueue(track models.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, track)
	p.emitQueueLocked()
}

// ClearQueue empties the queue. The current track keeps playing.
func (p *Player) ClearQueue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = nil
	p.index = 0
	p.emitQueueLocked()
}

// PlayQueue replaces the queue with tracks and plays tracks[start].
//
// An empty list is a no-op. An out-of-range start plays from the first track.
func (p *Player) PlayQueue(ctx context.Context, tracks []models.Track, start int) error {
	if len(tracks) == 0 {
		return nil
	}
	if start < 0 || start >= len(tracks) {
		start = 0
	}

	p.mu.Lock()
	p.queue = slices.Clone(tracks)
	p.index = start
	track := p.queue[start]
	p.emitQueueLocked()
	p.mu.Unlock()

	return p.PlayTrack(ctx, track)
}

// ToggleRepeat flips repeat mode and returns the new value.
func (p *Player) ToggleRepeat() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeat = !p.repeat
	p.emitStateLocked()
	return p.repeat
}

// Stop pauses output and abandons any pending fetch. The current track and queue are kept.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.emitStateLocked()
}

func (p *Player) stopLocked() {
	p.generation++
	if p.cancelFetch != nil {
		p.cancelFetch()
		p.cancelFetch = nil
	}
	if p.source != nil {
		p.element.Pause()
	}
	p.playing = false
}

// Close stops playback, releases the loaded source and closes the element.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.stopLocked()
	p.closed = true
	p.source.Release()
	p.source = nil
	subs := p.subscribers
	p.subscribers = nil
	p.mu.Unlock()

	p.cancel()
	for _, s := range subs {
		s.close()
	}
	return p.element.Close()
}

// State returns a snapshot of the player.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// Subscribe registers a new event [Subscription].
func (p *Player) Subscribe() *Subscription {
	s := newSubscription()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		s.close()
		return s
	}
	p.subscribers = append(p.subscribers, s)
	return s
}

// Unsubscribe removes s and closes its Done channel.
func (p *Player) Unsubscribe(s *Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, sub := range p.subscribers {
		if sub == s {
			p.subscribers = slices.Delete(p.subscribers, i, i+1)
			s.close()
			return
		}
	}
}

func (p *Player) handleEnded() {
	p.mu.Lock()
	if p.closed || p.current == nil || !p.playing {
		p.mu.Unlock()
		return
	}
	// an end signal while the next track is fetching belongs to the outgoing audio
	if p.cancelFetch != nil || !p.loadedLocked() {
		p.mu.Unlock()
		p.logger.Debug("ignoring end of stale audio")
		return
	}

	if p.repeat {
		defer p.mu.Unlock()
		if err := p.element.Seek(0); err != nil {
			p.logger.Error("failed to rewind for repeat", "error", err)
		}
		if err := p.element.Play(); err != nil {
			p.playing = false
			p.logger.Error("failed to repeat track", "error", err)
		}
		p.emitStateLocked()
		return
	}

	if p.index+1 < len(p.queue) {
		p.mu.Unlock()
		if err := p.PlayNext(p.ctx); err != nil {
			p.logger.Error("failed to advance queue", "error", err)
		}
		return
	}

	p.playing = false
	p.emitStateLocked()
	p.mu.Unlock()
	p.logger.Debug("queue finished")
}

// loadedLocked reports whether the element holds the current track's audio.
func (p *Player) loadedLocked() bool {
	return p.current != nil && p.source != nil && p.source.ID == p.current.ID
}

func (p *Player) stateLocked() State {
	s := State{
		IsPlaying: p.playing,
		Volume:    p.volume,
		IsRepeat:  p.repeat,
		Loading:   p.cancelFetch != nil,
		Queue:     slices.Clone(p.queue),
		Index:     p.index,
	}
	if p.current != nil {
		track := *p.current
		s.CurrentTrack = &track
		s.Duration = track.Duration()
	}
	if p.loadedLocked() && p.cancelFetch == nil {
		s.CurrentTime = p.element.Position()
		if d := p.element.Duration(); d > 0 {
			s.Duration = d
		}
	}
	return s
}

func (p *Player) emitStateLocked() {
	if len(p.subscribers) == 0 {
		return
	}
	e := StateChange{State: p.stateLocked()}
	for _, s := range p.subscribers {
		s.sendState(e)
	}
}

func (p *Player) emitTrackLocked(previous, current *models.Track) {
	for _, s := range p.subscribers {
		s.sendTrack(TrackChange{Previous: previous, Current: current})
	}
}

func (p *Player) emitQueueLocked() {
	if len(p.subscribers) == 0 {
		return
	}
	e := QueueChange{Tracks: slices.Clone(p.queue), Index: p.index}
	for _, s := range p.subscribers {
		s.sendQueue(e)
	}
}
