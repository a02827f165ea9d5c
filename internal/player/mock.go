package player

import (
	"sync"
	"time"
)

// Mock is a test double for [Element].
type Mock struct {
	mu        sync.Mutex
	source    *Source
	playing   bool
	position  time.Duration
	duration  time.Duration
	volume    float64
	onEnded   func()
	loadErr   error
	playErr   error
	loads     []*Source
	seekCalls []time.Duration
	closed    bool
}

// NewMock creates a new mock element for testing.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Load(src *Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = append(m.loads, src)
	if m.loadErr != nil {
		return m.loadErr
	}
	m.source = src
	m.playing = false
	m.position = 0
	return nil
}

func (m *Mock) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.playing = true
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

func (m *Mock) Seek(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, d)
	m.position = d
	return nil
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = v
}

func (m *Mock) OnEnded(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnded = fn
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.onEnded = nil
	m.closed = true
	return nil
}

// Test helpers

func (m *Mock) SetLoadError(err error) { m.mu.Lock(); m.loadErr = err; m.mu.Unlock() }

func (m *Mock) SetPlayError(err error) { m.mu.Lock(); m.playErr = err; m.mu.Unlock() }

func (m *Mock) SetPosition(d time.Duration) { m.mu.Lock(); m.position = d; m.mu.Unlock() }

func (m *Mock) SetDuration(d time.Duration) { m.mu.Lock(); m.duration = d; m.mu.Unlock() }

// LoadCalls returns every source passed to Load, in order.
func (m *Mock) LoadCalls() []*Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Source(nil), m.loads...)
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

// Current returns the loaded source.
func (m *Mock) Current() *Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

func (m *Mock) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SimulateEnded runs the registered end callback as the audio output would.
func (m *Mock) SimulateEnded() {
	m.mu.Lock()
	fn := m.onEnded
	m.playing = false
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Verify Mock implements Element at compile time.
var _ Element = (*Mock)(nil)
