package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/sonance/internal/shared"
	tu "github.com/desertthunder/sonance/internal/testing"
)

type token string

func (t token) AccessToken() string { return string(t) }

// fakeFetcher returns a fresh source per call. Track ids listed in gates block until their channel closes.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	gates   map[string]chan struct{}
	started chan string
	sources []*Source
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		fail:    map[string]error{},
		gates:   map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

func (f *fakeFetcher) FetchAudio(ctx context.Context, trackID string) (*Source, error) {
	f.mu.Lock()
	f.calls = append(f.calls, trackID)
	gate := f.gates[trackID]
	err := f.fail[trackID]
	f.mu.Unlock()

	f.started <- trackID
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	src := NewSource(trackID, []byte("audio:"+trackID), "audio/mpeg")
	f.mu.Lock()
	f.sources = append(f.sources, src)
	f.mu.Unlock()
	return src, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeFetcher) Sources() []*Source {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Source(nil), f.sources...)
}

type fixture struct {
	player  *Player
	element *Mock
	fetcher *fakeFetcher
}

func newFixture(t *testing.T, opts Opts) fixture {
	t.Helper()
	f := fixture{element: NewMock(), fetcher: newFakeFetcher()}
	if opts.Element == nil {
		opts.Element = f.element
	}
	if opts.Fetcher == nil {
		opts.Fetcher = f.fetcher
	}
	if opts.Tokens == nil {
		opts.Tokens = token("tok")
	}
	f.player = New(opts)
	t.Cleanup(func() { f.player.Close() })
	return f
}

func TestPlayer(t *testing.T) {
	ctx := context.Background()
	tracks := tu.Tracks(4)

	t.Run("PlayTrack", func(t *testing.T) {
		t.Run("loads then plays", func(t *testing.T) {
			f := newFixture(t, Opts{})

			if err := f.player.PlayTrack(ctx, tracks[0]); err != nil {
				t.Fatalf("PlayTrack() error = %v", err)
			}

			s := f.player.State()
			if s.CurrentTrack == nil || s.CurrentTrack.ID != "t1" || !s.IsPlaying {
				t.Errorf("unexpected state %+v", s)
			}
			if f.element.Current().ID != "t1" || !f.element.Playing() {
				t.Error("expected element to hold and play t1")
			}
		})

		t.Run("no token is a no-op", func(t *testing.T) {
			f := newFixture(t, Opts{Tokens: token("")})

			if err := f.player.PlayTrack(ctx, tracks[0]); err != nil {
				t.Fatalf("PlayTrack() error = %v", err)
			}
			if f.player.State().CurrentTrack != nil {
				t.Error("expected no current track")
			}
			if len(f.fetcher.Calls()) != 0 {
				t.Error("expected no fetch")
			}
		})

		t.Run("fetch failure keeps the attempted track", func(t *testing.T) {
			f := newFixture(t, Opts{})
			boom := errors.New("502 bad gateway")
			f.fetcher.fail["t2"] = boom
			sub := f.player.Subscribe()

			err := f.player.PlayTrack(ctx, tracks[1])
			if !errors.Is(err, boom) {
				t.Fatalf("expected fetch error, got %v", err)
			}

			s := f.player.State()
			if s.IsPlaying || s.CurrentTrack == nil || s.CurrentTrack.ID != "t2" {
				t.Errorf("unexpected state %+v", s)
			}
			select {
			case e := <-sub.Error:
				if e.TrackID != "t2" {
					t.Errorf("error event for %q", e.TrackID)
				}
			default:
				t.Error("expected an error event")
			}
		})

		t.Run("element play failure", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.element.SetPlayError(errors.New("device busy"))

			if err := f.player.PlayTrack(ctx, tracks[0]); err == nil {
				t.Fatal("expected error")
			}
			if f.player.State().IsPlaying {
				t.Error("expected IsPlaying false")
			}
		})

		t.Run("releases the previous source", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.PlayTrack(ctx, tracks[0])
			f.player.PlayTrack(ctx, tracks[1])

			sources := f.fetcher.Sources()
			if !sources[0].Released() {
				t.Error("expected first source released")
			}
			if sources[1].Released() {
				t.Error("expected current source to stay loaded")
			}
		})

		t.Run("stale fetch is discarded", func(t *testing.T) {
			f := newFixture(t, Opts{})
			gate := make(chan struct{})
			f.fetcher.gates["t1"] = gate

			done := make(chan error, 1)
			go func() { done <- f.player.PlayTrack(ctx, tracks[0]) }()
			<-f.fetcher.started
			if !f.player.State().Loading {
				t.Error("expected Loading while the fetch is pending")
			}

			if err := f.player.PlayTrack(ctx, tracks[1]); err != nil {
				t.Fatalf("PlayTrack() error = %v", err)
			}
			<-f.fetcher.started
			close(gate)

			if err := <-done; err != nil {
				t.Errorf("superseded PlayTrack should return nil, got %v", err)
			}
			if got := f.element.Current().ID; got != "t2" {
				t.Errorf("expected element to keep t2, got %s", got)
			}
			for _, src := range f.element.LoadCalls() {
				if src.ID == "t1" {
					t.Error("stale source reached the element")
				}
			}
			for _, src := range f.fetcher.Sources() {
				if src.ID == "t1" && !src.Released() {
					t.Error("expected stale source released")
				}
			}
			if s := f.player.State(); s.CurrentTrack.ID != "t2" || !s.IsPlaying || s.Loading {
				t.Errorf("unexpected state %+v", s)
			}
		})
		t.Run("replaying the loaded track reports no elapsed time while fetching", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.PlayTrack(ctx, tracks[0])
			<-f.fetcher.started
			f.element.SetPosition(50 * time.Second)

			gate := make(chan struct{})
			f.fetcher.mu.Lock()
			f.fetcher.gates["t1"] = gate
			f.fetcher.mu.Unlock()

			done := make(chan error, 1)
			go func() { done <- f.player.PlayTrack(ctx, tracks[0]) }()
			<-f.fetcher.started

			if s := f.player.State(); !s.Loading || s.CurrentTime != 0 {
				t.Errorf("expected Loading with zero elapsed time, got %+v", s)
			}

			close(gate)
			if err := <-done; err != nil {
				t.Fatalf("PlayTrack() error = %v", err)
			}
		})

		t.Run("session expiry during a stopped fetch is reported", func(t *testing.T) {
			f := newFixture(t, Opts{})
			gate := make(chan struct{})
			f.fetcher.gates["t1"] = gate
			f.fetcher.fail["t1"] = shared.ErrSessionExpired
			sub := f.player.Subscribe()

			done := make(chan error, 1)
			go func() { done <- f.player.PlayTrack(ctx, tracks[0]) }()
			<-f.fetcher.started
			f.player.Stop()
			close(gate)

			if err := <-done; !errors.Is(err, shared.ErrSessionExpired) {
				t.Fatalf("expected ErrSessionExpired, got %v", err)
			}
			select {
			case e := <-sub.Error:
				if !errors.Is(e.Err, shared.ErrSessionExpired) || e.TrackID != "t1" {
					t.Errorf("unexpected error event %+v", e)
				}
			default:
				t.Error("expected an error event")
			}
		})
	})

	t.Run("PlayQueue", func(t *testing.T) {
		for i := range tracks {
			f := newFixture(t, Opts{})
			if err := f.player.PlayQueue(ctx, tracks, i); err != nil {
				t.Fatalf("PlayQueue(%d) error = %v", i, err)
			}
			s := f.player.State()
			if s.CurrentTrack.ID != tracks[i].ID || s.Index != i || len(s.Queue) != len(tracks) {
				t.Errorf("PlayQueue(%d): current %s index %d", i, s.CurrentTrack.ID, s.Index)
			}
		}

		t.Run("empty list is a no-op", func(t *testing.T) {
			f := newFixture(t, Opts{})
			if err := f.player.PlayQueue(ctx, nil, 0); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.player.State().CurrentTrack != nil || len(f.fetcher.Calls()) != 0 {
				t.Error("expected nothing to happen")
			}
		})

		t.Run("out-of-range start plays the first track", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.PlayQueue(ctx, tracks, 99)
			if s := f.player.State(); s.Index != 0 || s.CurrentTrack.ID != "t1" {
				t.Errorf("unexpected state %+v", s)
			}
		})
	})

	t.Run("PlayNext", func(t *testing.T) {
		t.Run("advances", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.PlayQueue(ctx, tracks, 1)
			f.player.PlayNext(ctx)
			if s := f.player.State(); s.Index != 2 || s.CurrentTrack.ID != "t3" {
				t.Errorf("unexpected state %+v", s)
			}
		})

		t.Run("at the tail is a no-op", func(t *testing.T) {
			f := newFixture(t, Opts{})
			last := len(tracks) - 1
			f.player.PlayQueue(ctx, tracks, last)
			loads := len(f.element.LoadCalls())

			if err := f.player.PlayNext(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s := f.player.State(); s.Index != last {
				t.Errorf("index moved to %d", s.Index)
			}
			if len(f.element.LoadCalls()) != loads {
				t.Error("expected no new load")
			}
		})
	})

	t.Run("PlayPrevious", func(t *testing.T) {
		t.Run("steps back", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.PlayQueue(ctx, tracks, 2)
			f.element.SetPosition(10 * time.Second)
			f.player.PlayPrevious(ctx)
			if s := f.player.State(); s.Index != 1 || s.CurrentTrack.ID != "t2" {
				t.Errorf("unexpected state %+v", s)
			}
		})

		t.Run("restarts past the threshold at the head", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.PlayQueue(ctx, tracks, 0)
			f.element.SetPosition(3*time.Second + time.Millisecond)

			f.player.PlayPrevious(ctx)

			s := f.player.State()
			if s.Index != 0 || s.CurrentTime != 0 {
				t.Errorf("expected restart at index 0, got %+v", s)
			}
			if seeks := f.element.SeekCalls(); len(seeks) != 1 || seeks[0] != 0 {
				t.Errorf("unexpected seeks %v", seeks)
			}
		})

		t.Run("within the threshold at the head is a no-op", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.PlayQueue(ctx, tracks, 0)
			f.element.SetPosition(3 * time.Second)
			loads := len(f.element.LoadCalls())

			f.player.PlayPrevious(ctx)

			if s := f.player.State(); s.Index != 0 || s.CurrentTime != 3*time.Second {
				t.Errorf("unexpected state %+v", s)
			}
			if len(f.element.SeekCalls()) != 0 || len(f.element.LoadCalls()) != loads {
				t.Error("expected no seek and no load")
			}
		})

		t.Run("direct play with an empty queue restarts", func(t *testing.T) {
			f := newFixture(t, Opts{RestartThreshold: time.Second})
			f.player.PlayTrack(ctx, tracks[3])
			f.element.SetPosition(2 * time.Second)

			f.player.PlayPrevious(ctx)

			if f.player.State().CurrentTime != 0 {
				t.Error("expected restart")
			}
		})
	})

	t.Run("Queue", func(t *testing.T) {
		f := newFixture(t, Opts{})
		f.player.AddToQueue(tracks[0])
		f.player.AddToQueue(tracks[1])

		s := f.player.State()
		if len(s.Queue) != 2 || s.CurrentTrack != nil {
			t.Errorf("AddToQueue should not start playback: %+v", s)
		}

		f.player.PlayQueue(ctx, tracks[:2], 0)
		f.player.ClearQueue()
		s = f.player.State()
		if len(s.Queue) != 0 || s.CurrentTrack == nil || !s.IsPlaying {
			t.Errorf("ClearQueue should keep the current track: %+v", s)
		}
	})

	t.Run("TogglePlayPause", func(t *testing.T) {
		f := newFixture(t, Opts{})
		if err := f.player.TogglePlayPause(); err != nil {
			t.Fatalf("expected no-op, got %v", err)
		}

		f.player.PlayTrack(ctx, tracks[0])
		f.player.TogglePlayPause()
		if f.player.State().IsPlaying || f.element.Playing() {
			t.Error("expected paused")
		}
		f.player.TogglePlayPause()
		if !f.player.State().IsPlaying || !f.element.Playing() {
			t.Error("expected playing")
		}
	})

	t.Run("SeekTo", func(t *testing.T) {
		f := newFixture(t, Opts{})
		f.player.PlayTrack(ctx, tracks[0])
		f.player.SeekTo(42 * time.Second)
		if got := f.player.State().CurrentTime; got != 42*time.Second {
			t.Errorf("CurrentTime = %v", got)
		}
		f.player.SeekBy(-50 * time.Second)
		if got := f.player.State().CurrentTime; got != 0 {
			t.Errorf("SeekBy should clamp at zero, got %v", got)
		}
	})

	t.Run("Volume", func(t *testing.T) {
		t.Run("persists across re-initialization", func(t *testing.T) {
			store := tu.NewMemoryStore()
			first := newFixture(t, Opts{Volumes: store})
			if err := first.player.SetVolume(0.35); err != nil {
				t.Fatalf("SetVolume() error = %v", err)
			}
			first.player.Close()

			second := newFixture(t, Opts{Volumes: store})
			if got := second.player.State().Volume; got != 0.35 {
				t.Errorf("expected 0.35 after reload, got %v", got)
			}
			if got := second.element.Volume(); got != 0.35 {
				t.Errorf("expected element volume 0.35, got %v", got)
			}
		})

		t.Run("clamps", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.SetVolume(1.7)
			if got := f.player.State().Volume; got != 1 {
				t.Errorf("expected 1, got %v", got)
			}
			f.player.SetVolume(-1)
			if got := f.element.Volume(); got != 0 {
				t.Errorf("expected 0, got %v", got)
			}
		})

		t.Run("default without a stored value", func(t *testing.T) {
			f := newFixture(t, Opts{Volumes: tu.NewMemoryStore(), DefaultVolume: 0.8})
			if got := f.player.State().Volume; got != 0.8 {
				t.Errorf("expected 0.8, got %v", got)
			}
		})
	})

	t.Run("TrackEnd", func(t *testing.T) {
		t.Run("advances the queue", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.PlayQueue(ctx, tracks, 0)

			f.element.SimulateEnded()

			tu.Eventually(t, time.Second, func() bool {
				s := f.player.State()
				return s.Index == 1 && s.CurrentTrack.ID == "t2" && s.IsPlaying
			})
		})

		t.Run("stops at the end and keeps the track", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.PlayQueue(ctx, tracks[:1], 0)

			f.element.SimulateEnded()

			tu.Eventually(t, time.Second, func() bool { return !f.player.State().IsPlaying })
			if s := f.player.State(); s.CurrentTrack == nil || s.CurrentTrack.ID != "t1" {
				t.Errorf("expected finished track kept, got %+v", s.CurrentTrack)
			}
		})

		t.Run("repeat replays the same track", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.PlayQueue(ctx, tracks, 0)
			if !f.player.ToggleRepeat() {
				t.Fatal("expected repeat on")
			}
			f.element.SetPosition(3 * time.Minute)

			f.element.SimulateEnded()

			tu.Eventually(t, time.Second, func() bool { return len(f.element.SeekCalls()) == 1 })
			s := f.player.State()
			if s.Index != 0 || s.CurrentTrack.ID != "t1" || s.CurrentTime != 0 || !s.IsRepeat {
				t.Errorf("unexpected state %+v", s)
			}
			tu.Eventually(t, time.Second, f.element.Playing)
		})
		t.Run("end of the outgoing track during a fetch is ignored", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.PlayQueue(ctx, tracks, 0)
			<-f.fetcher.started

			gate := make(chan struct{})
			f.fetcher.mu.Lock()
			f.fetcher.gates["t2"] = gate
			f.fetcher.mu.Unlock()

			done := make(chan error, 1)
			go func() { done <- f.player.PlayNext(ctx) }()
			<-f.fetcher.started

			f.player.handleEnded()
			close(gate)
			if err := <-done; err != nil {
				t.Fatalf("PlayNext() error = %v", err)
			}

			s := f.player.State()
			if s.Index != 1 || s.CurrentTrack.ID != "t2" || !s.IsPlaying {
				t.Errorf("unexpected state %+v", s)
			}
			if calls := f.fetcher.Calls(); len(calls) != 2 {
				t.Errorf("expected fetches for t1 and t2 only, got %v", calls)
			}
		})

		t.Run("repeat ignores the end of the outgoing track during a fetch", func(t *testing.T) {
			f := newFixture(t, Opts{})
			f.player.PlayQueue(ctx, tracks, 0)
			<-f.fetcher.started
			f.player.ToggleRepeat()

			gate := make(chan struct{})
			f.fetcher.mu.Lock()
			f.fetcher.gates["t2"] = gate
			f.fetcher.mu.Unlock()

			done := make(chan error, 1)
			go func() { done <- f.player.PlayNext(ctx) }()
			<-f.fetcher.started

			f.player.handleEnded()
			if seeks := f.element.SeekCalls(); len(seeks) != 0 {
				t.Errorf("expected no rewind of the outgoing audio, got %v", seeks)
			}

			close(gate)
			<-done
			if got := f.element.Current().ID; got != "t2" {
				t.Errorf("expected element to hold t2, got %s", got)
			}
		})
	})

	t.Run("Stop", func(t *testing.T) {
		f := newFixture(t, Opts{})
		f.player.PlayQueue(ctx, tracks, 1)

		f.player.Stop()

		s := f.player.State()
		if s.IsPlaying || f.element.Playing() {
			t.Error("expected stopped")
		}
		if s.CurrentTrack == nil || s.Index != 1 {
			t.Error("expected track and queue kept")
		}
	})

	t.Run("Close", func(t *testing.T) {
		f := newFixture(t, Opts{})
		sub := f.player.Subscribe()
		f.player.PlayTrack(ctx, tracks[0])

		if err := f.player.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		if !f.element.Closed() {
			t.Error("expected element closed")
		}
		if !f.fetcher.Sources()[0].Released() {
			t.Error("expected source released")
		}
		select {
		case <-sub.Done:
		default:
			t.Error("expected subscription closed")
		}
		if err := f.player.PlayTrack(ctx, tracks[1]); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})

	t.Run("Subscribe", func(t *testing.T) {
		f := newFixture(t, Opts{})
		sub := f.player.Subscribe()

		f.player.PlayQueue(ctx, tracks, 0)

		select {
		case e := <-sub.QueueChanged:
			if len(e.Tracks) != len(tracks) {
				t.Errorf("queue event with %d tracks", len(e.Tracks))
			}
		default:
			t.Error("expected queue event")
		}
		select {
		case e := <-sub.TrackChanged:
			if e.Previous != nil || e.Current.ID != "t1" {
				t.Errorf("unexpected track event %+v", e)
			}
		default:
			t.Error("expected track event")
		}

		var last StateChange
		for len(sub.StateChanged) > 0 {
			last = <-sub.StateChanged
		}
		if !last.State.IsPlaying {
			t.Error("expected final state event to be playing")
		}

		f.player.Unsubscribe(sub)
		select {
		case <-sub.Done:
		default:
			t.Error("expected Done closed after Unsubscribe")
		}
	})
}

func TestSource(t *testing.T) {
	src := NewSource("t1", []byte("abc"), "audio/mpeg")
	if src.Size() != 3 {
		t.Errorf("Size() = %d", src.Size())
	}
	src.Release()
	src.Release()
	if !src.Released() || src.Data != nil {
		t.Error("expected data dropped")
	}

	var nilSrc *Source
	nilSrc.Release()
	if nilSrc.Released() {
		t.Error("nil source should not report released")
	}
}
