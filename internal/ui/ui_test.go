package ui

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sonance/internal/models"
	"github.com/desertthunder/sonance/internal/player"
	"github.com/desertthunder/sonance/internal/services"
	"github.com/desertthunder/sonance/internal/shared"
	tu "github.com/desertthunder/sonance/internal/testing"
)

// fakeLibrary implements the calls the TUI makes; anything else panics through the nil embedded interface.
type fakeLibrary struct {
	services.Library

	mu         sync.Mutex
	tracks     []models.Track
	favorites  []models.Track
	playlists  []models.Playlist
	exports    map[string]*models.PlaylistExport
	discovered []models.Track
	queries    []string
	added      []string
	removed    []string
	err        error
}

func (f *fakeLibrary) Tracks(ctx context.Context, q services.TrackQuery) (*models.Page[models.Track], error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Page[models.Track]{Items: f.tracks, Total: len(f.tracks)}, nil
}

func (f *fakeLibrary) Favorites(ctx context.Context) ([]models.Track, error) {
	return f.favorites, f.err
}

func (f *fakeLibrary) Playlists(ctx context.Context) ([]models.Playlist, error) {
	return f.playlists, f.err
}

func (f *fakeLibrary) Playlist(ctx context.Context, id string) (*models.PlaylistExport, error) {
	if e, ok := f.exports[id]; ok {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeLibrary) Discover(ctx context.Context, query string, limit int) (*models.DiscoveryResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	return &models.DiscoveryResult{Query: query, Tracks: f.discovered}, nil
}

func (f *fakeLibrary) AddFavorite(ctx context.Context, id string) error {
	f.mu.Lock()
	f.added = append(f.added, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeLibrary) RemoveFavorite(ctx context.Context, id string) error {
	f.mu.Lock()
	f.removed = append(f.removed, id)
	f.mu.Unlock()
	return nil
}

type playCall struct {
	tracks []models.Track
	start  int
}

type fakeController struct {
	mu      sync.Mutex
	state   player.State
	plays   []playCall
	toggles int
	nexts   int
	prevs   int
	seeks   []time.Duration
	volumes []float64
	queued  []models.Track
	repeat  bool
	err     error
}

func (c *fakeController) PlayQueue(ctx context.Context, tracks []models.Track, start int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plays = append(c.plays, playCall{tracks: tracks, start: start})
	return c.err
}

func (c *fakeController) TogglePlayPause() error { c.mu.Lock(); c.toggles++; c.mu.Unlock(); return c.err }
func (c *fakeController) PlayNext(ctx context.Context) error {
	c.mu.Lock()
	c.nexts++
	c.mu.Unlock()
	return c.err
}
func (c *fakeController) PlayPrevious(ctx context.Context) error {
	c.mu.Lock()
	c.prevs++
	c.mu.Unlock()
	return c.err
}
func (c *fakeController) SeekBy(d time.Duration) error {
	c.seeks = append(c.seeks, d)
	return nil
}
func (c *fakeController) SetVolume(v float64) error {
	c.volumes = append(c.volumes, v)
	return nil
}
func (c *fakeController) AddToQueue(t models.Track)          { c.queued = append(c.queued, t) }
func (c *fakeController) ToggleRepeat() bool                 { c.repeat = !c.repeat; return c.repeat }
func (c *fakeController) State() player.State                { return c.state }
func (c *fakeController) Subscribe() *player.Subscription    { return nil }
func (c *fakeController) Unsubscribe(s *player.Subscription) {}

type fakeSession struct{ expired bool }

func (s *fakeSession) Expired() bool { return s.expired }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func newTestModel(t *testing.T) (*Model, *fakeLibrary, *fakeController, *fakeSession) {
	t.Helper()
	lib := &fakeLibrary{
		tracks:    tu.Tracks(3),
		playlists: []models.Playlist{{ID: "pl1", Name: "Mix", TrackCount: 2}},
		exports: map[string]*models.PlaylistExport{
			"pl1": {Playlist: models.Playlist{ID: "pl1", Name: "Mix"}, Tracks: tu.Tracks(2)},
		},
	}
	ctrl := &fakeController{state: player.State{Volume: 0.5}}
	session := &fakeSession{}

	m := NewModel(context.Background(), Opts{Library: lib, Player: ctrl, Session: session})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(m.fetchLibrary()())
	m.Update(m.fetchPlaylists()())
	return m, lib, ctrl, session
}

// exec runs cmd and feeds the resulting message back into the model.
func exec(t *testing.T, m *Model, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	m.Update(msg)
	return msg
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModel(t *testing.T) {
	t.Run("enter plays from the selected row", func(t *testing.T) {
		m, lib, ctrl, _ := newTestModel(t)
		m.Update(tea.KeyMsg{Type: tea.KeyDown})

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		exec(t, m, cmd)

		if len(ctrl.plays) != 1 {
			t.Fatalf("PlayQueue calls = %d, want 1", len(ctrl.plays))
		}
		if ctrl.plays[0].start != 1 || len(ctrl.plays[0].tracks) != len(lib.tracks) {
			t.Errorf("PlayQueue(%d tracks, %d)", len(ctrl.plays[0].tracks), ctrl.plays[0].start)
		}
		if !strings.Contains(m.status, "Track 2") {
			t.Errorf("status = %q", m.status)
		}
	})

	t.Run("transport keys", func(t *testing.T) {
		m, _, ctrl, _ := newTestModel(t)

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace})
		exec(t, m, cmd)
		_, cmd = m.Update(runes("n"))
		exec(t, m, cmd)
		_, cmd = m.Update(runes("p"))
		exec(t, m, cmd)
		m.Update(tea.KeyMsg{Type: tea.KeyLeft})
		m.Update(tea.KeyMsg{Type: tea.KeyRight})
		m.Update(runes("+"))
		m.Update(runes("-"))
		m.Update(runes("r"))

		if ctrl.toggles != 1 || ctrl.nexts != 1 || ctrl.prevs != 1 {
			t.Errorf("toggles=%d nexts=%d prevs=%d", ctrl.toggles, ctrl.nexts, ctrl.prevs)
		}
		if len(ctrl.seeks) != 2 || ctrl.seeks[0] != -10*time.Second || ctrl.seeks[1] != 10*time.Second {
			t.Errorf("seeks = %v", ctrl.seeks)
		}
		if len(ctrl.volumes) != 2 || math.Abs(ctrl.volumes[0]-0.55) > 1e-9 || math.Abs(ctrl.volumes[1]-0.45) > 1e-9 {
			t.Errorf("volumes = %v", ctrl.volumes)
		}
		if !ctrl.repeat || m.status != "Repeat on" {
			t.Errorf("repeat = %v, status = %q", ctrl.repeat, m.status)
		}
	})

	t.Run("add to queue", func(t *testing.T) {
		m, _, ctrl, _ := newTestModel(t)
		m.Update(runes("a"))
		if len(ctrl.queued) != 1 || ctrl.queued[0].ID != "t1" {
			t.Errorf("queued = %v", ctrl.queued)
		}
	})

	t.Run("tab cycles views", func(t *testing.T) {
		m, _, _, _ := newTestModel(t)
		want := []View{FavoritesView, PlaylistsView, QueueView, LibraryView}
		for _, v := range want {
			m.Update(tea.KeyMsg{Type: tea.KeyTab})
			if m.view != v {
				t.Fatalf("view = %v, want %v", m.view, v)
			}
		}
	})

	t.Run("open playlist and go back", func(t *testing.T) {
		m, _, ctrl, _ := newTestModel(t)
		m.view = PlaylistsView

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		exec(t, m, cmd)
		if m.view != PlaylistTracksView {
			t.Fatalf("view = %v, want PlaylistTracksView", m.view)
		}
		if m.lists[PlaylistTracksView].Title != "Mix" || len(m.tracks[PlaylistTracksView]) != 2 {
			t.Errorf("playlist view not populated")
		}

		_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		exec(t, m, cmd)
		if len(ctrl.plays) != 1 || len(ctrl.plays[0].tracks) != 2 {
			t.Errorf("expected playlist playback, got %v", ctrl.plays)
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != PlaylistsView {
			t.Errorf("esc should return to playlists, got %v", m.view)
		}
	})

	t.Run("discovery search", func(t *testing.T) {
		m, lib, _, _ := newTestModel(t)
		lib.discovered = tu.Tracks(1)
		m.view = FavoritesView

		m.Update(runes("/"))
		if !m.searching {
			t.Fatal("expected search prompt")
		}
		m.Update(runes("rainy day"))
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		exec(t, m, cmd)

		if m.searching {
			t.Error("search prompt should close")
		}
		if len(lib.queries) != 1 || lib.queries[0] != "rainy day" {
			t.Errorf("queries = %v", lib.queries)
		}
		if m.view != LibraryView || m.lists[LibraryView].Title != "Discover: rainy day" {
			t.Errorf("view = %v, title = %q", m.view, m.lists[LibraryView].Title)
		}
		if len(m.tracks[LibraryView]) != 1 {
			t.Errorf("discovery results = %d", len(m.tracks[LibraryView]))
		}
	})

	t.Run("empty search does nothing", func(t *testing.T) {
		m, lib, _, _ := newTestModel(t)
		m.Update(runes("/"))
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if cmd != nil || len(lib.queries) != 0 {
			t.Error("empty query should not search")
		}
	})

	t.Run("keys go to the prompt while searching", func(t *testing.T) {
		m, _, ctrl, _ := newTestModel(t)
		m.Update(runes("/"))
		m.Update(runes("q"))
		if m.search.Value() != "q" || ctrl.toggles != 0 {
			t.Errorf("value = %q", m.search.Value())
		}
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.searching {
			t.Error("esc should close the prompt")
		}
	})

	t.Run("favorite toggles", func(t *testing.T) {
		m, lib, _, _ := newTestModel(t)

		_, cmd := m.Update(runes("f"))
		msg := cmd()
		toggled, ok := msg.(favoriteToggledMsg)
		if !ok || !toggled.favorite {
			t.Fatalf("unexpected message %#v", msg)
		}
		m.Update(msg)
		if len(lib.added) != 1 || lib.added[0] != "t1" {
			t.Errorf("added = %v", lib.added)
		}
		if !m.isFavorite(lib.tracks[0]) {
			t.Error("track should be marked favorite")
		}

		_, cmd = m.Update(runes("f"))
		exec(t, m, cmd)
		if len(lib.removed) != 1 {
			t.Errorf("removed = %v", lib.removed)
		}
		if m.isFavorite(lib.tracks[0]) {
			t.Error("track should no longer be favorite")
		}
	})

	t.Run("errors land in the status line", func(t *testing.T) {
		m, _, _, _ := newTestModel(t)
		_, cmd := m.Update(actionDoneMsg{err: errors.New("boom")})
		if cmd != nil {
			t.Error("ordinary errors should not quit")
		}
		if !strings.Contains(m.status, "boom") {
			t.Errorf("status = %q", m.status)
		}
	})

	t.Run("q quits", func(t *testing.T) {
		m, _, _, _ := newTestModel(t)
		_, cmd := m.Update(runes("q"))
		if !isQuit(cmd) {
			t.Error("q should quit")
		}
		if m.Err() != nil {
			t.Errorf("Err() = %v", m.Err())
		}
	})
}

func TestModel_SessionExpiry(t *testing.T) {
	t.Run("expired error quits", func(t *testing.T) {
		m, _, _, _ := newTestModel(t)
		_, cmd := m.Update(actionDoneMsg{err: shared.ErrSessionExpired})
		if !isQuit(cmd) {
			t.Fatal("expected quit")
		}
		if !errors.Is(m.Err(), shared.ErrSessionExpired) {
			t.Errorf("Err() = %v", m.Err())
		}
	})

	t.Run("tick notices an expired session", func(t *testing.T) {
		m, _, _, session := newTestModel(t)
		_, cmd := m.Update(tickMsg(time.Now()))
		if isQuit(cmd) {
			t.Fatal("live session should keep running")
		}

		session.expired = true
		_, cmd = m.Update(tickMsg(time.Now()))
		if !isQuit(cmd) {
			t.Fatal("expected quit")
		}
		if !errors.Is(m.Err(), shared.ErrSessionExpired) {
			t.Errorf("Err() = %v", m.Err())
		}
	})

	t.Run("playback error for expired session", func(t *testing.T) {
		m, _, _, _ := newTestModel(t)
		_, cmd := m.Update(playerErrorMsg{event: player.ErrorEvent{TrackID: "t1", Err: shared.ErrSessionExpired}})
		if !isQuit(cmd) {
			t.Error("expected quit")
		}
	})
}

func TestModel_PlayerState(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	queue := tu.Tracks(3)
	state := player.State{CurrentTrack: &queue[1], IsPlaying: true, Queue: queue, Index: 1, Volume: 0.8}

	m.Update(playerStateMsg{state: state})

	items := m.lists[QueueView].Items()
	if len(items) != 3 {
		t.Fatalf("queue items = %d", len(items))
	}
	if !items[1].(trackItem).current || items[0].(trackItem).current {
		t.Error("current entry should be marked")
	}

	view := m.View()
	if !strings.Contains(view, "Test Artist - Track 2") {
		t.Errorf("now playing bar missing track:\n%s", view)
	}
	if !strings.Contains(view, "vol 80%") || !strings.Contains(view, "2/3") {
		t.Errorf("now playing bar missing volume or position:\n%s", view)
	}
}

func TestRenderProgressBar(t *testing.T) {
	tc := []struct {
		name    string
		pos     time.Duration
		dur     time.Duration
		width   int
		playing bool
		want    string
	}{
		{name: "half", pos: 30 * time.Second, dur: 60 * time.Second, width: 25, playing: true, want: "▶  0:30  ▓▓▓▓▓░░░░░  1:00"},
		{name: "paused start", pos: 0, dur: 60 * time.Second, width: 25, want: "⏸  0:00  ░░░░░░░░░░  1:00"},
		{name: "narrow", pos: 5 * time.Second, dur: 60 * time.Second, width: 10, playing: true, want: "▶  0:05 / 1:00"},
		{name: "past end", pos: 90 * time.Second, dur: 60 * time.Second, width: 25, playing: true, want: "▶  1:30  ▓▓▓▓▓▓▓▓▓▓  1:00"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderProgressBar(tt.pos, tt.dur, tt.width, tt.playing); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("a much longer title", 8); got != "a much …" {
		t.Errorf("got %q", got)
	}
}
