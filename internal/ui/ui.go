package ui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonance/internal/models"
	"github.com/desertthunder/sonance/internal/player"
	"github.com/desertthunder/sonance/internal/services"
	"github.com/desertthunder/sonance/internal/shared"
)

// View identifies one of the TUI's list views.
type View int

const (
	LibraryView View = iota
	FavoritesView
	PlaylistsView
	PlaylistTracksView
	QueueView
	viewCount
)

var tabOrder = []View{LibraryView, FavoritesView, PlaylistsView, QueueView}

func (v View) String() string {
	switch v {
	case LibraryView:
		return "Library"
	case FavoritesView:
		return "Favorites"
	case PlaylistsView, PlaylistTracksView:
		return "Playlists"
	case QueueView:
		return "Queue"
	default:
		return ""
	}
}

const (
	seekStep       = 10 * time.Second
	volumeStep     = 0.05
	tickInterval   = 500 * time.Millisecond
	libraryLimit   = 100
	discoveryLimit = 50
)

// Controller is the playback surface driven by the TUI. [player.Player] implements it.
type Controller interface {
	PlayQueue(ctx context.Context, tracks []models.Track, start int) error
	TogglePlayPause() error
	PlayNext(ctx context.Context) error
	PlayPrevious(ctx context.Context) error
	SeekBy(delta time.Duration) error
	SetVolume(v float64) error
	AddToQueue(track models.Track)
	ToggleRepeat() bool
	State() player.State
	Subscribe() *player.Subscription
	Unsubscribe(s *player.Subscription)
}

// SessionState reports whether the session ended underneath the TUI. auth.Manager implements it.
type SessionState interface {
	Expired() bool
}

// Opts contains the dependencies of a [Model].
type Opts struct {
	Library services.Library
	Player  Controller
	Session SessionState
	Logger  *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	library services.Library
	player  Controller
	session SessionState
	logger  *log.Logger
	sub     *player.Subscription

	view      View
	lists     [viewCount]list.Model
	tracks    [viewCount][]models.Track
	favorites map[string]bool
	state     player.State

	searching bool
	search    textinput.Model

	width  int
	height int
	status string
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model and subscribes it to player events.
func NewModel(ctx context.Context, opts Opts) *Model {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	search := textinput.New()
	search.Placeholder = "describe what you want to hear"
	search.Prompt = "discover> "
	search.CharLimit = 200

	m := &Model{
		ctx:       ctx,
		library:   opts.Library,
		player:    opts.Player,
		session:   opts.Session,
		logger:    shared.WithLogger(opts.Logger, "component", "ui"),
		view:      LibraryView,
		favorites: map[string]bool{},
		search:    search,
		help:      help.New(),
		keys:      newKeyMap(),
	}
	for v := range viewCount {
		m.lists[v] = newList(v.String(), nil, 0, 0)
	}
	if m.player != nil {
		m.sub = m.player.Subscribe()
		m.state = m.player.State()
		m.refreshQueue()
	}
	return m
}

// Run starts the TUI on the alternate screen and blocks until it exits.
//
// It returns [shared.ErrSessionExpired] when the session ended while the TUI was open.
func Run(ctx context.Context, opts Opts) error {
	m := NewModel(ctx, opts)
	defer m.Close()

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	if fm, ok := final.(*Model); ok {
		return fm.Err()
	}
	return nil
}

// Err returns the error that ended the program, if any.
func (m *Model) Err() error { return m.err }

// Close releases the player subscription.
func (m *Model) Close() {
	if m.player != nil && m.sub != nil {
		m.player.Unsubscribe(m.sub)
		m.sub = nil
	}
}

// Init loads the library, favorites and playlists and starts watching the player.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchLibrary(),
		m.fetchFavorites(),
		m.fetchPlaylists(),
		m.watchPlayer(),
		tick(),
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handleKeys(msg)

	case tracksLoadedMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.setTracks(msg.view, msg.title, msg.tracks)
		if msg.view == FavoritesView {
			for _, t := range msg.tracks {
				m.favorites[t.ID] = true
			}
			m.refreshFavoriteMarks()
		}
		if msg.view == PlaylistTracksView || msg.title != msg.view.String() {
			m.view = msg.view
			m.status = fmt.Sprintf("%d tracks", len(msg.tracks))
		}
		return m, nil

	case playlistsLoadedMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.lists[PlaylistsView].SetItems(playlistItems(msg.playlists))
		return m, nil

	case favoriteToggledMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.favorites[msg.track.ID] = msg.favorite
		if msg.favorite {
			m.status = "Added to favorites: " + msg.track.String()
		} else {
			m.status = "Removed from favorites: " + msg.track.String()
		}
		m.refreshFavoriteMarks()
		return m, m.fetchFavorites()

	case actionDoneMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}
		if msg.status != "" {
			m.status = msg.status
		}
		return m, nil

	case playerStateMsg:
		m.applyState(msg.state)
		return m, m.watchPlayer()

	case playerErrorMsg:
		m.status = styles.err.Render(fmt.Sprintf("Playback failed: %v", msg.event.Err))
		if m.expired(msg.event.Err) {
			m.err = shared.ErrSessionExpired
			return m, tea.Quit
		}
		return m, m.watchPlayer()

	case playerClosedMsg:
		return m, nil

	case tickMsg:
		if m.session != nil && m.session.Expired() {
			m.err = shared.ErrSessionExpired
			return m, tea.Quit
		}
		if m.player != nil {
			m.applyState(m.player.State())
		}
		return m, tick()
	}

	return m.updateList(msg)
}

// View renders the tabs, the active list, the player bar and help.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.lists[m.view].View())
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}

	b.WriteString(renderNowPlaying(m.state, m.width))
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		m.nextView()
		return m, nil
	case key.Matches(msg, m.keys.back):
		if m.view == PlaylistTracksView {
			m.view = PlaylistsView
		}
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.searching = true
		m.search.SetValue("")
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.enter):
		return m, m.activate()
	case key.Matches(msg, m.keys.toggle):
		return m, m.run("", func() error { return m.player.TogglePlayPause() })
	case key.Matches(msg, m.keys.next):
		return m, m.run("", func() error { return m.player.PlayNext(m.ctx) })
	case key.Matches(msg, m.keys.prev):
		return m, m.run("", func() error { return m.player.PlayPrevious(m.ctx) })
	case key.Matches(msg, m.keys.rewind):
		return m, m.act(m.player.SeekBy(-seekStep))
	case key.Matches(msg, m.keys.forward):
		return m, m.act(m.player.SeekBy(seekStep))
	case key.Matches(msg, m.keys.volUp):
		return m, m.act(m.player.SetVolume(m.state.Volume + volumeStep))
	case key.Matches(msg, m.keys.volDown):
		return m, m.act(m.player.SetVolume(m.state.Volume - volumeStep))
	case key.Matches(msg, m.keys.repeat):
		if m.player.ToggleRepeat() {
			m.status = "Repeat on"
		} else {
			m.status = "Repeat off"
		}
		return m, nil
	case key.Matches(msg, m.keys.favorite):
		if track, ok := m.selectedTrack(); ok {
			return m, m.toggleFavorite(track)
		}
		return m, nil
	case key.Matches(msg, m.keys.enqueue):
		if track, ok := m.selectedTrack(); ok {
			m.player.AddToQueue(track)
			m.status = "Queued: " + track.String()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.lists[m.view], cmd = m.lists[m.view].Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		query := strings.TrimSpace(m.search.Value())
		m.searching = false
		m.search.Blur()
		if query == "" {
			return m, nil
		}
		m.status = fmt.Sprintf("Searching for %q...", query)
		return m, m.discover(query)
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// activate handles enter: play from the selected row, or open the selected playlist.
func (m *Model) activate() tea.Cmd {
	l := m.lists[m.view]
	idx := l.Index()

	switch m.view {
	case PlaylistsView:
		if pl, ok := l.SelectedItem().(playlistItem); ok {
			return m.fetchPlaylist(pl.playlist)
		}
		return nil
	case QueueView:
		tracks := m.state.Queue
		if idx < 0 || idx >= len(tracks) {
			return nil
		}
		return m.run("", func() error { return m.player.PlayQueue(m.ctx, tracks, idx) })
	default:
		tracks := m.tracks[m.view]
		if idx < 0 || idx >= len(tracks) {
			return nil
		}
		status := "Playing " + tracks[idx].String()
		return m.run(status, func() error { return m.player.PlayQueue(m.ctx, tracks, idx) })
	}
}

func (m *Model) selectedTrack() (models.Track, bool) {
	item, ok := m.lists[m.view].SelectedItem().(trackItem)
	if !ok {
		return models.Track{}, false
	}
	return item.track, true
}

func (m *Model) isFavorite(t models.Track) bool {
	if v, ok := m.favorites[t.ID]; ok {
		return v
	}
	return t.Favorite
}

func (m *Model) nextView() {
	current := m.view
	if current == PlaylistTracksView {
		current = PlaylistsView
	}
	for i, v := range tabOrder {
		if v == current {
			m.view = tabOrder[(i+1)%len(tabOrder)]
			return
		}
	}
	m.view = LibraryView
}

func (m *Model) setTracks(v View, title string, tracks []models.Track) {
	m.tracks[v] = tracks
	m.lists[v].Title = title
	m.lists[v].SetItems(trackItems(tracks, m.isFavorite))
}

func (m *Model) refreshFavoriteMarks() {
	for _, v := range []View{LibraryView, FavoritesView, PlaylistTracksView} {
		m.lists[v].SetItems(trackItems(m.tracks[v], m.isFavorite))
	}
	m.refreshQueue()
}

// applyState stores a player snapshot and rebuilds the queue view when it changed.
func (m *Model) applyState(s player.State) {
	queueChanged := s.Index != m.state.Index ||
		(s.CurrentTrack == nil) != (m.state.CurrentTrack == nil) ||
		!slices.EqualFunc(s.Queue, m.state.Queue, func(a, b models.Track) bool { return a.ID == b.ID })
	m.state = s
	if queueChanged {
		m.refreshQueue()
	}
}

func (m *Model) refreshQueue() {
	items := make([]list.Item, len(m.state.Queue))
	for i, t := range m.state.Queue {
		items[i] = trackItem{track: t, favorite: m.isFavorite(t), current: i == m.state.Index && m.state.CurrentTrack != nil}
	}
	m.lists[QueueView].SetItems(items)
}

func (m *Model) resize() {
	h := max(m.height-10, 5)
	w := max(m.width-4, 20)
	for v := range viewCount {
		m.lists[v].SetSize(w, h)
	}
	m.help.Width = m.width
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(tabOrder))
	current := m.view
	if current == PlaylistTracksView {
		current = PlaylistsView
	}
	for i, v := range tabOrder {
		if v == current {
			tabs[i] = styles.active.Render(v.String())
		} else {
			tabs[i] = styles.tab.Render(v.String())
		}
	}
	return strings.Join(tabs, " ")
}

// fail records err in the status line, or ends the program when the session expired.
func (m *Model) fail(err error) (tea.Model, tea.Cmd) {
	if m.expired(err) {
		m.err = shared.ErrSessionExpired
		return m, tea.Quit
	}
	m.logger.Warn("action failed", "error", err)
	m.status = styles.err.Render("Error: " + err.Error())
	return m, nil
}

func (m *Model) expired(err error) bool {
	return errors.Is(err, shared.ErrSessionExpired) || (m.session != nil && m.session.Expired())
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.lists[m.view], cmd = m.lists[m.view].Update(msg)
	return m, cmd
}

// act turns the result of a synchronous player call into a command.
func (m *Model) act(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	return func() tea.Msg { return actionDoneMsg{err: err} }
}

// run executes fn off the update loop; fetching audio can take a while.
func (m *Model) run(status string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{status: status, err: fn()}
	}
}

func (m *Model) fetchLibrary() tea.Cmd {
	return func() tea.Msg {
		page, err := m.library.Tracks(m.ctx, services.TrackQuery{PageOpts: services.PageOpts{Limit: libraryLimit}})
		if err != nil {
			return tracksLoadedMsg{view: LibraryView, err: err}
		}
		return tracksLoadedMsg{view: LibraryView, title: LibraryView.String(), tracks: page.Items}
	}
}

func (m *Model) fetchFavorites() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.library.Favorites(m.ctx)
		return tracksLoadedMsg{view: FavoritesView, title: FavoritesView.String(), tracks: tracks, err: err}
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.library.Playlists(m.ctx)
		return playlistsLoadedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) fetchPlaylist(pl models.Playlist) tea.Cmd {
	return func() tea.Msg {
		export, err := m.library.Playlist(m.ctx, pl.ID)
		if err != nil {
			return tracksLoadedMsg{view: PlaylistTracksView, err: err}
		}
		return tracksLoadedMsg{view: PlaylistTracksView, title: export.Playlist.Name, tracks: export.Tracks}
	}
}

func (m *Model) discover(query string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.library.Discover(m.ctx, query, discoveryLimit)
		if err != nil {
			return tracksLoadedMsg{view: LibraryView, err: err}
		}
		return tracksLoadedMsg{view: LibraryView, title: fmt.Sprintf("Discover: %s", query), tracks: res.Tracks}
	}
}

func (m *Model) toggleFavorite(track models.Track) tea.Cmd {
	favorite := !m.isFavorite(track)
	return func() tea.Msg {
		var err error
		if favorite {
			err = m.library.AddFavorite(m.ctx, track.ID)
		} else {
			err = m.library.RemoveFavorite(m.ctx, track.ID)
		}
		return favoriteToggledMsg{track: track, favorite: favorite, err: err}
	}
}

// watchPlayer waits for the next player event and converts it to a message.
func (m *Model) watchPlayer() tea.Cmd {
	sub := m.sub
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case e := <-sub.StateChanged:
			return playerStateMsg{state: e.State}
		case <-sub.TrackChanged:
			return playerStateMsg{state: m.player.State()}
		case <-sub.QueueChanged:
			return playerStateMsg{state: m.player.State()}
		case e := <-sub.Error:
			return playerErrorMsg{event: e}
		case <-sub.Done:
			return playerClosedMsg{}
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}
