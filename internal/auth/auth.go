package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonance/internal/client"
	"github.com/desertthunder/sonance/internal/models"
	"github.com/desertthunder/sonance/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenStore persists the access token between runs. [repositories.Preferences] implements it.
type TokenStore interface {
	LoadToken() (string, error)
	SaveToken(token string) error
	ClearToken() error
}

// Stopper is the player collaborator halted on logout.
type Stopper interface {
	Stop()
}

// Opts contains configuration options for creating a [Manager].
type Opts struct {
	BaseURL    string
	HTTPClient *http.Client // should be the client shared with the coordinator so the refresh cookie is visible
	Store      TokenStore
	Logger     *log.Logger
}

// Manager is the explicit session manager.
type Manager struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore
	logger     *log.Logger

	mu      sync.RWMutex
	session models.Session
	player  Stopper
	expired bool
}

var _ oauth2.TokenSource = (*Manager)(nil)

// NewManager creates a signed-out [Manager]. Call [Manager.Restore] to resume a persisted session.
func NewManager(opts Opts) *Manager {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://127.0.0.1:8000"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = client.NewHTTPClient(0)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Manager{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		store:      opts.Store,
		logger:     shared.WithLogger(opts.Logger, "component", "auth"),
	}
}

// SetPlayer registers the player stopped by [Manager.Logout].
func (m *Manager) SetPlayer(p Stopper) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.player = p
}

type credentials struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// Login exchanges credentials for an access token, then fetches the identity.
//
// The session is only populated when both calls succeed.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", shared.ErrMissingArgument)
	}

	var tok oauth2.Token
	if err := m.call(ctx, http.MethodPost, "/auth/login", "", credentials{Email: email, Password: password}, &tok); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, apiErr.Detail)
		}
		return err
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", shared.ErrInvalidCredentials)
	}

	user, err := m.me(ctx, tok.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to fetch user: %w", err)
	}

	m.setSession(tok.AccessToken, user)
	m.logger.Info("logged in", "user", user.Username)
	return nil
}

// Register creates an account. It does not sign in.
func (m *Manager) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	if email == "" || username == "" || password == "" {
		return nil, fmt.Errorf("%w: email, username and password are required", shared.ErrMissingArgument)
	}

	var user models.User
	if err := m.call(ctx, http.MethodPost, "/auth/register", "", credentials{email, username, password}, &user); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return &user, nil
}

// RefreshAccessToken mints a new access token from the refresh cookie and stores it.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	var tok oauth2.Token
	if err := m.call(ctx, http.MethodPost, "/auth/refresh", "", nil, &tok); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", shared.ErrRefreshFailed)
	}

	m.mu.Lock()
	m.session.AccessToken = tok.AccessToken
	m.mu.Unlock()
	m.persist(tok.AccessToken)

	m.logger.Debug("access token refreshed")
	return tok.AccessToken, nil
}

// Restore resumes the persisted session, falling back to one silent refresh.
func (m *Manager) Restore(ctx context.Context) error {
	token := ""
	if m.store != nil {
		stored, err := m.store.LoadToken()
		if err != nil {
			m.logger.Warn("failed to load stored token", "error", err)
		}
		token = stored
	}

	if token != "" {
		user, err := m.me(ctx, token)
		if err == nil {
			m.setSession(token, user)
			return nil
		}
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			return fmt.Errorf("failed to restore session: %w", err)
		}
	}

	fresh, err := m.RefreshAccessToken(ctx)
	if err != nil {
		m.clearSession()
		return fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
	}

	user, err := m.me(ctx, fresh)
	if err != nil {
		m.clearSession()
		return fmt.Errorf("failed to restore session: %w", err)
	}
	m.setSession(fresh, user)
	return nil
}

// Logout ends the session: best-effort server logout, stop playback, forget the token.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.RLock()
	token, player := m.session.AccessToken, m.player
	m.mu.RUnlock()

	if err := m.call(ctx, http.MethodPost, "/auth/logout", token, nil, nil); err != nil {
		m.logger.Warn("server logout failed", "error", err)
	}

	if player != nil {
		player.Stop()
	}

	m.clearSession()
	if m.store != nil {
		if err := m.store.ClearToken(); err != nil {
			return fmt.Errorf("failed to clear stored token: %w", err)
		}
	}
	return nil
}

// Expire forces a logout after an irrecoverable refresh failure and raises [Manager.Expired].
//
// The flag is raised before the player is stopped, so a listener woken by the stop already sees it.
func (m *Manager) Expire(ctx context.Context) {
	m.mu.Lock()
	m.expired = true
	m.mu.Unlock()

	if err := m.Logout(ctx); err != nil {
		m.logger.Error("logout after expiry failed", "error", err)
	}
	m.logger.Warn("session expired")
}

// Expired reports whether the last session ended through [Manager.Expire].
func (m *Manager) Expired() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expired
}

// Session returns a copy of the current session.
func (m *Manager) Session() models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// AccessToken returns the current access token or "".
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.AccessToken
}

// Token implements [oauth2.TokenSource].
func (m *Manager) Token() (*oauth2.Token, error) {
	token := m.AccessToken()
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	tok := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	if exp, ok := expiry(token); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

// ExpiresAt reads the access token's exp claim. The signature is not verified.
func (m *Manager) ExpiresAt() (time.Time, bool) {
	return expiry(m.AccessToken())
}

func expiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (m *Manager) setSession(token string, user *models.User) {
	m.mu.Lock()
	m.session = models.Session{AccessToken: token, User: user}
	m.expired = false
	m.mu.Unlock()
	m.persist(token)
}

func (m *Manager) clearSession() {
	m.mu.Lock()
	m.session = models.Session{}
	m.mu.Unlock()
}

func (m *Manager) persist(token string) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveToken(token); err != nil {
		m.logger.Error("failed to persist access token", "error", err)
	}
}

func (m *Manager) me(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := m.call(ctx, http.MethodGet, "/auth/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// call performs one unauthenticated-path request against the auth endpoints.
func (m *Manager) call(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := client.CheckResponse(resp); err != nil {
		return err
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
