package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sonance/internal/shared"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	refreshTimeout  = 30 * time.Second
	expireTimeout   = 5 * time.Second
)

// Session is the auth collaborator the coordinator depends on. auth.Manager implements it.
type Session interface {
	// Token returns the current access token, or an error when signed out.
	Token() (*oauth2.Token, error)
	// RefreshAccessToken mints a new access token using the refresh cookie.
	RefreshAccessToken(ctx context.Context) (string, error)
	// Expire ends the session after an irrecoverable refresh failure.
	Expire(ctx context.Context)
}

// Opts contains configuration options for creating a [Coordinator].
type Opts struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    Session
	Limiter    *rate.Limiter // optional client-side rate limit
	Logger     *log.Logger
}

// refreshCall is the shared result of one in-flight refresh.
type refreshCall struct {
	done    chan struct{}
	token   string
	err     error
	waiters int
}

// Coordinator wraps outgoing API calls with bearer auth and single-flight token refresh.
type Coordinator struct {
	baseURL    string
	httpClient *http.Client
	session    Session
	limiter    *rate.Limiter
	logger     *log.Logger

	mu       sync.Mutex
	inflight *refreshCall
}

// New creates a [Coordinator]. BaseURL defaults to http://127.0.0.1:8000 and HTTPClient to [NewHTTPClient].
func New(opts Opts) *Coordinator {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://127.0.0.1:8000"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient(0)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Coordinator{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		session:    opts.Session,
		limiter:    opts.Limiter,
		logger:     shared.WithLogger(opts.Logger, "component", "client"),
	}
}

// BaseURL returns the API root every relative path is resolved against.
func (c *Coordinator) BaseURL() string { return c.baseURL }

// HTTPClient returns the underlying [http.Client] (and therefore the cookie jar).
func (c *Coordinator) HTTPClient() *http.Client { return c.httpClient }

// Do sends req with the current bearer token. See the package documentation for the 401 handling.
//
// Request bodies are buffered when req.GetBody is unset so the request can be replayed.
func (c *Coordinator) Do(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to buffer request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(data))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	return c.do(req, c.currentToken(), 0)
}

func (c *Coordinator) do(req *http.Request, token string, retryCount int) (*http.Response, error) {
	if token != "" {
		bearer(token).SetAuthHeader(req)
	}

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || retryCount > 0 || c.session == nil {
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	fresh, err := c.tokenAfterUnauthorized(req.Context(), token)
	if err != nil {
		return nil, err
	}

	retry, err := rebuild(req)
	if err != nil {
		return nil, err
	}
	return c.do(retry, fresh, retryCount+1)
}

// tokenAfterUnauthorized returns the token a rejected request should be replayed with.
//
// If the session already holds a newer token than the one that was rejected (a refresh finished
// while this request was on the wire) that token is reused without another refresh.
func (c *Coordinator) tokenAfterUnauthorized(ctx context.Context, rejected string) (string, error) {
	c.mu.Lock()
	if call := c.inflight; call != nil {
		call.waiters++
		c.mu.Unlock()
		return c.wait(ctx, call)
	}

	if current := c.currentToken(); current != "" && current != rejected {
		c.mu.Unlock()
		return current, nil
	}

	call := &refreshCall{done: make(chan struct{}), waiters: 1}
	c.inflight = call
	c.mu.Unlock()

	go c.runRefresh(call)
	return c.wait(ctx, call)
}

// runRefresh performs the refresh on a detached context so a cancelled leader does not fail its waiters.
//
// On failure the result is published before Expire runs, so a caller whose context is cancelled by the
// logout still sees [shared.ErrSessionExpired].
func (c *Coordinator) runRefresh(call *refreshCall) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	c.logger.Debug("refreshing access token")
	token, err := c.session.RefreshAccessToken(ctx)

	c.mu.Lock()
	if err != nil {
		call.err = fmt.Errorf("%w: %v", shared.ErrSessionExpired, err)
	} else {
		call.token = token
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("token refresh failed, ending session", "error", err)
		expireCtx, cancelExpire := context.WithTimeout(context.Background(), expireTimeout)
		c.session.Expire(expireCtx)
		cancelExpire()
	}

	c.mu.Lock()
	c.inflight = nil
	c.mu.Unlock()
	close(call.done)
}

func (c *Coordinator) wait(ctx context.Context, call *refreshCall) (string, error) {
	select {
	case <-call.done:
		return call.token, call.err
	case <-ctx.Done():
		c.mu.Lock()
		err := call.err
		c.mu.Unlock()
		if err != nil {
			return "", err
		}
		return "", ctx.Err()
	}
}

// Refreshing reports whether a refresh is currently outstanding.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

// pending returns the number of callers parked on the in-flight refresh.
func (c *Coordinator) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == nil {
		return 0
	}
	return c.inflight.waiters
}

func (c *Coordinator) currentToken() string {
	if c.session == nil {
		return ""
	}
	tok, err := c.session.Token()
	if err != nil || tok == nil {
		return ""
	}
	return tok.AccessToken
}

func (c *Coordinator) send(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	if req.Header.Get(requestIDHeader) == "" {
		req.Header.Set(requestIDHeader, uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// rebuild clones req for a replay with a fresh body and request id.
func rebuild(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	retry.Header.Del(requestIDHeader)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		retry.Body = body
	}
	return retry, nil
}

func bearer(token string) *oauth2.Token {
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
}
