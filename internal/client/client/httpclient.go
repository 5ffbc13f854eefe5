package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/linguaai/linguaclient/internal/client/models"
	"github.com/linguaai/linguaclient/internal/logging"
)

// HTTPClient implements Client against the provider's REST surface:
// /auth/v1 for sessions, /rest/v1 for tables, /realtime/v1 for the change
// stream.
type HTTPClient struct {
	baseURL string
	anonKey string
	http    *http.Client
	log     logging.Logger

	mu      sync.Mutex
	session *models.Session
	closed  bool

	events chan models.AuthEvent
}

// NewHTTPClient constructs a client for the provider at baseURL. The anon
// key is sent as the apikey header on every request; requestTimeout bounds
// individual calls that the caller does not bound tighter via ctx.
func NewHTTPClient(baseURL, anonKey string, requestTimeout time.Duration, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: requestTimeout},
		log:     log,
		events:  make(chan models.AuthEvent, 16),
	}
}

// Close shuts the auth event stream. Idempotent; emits racing Close are
// dropped instead of hitting a closed channel.
func (c *HTTPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.events)
	return nil
}

func (c *HTTPClient) AuthEvents() <-chan models.AuthEvent {
	return c.events
}

// emit publishes an auth event without ever blocking a sign-in path on a
// slow consumer. The send happens under mu so Close cannot close the
// channel mid-send.
func (c *HTTPClient) emit(ev models.AuthEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.log.Warn(context.Background(), "auth event dropped, consumer too slow", "event", string(ev.Type))
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, headers map[string]string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if tok := c.accessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return mapTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e apiError
		_ = json.Unmarshal(data, &e)
		return mapStatusError(resp.StatusCode, &e)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// tokenResponse is the auth token/signup endpoint payload.
type tokenResponse struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	ExpiresIn    int                  `json:"expires_in"`
	User         *models.AuthIdentity `json:"user"`
}

func (c *HTTPClient) sessionFromToken(t *tokenResponse) *models.Session {
	s := &models.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		User:         t.User,
	}
	if t.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	} else if exp, ok := tokenExpiry(t.AccessToken); ok {
		s.ExpiresAt = exp
	}
	return s
}

// tokenExpiry decodes the exp claim of the access token without verifying
// the signature. The provider owns the key; the client only needs to know
// when to refresh.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Ping hits the auth health endpoint. Probe target for the watcher.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/auth/v1/health", nil, nil, nil)
}

// Session returns the current session, refreshing the tokens when the
// access token is stale. (nil, nil) means nobody is signed in, which is a
// normal answer during startup, not an error.
func (c *HTTPClient) Session(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil {
		return nil, nil
	}
	if s.Valid(time.Now()) {
		return s, nil
	}
	if s.RefreshToken == "" {
		return nil, nil
	}
	return c.refresh(ctx, s.RefreshToken)
}

func (c *HTTPClient) refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	var t tokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", nil,
		map[string]string{"refresh_token": refreshToken}, &t)
	if err != nil {
		return nil, err
	}
	s := c.sessionFromToken(&t)
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	c.emit(models.AuthEvent{Type: models.AuthTokenRefreshed, Session: s})
	return s, nil
}

// AuthUser fetches the identity behind the current session.
func (c *HTTPClient) AuthUser(ctx context.Context) (*models.AuthIdentity, error) {
	var id models.AuthIdentity
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *HTTPClient) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	var t tokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", nil,
		map[string]string{"email": email, "password": password}, &t)
	if err != nil {
		return nil, err
	}
	s := c.sessionFromToken(&t)
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	c.emit(models.AuthEvent{Type: models.AuthSignedIn, Session: s})
	return s, nil
}

func (c *HTTPClient) SignUp(ctx context.Context, email, password string, data map[string]any) (*models.Session, error) {
	body := map[string]any{"email": email, "password": password}
	if len(data) > 0 {
		body["data"] = data
	}
	var t tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, body, &t); err != nil {
		return nil, err
	}
	// Providers with email confirmation enabled answer without tokens.
	if t.AccessToken == "" {
		return nil, nil
	}
	s := c.sessionFromToken(&t)
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	c.emit(models.AuthEvent{Type: models.AuthSignedIn, Session: s})
	return s, nil
}

func (c *HTTPClient) SignInWithOAuth(provider, redirectTo string) string {
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return c.baseURL + "/auth/v1/authorize?" + q.Encode()
}

// SignOut revokes the session and drops local tokens. The local drop and
// the SIGNED_OUT event happen even when the revoke call fails.
func (c *HTTPClient) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil)

	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	c.emit(models.AuthEvent{Type: models.AuthSignedOut})

	if err != nil {
		c.log.Warn(ctx, "remote sign-out failed", "error", err)
	}
	return err
}

// FetchProfile returns the user's profile row or common.ErrNotFound when
// the row does not exist yet.
func (c *HTTPClient) FetchProfile(ctx context.Context, userID string) (*models.ProfileRow, error) {
	path := "/rest/v1/profiles?select=*&id=eq." + url.QueryEscape(userID)
	var row models.ProfileRow
	err := c.do(ctx, http.MethodGet, path, map[string]string{"Accept": "application/vnd.pgrst.object+json"}, nil, &row)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpsertProfile writes a profile row, merging on conflict. Used for
// default-row backfill; callers tolerate failure.
func (c *HTTPClient) UpsertProfile(ctx context.Context, row *models.ProfileRow) error {
	headers := map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"}
	return c.do(ctx, http.MethodPost, "/rest/v1/profiles", headers, row, nil)
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, userID string, patch map[string]any) error {
	path := "/rest/v1/profiles?id=eq." + url.QueryEscape(userID)
	headers := map[string]string{"Prefer": "return=minimal"}
	return c.do(ctx, http.MethodPatch, path, headers, patch, nil)
}

func (c *HTTPClient) Notifications(ctx context.Context, userID string) ([]models.Notification, error) {
	path := "/rest/v1/notifications?select=*&user_id=eq." + url.QueryEscape(userID) + "&order=created_at.desc"
	var rows []models.Notification
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *HTTPClient) MarkNotificationRead(ctx context.Context, id string) error {
	path := "/rest/v1/notifications?id=eq." + url.QueryEscape(id)
	headers := map[string]string{"Prefer": "return=minimal"}
	return c.do(ctx, http.MethodPatch, path, headers, map[string]any{"read": true}, nil)
}

func (c *HTTPClient) InsertQuizResult(ctx context.Context, row *models.QuizResult) error {
	headers := map[string]string{"Prefer": "return=minimal"}
	return c.do(ctx, http.MethodPost, "/rest/v1/quiz_history", headers, []*models.QuizResult{row}, nil)
}
