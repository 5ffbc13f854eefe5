package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguaai/linguaclient/internal/client/models"
	"github.com/linguaai/linguaclient/internal/common"
	"github.com/linguaai/linguaclient/internal/logging"
)

// fakeProvider is an httptest server mimicking the hosted backend's auth
// and table endpoints.
type fakeProvider struct {
	*httptest.Server

	validEmail    string
	validPassword string
	profile       *models.ProfileRow
	upserts       int
	patches       []map[string]any
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{validEmail: "sara@example.com", validPassword: "secret"}

	r := mux.NewRouter()
	r.HandleFunc("/auth/v1/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.HandleFunc("/auth/v1/token", p.handleToken).Methods(http.MethodPost)
	r.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)
	r.HandleFunc("/rest/v1/profiles", p.handleProfiles)

	p.Server = httptest.NewServer(r)
	t.Cleanup(p.Close)
	return p
}

func (p *fakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	grant := r.URL.Query().Get("grant_type")
	switch {
	case grant == "password" && body.Email == p.validEmail && body.Password == p.validPassword:
	case grant == "refresh_token" && body.RefreshToken == "refresh-1":
	default:
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error_description": "Invalid login credentials",
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  "access-1",
		"refresh_token": "refresh-1",
		"expires_in":    3600,
		"user":          models.AuthIdentity{ID: "u-1", Email: p.validEmail},
	})
}

func (p *fakeProvider) handleProfiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if p.profile == nil {
			w.WriteHeader(http.StatusNotAcceptable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    "PGRST116",
				"message": "JSON object requested, multiple (or no) rows returned",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(p.profile)
	case http.MethodPost:
		p.upserts++
		w.WriteHeader(http.StatusCreated)
	case http.MethodPatch:
		var patch map[string]any
		_ = json.NewDecoder(r.Body).Decode(&patch)
		p.patches = append(p.patches, patch)
		w.WriteHeader(http.StatusNoContent)
	}
}

func newTestClient(t *testing.T, p *fakeProvider) *HTTPClient {
	t.Helper()
	c := NewHTTPClient(p.URL, "anon-key", 2*time.Second, logging.Discard())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSignInWithPassword_Success(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p)

	sess, err := c.SignInWithPassword(context.Background(), "sara@example.com", "secret")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "access-1", sess.AccessToken)
	assert.True(t, sess.Valid(time.Now()))
	require.NotNil(t, sess.User)
	assert.Equal(t, "u-1", sess.User.ID)

	select {
	case ev := <-c.AuthEvents():
		assert.Equal(t, models.AuthSignedIn, ev.Type)
	default:
		t.Fatal("expected a SIGNED_IN event")
	}
}

func TestSignInWithPassword_InvalidCredentials(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p)

	_, err := c.SignInWithPassword(context.Background(), "sara@example.com", "wrong")
	require.ErrorIs(t, err, common.ErrAuth)
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestSession_NoSignIn_ReturnsNilNil(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p)

	sess, err := c.Session(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSession_RefreshesStaleToken(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p)

	_, err := c.SignInWithPassword(context.Background(), "sara@example.com", "secret")
	require.NoError(t, err)

	// Force the access token stale; the refresh token stays valid.
	c.mu.Lock()
	c.session.ExpiresAt = time.Now().Add(-time.Minute)
	c.mu.Unlock()

	sess, err := c.Session(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sess.Valid(time.Now()))
}

func TestFetchProfile_MissingRow_MapsNotFound(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p)

	_, err := c.FetchProfile(context.Background(), "u-1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestFetchProfile_ReturnsRow(t *testing.T) {
	p := newFakeProvider(t)
	p.profile = &models.ProfileRow{ID: "u-1", Name: "Sara", Level: 3}
	c := newTestClient(t, p)

	row, err := c.FetchProfile(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Sara", row.Name)
	assert.Equal(t, 3, row.Level)
}

func TestUpsertProfile(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p)

	err := c.UpsertProfile(context.Background(), &models.ProfileRow{ID: "u-1", Level: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, p.upserts)
}

func TestUpdateProfile_SendsPatch(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p)

	err := c.UpdateProfile(context.Background(), "u-1", map[string]any{"total_xp": 140})
	require.NoError(t, err)
	require.Len(t, p.patches, 1)
	assert.Equal(t, float64(140), p.patches[0]["total_xp"])
}

func TestTimeout_MapsToUnreachable(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(slow.Close)

	c := NewHTTPClient(slow.URL, "anon-key", 50*time.Millisecond, logging.Discard())
	t.Cleanup(func() { _ = c.Close() })

	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, common.IsUnreachable(err),
		"a hung request must read as offline, whatever the platform claims")
}

func TestConnectionRefused_MapsToNetwork(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", "anon-key", time.Second, logging.Discard())
	t.Cleanup(func() { _ = c.Close() })

	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, common.IsUnreachable(err))
}

func TestSignOut_ClearsSessionEvenOnRemoteFailure(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p)
	_, err := c.SignInWithPassword(context.Background(), "sara@example.com", "secret")
	require.NoError(t, err)
	for len(c.AuthEvents()) > 0 {
		<-c.AuthEvents()
	}
	p.Close() // remote revoke will fail

	err = c.SignOut(context.Background())
	require.Error(t, err, "the revoke failure is reported")

	sess, serr := c.Session(context.Background())
	require.NoError(t, serr)
	assert.Nil(t, sess, "local tokens are gone regardless")

	select {
	case ev := <-c.AuthEvents():
		assert.Equal(t, models.AuthSignedOut, ev.Type)
	default:
		t.Fatal("expected a SIGNED_OUT event")
	}
}

func TestTokenExpiry_DecodesExpClaim(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": exp.Unix(),
	})
	signed, err := tok.SignedString([]byte("provider-owned-secret"))
	require.NoError(t, err)

	got, ok := tokenExpiry(signed)
	require.True(t, ok)
	assert.Equal(t, exp.Unix(), got.Unix())

	_, ok = tokenExpiry("not-a-jwt")
	assert.False(t, ok)
}

func TestClose_IdempotentAndSafeAgainstLateEmits(t *testing.T) {
	c := NewHTTPClient("https://backend.example.com", "anon-key", time.Second, logging.Discard())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	// A request finishing after Close must not panic on the event channel.
	require.NotPanics(t, func() {
		c.emit(models.AuthEvent{Type: models.AuthSignedOut})
	})
}

func TestSignInWithOAuth_BuildsAuthorizeURL(t *testing.T) {
	c := NewHTTPClient("https://backend.example.com", "anon-key", time.Second, logging.Discard())
	t.Cleanup(func() { _ = c.Close() })

	u := c.SignInWithOAuth("google", "https://app.example.com/callback")
	assert.Contains(t, u, "https://backend.example.com/auth/v1/authorize?")
	assert.Contains(t, u, "provider=google")
	assert.Contains(t, u, "redirect_to=https%3A%2F%2Fapp.example.com%2Fcallback")
}
