// Package services contains the application services of the Lingua client:
// the credential cache, the reachability watcher, the auth store that
// reconciles remote sessions with the offline cache, the route guard, and
// the notification service.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/linguaai/linguaclient/internal/client/client"
	"github.com/linguaai/linguaclient/internal/client/models"
	"github.com/linguaai/linguaclient/internal/common"
	"github.com/linguaai/linguaclient/internal/logging"
)

// Profile defaults applied when the profile row is missing or unreadable.
const (
	defaultLevel            = 1
	defaultLearningLanguage = "ar"
	defaultNativeLanguage   = "en"
)

// State is the authoritative auth snapshot published to the rest of the
// app: the reconciled user (nil when signed out) and whether initialization
// has completed at least once.
type State struct {
	User        *models.User
	AuthChecked bool
}

// AuthStore owns the single User value and the authChecked flag.
//
// Contract: AuthChecked transitions false→true exactly once per store
// lifetime and never reverts; every initialization path (success, failure,
// timeout, offline) ends with AuthChecked=true so nothing downstream waits
// forever. The User value is replaced wholesale on every reconciliation
// pass and only ever mutated by this store.
type AuthStore struct {
	client  client.Client
	cache   *CredentialCache
	watcher *NetWatcher
	markers *Markers
	log     logging.Logger

	initTimeout    time.Duration
	loginTimeout   time.Duration
	requestTimeout time.Duration

	mu          sync.Mutex
	user        *models.User
	authChecked bool
	generation  uint64
	inflight    chan struct{}
	subs        map[int]chan State
	nextSub     int

	checkedOnce sync.Once
	stop        chan struct{}
	stopOnce    sync.Once
}

func NewAuthStore(cl client.Client, cache *CredentialCache, watcher *NetWatcher, markers *Markers,
	initTimeout, loginTimeout, requestTimeout time.Duration, log logging.Logger) *AuthStore {
	return &AuthStore{
		client:         cl,
		cache:          cache,
		watcher:        watcher,
		markers:        markers,
		log:            log,
		initTimeout:    initTimeout,
		loginTimeout:   loginTimeout,
		requestTimeout: requestTimeout,
		subs:           make(map[int]chan State),
		stop:           make(chan struct{}),
	}
}

// State returns the current snapshot.
func (s *AuthStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{User: s.user, AuthChecked: s.authChecked}
}

// User returns the reconciled user, nil when signed out.
func (s *AuthStore) User() *models.User {
	return s.State().User
}

// AuthChecked reports whether initialization has completed.
func (s *AuthStore) AuthChecked() bool {
	return s.State().AuthChecked
}

// Subscribe returns a channel receiving state snapshots after every change,
// and a cancel func. The channel is buffered and lossy; consumers always
// converge on the latest state.
func (s *AuthStore) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 4)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *AuthStore) notify() {
	s.mu.Lock()
	snapshot := State{User: s.user, AuthChecked: s.authChecked}
	subs := make([]chan State, 0, len(s.subs))
	for _, ch := range s.subs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// markChecked flips authChecked to true. One-way: nothing ever resets it.
func (s *AuthStore) markChecked() {
	s.checkedOnce.Do(func() {
		s.mu.Lock()
		s.authChecked = true
		s.mu.Unlock()
		s.notify()
	})
}

// currentGen snapshots the write generation. An async operation that began
// before a later state change (sign-out, new sign-in) carries a stale
// generation and its result is discarded instead of clobbering newer state.
func (s *AuthStore) currentGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// commitUser installs u if gen is still current. Reports whether the write
// happened.
func (s *AuthStore) commitUser(gen uint64, u *models.User) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.user = u
	s.mu.Unlock()
	s.notify()
	return true
}

// resetUser clears the user and invalidates every in-flight async write.
func (s *AuthStore) resetUser() {
	s.mu.Lock()
	s.generation++
	s.user = nil
	s.mu.Unlock()
	s.notify()
}

// Init restores the session state at startup. The session fetch races the
// configured fallback timeout; no session, a timeout, or an error all end
// in the unauthenticated state with AuthChecked=true. When the backend is
// unreachable, a fresh cached user is adopted instead.
//
// Init also starts the auth-event consumer. Call Close to stop it.
func (s *AuthStore) Init(ctx context.Context) {
	go s.consumeAuthEvents()

	defer s.markChecked()

	gen := s.currentGen()
	initCtx, cancel := context.WithTimeout(ctx, s.initTimeout)
	defer cancel()

	sess, err := s.client.Session(initCtx)
	if err != nil {
		s.watcher.ReportError(err)
		if common.IsUnreachable(err) {
			s.adoptCachedUser(ctx, gen)
			return
		}
		s.log.Error(ctx, "session restore failed", "error", err)
		return
	}
	if sess == nil {
		// No remote session. If we are offline the session service may be
		// unreachable rather than empty, so the cache still applies.
		if !s.watcher.Online() {
			s.adoptCachedUser(ctx, gen)
		}
		return
	}

	s.resolveUser(initCtx, sess.User)
}

// adoptCachedUser installs the offline snapshot if one is fresh.
func (s *AuthStore) adoptCachedUser(ctx context.Context, gen uint64) {
	cached := s.cache.User(ctx)
	if cached == nil {
		return
	}
	if s.commitUser(gen, &cached.User) {
		s.log.Info(ctx, "adopted cached user while offline", "email", cached.Email)
	}
}

// resolveProfile turns an authenticated identity into the reconciled User.
// A missing profile row is backfilled with defaults (write failure
// tolerated); any other profile error still yields a default user, because
// availability wins over strict profile correctness.
func (s *AuthStore) resolveProfile(ctx context.Context, gen uint64, identity *models.AuthIdentity) {
	if identity == nil {
		id, err := s.client.AuthUser(ctx)
		if err != nil {
			s.watcher.ReportError(err)
			if common.IsUnreachable(err) {
				s.adoptCachedUser(ctx, gen)
			}
			return
		}
		identity = id
	}

	row, err := s.client.FetchProfile(ctx, identity.ID)
	switch {
	case err == nil:
		s.commitUser(gen, mergeProfile(identity, row))

	case errors.Is(err, common.ErrNotFound):
		// Expected for first sign-in: back-fill the row, but never block
		// access on the write.
		u := defaultUser(identity)
		if upErr := s.client.UpsertProfile(ctx, profileRowFrom(u)); upErr != nil {
			s.log.Warn(ctx, "default profile write failed, proceeding with in-memory defaults", "error", upErr)
		}
		s.commitUser(gen, u)

	default:
		s.watcher.ReportError(err)
		s.log.Warn(ctx, "profile fetch failed, proceeding with defaults", "error", err)
		s.commitUser(gen, defaultUser(identity))
	}
}

// resolveUser runs profile resolution under the shared in-flight handle.
// Exactly one resolution runs at a time; concurrent callers (a sign-in and
// the auth event that sign-in emits, a burst of refreshes) attach to the
// running one and return when it completes, so they cannot race duplicate
// profile creates.
func (s *AuthStore) resolveUser(ctx context.Context, identity *models.AuthIdentity) {
	s.mu.Lock()
	if s.inflight != nil {
		ch := s.inflight
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
		}
		return
	}
	ch := make(chan struct{})
	s.inflight = ch
	gen := s.generation
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inflight = nil
		s.mu.Unlock()
		close(ch)
	}()

	s.resolveProfile(ctx, gen, identity)
}

// RefreshUser re-runs profile resolution for the current session.
func (s *AuthStore) RefreshUser(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, s.loginTimeout)
	defer cancel()

	gen := s.currentGen()
	sess, err := s.client.Session(reqCtx)
	if err != nil {
		s.watcher.ReportError(err)
		if common.IsUnreachable(err) {
			s.adoptCachedUser(ctx, gen)
		}
		return
	}
	if sess == nil {
		return
	}
	s.resolveUser(reqCtx, sess.User)
}

// consumeAuthEvents applies the client's auth state stream: sign-in and
// token refresh re-run resolution (idempotent), sign-out clears the user
// immediately. AuthChecked is never reset.
func (s *AuthStore) consumeAuthEvents() {
	events := s.client.AuthEvents()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleAuthEvent(ev)
		case <-s.stop:
			return
		}
	}
}

func (s *AuthStore) handleAuthEvent(ev models.AuthEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	switch ev.Type {
	case models.AuthSignedIn, models.AuthTokenRefreshed:
		if ev.Session != nil {
			s.resolveUser(ctx, ev.Session.User)
		}
	case models.AuthSignedOut:
		s.resetUser()
	}
}

// SignInOnline authenticates against the backend and, on success, fills the
// offline cache for future offline use. Connectivity-class failures are
// reported to the watcher and returned so the caller can fall back to
// SignInOffline.
func (s *AuthStore) SignInOnline(ctx context.Context, email, password string) error {
	loginCtx, cancel := context.WithTimeout(ctx, s.loginTimeout)
	defer cancel()

	sess, err := s.client.SignInWithPassword(loginCtx, email, password)
	if err != nil {
		s.watcher.ReportError(err)
		return err
	}
	s.watcher.ReportSuccess()
	s.markers.Clear(MarkerJustLoggedOut)

	s.resolveUser(loginCtx, sess.User)

	s.cache.StoreAuth(ctx, email, password)
	if u := s.User(); u != nil {
		s.cache.StoreUser(ctx, *u)
	}
	return nil
}

// SignInOffline admits the user from the credential cache. Per the cached
// record's contract, only the email is checked.
func (s *AuthStore) SignInOffline(ctx context.Context, email string) error {
	cached := s.cache.LoginOffline(ctx, email)
	if cached == nil {
		return common.ErrNoCachedCredentials
	}
	s.markers.Clear(MarkerJustLoggedOut)
	s.resetUser()
	s.commitUser(s.currentGen(), &cached.User)
	s.markChecked()
	return nil
}

// SignUp registers a new account. While the backend is unreachable the
// request is queued for replay instead and ErrNetwork is returned wrapped;
// callers surface "will retry when back online".
func (s *AuthStore) SignUp(ctx context.Context, data SignupData) error {
	loginCtx, cancel := context.WithTimeout(ctx, s.loginTimeout)
	defer cancel()

	meta := map[string]any{
		"name":               data.Name,
		"learning_languages": data.LearningLanguages,
		"native_language":    data.NativeLanguage,
	}
	sess, err := s.client.SignUp(loginCtx, data.Email, data.Password, meta)
	if err != nil {
		s.watcher.ReportError(err)
		if common.IsUnreachable(err) {
			s.cache.QueueSignup(ctx, data)
		}
		return err
	}
	s.watcher.ReportSuccess()
	s.markers.Clear(MarkerJustLoggedOut)
	s.markers.MarkSignedUp(time.Now())

	if sess == nil {
		// Email confirmation pending: no session yet, the guard's signup
		// grace period covers the gap.
		return nil
	}

	s.resolveUser(loginCtx, sess.User)

	s.cache.StoreAuth(ctx, data.Email, data.Password)
	if u := s.User(); u != nil {
		s.cache.StoreUser(ctx, *u)
	}
	return nil
}

// SignOut clears local state first so the UI reacts instantly, then revokes
// the remote session best-effort. A failed revoke is logged, never rolled
// back into a signed-in state.
func (s *AuthStore) SignOut(ctx context.Context) {
	s.markers.Set(MarkerLoggingOut, "true")
	s.resetUser()
	s.cache.ClearAll(ctx)

	reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	if err := s.client.SignOut(reqCtx); err != nil {
		s.log.Warn(ctx, "remote sign-out failed, local state already cleared", "error", err)
	}

	s.markers.Clear(MarkerLoggingOut)
	s.markers.Set(MarkerJustLoggedOut, "true")
}

// Close stops the auth-event consumer. The published state stays readable.
func (s *AuthStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// mergeProfile combines the auth identity with an existing profile row,
// filling gaps with defaults.
func mergeProfile(identity *models.AuthIdentity, row *models.ProfileRow) *models.User {
	u := defaultUser(identity)
	if row.Name != "" {
		u.Name = row.Name
	}
	if row.Level > 0 {
		u.Level = row.Level
	}
	u.TotalXP = row.TotalXP
	u.Streak = row.Streak
	if row.LearningLanguage != "" {
		u.LearningLanguage = row.LearningLanguage
	}
	if row.NativeLanguage != "" {
		u.NativeLanguage = row.NativeLanguage
	}
	if len(row.LearningLanguages) > 0 {
		u.LearningLanguages = row.LearningLanguages
	}
	return u
}

// defaultUser synthesizes a User from the auth identity alone: name from
// signup metadata, else the email local-part, else "Guest"; level 1, zero
// progress, ar/en languages.
func defaultUser(identity *models.AuthIdentity) *models.User {
	name := ""
	if identity.Metadata != nil {
		if n, ok := identity.Metadata["name"].(string); ok {
			name = n
		}
	}
	if name == "" {
		if at := strings.Index(identity.Email, "@"); at > 0 {
			name = identity.Email[:at]
		} else {
			name = "Guest"
		}
	}
	return &models.User{
		ID:               identity.ID,
		Email:            identity.Email,
		Name:             name,
		Level:            defaultLevel,
		LearningLanguage: defaultLearningLanguage,
		NativeLanguage:   defaultNativeLanguage,
	}
}

func profileRowFrom(u *models.User) *models.ProfileRow {
	return &models.ProfileRow{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		Level:             u.Level,
		TotalXP:           u.TotalXP,
		Streak:            u.Streak,
		LearningLanguage:  u.LearningLanguage,
		NativeLanguage:    u.NativeLanguage,
		LearningLanguages: u.LearningLanguages,
	}
}
