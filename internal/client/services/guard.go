package services

import (
	"context"
	"time"

	"github.com/linguaai/linguaclient/internal/client/client"
	"github.com/linguaai/linguaclient/internal/logging"
)

// Decision is the route guard's verdict for a protected view.
type Decision int

const (
	// DecisionAllow renders the protected content.
	DecisionAllow Decision = iota
	// DecisionRedirect navigates to the login view.
	DecisionRedirect
)

func (d Decision) String() string {
	if d == DecisionAllow {
		return "allow"
	}
	return "redirect"
}

// RouteGuard gates access to protected views without flashing a false
// "please sign in" during legitimate hydration delays. Every Decide call
// computes the same deterministic verdict from shared store state, so
// concurrent mounts cannot double-fire conflicting redirects.
type RouteGuard struct {
	store   *AuthStore
	cache   *CredentialCache
	watcher *NetWatcher
	markers *Markers
	client  client.Client
	log     logging.Logger

	// Wait budgets. The grace window exists because session hydration
	// latency is variable and a premature redirect is the primary bug this
	// component prevents.
	baseWait    time.Duration
	offlineWait time.Duration
	signupWait  time.Duration

	pollAttempts int
	pollDelay    time.Duration

	// now is a test seam.
	now func() time.Time
}

func NewRouteGuard(store *AuthStore, cache *CredentialCache, watcher *NetWatcher,
	markers *Markers, cl client.Client, log logging.Logger) *RouteGuard {
	return &RouteGuard{
		store:        store,
		cache:        cache,
		watcher:      watcher,
		markers:      markers,
		client:       cl,
		log:          log,
		baseWait:     500 * time.Millisecond,
		offlineWait:  time.Second,
		signupWait:   10 * time.Second,
		pollAttempts: 5,
		pollDelay:    400 * time.Millisecond,
		now:          time.Now,
	}
}

// Decide blocks until the guard can give a verdict: it waits for the auth
// store to finish initializing, absorbs the signup/session race, honors the
// grace budget, and only then redirects. Context cancellation yields
// DecisionRedirect with ctx.Err().
func (g *RouteGuard) Decide(ctx context.Context) (Decision, error) {
	states, unsubscribe := g.store.Subscribe()
	defer unsubscribe()

	if err := g.waitAuthChecked(ctx, states); err != nil {
		return DecisionRedirect, err
	}

	if g.store.User() != nil {
		return DecisionAllow, nil
	}

	offline := !g.watcher.Online()

	// Offline with a fresh cache entry: the reconciler should pick it up,
	// so this is a reason to keep waiting, not to redirect.
	cachedHit := false
	if offline && g.cache.User(ctx) != nil {
		cachedHit = true
		go g.store.RefreshUser(context.WithoutCancel(ctx))
	}

	signedUpAt, justSignedUp := g.markers.SignedUpAt()

	// A signup that just completed races the auth listener: the session may
	// exist remotely before the store has seen it. Poll a few times before
	// trusting "no user".
	if justSignedUp && g.pollSession(ctx) {
		g.store.RefreshUser(ctx)
		if g.store.User() != nil {
			g.markers.ClearSignup()
			return DecisionAllow, nil
		}
	}

	budget := g.waitBudget(offline || cachedHit, justSignedUp, signedUpAt)
	if g.waitForUser(ctx, states, budget) {
		return DecisionAllow, nil
	}

	if g.signOutInProgress() {
		// Mid-logout: never show an authentication interstitial while the
		// redirect completes.
		return DecisionAllow, nil
	}

	g.log.Info(ctx, "no user after grace period, redirecting to login",
		"budget", budget.String(), "offline", offline)
	return DecisionRedirect, nil
}

// waitAuthChecked blocks until the store reports initialization complete.
func (g *RouteGuard) waitAuthChecked(ctx context.Context, states <-chan State) error {
	for !g.store.AuthChecked() {
		select {
		case <-states:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// waitBudget computes the grace window: base 500ms, 1s when offline, and up
// to 10s after a signup, decaying with the time already elapsed since it.
func (g *RouteGuard) waitBudget(offline, justSignedUp bool, signedUpAt time.Time) time.Duration {
	budget := g.baseWait
	if offline {
		budget = g.offlineWait
	}
	if justSignedUp {
		if remaining := g.signupWait - g.now().Sub(signedUpAt); remaining > budget {
			budget = remaining
		}
	}
	return budget
}

// pollSession asks the backend directly for a session, a few times with
// backoff. Returns true as soon as one is found.
func (g *RouteGuard) pollSession(ctx context.Context) bool {
	for attempt := 0; attempt < g.pollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(g.pollDelay):
			case <-ctx.Done():
				return false
			}
		}
		sess, err := g.client.Session(ctx)
		if err == nil && sess != nil {
			return true
		}
	}
	return false
}

// waitForUser waits up to budget for the store to publish a user.
func (g *RouteGuard) waitForUser(ctx context.Context, states <-chan State, budget time.Duration) bool {
	deadline := time.NewTimer(budget)
	defer deadline.Stop()

	for {
		if g.store.User() != nil {
			return true
		}
		select {
		case st := <-states:
			if st.User != nil {
				return true
			}
		case <-deadline.C:
			return g.store.User() != nil
		case <-ctx.Done():
			return false
		}
	}
}

func (g *RouteGuard) signOutInProgress() bool {
	if g.markers.Has(MarkerLoggingOut) || g.markers.Has(MarkerPreventRedirect) {
		return true
	}
	// just_logged_out covers exactly one decision, the one racing the
	// logout navigation. Consume it so later visits redirect normally.
	if g.markers.Has(MarkerJustLoggedOut) {
		g.markers.Clear(MarkerJustLoggedOut)
		return true
	}
	return false
}
