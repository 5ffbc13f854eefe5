// Package client wraps the hosted backend provider: auth endpoints, table
// API, and the realtime change stream. Only the shapes the app consumes are
// modeled; the provider's internals stay behind this boundary.
package client

import (
	"context"

	"github.com/linguaai/linguaclient/internal/client/models"
)

// Client is the consumed surface of the hosted backend.
//
// Error mapping contract: implementations translate transport and provider
// errors into the sentinels in internal/common (ErrNetwork, ErrTimeout,
// ErrAuth, ErrNotFound) so callers can decide online/offline and
// recoverable/terminal without knowing the wire format.
type Client interface {
	Close() error

	// Ping checks provider liveness. Used by the reachability watcher.
	Ping(ctx context.Context) error

	// Session returns the current session, refreshing it when stale, or
	// (nil, nil) when nobody is signed in.
	Session(ctx context.Context) (*models.Session, error)

	// AuthUser returns the identity behind the current session.
	AuthUser(ctx context.Context) (*models.AuthIdentity, error)

	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string, data map[string]any) (*models.Session, error)

	// SignInWithOAuth returns the provider authorize URL to open in a
	// browser. The redirect completes out of band.
	SignInWithOAuth(provider, redirectTo string) string

	// SignOut revokes the session best-effort. A failed revoke must not
	// block the local sign-out transition; callers log and move on.
	SignOut(ctx context.Context) error

	FetchProfile(ctx context.Context, userID string) (*models.ProfileRow, error)
	UpsertProfile(ctx context.Context, row *models.ProfileRow) error
	UpdateProfile(ctx context.Context, userID string, patch map[string]any) error

	Notifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	InsertQuizResult(ctx context.Context, row *models.QuizResult) error

	// SubscribeNotifications streams row changes for the user's
	// notifications until ctx is canceled.
	SubscribeNotifications(ctx context.Context, userID string, handler func(models.NotificationChange)) error

	// AuthEvents emits SIGNED_IN / SIGNED_OUT / TOKEN_REFRESHED transitions
	// produced by this client's own calls.
	AuthEvents() <-chan models.AuthEvent
}
