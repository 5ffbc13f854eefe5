package services

import (
	"context"
	"sync"
	"time"

	"github.com/linguaai/linguaclient/internal/client/client"
	"github.com/linguaai/linguaclient/internal/client/models"
	"github.com/linguaai/linguaclient/internal/logging"
)

// resubscribeDelay spaces out realtime reconnect attempts.
const resubscribeDelay = 5 * time.Second

// NotificationService fans realtime notification changes out to registered
// handlers (the toast layer) and offers list/mark-read plus quiz-history
// recording on top of the table client.
type NotificationService struct {
	client client.Client
	store  *AuthStore
	log    logging.Logger

	mu       sync.Mutex
	recent   []models.Notification
	handlers []func(models.NotificationChange)
}

func NewNotificationService(cl client.Client, store *AuthStore, log logging.Logger) *NotificationService {
	return &NotificationService{client: cl, store: store, log: log}
}

// OnChange registers a handler invoked for every realtime change.
func (n *NotificationService) OnChange(handler func(models.NotificationChange)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, handler)
}

// List fetches the signed-in user's notifications, newest first, and
// refreshes the in-memory snapshot served by Recent.
func (n *NotificationService) List(ctx context.Context) ([]models.Notification, error) {
	u := n.store.User()
	if u == nil {
		return nil, nil
	}
	rows, err := n.client.Notifications(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	n.recent = rows
	n.mu.Unlock()
	return rows, nil
}

// Recent returns the last fetched notifications without a network call.
func (n *NotificationService) Recent() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Notification, len(n.recent))
	copy(out, n.recent)
	return out
}

// MarkRead flags one notification as read, updating the snapshot on
// success.
func (n *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := n.client.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	n.mu.Lock()
	for i := range n.recent {
		if n.recent[i].ID == id {
			n.recent[i].Read = true
		}
	}
	n.mu.Unlock()
	return nil
}

// Run keeps a realtime subscription alive for the signed-in user until ctx
// is canceled, re-resolving the user and reconnecting after failures.
func (n *NotificationService) Run(ctx context.Context) {
	for {
		u := n.store.User()
		if u == nil {
			if !n.waitSignedIn(ctx) {
				return
			}
			continue
		}

		err := n.client.SubscribeNotifications(ctx, u.ID, n.dispatch)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			n.log.Warn(ctx, "realtime subscription lost, reconnecting", "error", err)
		}

		select {
		case <-time.After(resubscribeDelay):
		case <-ctx.Done():
			return
		}
	}
}

// waitSignedIn blocks until a user is available or ctx ends.
func (n *NotificationService) waitSignedIn(ctx context.Context) bool {
	states, unsubscribe := n.store.Subscribe()
	defer unsubscribe()
	for {
		if n.store.User() != nil {
			return true
		}
		select {
		case <-states:
		case <-ctx.Done():
			return false
		}
	}
}

func (n *NotificationService) dispatch(change models.NotificationChange) {
	n.mu.Lock()
	handlers := make([]func(models.NotificationChange), len(n.handlers))
	copy(handlers, n.handlers)
	if change.Type == models.ChangeInsert && change.New != nil {
		n.recent = append([]models.Notification{*change.New}, n.recent...)
	}
	n.mu.Unlock()

	for _, h := range handlers {
		h(change)
	}
}

// RecordQuizResult appends a quiz_history row for the signed-in user and
// folds the earned XP into the profile. The profile patch is best-effort;
// the history row is the source of record.
func (n *NotificationService) RecordQuizResult(ctx context.Context, result models.QuizResult) error {
	u := n.store.User()
	if u == nil {
		return nil
	}
	result.UserID = u.ID
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now()
	}
	if err := n.client.InsertQuizResult(ctx, &result); err != nil {
		return err
	}

	if result.XPEarned > 0 {
		patch := map[string]any{"total_xp": u.TotalXP + result.XPEarned}
		if err := n.client.UpdateProfile(ctx, u.ID, patch); err != nil {
			n.log.Warn(ctx, "xp update failed, will reconcile on next refresh", "error", err)
		}
	}
	return nil
}
