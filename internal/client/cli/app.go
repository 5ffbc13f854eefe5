// Package cli implements the interactive terminal client for Lingua. It
// wires the config, remote client, cache, and services together and drives
// them from a small REPL.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"os"

	"github.com/linguaai/linguaclient/internal/client/client"
	"github.com/linguaai/linguaclient/internal/client/config"
	"github.com/linguaai/linguaclient/internal/client/services"
	"github.com/linguaai/linguaclient/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config  *config.Config
	log     logging.Logger
	db      *sql.DB
	client  client.Client
	cache   *services.CredentialCache
	watcher *services.NetWatcher
	markers *services.Markers
	store   *services.AuthStore
	guard   *services.RouteGuard
	notifs  *services.NotificationService
	reader  *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	log := logging.New(c.LogLevel)

	db, err := client.InitDatabase(ctx, c.CachePath)
	if err != nil {
		log.Error(ctx, "error initializing cache database", "error", err)
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.ProviderURL, c.AnonKey, c.RequestTimeout, log)

	cache := services.NewCredentialCache(db, log)
	watcher := services.NewNetWatcher(apiClient, c.OnlineCheckInterval, log)
	markers := services.NewMarkers()
	store := services.NewAuthStore(apiClient, cache, watcher, markers,
		c.InitTimeout, c.LoginTimeout, c.RequestTimeout, log)
	guard := services.NewRouteGuard(store, cache, watcher, markers, apiClient, log)
	notifs := services.NewNotificationService(apiClient, store, log)

	return &App{
		config:  c,
		log:     log,
		db:      db,
		client:  apiClient,
		cache:   cache,
		watcher: watcher,
		markers: markers,
		store:   store,
		guard:   guard,
		notifs:  notifs,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Run initializes the auth state, starts the background workers, and hands
// control to the REPL until the user exits or ctx is canceled.
func (a *App) Run(ctx context.Context) {
	defer a.store.Close()
	defer a.db.Close()

	a.store.Init(ctx)

	go a.watcher.Run(ctx)
	go a.notifs.Run(ctx)
	go a.replayQueuedSignups(ctx)

	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.store.User() != nil
}

// replayQueuedSignups drains the offline signup queue every time the
// watcher reports the backend reachable again.
func (a *App) replayQueuedSignups(ctx context.Context) {
	transitions, unsubscribe := a.watcher.Subscribe()
	defer unsubscribe()

	for {
		select {
		case online := <-transitions:
			if !online {
				continue
			}
			replayed, err := a.cache.ReplayQueuedSignups(ctx, a.client)
			if err != nil {
				a.log.Warn(ctx, "signup replay interrupted", "replayed", replayed, "error", err)
			} else if replayed > 0 {
				a.log.Info(ctx, "queued signups replayed", "count", replayed)
			}
		case <-ctx.Done():
			return
		}
	}
}
