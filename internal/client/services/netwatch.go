package services

import (
	"context"
	"sync"
	"time"

	"github.com/linguaai/linguaclient/internal/client/client"
	"github.com/linguaai/linguaclient/internal/common"
	"github.com/linguaai/linguaclient/internal/logging"
)

// probeTimeout bounds a single reachability probe.
const probeTimeout = 3 * time.Second

// NetWatcher tracks whether the backend is reachable. Two signals feed it:
// the declared platform state (SetOnline) and actual request outcomes
// (ReportError/ReportSuccess). A request that times out flips the state to
// offline even while the platform still claims connectivity, because
// captive portals and broken proxies routinely look "online".
type NetWatcher struct {
	client   client.Client
	interval time.Duration
	log      logging.Logger

	mu     sync.Mutex
	online bool
	subs   map[int]chan bool
	nextID int
}

// NewNetWatcher starts out optimistic (online) so the first login attempt
// goes to the network.
func NewNetWatcher(c client.Client, interval time.Duration, log logging.Logger) *NetWatcher {
	return &NetWatcher{
		client:   c,
		interval: interval,
		log:      log,
		online:   true,
		subs:     make(map[int]chan bool),
	}
}

// Online reports the latest known state.
func (w *NetWatcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// SetOnline applies a declared connectivity transition.
func (w *NetWatcher) SetOnline(online bool) {
	w.transition(online)
}

// ReportError feeds a request outcome into the watcher. Only
// connectivity-class failures (network, timeout) flip the state; a definite
// server answer such as invalid credentials proves reachability.
func (w *NetWatcher) ReportError(err error) {
	if common.IsUnreachable(err) {
		w.transition(false)
	} else {
		w.transition(true)
	}
}

// ReportSuccess marks the backend reachable.
func (w *NetWatcher) ReportSuccess() {
	w.transition(true)
}

func (w *NetWatcher) transition(online bool) {
	w.mu.Lock()
	if w.online == online {
		w.mu.Unlock()
		return
	}
	w.online = online
	subs := make([]chan bool, 0, len(w.subs))
	for _, ch := range w.subs {
		subs = append(subs, ch)
	}
	w.mu.Unlock()

	w.log.Info(context.Background(), "connectivity changed", "online", online)
	for _, ch := range subs {
		select {
		case ch <- online:
		default:
		}
	}
}

// Subscribe returns a channel of state transitions and a cancel func.
// Notifications are best-effort; slow consumers miss intermediate flips
// but always see the latest state via Online().
func (w *NetWatcher) Subscribe() (<-chan bool, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	ch := make(chan bool, 1)
	w.subs[id] = ch
	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

// Run probes the backend on the configured interval until ctx is canceled.
func (w *NetWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := w.client.Ping(probeCtx)
			cancel()

			if err != nil {
				w.ReportError(err)
			} else {
				w.ReportSuccess()
			}

		case <-ctx.Done():
			return
		}
	}
}
