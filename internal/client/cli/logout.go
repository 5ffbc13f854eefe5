package cli

import (
	"context"
	"log"
)

// Logout clears local auth state immediately; the remote revoke is
// best-effort and never blocks the local transition.
func (a *App) Logout(ctx context.Context) {
	if !a.isLoggedIn() {
		log.Printf("Not logged in")
		return
	}
	a.store.SignOut(ctx)
	log.Printf("Logged out")
}
