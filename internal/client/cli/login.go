package cli

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/linguaai/linguaclient/internal/common"
)

// Login authenticates interactively: online first, falling back to the
// offline credential cache when the backend is unreachable.
func (a *App) Login(ctx context.Context) {

	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(password)

	if !a.watcher.Online() {
		a.loginOffline(ctx, email)
		return
	}

	err = a.store.SignInOnline(ctx, email, string(password))
	if err == nil {
		log.Printf("Login successful")
		return
	}

	if common.IsUnreachable(err) {
		log.Printf("Server unreachable, trying offline login...")
		a.loginOffline(ctx, email)
		return
	}
	log.Printf("Login unsuccessful: %s", err.Error())
}

func (a *App) loginOffline(ctx context.Context, email string) {
	err := a.store.SignInOffline(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNoCachedCredentials) {
			log.Printf("No cached credentials found for %s", email)
		} else {
			log.Printf("Offline login unsuccessful: %s", err.Error())
		}
		return
	}
	log.Printf("Offline login successful (cached profile, may be stale)")
}
