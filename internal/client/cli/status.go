package cli

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/linguaai/linguaclient/internal/client/services"
)

// Status prints the reconciled auth state.
func (a *App) Status(ctx context.Context) {
	fmt.Printf("Backend:      %s\n", a.config.ProviderURL)
	fmt.Printf("Connectivity: %s\n", onlineWord(a.watcher.Online()))
	fmt.Printf("Auth checked: %v\n", a.store.AuthChecked())

	u := a.store.User()
	if u == nil {
		fmt.Println("User:         not signed in")
		return
	}
	fmt.Printf("User:         %s <%s>\n", u.Name, u.Email)
	fmt.Printf("Level %d, %d XP, %d-day streak\n", u.Level, u.TotalXP, u.Streak)
	if len(u.LearningLanguages) > 0 {
		fmt.Printf("Learning:     %s (native %s)\n", strings.Join(u.LearningLanguages, ", "), u.NativeLanguage)
	} else {
		fmt.Printf("Learning:     %s (native %s)\n", u.LearningLanguage, u.NativeLanguage)
	}

	if queued := a.cache.QueuedSignups(ctx); len(queued) > 0 {
		fmt.Printf("Pending signups queued: %d\n", len(queued))
	}
}

// Learn asks the route guard whether the protected learning view may
// render. This is the same decision the UI shell makes on navigation.
func (a *App) Learn(ctx context.Context) {
	decision, err := a.guard.Decide(ctx)
	if err != nil {
		log.Printf("guard error: %v", err)
		return
	}
	if decision == services.DecisionAllow {
		fmt.Println("Access granted, opening lesson view")
	} else {
		fmt.Println("Authentication required, redirecting to login")
	}
}

func onlineWord(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
