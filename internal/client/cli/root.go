package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if u := a.store.User(); u != nil {
		s = u.Email + " "
	}
	if a.watcher.Online() {
		s += "online"
	} else {
		s += "offline"
	}
	return fmt.Sprintf("(%s)", s)
}

// Root runs the interactive command loop.
func (a *App) Root(ctx context.Context) {

	fmt.Println("Lingua client (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("lingua %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: status, learn, notifications, read <id>, logout, exit")
			} else {
				fmt.Println("Available commands: login, signup, status, exit")
			}

		case "login":
			a.Login(ctx)
		case "signup":
			a.Signup(ctx)
		case "logout":
			a.Logout(ctx)
		case "status":
			a.Status(ctx)
		case "learn":
			a.Learn(ctx)
		case "notifications":
			a.Notifications(ctx)
		case "read":
			if len(args) == 0 {
				fmt.Println("Usage: read <id>")
				continue
			}
			a.MarkRead(ctx, args[0])
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
