package cli

import (
	"context"
	"fmt"
	"log"
)

// Notifications lists the signed-in user's notifications, newest first.
func (a *App) Notifications(ctx context.Context) {
	rows, err := a.notifs.List(ctx)
	if err != nil {
		log.Printf("error fetching notifications: %v", err)
		return
	}
	if len(rows) == 0 {
		fmt.Println("No notifications")
		return
	}
	for _, row := range rows {
		marker := " "
		if !row.Read {
			marker = "*"
		}
		fmt.Printf("%s %s  %s: %s\n", marker, row.ID, row.Title, row.Message)
	}
}

// MarkRead flags one notification as read.
func (a *App) MarkRead(ctx context.Context, id string) {
	if err := a.notifs.MarkRead(ctx, id); err != nil {
		log.Printf("error marking notification read: %v", err)
		return
	}
	fmt.Println("Marked as read")
}
