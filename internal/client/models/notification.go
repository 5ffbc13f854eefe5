package models

import "time"

// Notification mirrors one row of the backend notifications table.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// ChangeEventType enumerates realtime row-change events.
type ChangeEventType string

const (
	ChangeInsert ChangeEventType = "INSERT"
	ChangeUpdate ChangeEventType = "UPDATE"
	ChangeDelete ChangeEventType = "DELETE"
)

// NotificationChange is one realtime change on the notifications table.
// New is set for inserts/updates, Old for updates/deletes.
type NotificationChange struct {
	Type ChangeEventType
	New  *Notification
	Old  *Notification
}

// QuizResult mirrors one row of the quiz_history table, appended after a
// completed quiz.
type QuizResult struct {
	ID         string    `json:"id,omitempty"`
	UserID     string    `json:"user_id"`
	Language   string    `json:"language"`
	Topic      string    `json:"topic"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	XPEarned   int       `json:"xp_earned"`
	FinishedAt time.Time `json:"finished_at"`
}
