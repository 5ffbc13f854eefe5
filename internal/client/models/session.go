package models

import "time"

// Session is the capability token pair issued by the backend auth service.
// The access token is opaque to the app apart from its expiry.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *AuthIdentity
}

// Valid reports whether the session can still be presented at time now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.AccessToken != "" && now.Before(s.ExpiresAt)
}

// AuthIdentity is the identity record behind a session, as returned by the
// auth endpoints. Metadata carries signup-time profile hints (name,
// language choices) that seed the default profile row.
type AuthIdentity struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata"`
}

// ProfileRow mirrors one row of the backend profiles table.
type ProfileRow struct {
	ID                string   `json:"id"`
	Email             string   `json:"email,omitempty"`
	Name              string   `json:"name,omitempty"`
	Level             int      `json:"level"`
	TotalXP           int      `json:"total_xp"`
	Streak            int      `json:"streak"`
	LearningLanguage  string   `json:"learning_language,omitempty"`
	NativeLanguage    string   `json:"native_language,omitempty"`
	LearningLanguages []string `json:"learning_languages,omitempty"`
}

// AuthEventType enumerates the auth state change events emitted by the
// backend session stream.
type AuthEventType string

const (
	AuthSignedIn       AuthEventType = "SIGNED_IN"
	AuthSignedOut      AuthEventType = "SIGNED_OUT"
	AuthTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is one auth state transition with the session it applies to
// (nil for SIGNED_OUT).
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
}
