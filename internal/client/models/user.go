// Package models contains the data entities shared between the Lingua
// client services: the reconciled user view model, the offline cache
// records, and the wire shapes consumed from the hosted backend.
package models

import "time"

// User is the single authoritative view of the signed-in user, produced by
// the auth store by merging the auth identity with the profile row (or
// defaults when the row is missing). It is replaced wholesale on every
// reconciliation pass, never partially mutated.
type User struct {
	ID                string   `json:"id"`
	Email             string   `json:"email"`
	Name              string   `json:"name"`
	Level             int      `json:"level"`
	TotalXP           int      `json:"total_xp"`
	Streak            int      `json:"streak"`
	LearningLanguage  string   `json:"learning_language"`
	NativeLanguage    string   `json:"native_language"`
	LearningLanguages []string `json:"learning_languages,omitempty"`
}

// OfflineUser is the cached snapshot of User plus the time it was written.
// At most one lives in the cache; it expires 24h after CachedAt.
type OfflineUser struct {
	User
	CachedAt time.Time `json:"cachedAt"`
}

// Expired reports whether the snapshot is older than ttl at time now.
func (u *OfflineUser) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(u.CachedAt) >= ttl
}

// AuthRecord is the offline credential record: the email and a salted
// SHA-256 digest of the password. The plaintext password is never stored.
type AuthRecord struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Timestamp    time.Time `json:"timestamp"`
}

// QueuedSignup is a registration request captured while offline, waiting
// for replay. The password is not kept in the clear: it is sealed with the
// per-device cache key before the record is persisted.
type QueuedSignup struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	SealedPassword    []byte    `json:"sealedPassword"`
	PasswordNonce     []byte    `json:"passwordNonce"`
	LearningLanguages []string  `json:"learningLanguages"`
	NativeLanguage    string    `json:"nativeLanguage"`
	Timestamp         time.Time `json:"timestamp"`
}
