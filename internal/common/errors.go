// Package common defines shared constants and sentinel errors used across
// the Lingua client layers. Callers should use errors.Is to match these
// values.
package common

import (
	"context"
	"errors"
)

var (
	// Transport-level errors. ErrTimeout is a special case of ErrNetwork:
	// callers deciding online/offline treat both as "possibly unreachable".
	ErrNetwork = errors.New("network unreachable")
	ErrTimeout = errors.New("request timed out")

	// Expected absence (missing profile row, empty cache slot).
	ErrNotFound = errors.New("not found")

	// Authentication errors (invalid credentials, unconfirmed email,
	// rate limiting). Terminal for the current attempt.
	ErrAuth = errors.New("authentication failed")

	// Local persistence errors. Cache operations degrade to no-ops.
	ErrStorage = errors.New("local storage error")

	// Offline login specific.
	ErrNoCachedCredentials = errors.New("no cached credentials found")
)

// IsUnreachable reports whether err looks like a connectivity problem
// rather than a definitive server answer. Timeouts count: connectivity
// flags lie (captive portals, proxy failures), so an unanswered request
// is treated the same as a declared-offline state.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
