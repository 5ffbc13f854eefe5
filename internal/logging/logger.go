// Package logging defines the structured logger the Lingua client services
// depend on. The concrete implementation wraps slog; tests use Discard.
package logging

import "context"

// Logger is a context-aware, structured logger. The variadic args are
// alternating key and value pairs:
//
//	log.Info(ctx, "queued signups replayed", "count", n)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)

	// Warn is for degraded-but-working conditions: a failed remote revoke,
	// a cache write that fell back to a no-op.
	Warn(ctx context.Context, msg string, args ...any)

	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
