// Package logging defines the structured logger used across taskdesk and its
// log/slog implementation.
package logging

import "context"

// Logger is a context-aware structured logger. The variadic args are
// key/value pairs:
//
//	log.Info(ctx, "tasks loaded", "count", n)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
