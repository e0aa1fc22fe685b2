// Package logctx carries log attributes across call boundaries on a context.
package logctx

import (
	"context"
	"log/slog"
)

type attrsKey struct{}

// With returns a copy of ctx whose loggers also carry args.
func With(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(attrsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, attrsKey{}, merged)
}

// Logger returns logger extended with the attributes stored on ctx.
func Logger(ctx context.Context, logger *slog.Logger) *slog.Logger {
	args, _ := ctx.Value(attrsKey{}).([]any)
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
