// Package logctx carries the request or event scoped logger on a context, so
// use cases log with the request_id, event_id and trace ids of their caller.
package logctx

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

type ctxKey struct{}

// With returns ctx carrying logger. A nil logger leaves ctx unchanged.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From returns the logger on ctx, or nil.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(ctxKey{}).(observability.Logger)
	return l
}

func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if l := From(ctx); l != nil {
		return l
	}
	return fallback
}

// Extend derives a child of the context logger (or fallback) with fields and
// stores it back on the returned context.
func Extend(ctx context.Context, fallback observability.Logger, fields ...observability.Field) (context.Context, observability.Logger) {
	l := FromOr(ctx, fallback)
	if l == nil {
		l = observability.NopLogger()
	}
	l = l.With(fields...)
	return With(ctx, l), l
}
