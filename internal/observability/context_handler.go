package observability

import (
	"context"
	"log/slog"

	"github.com/geocoder89/civichub/internal/actorctx"
	"go.opentelemetry.io/otel/trace"
)

// ContextHandler copies request-scoped values onto every record: the otel
// trace and span ids, and the authenticated actor when there is one.
type ContextHandler struct {
	next slog.Handler
}

func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	if actor, ok := actorctx.From(ctx); ok {
		r.AddAttrs(
			slog.String("actor_id", actor.UserID),
			slog.String("actor_role", actor.Role),
		)
	}

	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
