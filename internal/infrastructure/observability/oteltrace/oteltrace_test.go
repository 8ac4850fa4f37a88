package oteltrace_test

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/oteltrace"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestTracer_KeepsParentTraceContext(t *testing.T) {
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02},
		SpanID:     trace.SpanID{0x03},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), parent)

	tr := oteltrace.FromProvider(noop.NewTracerProvider(), "minishop-test")
	ctx, span := tr.Start(ctx, "UC.CreateOrder", attribute.String("use_case", "order.create"))
	defer span.End()

	assert.Equal(t, parent.TraceID(), trace.SpanContextFromContext(ctx).TraceID())
}

func TestNew_UsesGlobalProvider(t *testing.T) {
	tr := oteltrace.FromProvider(nil, "")
	_, span := tr.Start(context.Background(), "UC.SalesReport")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid(), "no SDK registered, spans are not recorded")
}
