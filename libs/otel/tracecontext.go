package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceContextStrings flattens the active trace context into the two W3C
// header values, suitable for persisting alongside an outbox row.
func TraceContextStrings(ctx context.Context) (traceparent, tracestate string) {
	mc := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, mc)
	return mc["traceparent"], mc["tracestate"]
}

// ContextWithTraceContext rebuilds a context from persisted trace strings so
// the publish span joins the trace that wrote the row.
func ContextWithTraceContext(ctx context.Context, traceparent, tracestate string) context.Context {
	if traceparent == "" && tracestate == "" {
		return ctx
	}
	mc := propagation.MapCarrier{"traceparent": traceparent, "tracestate": tracestate}
	return otel.GetTextMapPropagator().Extract(ctx, mc)
}
