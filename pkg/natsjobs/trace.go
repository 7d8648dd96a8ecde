package natsjobs

import (
	"context"

	"github.com/nimburion/natsjobs/pkg/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// mapCarrier adapts a map[string]string to otel's TextMapCarrier so the same
// inject/extract codepath serves both the envelope field and NATS headers.
type mapCarrier map[string]string

func (c mapCarrier) Get(key string) string { return c[key] }
func (c mapCarrier) Set(key, value string) { c[key] = value }
func (c mapCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

func propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// injectTraceContext captures the current propagation context into a plain
// map, suitable both for the envelope's trace_context field and for
// mirroring onto NATS message headers.
func injectTraceContext(ctx context.Context) map[string]string {
	carrier := mapCarrier{}
	propagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return nil
	}
	return carrier
}

// extractTraceContext rebuilds a context carrying the remote span described
// by headers, preferring headers over the envelope's captured field since
// headers survive broker-side inspection and intermediary rewriting better.
func extractTraceContext(ctx context.Context, headers, envelopeFallback map[string]string) context.Context {
	source := headers
	if len(source) == 0 {
		source = envelopeFallback
	}
	if len(source) == 0 {
		return ctx
	}
	return propagator().Extract(ctx, mapCarrier(source))
}

// startConsumeSpan binds the extracted trace context to a messaging span for
// the handler, continuing the trace graph from push through fetch to handle.
func startConsumeSpan(ctx context.Context, namespace string, priority Priority, taskID string) (context.Context, trace.Span) {
	return tracing.StartMessagingSpan(ctx, tracing.SpanOperationMsgProcess,
		tracing.WithMessagingSystem("nats-jetstream"),
		tracing.WithMessagingDestination(priority.subject(namespace)),
		tracing.WithMessagingMessageID(taskID),
	)
}

// startPublishSpan wraps a push() call in a producer-kind span.
func startPublishSpan(ctx context.Context, namespace string, priority Priority, taskID string, payloadSize int) (context.Context, trace.Span) {
	return tracing.StartMessagingSpan(ctx, tracing.SpanOperationMsgPublish,
		tracing.WithMessagingSystem("nats-jetstream"),
		tracing.WithMessagingDestination(priority.subject(namespace)),
		tracing.WithMessagingMessageID(taskID),
		tracing.WithMessagingPayloadSize(payloadSize),
	)
}
