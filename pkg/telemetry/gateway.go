// Gateway-specific instrumentation helpers, built on top of the generic
// Provider in observability.go.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Gateway semantic convention attributes.
var (
	// Request attributes (the incoming ActionRequest).
	AttrRequestID  = attribute.Key("gateway.request.id")
	AttrActionKind = attribute.Key("gateway.request.action")
	AttrSource     = attribute.Key("gateway.request.source")

	// Dispatch attributes (pipeline stage 9: adapter invocation).
	AttrAdapterName   = attribute.Key("gateway.dispatch.adapter")
	AttrDispatchState = attribute.Key("gateway.dispatch.state")

	// Policy attributes (pipeline stage 5: allowlist evaluation).
	AttrPolicyDomain   = attribute.Key("gateway.policy.domain")
	AttrPolicyAction   = attribute.Key("gateway.policy.action")
	AttrPolicyDecision = attribute.Key("gateway.policy.decision")
	AttrPolicyLatency  = attribute.Key("gateway.policy.latency_ms")

	// Anomaly attributes (pipeline stage 7).
	AttrAnomalySource    = attribute.Key("gateway.anomaly.source")
	AttrAnomalyScore     = attribute.Key("gateway.anomaly.score")
	AttrAnomalyTriggered = attribute.Key("gateway.anomaly.triggered")

	// Signing attributes (pipeline stage 4: signature verification).
	AttrSigningAlgorithm = attribute.Key("gateway.signing.algorithm")
	AttrSigningOperation = attribute.Key("gateway.signing.operation")
	AttrSigningKeyID     = attribute.Key("gateway.signing.key_id")
)

// RequestOperation creates attributes describing an incoming ActionRequest.
func RequestOperation(requestID, action, source string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRequestID.String(requestID),
		AttrActionKind.String(action),
		AttrSource.String(source),
	}
}

// DispatchOperation creates attributes for an adapter dispatch.
func DispatchOperation(requestID, adapter, state string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRequestID.String(requestID),
		AttrAdapterName.String(adapter),
		AttrDispatchState.String(state),
	}
}

// PolicyOperation creates attributes for an allowlist evaluation.
func PolicyOperation(domain, action, decision string, latencyMs float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPolicyDomain.String(domain),
		AttrPolicyAction.String(action),
		AttrPolicyDecision.String(decision),
		AttrPolicyLatency.Float64(latencyMs),
	}
}

// AnomalyOperation creates attributes for an anomaly-detector verdict.
func AnomalyOperation(source string, score float64, triggered bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrAnomalySource.String(source),
		AttrAnomalyScore.Float64(score),
		AttrAnomalyTriggered.Bool(triggered),
	}
}

// SigningOperation creates attributes for a signing/verification operation.
func SigningOperation(algorithm, operation, keyID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrSigningAlgorithm.String(algorithm),
		AttrSigningOperation.String(operation),
		AttrSigningKeyID.String(keyID),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus records an error, if any, on the current span.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}
