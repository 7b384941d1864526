package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by creating OpenTelemetry spans.
//
// Each event becomes a span named after the event type, carrying run and
// node identities plus all Meta fields as attributes. Failure events set
// the span status to Error with the event's error text.
//
// Events represent points in time, so spans are ended immediately; wire the
// tracer into an SDK provider with a batch exporter to ship them.
//
// Usage:
//
//	tracer := otel.Tracer("taskdag-go")
//	emitter := emit.NewOTelEmitter(tracer)
//	ex, _ := dag.NewExecutor(g, dag.WithEmitter(emitter))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an emitter producing spans through tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit records the event as an immediately ended span.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), string(event.Type),
		trace.WithTimestamp(event.At))
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("taskdag.run_id", event.RunID),
	}
	if event.NodeID != "" {
		attrs = append(attrs, attribute.String("taskdag.node_id", event.NodeID))
	}
	for key, value := range event.Meta {
		attrs = append(attrs, metaAttribute(key, value))
	}
	span.SetAttributes(attrs...)

	if event.Err != "" {
		span.SetStatus(codes.Error, event.Err)
	}
}

// metaAttribute converts a Meta entry to a typed span attribute, falling
// back to %v formatting for unrecognized types.
func metaAttribute(key string, value any) attribute.KeyValue {
	name := "taskdag." + key
	switch v := value.(type) {
	case string:
		return attribute.String(name, v)
	case bool:
		return attribute.Bool(name, v)
	case int:
		return attribute.Int(name, v)
	case int64:
		return attribute.Int64(name, v)
	case float64:
		return attribute.Float64(name, v)
	default:
		return attribute.String(name, fmt.Sprintf("%v", v))
	}
}
