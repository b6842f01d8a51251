package tracing

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracerWithoutExporter(t *testing.T) {
	tp, err := InitTracer(Config{ServiceName: "dispensary-test", SampleRatio: 1})
	if err != nil {
		t.Fatalf("init tracer: %v", err)
	}
	if _, ok := tp.(*sdktrace.TracerProvider); !ok {
		t.Fatalf("expected sdk tracer provider, got %T", tp)
	}

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	if !span.SpanContext().IsValid() {
		t.Fatalf("expected sampled span")
	}
	span.End()

	if err := Shutdown(context.Background(), tp); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
