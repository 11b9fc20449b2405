package observability

import (
	"context"
	"testing"
)

func TestDisabledTracingIsNoop(t *testing.T) {
	tp, err := InitTracing(context.Background(), Config{ServiceName: "crew-dialogue", Enabled: false})
	if err != nil {
		t.Fatalf("InitTracing failed: %v", err)
	}
	if tp.IsEnabled() {
		t.Error("Expected tracing disabled")
	}

	_, span := tp.Tracer("test").Start(context.Background(), "handle")
	span.SetAttributes(AttrEvent.String("danger"))
	span.End()
	if span.SpanContext().IsValid() {
		t.Error("Expected no-op span")
	}

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected nil shutdown error, got %v", err)
	}
}

func TestEnabledTracingRequiresEndpoint(t *testing.T) {
	if _, err := InitTracing(context.Background(), Config{Enabled: true}); err == nil {
		t.Error("Expected error without endpoint")
	}
}

func TestEnabledTracing(t *testing.T) {
	tp, err := InitTracing(context.Background(), Config{
		ServiceName: "crew-dialogue",
		Enabled:     true,
		Endpoint:    "http://127.0.0.1:4318/v1/traces",
		Insecure:    true,
	})
	if err != nil {
		t.Fatalf("InitTracing failed: %v", err)
	}
	if !tp.IsEnabled() {
		t.Fatal("Expected tracing enabled")
	}

	_, span := tp.Tracer("test").Start(context.Background(), "handle")
	if !span.SpanContext().IsValid() {
		t.Error("Expected a recording span")
	}
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tp.Shutdown(ctx)
}
