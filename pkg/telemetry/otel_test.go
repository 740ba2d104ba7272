package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		tp.Shutdown(context.Background())
	})
	return rec
}

func TestStart_RecordsSpan(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := Start(context.Background(), "generator.walk", attribute.Int("cases", 3))
	AddEvent(ctx, "batch.released", attribute.Int("route", 4))
	RecordError(ctx, errors.New("boom"))
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != "generator.walk" {
		t.Errorf("name = %q", s.Name())
	}
	if s.InstrumentationScope().Name != TracerName {
		t.Errorf("scope = %q", s.InstrumentationScope().Name)
	}
	if s.Status().Code != codes.Error || s.Status().Description != "boom" {
		t.Errorf("status = %+v", s.Status())
	}

	var names []string
	for _, e := range s.Events() {
		names = append(names, e.Name)
	}
	// RecordError adds an "exception" event
	if len(names) != 2 || names[0] != "batch.released" || names[1] != "exception" {
		t.Errorf("events = %v", names)
	}

	found := false
	for _, kv := range s.Attributes() {
		if kv.Key == "cases" && kv.Value.AsInt64() == 3 {
			found = true
		}
	}
	if !found {
		t.Errorf("attributes = %v", s.Attributes())
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1.0, sdktrace.AlwaysSample().Description()},
		{0, sdktrace.NeverSample().Description()},
		{0.25, sdktrace.TraceIDRatioBased(0.25).Description()},
	}
	for _, tt := range tests {
		if got := sampler(tt.ratio).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %q, want %q", tt.ratio, got, tt.want)
		}
	}
}

func TestInitShutdown(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := DefaultConfig()
	cfg.Endpoint = "127.0.0.1:1"
	cfg.ExportTimeout = time.Second

	p, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}
