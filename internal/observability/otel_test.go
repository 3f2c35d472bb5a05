package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/plugtrack/go-plugtrack-backend/internal/config"
)

// preserveGlobals snapshots the process-wide tracer provider and propagator
// so a test cannot leak its setup into the rest of the suite.
func preserveGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func otelCfg(insecure bool) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    insecure,
		Endpoint:    "localhost:4317",
		ServiceName: "plugtrack-test",
		SampleRatio: 1.0,
	}
}

func TestSetupOTel_DisabledIsNoOp(t *testing.T) {
	preserveGlobals(t)
	prevTP := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "v0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if shutdown == nil {
		t.Fatalf("nil shutdown")
	}
	if otel.GetTracerProvider() != prevTP {
		t.Fatalf("disabled setup replaced the tracer provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupOTel_InstallsProviderAndPropagator(t *testing.T) {
	preserveGlobals(t)

	shutdown, err := SetupOTel(context.Background(), otelCfg(true), "v1.2.3")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider); !isSDK {
		t.Fatalf("tracer provider not installed")
	}

	// W3C trace context must survive an inject/extract round trip.
	prop := otel.GetTextMapPropagator()
	carrier := propagation.MapCarrier{}
	ctx, span := otel.Tracer("setup-test").Start(context.Background(), "op")
	span.End()
	prop.Inject(ctx, carrier)
	if len(carrier) == 0 {
		t.Fatalf("propagator injected nothing")
	}
	_ = prop.Extract(context.Background(), carrier)
}

func TestSetupOTel_TLSBranch(t *testing.T) {
	preserveGlobals(t)

	// Insecure=false takes the TLS credentials path; the exporter dials
	// lazily so no collector is needed.
	shutdown, err := SetupOTel(context.Background(), otelCfg(false), "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider); !isSDK {
		t.Fatalf("tracer provider not installed")
	}
	_, span := otel.Tracer("tls-test").Start(context.Background(), "child")
	span.End()
}

func TestSetupOTel_ExporterErrorLeavesGlobalsIntact(t *testing.T) {
	preserveGlobals(t)

	orig := newTraceExporter
	t.Cleanup(func() { newTraceExporter = orig })
	newTraceExporter = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, errors.New("exporter unavailable")
	}

	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()

	if _, err := SetupOTel(context.Background(), otelCfg(true), "v0"); err == nil {
		t.Fatalf("expected exporter error")
	}
	if otel.GetTracerProvider() != prevTP || otel.GetTextMapPropagator() != prevProp {
		t.Fatalf("failed setup mutated globals")
	}
}

func TestSetupOTel_ResourceErrorLeavesGlobalsIntact(t *testing.T) {
	preserveGlobals(t)

	orig := newTraceResource
	t.Cleanup(func() { newTraceResource = orig })
	newTraceResource = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return nil, errors.New("resource unavailable")
	}

	prevTP := otel.GetTracerProvider()

	if _, err := SetupOTel(context.Background(), otelCfg(true), "v0"); err == nil {
		t.Fatalf("expected resource error")
	}
	if otel.GetTracerProvider() != prevTP {
		t.Fatalf("failed setup mutated the tracer provider")
	}
}

func TestSetupOTel_ShutdownCompletes(t *testing.T) {
	preserveGlobals(t)

	shutdown, err := SetupOTel(context.Background(), otelCfg(true), "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
