package obs

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig controls tracer provider initialisation. Exporter is "otlp"
// (OTLP over HTTP) or "none", which keeps spans in process for trace ids in
// logs without shipping them anywhere.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Exporter       string
	Endpoint       string
	SamplingRatio  float64
}

// InitTracer installs the global tracer provider and W3C propagators. The
// returned function flushes and stops the provider.
func InitTracer(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	var opts []sdktrace.TracerProviderOption

	switch exporter := strings.ToLower(strings.TrimSpace(cfg.Exporter)); exporter {
	case "", "otlp":
		var httpOpts []otlptracehttp.Option
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			httpOpts = append(httpOpts, otlptracehttp.WithEndpointURL(endpoint))
		}
		exp, err := otlptracehttp.New(ctx, httpOpts...)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	case "none":
	default:
		return nil, fmt.Errorf("unsupported tracing exporter %q", exporter)
	}

	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentKey.String(cfg.Environment))
	}
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	ratio := cfg.SamplingRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	opts = append(opts,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp.Shutdown, nil
}

// TracingMiddleware renames the server span started by otelhttp to
// "METHOD route" once chi has matched the request, and records the status.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		span := trace.SpanFromContext(r.Context())
		if !span.IsRecording() {
			return
		}
		route := Route(r, r.URL.Path)
		span.SetName(r.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", rec.Status()),
		)
		if region := r.URL.Query().Get("regionId"); region != "" {
			span.SetAttributes(attribute.String("kasir.region", region))
		}
		if rec.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.Status()))
		}
	})
}
