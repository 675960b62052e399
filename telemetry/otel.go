package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type (
	// SlogLogger adapts a log/slog.Logger to the Logger interface. slog is the
	// standard library's structured logger; no third-party logging library
	// appears anywhere in this spec's reference corpus outside of the
	// Goa-specific clue/log wrapper, which this engine does not depend on
	// (see DESIGN.md).
	SlogLogger struct {
		logger *slog.Logger
	}

	// OtelMetrics records counters, timers, and gauges through the global OTEL
	// MeterProvider.
	OtelMetrics struct {
		meter metric.Meter
	}

	// OtelTracer starts spans through the global OTEL TracerProvider.
	OtelTracer struct {
		tracer trace.Tracer
	}

	otelSpan struct {
		span trace.Span
	}
)

// NewSlogLogger wraps logger (or slog.Default() if nil) as a Logger.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// NewOtelMetrics constructs a Metrics recorder using the named OTEL meter.
// Configure the global MeterProvider via otel.SetMeterProvider before calling
// engine methods that record metrics.
func NewOtelMetrics(instrumentationName string) Metrics {
	return &OtelMetrics{meter: otel.Meter(instrumentationName)}
}

// NewOtelTracer constructs a Tracer using the named OTEL tracer. Configure the
// global TracerProvider via otel.SetTracerProvider before calling engine
// methods that start spans.
func NewOtelTracer(instrumentationName string) Tracer {
	return &OtelTracer{tracer: otel.Tracer(instrumentationName)}
}

func (l *SlogLogger) Debug(ctx context.Context, msg string, kv ...any) { l.logger.DebugContext(ctx, msg, kv...) }
func (l *SlogLogger) Info(ctx context.Context, msg string, kv ...any)  { l.logger.InfoContext(ctx, msg, kv...) }
func (l *SlogLogger) Warn(ctx context.Context, msg string, kv ...any)  { l.logger.WarnContext(ctx, msg, kv...) }
func (l *SlogLogger) Error(ctx context.Context, msg string, kv ...any) { l.logger.ErrorContext(ctx, msg, kv...) }

// IncCounter increments a float64 counter by value.
func (m *OtelMetrics) IncCounter(name string, value float64, tags ...string) {
	counter, err := m.meter.Float64Counter(name)
	if err != nil {
		return
	}
	counter.Add(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

// RecordTimer records a duration (in seconds) into a histogram.
func (m *OtelMetrics) RecordTimer(name string, d time.Duration, tags ...string) {
	histogram, err := m.meter.Float64Histogram(name)
	if err != nil {
		return
	}
	histogram.Record(context.Background(), d.Seconds(), metric.WithAttributes(tagsToAttrs(tags)...))
}

// RecordGauge records an instantaneous value. OTEL has no synchronous gauge
// instrument, so this uses a histogram suffixed "_gauge" as a practical
// stand-in, matching the teacher's own workaround in ClueMetrics.
func (m *OtelMetrics) RecordGauge(name string, value float64, tags ...string) {
	histogram, err := m.meter.Float64Histogram(name + "_gauge")
	if err != nil {
		return
	}
	histogram.Record(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

// Start begins a new span named name.
func (t *OtelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	c, span := t.tracer.Start(ctx, name, opts...)
	return c, &otelSpan{span: span}
}

func (s *otelSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s *otelSpan) AddEvent(name string, kv ...any) {
	s.span.AddEvent(name, trace.WithAttributes(tagsToAttrs(stringify(kv))...))
}

func (s *otelSpan) SetStatus(code codes.Code, description string) { s.span.SetStatus(code, description) }

func (s *otelSpan) RecordError(err error, opts ...trace.EventOption) { s.span.RecordError(err, opts...) }

func tagsToAttrs(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		attrs = append(attrs, attribute.String(tags[i], tags[i+1]))
	}
	return attrs
}

func stringify(kv []any) []string {
	out := make([]string, 0, len(kv))
	for _, v := range kv {
		if s, ok := v.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, "")
	}
	return out
}
