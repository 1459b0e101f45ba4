package event

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/goccy/go-reflect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/x-research-team/dtx-logic/bus/event"
	instrumentationVersion = "0.1.0"
	metricKeyPrefix        = "messaging."
)

// telemetry объединяет трассировку и метрики шины. Без провайдеров
// соответствующая часть отключена.
type telemetry struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	tracing    bool

	publishCounter  metric.Int64Counter
	consumeCounter  metric.Int64Counter
	consumeDuration metric.Float64Histogram
	metrics         bool
}

func newTelemetry(cfg *config) *telemetry {
	t := &telemetry{
		propagator: cfg.propagator,
	}

	if cfg.tracerProvider != nil {
		t.tracing = true
		t.tracer = cfg.tracerProvider.Tracer(
			instrumentationName,
			trace.WithInstrumentationVersion(instrumentationVersion),
		)
		if t.propagator == nil {
			t.propagator = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
		}
	}

	if cfg.meterProvider != nil {
		t.metrics = true
		meter := cfg.meterProvider.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion))

		var err error
		t.publishCounter, err = meter.Int64Counter(
			metricKeyPrefix+"publish.count",
			metric.WithDescription("Количество отправленных событий"),
			metric.WithUnit("{events}"),
		)
		if err != nil {
			panic(fmt.Sprintf("не удалось создать счетчик publish.count: %v", err))
		}

		t.consumeCounter, err = meter.Int64Counter(
			metricKeyPrefix+"consume.count",
			metric.WithDescription("Количество доставок событий подписчикам"),
			metric.WithUnit("{events}"),
		)
		if err != nil {
			panic(fmt.Sprintf("не удалось создать счетчик consume.count: %v", err))
		}

		t.consumeDuration, err = meter.Float64Histogram(
			metricKeyPrefix+"consume.duration",
			metric.WithDescription("Длительность обработки события подписчиком"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			panic(fmt.Sprintf("не удалось создать гистограмму consume.duration: %v", err))
		}
	}

	return t
}

// publish открывает спан отправки и записывает контекст трассировки в
// метаданные события.
func (t *telemetry) publish(ctx context.Context, eventType reflect.Type, event any, subscribers int) (context.Context, func()) {
	name := eventName(eventType)

	if t.metrics {
		t.publishCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", name)))
	}
	if !t.tracing {
		return ctx, func() {}
	}

	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("%s publish", name),
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("event.type", name),
			attribute.Int("event.subscribers", subscribers),
		),
	)

	if md, ok := event.(Metadatable); ok && md.Metadata() != nil {
		t.propagator.Inject(ctx, propagation.MapCarrier(md.Metadata()))
	}

	return ctx, func() { span.End() }
}

// consume открывает спан доставки одному подписчику. Возвращаемая функция
// фиксирует исход и метрики.
func (t *telemetry) consume(ctx context.Context, sub *Subscription, event any) (context.Context, func(error)) {
	name := eventName(sub.eventType)
	startTime := time.Now()

	var span trace.Span
	if t.tracing {
		if md, ok := event.(Metadatable); ok && md.Metadata() != nil {
			ctx = t.propagator.Extract(ctx, propagation.MapCarrier(md.Metadata()))
		}
		ctx, span = t.tracer.Start(ctx, fmt.Sprintf("%s process", name),
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("event.type", name),
				attribute.String("handler.name", sub.name),
			),
		)
	}

	return ctx, func(err error) {
		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}

		if !t.metrics {
			return
		}
		status := "success"
		if err != nil {
			status = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("event.type", name),
			attribute.String("handler.name", sub.name),
			attribute.String("status", status),
		)
		t.consumeCounter.Add(ctx, 1, attrs)
		t.consumeDuration.Record(ctx, float64(time.Since(startTime).Milliseconds()), attrs)
	}
}

func eventName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

// getHandlerName извлекает имя обработчика.
func getHandlerName(handler any) string {
	v := reflect.ValueOf(handler)
	if v.Kind() == reflect.Func {
		if pc := v.Pointer(); pc != 0 {
			if f := runtime.FuncForPC(pc); f != nil {
				return f.Name()
			}
		}
	}
	return reflect.TypeOf(handler).String()
}
