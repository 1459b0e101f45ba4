package event_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/x-research-team/dtx-logic/bus/event"
)

// Тестовое событие, несущее контекст трассировки.
type tracedEvent struct {
	ID      string
	headers map[string]string
}

func (e tracedEvent) Metadata() map[string]string { return e.headers }

func TestBus_Tracing(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	bus := newBus(event.WithTracerProvider(provider))

	var handlerSpan trace.SpanContext
	_, err := event.Subscribe(bus, func(ctx context.Context, _ tracedEvent) error {
		handlerSpan = trace.SpanContextFromContext(ctx)
		return nil
	}, event.WithName[tracedEvent]("ok"))
	require.NoError(t, err)
	_, err = event.Subscribe(bus, func(context.Context, tracedEvent) error {
		return errors.New("сбой")
	}, event.WithName[tracedEvent]("failing"))
	require.NoError(t, err)

	e := tracedEvent{ID: "1", headers: map[string]string{}}
	require.NoError(t, event.Send(context.Background(), bus, e))

	assert.Contains(t, e.headers, "traceparent", "контекст трассировки должен записываться в метаданные события")

	var publish sdktrace.ReadOnlySpan
	var consume []sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		switch s.Name() {
		case "tracedEvent publish":
			publish = s
		case "tracedEvent process":
			consume = append(consume, s)
		}
	}

	require.NotNil(t, publish, "спан отправки должен быть записан")
	assert.Equal(t, trace.SpanKindProducer, publish.SpanKind())
	require.Len(t, consume, 2, "на каждого подписчика должен создаваться спан доставки")

	for _, s := range consume {
		assert.Equal(t, trace.SpanKindConsumer, s.SpanKind())
		assert.Equal(t, publish.SpanContext().SpanID(), s.Parent().SpanID(), "спан доставки должен быть дочерним к спану отправки")
	}
	assert.Equal(t, publish.SpanContext().TraceID(), handlerSpan.TraceID())
	assert.Equal(t, codes.Error, consume[1].Status().Code)
}

func TestBus_Metrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	bus := newBus(event.WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))

	_, err := event.Subscribe(bus, func(context.Context, UserCreatedEvent) error { return nil }, event.WithName[UserCreatedEvent]("ok"))
	require.NoError(t, err)
	_, err = event.Subscribe(bus, func(context.Context, UserCreatedEvent) error { return errors.New("сбой") }, event.WithName[UserCreatedEvent]("failing"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, event.Send(ctx, bus, UserCreatedEvent{}))
	require.NoError(t, event.Send(ctx, bus, UserCreatedEvent{}))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]metricdata.Sum[int64]{}
	histograms := 0
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				sums[m.Name] = data
			case metricdata.Histogram[float64]:
				if m.Name == "messaging.consume.duration" {
					histograms++
				}
			}
		}
	}

	publish, ok := sums["messaging.publish.count"]
	require.True(t, ok, "счетчик отправок должен быть записан")
	require.Len(t, publish.DataPoints, 1)
	assert.Equal(t, int64(2), publish.DataPoints[0].Value)

	consume, ok := sums["messaging.consume.count"]
	require.True(t, ok, "счетчик доставок должен быть записан")
	byStatus := map[string]int64{}
	for _, dp := range consume.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		byStatus[status.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"success": 2, "error": 2}, byStatus)
	assert.Equal(t, 1, histograms)
}
