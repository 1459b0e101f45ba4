package operation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-reflect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/x-research-team/dtx-logic/result"
)

const (
	instrumentationName    = "github.com/x-research-team/dtx-logic/bus/operation"
	instrumentationVersion = "0.1.0"
	metricKeyPrefix        = "messaging."
)

// Статусы выполнения, используемые в метриках и логах.
const (
	statusSuccess = "success"
	statusFailure = "failure"
	statusError   = "error"
)

// Dispatcher выполняет операцию и возвращает ее исход. Базовый диспетчер
// шины находит описание и обработчик, middleware оборачивают его.
type Dispatcher interface {
	Dispatch(ctx context.Context, op any) (result.Outcome, error)
}

// DispatcherFunc является адаптером, позволяющим использовать обычные функции как Dispatcher.
type DispatcherFunc func(ctx context.Context, op any) (result.Outcome, error)

// Dispatch реализует интерфейс Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, op any) (result.Outcome, error) {
	return f(ctx, op)
}

// Middleware определяет интерфейс для middleware шины операций.
type Middleware interface {
	Wrap(next Dispatcher) Dispatcher
}

// MiddlewareFunc является адаптером, позволяющим использовать обычные функции как middleware.
type MiddlewareFunc func(next Dispatcher) Dispatcher

// Wrap реализует интерфейс Middleware.
func (f MiddlewareFunc) Wrap(next Dispatcher) Dispatcher {
	return f(next)
}

// loggingMiddleware реализует Middleware для логирования выполнения операций.
type loggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware создает новое middleware для логирования.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		return &noopMiddleware{}
	}
	return &loggingMiddleware{
		logger: logger,
	}
}

// Wrap оборачивает диспетчер для добавления логирования.
func (m *loggingMiddleware) Wrap(next Dispatcher) Dispatcher {
	return DispatcherFunc(func(ctx context.Context, op any) (out result.Outcome, err error) {
		opType, opID := getOperationTypeAndID(op)
		m.logger.Debug("выполнение операции", slog.String("operation_type", opType), slog.String("operation_id", opID))

		startTime := time.Now()
		defer func() {
			duration := time.Since(startTime)
			if err != nil {
				m.logger.Error("ошибка выполнения операции",
					slog.String("operation_type", opType),
					slog.String("operation_id", opID),
					slog.Any("error", err),
					slog.Duration("duration", duration),
				)
				return
			}
			m.logger.Debug("операция выполнена",
				slog.String("operation_type", opType),
				slog.String("status", outcomeStatus(out, nil)),
				slog.Duration("duration", duration),
			)
		}()

		return next.Dispatch(ctx, op)
	})
}

// metricsMiddleware реализует Middleware для сбора метрик OpenTelemetry.
type metricsMiddleware struct {
	dispatchCounter     metric.Int64Counter
	processDurationHist metric.Float64Histogram
}

// NewMetricsMiddleware создает новое middleware для сбора метрик.
func NewMetricsMiddleware(provider metric.MeterProvider) Middleware {
	if provider == nil {
		return &noopMiddleware{}
	}

	meter := provider.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion))

	dispatchCounter, err := meter.Int64Counter(
		metricKeyPrefix+"dispatch.count",
		metric.WithDescription("Количество выполненных операций"),
		metric.WithUnit("{operations}"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать счетчик dispatch.count: %v", err))
	}

	processDurationHist, err := meter.Float64Histogram(
		metricKeyPrefix+"process.duration",
		metric.WithDescription("Длительность обработки операции"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать гистограмму process.duration: %v", err))
	}

	return &metricsMiddleware{
		dispatchCounter:     dispatchCounter,
		processDurationHist: processDurationHist,
	}
}

// Wrap оборачивает диспетчер для добавления сбора метрик.
func (m *metricsMiddleware) Wrap(next Dispatcher) Dispatcher {
	return DispatcherFunc(func(ctx context.Context, op any) (result.Outcome, error) {
		startTime := time.Now()
		out, err := next.Dispatch(ctx, op)
		duration := float64(time.Since(startTime).Milliseconds())

		opType, _ := getOperationTypeAndID(op)
		attrs := metric.WithAttributes(
			attribute.String("operation.type", opType),
			attribute.String("operation.category", getCategory(op).String()),
			attribute.String("status", outcomeStatus(out, err)),
		)

		m.dispatchCounter.Add(ctx, 1, attrs)
		m.processDurationHist.Record(ctx, duration, attrs)

		return out, err
	})
}

// tracingMiddleware реализует Middleware для трассировки OpenTelemetry.
type tracingMiddleware struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracingMiddleware создает новое middleware для трассировки.
func NewTracingMiddleware(tp trace.TracerProvider, p propagation.TextMapPropagator) Middleware {
	if tp == nil {
		return &noopMiddleware{}
	}

	if p == nil {
		p = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	}

	return &tracingMiddleware{
		tracer: tp.Tracer(
			instrumentationName,
			trace.WithInstrumentationVersion(instrumentationVersion),
		),
		propagator: p,
	}
}

// Wrap оборачивает диспетчер для создания спана на каждую операцию.
// Если операция несет метаданные, из них извлекается родительский контекст.
func (m *tracingMiddleware) Wrap(next Dispatcher) Dispatcher {
	return DispatcherFunc(func(ctx context.Context, op any) (out result.Outcome, err error) {
		if md, ok := op.(Metadatable); ok {
			ctx = m.propagator.Extract(ctx, propagation.MapCarrier(md.Metadata()))
		}

		opType, _ := getOperationTypeAndID(op)
		spanName := fmt.Sprintf("%s process", opType)

		ctx, span := m.tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("operation.type", opType),
				attribute.String("operation.category", getCategory(op).String()),
			),
		)
		defer func() {
			status := outcomeStatus(out, err)
			span.SetAttributes(attribute.String("status", status))
			switch status {
			case statusError:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case statusFailure:
				span.SetStatus(codes.Error, "операция завершилась неуспешно")
			}
			span.End()
		}()

		return next.Dispatch(ctx, op)
	})
}

// applyMiddlewares применяет цепочку middleware к базовому диспетчеру.
func applyMiddlewares(dispatcher Dispatcher, middlewares ...Middleware) Dispatcher {
	d := dispatcher
	for i := len(middlewares) - 1; i >= 0; i-- {
		d = middlewares[i].Wrap(d)
	}
	return d
}

// noopMiddleware представляет собой пустое middleware.
type noopMiddleware struct{}

// Wrap просто возвращает следующий диспетчер без изменений.
func (m *noopMiddleware) Wrap(next Dispatcher) Dispatcher {
	return next
}

func outcomeStatus(out result.Outcome, err error) string {
	switch {
	case err != nil:
		return statusError
	case out == nil || !out.Succeeded():
		return statusFailure
	default:
		return statusSuccess
	}
}

func getCategory(op any) Category {
	if c, ok := op.(Categorized); ok {
		return c.OperationCategory()
	}
	return CategoryOperation
}

// getOperationTypeAndID извлекает тип и ID операции с помощью рефлексии.
func getOperationTypeAndID(op any) (string, string) {
	val := reflect.ValueOf(op)
	if !val.IsValid() {
		return "<nil>", "unknown"
	}
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return val.Type().String(), "unknown"
		}
		val = val.Elem()
	}

	opType := val.Type().Name()
	if opType == "" {
		opType = val.Type().String()
	}
	opID := "unknown"

	if val.Kind() == reflect.Struct {
		if idField := val.FieldByName("ID"); idField.IsValid() && idField.CanInterface() {
			opID = fmt.Sprintf("%v", idField.Interface())
		}
	}

	return opType, opID
}

// getHandlerName возвращает имя типа обработчика для логов.
func getHandlerName(handler any) string {
	if handler == nil {
		return "<nil>"
	}
	return reflect.TypeOf(handler).String()
}
