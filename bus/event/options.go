package event

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// config содержит неэкспортируемую конфигурацию для шины событий.
type config struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
}

// Option определяет тип для функциональных опций, которые изменяют конфигурацию шины.
type Option func(*config)

// WithLogger возвращает опцию, которая устанавливает логгер для шины событий.
// Логгер используется для записи информации о доставке событий и ошибках подписчиков.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracerProvider возвращает опцию, которая устанавливает провайдер трассировки.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = provider
	}
}

// WithMeterProvider возвращает опцию, которая устанавливает провайдер метрик.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = provider
	}
}

// WithPropagator возвращает опцию, которая устанавливает механизм распространения контекста.
func WithPropagator(propagator propagation.TextMapPropagator) Option {
	return func(c *config) {
		c.propagator = propagator
	}
}

// subscriptionOptions определяет набор параметров для конфигурации конкретной подписки.
type subscriptionOptions[E any] struct {
	// name — имя подписчика для логов и метрик. По умолчанию имя функции-обработчика.
	name string
	// errorHandler вызывается для ошибок и паник обработчика.
	errorHandler ErrorHandler[E]
	// middleware применяется только к данной подписке.
	middleware []Middleware[E]
}

// SubscribeOption — это функциональная опция для настройки подписки.
type SubscribeOption[E any] func(*subscriptionOptions[E])

// WithName задает имя подписчика.
func WithName[E any](name string) SubscribeOption[E] {
	return func(o *subscriptionOptions[E]) {
		o.name = name
	}
}

// WithErrorHandler — опция, позволяющая задать пользовательский обработчик ошибок.
func WithErrorHandler[E any](handler ErrorHandler[E]) SubscribeOption[E] {
	return func(o *subscriptionOptions[E]) {
		o.errorHandler = handler
	}
}

// WithMiddleware добавляет локальные middleware, которые применяются только к данной подписке.
// Middleware выполняются в порядке их добавления.
func WithMiddleware[E any](mw ...Middleware[E]) SubscribeOption[E] {
	return func(o *subscriptionOptions[E]) {
		o.middleware = append(o.middleware, mw...)
	}
}
