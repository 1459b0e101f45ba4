package operation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dtx-logic/resolve"
	"github.com/x-research-team/dtx-logic/result"
)

// Bus выполняет операции, находя для каждой ровно один обработчик.
// Описания операций хранятся в реестре шины, экземпляры обработчиков
// при каждом вызове запрашиваются у резолвера.
type Bus struct {
	registry   *Registry
	dispatcher Dispatcher
	cfg        *config
}

// NewBus создает новую шину операций.
func NewBus(resolver resolve.Resolver, opts ...Option) (*Bus, error) {
	if resolver == nil {
		return nil, errors.New("резолвер обработчиков не задан")
	}

	cfg := &config{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.registry == nil {
		cfg.registry = NewRegistry()
	}

	base := &localDispatcher{
		registry: cfg.registry,
		resolver: resolver,
		logger:   cfg.logger,
	}

	allMiddlewares := []Middleware{
		NewLoggingMiddleware(cfg.logger),
		NewMetricsMiddleware(cfg.meterProvider),
		NewTracingMiddleware(cfg.tracerProvider, cfg.propagator),
	}
	allMiddlewares = append(allMiddlewares, cfg.middlewares...)

	return &Bus{
		registry:   cfg.registry,
		dispatcher: applyMiddlewares(base, allMiddlewares...),
		cfg:        cfg,
	}, nil
}

// Registry возвращает реестр описаний шины.
func (b *Bus) Registry() *Registry {
	return b.registry
}

// Handle выполняет операцию без возвращаемых данных и возвращает результат
// обработчика без изменений.
func (b *Bus) Handle(ctx context.Context, op Operation) (result.Result, error) {
	out, err := b.dispatch(ctx, op, false)
	if err != nil {
		return result.Result{}, err
	}

	r, ok := out.(result.Result)
	if !ok {
		return result.Result{}, fmt.Errorf("%w: обработчик операции '%s' вернул '%s'", ErrContractMismatch, reflect.TypeOf(op), reflect.TypeOf(out))
	}
	return r, nil
}

// HandleData выполняет операцию, возвращающую данные типа T.
func HandleData[T any](ctx context.Context, b *Bus, op DataOperation[T]) (result.Of[T], error) {
	out, err := b.dispatch(ctx, op, true)
	if err != nil {
		return result.Of[T]{}, err
	}

	r, ok := out.(result.Of[T])
	if !ok {
		return result.Of[T]{}, fmt.Errorf("%w: обработчик операции '%s' вернул '%s'", ErrContractMismatch, reflect.TypeOf(op), reflect.TypeOf(out))
	}
	return r, nil
}

func (b *Bus) dispatch(ctx context.Context, op Categorized, withData bool) (result.Outcome, error) {
	if isNil(op) {
		return nil, ErrNilOperation
	}

	opType := reflect.TypeOf(op)
	if d, ok := b.registry.Lookup(opType); ok {
		if d.HasData() != withData {
			return nil, fmt.Errorf("%w: операция '%s' зарегистрирована с другим видом результата", ErrContractMismatch, opType)
		}
		if category := op.OperationCategory(); d.Category != category {
			return nil, fmt.Errorf("%w: операция '%s' категории '%s' зарегистрирована как '%s'", ErrContractMismatch, opType, category, d.Category)
		}
	}

	return b.dispatcher.Dispatch(ctx, op)
}

// localDispatcher — базовый диспетчер, который находит описание операции
// и разрешает обработчик.
type localDispatcher struct {
	registry *Registry
	resolver resolve.Resolver
	logger   *slog.Logger
}

// Dispatch реализует интерфейс Dispatcher.
func (d *localDispatcher) Dispatch(ctx context.Context, op any) (result.Outcome, error) {
	opType := reflect.TypeOf(op)

	desc, ok := d.registry.Lookup(opType)
	if !ok {
		return nil, fmt.Errorf("%w: операция '%s' не зарегистрирована", ErrNoHandler, opType)
	}

	handler, ok := d.resolver.Resolve(desc.Contract)
	if !ok || handler == nil {
		return nil, fmt.Errorf("%w: обработчик для операции '%s' не найден", ErrNoHandler, opType)
	}

	if d.logger != nil {
		d.logger.Debug("вызов обработчика",
			slog.String("handler", getHandlerName(handler)),
			slog.String("operation_type", opType.String()),
		)
	}

	return desc.Invoke(ctx, handler, op)
}

func isNil(op any) bool {
	if op == nil {
		return true
	}
	v := reflect.ValueOf(op)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
