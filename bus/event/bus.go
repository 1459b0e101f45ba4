package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goccy/go-reflect"
	"github.com/google/uuid"
)

// Bus — внутрипроцессная шина событий. Все вызовы обработчиков выполняются
// в горутине отправителя.
type Bus struct {
	// mu защищает признак disposed и проверяется перед каждым изменением.
	mu       sync.RWMutex
	disposed bool

	// subscribers хранит *subscriberList по типу события.
	subscribers sync.Map

	logger    *slog.Logger
	telemetry *telemetry
}

// NewBus создает новую шину событий.
func NewBus(opts ...Option) *Bus {
	cfg := &config{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return &Bus{
		logger:    cfg.logger,
		telemetry: newTelemetry(cfg),
	}
}

// Subscribe подписывает обработчик на события типа E.
func Subscribe[E any](b *Bus, handler Handler[E], opts ...SubscribeOption[E]) (*Subscription, error) {
	if handler == nil {
		return nil, errors.New("обработчик события не задан")
	}

	subOpts := &subscriptionOptions[E]{}
	for _, opt := range opts {
		opt(subOpts)
	}

	name := subOpts.name
	if name == "" {
		name = getHandlerName(handler)
	}

	final := handler
	for i := len(subOpts.middleware) - 1; i >= 0; i-- {
		final = subOpts.middleware[i](final)
	}

	sub := &Subscription{
		id:        uuid.New(),
		name:      name,
		eventType: typeOf[E](),
		bus:       b,
		done:      make(chan struct{}),
		invoke: func(ctx context.Context, event any) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
				}
			}()
			typed, _ := event.(E)
			return final(ctx, typed)
		},
	}
	if subOpts.errorHandler != nil {
		errorHandler := subOpts.errorHandler
		sub.onError = func(err error, event any) {
			typed, _ := event.(E)
			errorHandler(err, typed)
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.disposed {
		return nil, ErrDisposed
	}

	list, _ := b.subscribers.LoadOrStore(sub.eventType, &subscriberList{})
	list.(*subscriberList).add(sub)

	b.logger.Debug("подписка на событие",
		slog.String("event_type", sub.eventType.String()),
		slog.String("handler_name", name),
		slog.String("subscription_id", sub.id.String()),
	)

	return sub, nil
}

// Send доставляет событие всем текущим подписчикам типа E. Ошибки
// подписчиков не возвращаются: они логируются и передаются в ErrorHandler
// подписки.
func Send[E any](ctx context.Context, b *Bus, event E) error {
	eventType := typeOf[E]()

	b.mu.RLock()
	if b.disposed {
		b.mu.RUnlock()
		return ErrDisposed
	}
	var snapshot []*Subscription
	if list, ok := b.subscribers.Load(eventType); ok {
		snapshot = list.(*subscriberList).snapshot()
	}
	b.mu.RUnlock()

	ctx, finish := b.telemetry.publish(ctx, eventType, event, len(snapshot))
	defer finish()

	// Снимок доставляется целиком, даже если подписка отменена или шина
	// закрыта во время доставки.
	for _, sub := range snapshot {
		b.deliver(ctx, sub, event)
	}

	return nil
}

// SubscriberCount возвращает количество текущих подписчиков типа E.
func SubscriberCount[E any](b *Bus) int {
	list, ok := b.subscribers.Load(typeOf[E]())
	if !ok {
		return 0
	}
	return list.(*subscriberList).len()
}

// Close закрывает шину: отменяет все подписки и очищает коллекции.
// Повторный вызов возвращает ErrDisposed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disposed {
		return ErrDisposed
	}
	b.disposed = true

	var cancelled int
	b.subscribers.Range(func(key, value any) bool {
		for _, sub := range value.(*subscriberList).drain() {
			sub.markCancelled()
			cancelled++
		}
		b.subscribers.Delete(key)
		return true
	})

	b.logger.Debug("шина событий закрыта", slog.Int("cancelled_subscriptions", cancelled))
	return nil
}

// remove удаляет подписку. После закрытия шины ничего не делает.
func (b *Bus) remove(s *Subscription) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.disposed {
		return
	}
	if list, ok := b.subscribers.Load(s.eventType); ok {
		list.(*subscriberList).remove(s)
	}
}

// deliver вызывает одного подписчика и изолирует его сбой.
func (b *Bus) deliver(ctx context.Context, sub *Subscription, event any) {
	ctx, finish := b.telemetry.consume(ctx, sub, event)
	err := sub.invoke(ctx, event)
	finish(err)

	if err == nil {
		return
	}

	b.logger.Error("ошибка обработки события",
		slog.String("event_type", sub.eventType.String()),
		slog.String("handler_name", sub.name),
		slog.String("subscription_id", sub.id.String()),
		slog.Any("error", err),
	)

	if sub.onError != nil {
		b.reportError(sub, err, event)
	}
}

func (b *Bus) reportError(sub *Subscription, err error, event any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("паника в обработчике ошибок подписки",
				slog.String("handler_name", sub.name),
				slog.Any("panic", r),
			)
		}
	}()
	sub.onError(err, event)
}

func typeOf[E any]() reflect.Type {
	return reflect.TypeOf((*E)(nil)).Elem()
}
