package event

import (
	"context"
	"sync"

	"github.com/goccy/go-reflect"
	"github.com/google/uuid"
)

// Subscription — это дескриптор подписки. Отмена удаляет подписчика из
// шины синхронно: последующие отправки его не затрагивают.
type Subscription struct {
	id        uuid.UUID
	name      string
	eventType reflect.Type
	bus       *Bus

	// invoke вызывает типизированный обработчик, перехватывая панику.
	invoke func(ctx context.Context, event any) error
	// onError вызывает пользовательский обработчик ошибок, если он задан.
	onError func(err error, event any)

	once sync.Once
	done chan struct{}
}

// ID возвращает уникальный идентификатор подписки.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Name возвращает имя подписчика.
func (s *Subscription) Name() string {
	return s.name
}

// EventType возвращает тип события подписки.
func (s *Subscription) EventType() reflect.Type {
	return s.eventType
}

// Done возвращает канал, который закрывается при отмене подписки или
// закрытии шины.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Cancel отменяет подписку. Повторный вызов, а также вызов после закрытия
// шины ничего не делают.
func (s *Subscription) Cancel() {
	if !s.markCancelled() {
		return
	}
	s.bus.remove(s)
}

// markCancelled закрывает канал Done и сообщает, был ли этот вызов первым.
func (s *Subscription) markCancelled() bool {
	first := false
	s.once.Do(func() {
		close(s.done)
		first = true
	})
	return first
}

// subscriberList — подписчики одного типа событий со своей блокировкой.
type subscriberList struct {
	mu    sync.Mutex
	items []*Subscription
}

func (l *subscriberList) add(s *Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, s)
}

func (l *subscriberList) remove(s *Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, item := range l.items {
		if item == s {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return
		}
	}
}

// snapshot возвращает копию текущего списка подписчиков.
func (l *subscriberList) snapshot() []*Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return nil
	}
	out := make([]*Subscription, len(l.items))
	copy(out, l.items)
	return out
}

// drain очищает список и возвращает подписчиков, которые в нем были.
func (l *subscriberList) drain() []*Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.items
	l.items = nil
	return out
}

func (l *subscriberList) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}
