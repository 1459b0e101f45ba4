package operation

import (
	"context"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dtx-logic/result"
)

// Initializer дополняет создаваемые фабрикой операции, например
// проставляет идентификатор запроса. Метод получает указатель на
// структуру операции.
type Initializer interface {
	Initialize(op any)
}

// InitializerFunc является адаптером, позволяющим использовать обычные функции как Initializer.
type InitializerFunc func(op any)

// Initialize реализует интерфейс Initializer.
func (f InitializerFunc) Initialize(op any) {
	f(op)
}

// Factory создает операции, прогоняет их через инициализаторы и связывает
// с шиной.
type Factory struct {
	bus          *Bus
	initializers []Initializer
}

// NewFactory создает фабрику операций. Инициализаторы применяются в
// переданном порядке.
func NewFactory(bus *Bus, initializers ...Initializer) *Factory {
	return &Factory{
		bus:          bus,
		initializers: initializers,
	}
}

// Proxy связывает операцию без данных с шиной.
type Proxy[O Operation] struct {
	Operation O
	bus       *Bus
}

// Handle выполняет операцию через связанную шину.
func (p Proxy[O]) Handle(ctx context.Context) (result.Result, error) {
	return p.bus.Handle(ctx, p.Operation)
}

// DataProxy связывает операцию с данными с шиной.
type DataProxy[O DataOperation[T], T any] struct {
	Operation O
	bus       *Bus
}

// Handle выполняет операцию через связанную шину.
func (p DataProxy[O, T]) Handle(ctx context.Context) (result.Of[T], error) {
	return HandleData[T](ctx, p.bus, p.Operation)
}

// Create создает новую операцию O. После инициализаторов фабрики
// вызываются функции init.
func Create[O Operation](f *Factory, init ...func(*O)) Proxy[O] {
	op := newOperation[O]()
	initialize(f, &op, init)
	return Proxy[O]{Operation: op, bus: f.bus}
}

// Use связывает существующую операцию с шиной, прогоняя ее через инициализаторы.
func Use[O Operation](f *Factory, op O, init ...func(*O)) Proxy[O] {
	initialize(f, &op, init)
	return Proxy[O]{Operation: op, bus: f.bus}
}

// CreateData создает новую операцию O, возвращающую данные типа T.
func CreateData[O DataOperation[T], T any](f *Factory, init ...func(*O)) DataProxy[O, T] {
	op := newOperation[O]()
	initialize(f, &op, init)
	return DataProxy[O, T]{Operation: op, bus: f.bus}
}

// UseData связывает существующую операцию с данными с шиной.
func UseData[O DataOperation[T], T any](f *Factory, op O, init ...func(*O)) DataProxy[O, T] {
	initialize(f, &op, init)
	return DataProxy[O, T]{Operation: op, bus: f.bus}
}

func initialize[O any](f *Factory, op *O, init []func(*O)) {
	var target any = op
	// Для операций-указателей инициализаторы получают сам указатель.
	if v := reflect.ValueOf(*op); v.IsValid() && v.Kind() == reflect.Ptr && !v.IsNil() {
		target = *op
	}

	for _, initializer := range f.initializers {
		initializer.Initialize(target)
	}
	for _, fn := range init {
		fn(op)
	}
}

// newOperation возвращает нулевое значение O или, если O является
// указателем, новый экземпляр структуры.
func newOperation[O any]() O {
	var op O
	t := reflect.TypeOf((*O)(nil)).Elem()
	if t.Kind() == reflect.Ptr {
		op = reflect.New(t.Elem()).Interface().(O)
	}
	return op
}
