package result

import "sync/atomic"

// Factory создает базовые результаты. Все конструкторы пакета (Success,
// Failure и их типизированные варианты) обращаются к текущей фабрике, что
// позволяет приложению, например, штамповать общие метаданные.
type Factory interface {
	// Success создает успешный результат.
	Success(metadata Metadata) Result
	// Failure создает неуспешный результат.
	Failure(errors Errors, metadata Metadata) Result
}

// FactoryFuncs адаптирует пару функций к интерфейсу Factory.
type FactoryFuncs struct {
	SuccessFunc func(metadata Metadata) Result
	FailureFunc func(errors Errors, metadata Metadata) Result
}

// Success реализует Factory.
func (f FactoryFuncs) Success(metadata Metadata) Result {
	return f.SuccessFunc(metadata)
}

// Failure реализует Factory.
func (f FactoryFuncs) Failure(errors Errors, metadata Metadata) Result {
	return f.FailureFunc(errors, metadata)
}

type defaultFactory struct{}

func (defaultFactory) Success(metadata Metadata) Result {
	return New(true, nil, metadata)
}

func (defaultFactory) Failure(errors Errors, metadata Metadata) Result {
	return New(false, errors, metadata)
}

// DefaultFactory возвращает фабрику по умолчанию.
func DefaultFactory() Factory {
	return defaultFactory{}
}

type factoryHolder struct {
	factory Factory
}

var current atomic.Pointer[factoryHolder]

func init() {
	current.Store(&factoryHolder{factory: defaultFactory{}})
}

// SetFactory устанавливает фабрику процесса и возвращает предыдущую.
// Вызывается один раз при старте приложения, до создания первых результатов.
// nil восстанавливает фабрику по умолчанию.
func SetFactory(f Factory) Factory {
	if f == nil {
		f = defaultFactory{}
	}
	prev := current.Swap(&factoryHolder{factory: f})
	return prev.factory
}

// CurrentFactory возвращает действующую фабрику.
func CurrentFactory() Factory {
	return current.Load().factory
}
