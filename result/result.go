// Package result определяет единый тип исхода выполнения операций: признак
// успеха, сгруппированные по ключам ошибки, произвольные метаданные и, для
// типизированного варианта, данные. Значения Result неизменяемы: все
// комбинаторы возвращают новые экземпляры, а аксессоры отдают копии
// внутренних коллекций.
package result

// Outcome описывает общий контракт для Result и Of[T]. Он используется
// комбинаторами, которым безразличен тип данных исхода.
type Outcome interface {
	// Succeeded сообщает, завершилась ли операция успешно.
	Succeeded() bool
	// Errors возвращает копию словаря ошибок.
	Errors() Errors
	// Metadata возвращает копию дополнительных метаданных.
	Metadata() Metadata
}

// Result представляет исход операции без возвращаемых данных.
// Нулевое значение соответствует неуспешному исходу без ошибок; создавайте
// результаты через Success, Failure или фабрику.
type Result struct {
	succeeded bool
	errors    Errors
	metadata  Metadata
}

// New создает результат напрямую, минуя текущую фабрику. Предназначен для
// реализаций Factory. Переданные коллекции копируются.
func New(succeeded bool, errors Errors, metadata Metadata) Result {
	return Result{
		succeeded: succeeded,
		errors:    errors.Clone(),
		metadata:  metadata.Clone(),
	}
}

// Succeeded сообщает, завершилась ли операция успешно.
func (r Result) Succeeded() bool {
	return r.succeeded
}

// Failed сообщает, завершилась ли операция неуспешно.
func (r Result) Failed() bool {
	return !r.succeeded
}

// Errors возвращает копию словаря ошибок.
func (r Result) Errors() Errors {
	return r.errors.Clone()
}

// Metadata возвращает копию метаданных.
func (r Result) Metadata() Metadata {
	return r.metadata.Clone()
}

// Of представляет исход операции, возвращающей данные типа T.
type Of[T any] struct {
	Result
	data T
}

// Data возвращает данные результата. Для неуспешного результата это, как
// правило, нулевое значение T.
func (r Of[T]) Data() T {
	return r.data
}

// Untyped отбрасывает данные и возвращает базовый результат.
func (r Of[T]) Untyped() Result {
	return r.Result
}

// Option настраивает создаваемый результат.
type Option func(*options)

type options struct {
	metadata Metadata
}

// WithMetadata добавляет к создаваемому результату метаданные.
// Повторные вызовы объединяют словари, при совпадении ключей побеждает
// последнее значение.
func WithMetadata(md Metadata) Option {
	return func(o *options) {
		if o.metadata == nil {
			o.metadata = make(Metadata, len(md))
		}
		for k, v := range md {
			o.metadata[k] = v
		}
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Success создает успешный результат без данных.
func Success(opts ...Option) Result {
	o := applyOptions(opts)
	return CurrentFactory().Success(o.metadata)
}

// Failure создает неуспешный результат с указанными ошибками.
func Failure(errors Errors, opts ...Option) Result {
	o := applyOptions(opts)
	return CurrentFactory().Failure(errors, o.metadata)
}

// FailureKey создает неуспешный результат с единственным ключом ошибки.
func FailureKey(key string, messages ...string) Result {
	return Failure(NewErrors().Add(key, messages...))
}

// SuccessOf создает успешный результат с данными.
func SuccessOf[T any](data T, opts ...Option) Of[T] {
	return Of[T]{Result: Success(opts...), data: data}
}

// FailureOf создает неуспешный типизированный результат.
func FailureOf[T any](errors Errors, opts ...Option) Of[T] {
	return Of[T]{Result: Failure(errors, opts...)}
}

// Paged создает успешный результат с метаданными пагинации offset и limit.
func Paged[T any](data T, offset, limit int) Of[T] {
	return SuccessOf(data, WithMetadata(Metadata{
		MetadataOffset: offset,
		MetadataLimit:  limit,
	}))
}
