// Package operation реализует внутрипроцессную шину операций: для каждого
// экземпляра операции находится ровно один зарегистрированный обработчик,
// который возвращает result.Result или result.Of[T].
//
// Операции объявляются встраиванием маркеров Void или Returns[T]:
//
//	type RenameUser struct {
//		operation.Void
//		ID   string
//		Name string
//	}
//
// Описание соответствия операции и контракта обработчика создается явно при
// регистрации (Register, RegisterData), а экземпляр обработчика при каждом
// вызове запрашивается у resolve.Resolver.
package operation

// Category определяет вид операции. Он используется только для выбора
// контракта обработчика.
type Category int

const (
	// CategoryOperation обозначает операцию общего вида.
	CategoryOperation Category = iota
	// CategoryCommand обозначает команду.
	CategoryCommand
	// CategoryQuery обозначает запрос.
	CategoryQuery
)

// String возвращает имя категории.
func (c Category) String() string {
	switch c {
	case CategoryOperation:
		return "operation"
	case CategoryCommand:
		return "command"
	case CategoryQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Categorized реализуется всеми операциями.
type Categorized interface {
	OperationCategory() Category
}

// Operation — операция, не возвращающая данных.
type Operation interface {
	Categorized
	void()
}

// DataOperation — операция, возвращающая данные типа T.
type DataOperation[T any] interface {
	Categorized
	returns(T)
}

// Void встраивается в операции без возвращаемых данных.
type Void struct{}

// OperationCategory реализует Categorized.
func (Void) OperationCategory() Category { return CategoryOperation }

func (Void) void() {}

// Returns встраивается в операции, возвращающие данные типа T.
type Returns[T any] struct{}

// OperationCategory реализует Categorized.
func (Returns[T]) OperationCategory() Category { return CategoryOperation }

func (Returns[T]) returns(T) {}

// Metadatable определяет интерфейс для операций, которые несут метаданные,
// например контекст трассировки.
type Metadatable interface {
	Metadata() map[string]string
}
