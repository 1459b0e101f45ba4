package operation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-reflect"

	"github.com/x-research-team/dtx-logic/resolve"
	"github.com/x-research-team/dtx-logic/result"
)

var (
	// ErrNoHandler возвращается, если для операции не зарегистрировано
	// описание или резолвер не вернул обработчик.
	ErrNoHandler = errors.New("обработчик не найден")
	// ErrNilOperation возвращается при передаче nil вместо операции.
	ErrNilOperation = errors.New("операция не задана")
	// ErrAlreadyRegistered возвращается при попытке зарегистрировать для
	// операции другой контракт обработчика.
	ErrAlreadyRegistered = errors.New("обработчик уже зарегистрирован")
	// ErrContractMismatch возвращается, если операция передана в шину не
	// через тот контракт, с которым она была зарегистрирована.
	ErrContractMismatch = errors.New("несоответствие контракта обработчика")
)

// Invoker вызывает обработчик для операции. Оба аргумента передаются
// без типа и приводятся внутри.
type Invoker func(ctx context.Context, handler any, op any) (result.Outcome, error)

// Descriptor описывает, как выполнить операцию конкретного типа.
type Descriptor struct {
	// OperationType — конкретный тип операции.
	OperationType reflect.Type
	// Category — категория контракта обработчика.
	Category Category
	// Contract — тип контракта, по которому разрешается обработчик.
	Contract reflect.Type
	// DataType — тип возвращаемых данных, nil для операций без данных.
	DataType reflect.Type
	// Invoke вызывает обработчик.
	Invoke Invoker
}

// HasData сообщает, возвращает ли операция данные.
func (d Descriptor) HasData() bool {
	return d.DataType != nil
}

// Registry хранит описания операций по их конкретному типу. Регистрация
// безопасна для конкурентного использования, для каждого типа сохраняется
// первое описание.
type Registry struct {
	descriptors sync.Map
}

// NewRegistry создает пустой реестр.
func NewRegistry() *Registry {
	return &Registry{}
}

// Define сохраняет описание. Повторная регистрация с тем же контрактом
// не является ошибкой.
func (r *Registry) Define(d Descriptor) error {
	if d.OperationType == nil || d.Contract == nil || d.Invoke == nil {
		return errors.New("описание операции заполнено не полностью")
	}

	stored, loaded := r.descriptors.LoadOrStore(d.OperationType, d)
	if !loaded {
		return nil
	}

	existing := stored.(Descriptor)
	if existing.Contract != d.Contract {
		return fmt.Errorf("%w: операция '%s' уже связана с контрактом '%s'", ErrAlreadyRegistered, d.OperationType, existing.Contract)
	}
	return nil
}

// Lookup возвращает описание для типа операции.
func (r *Registry) Lookup(operationType reflect.Type) (Descriptor, bool) {
	stored, ok := r.descriptors.Load(operationType)
	if !ok {
		return Descriptor{}, false
	}
	return stored.(Descriptor), true
}

// Len возвращает количество зарегистрированных операций.
func (r *Registry) Len() int {
	n := 0
	r.descriptors.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Describe строит описание операции O, обработчик которой разрешается по
// контракту H. Используется пакетами категорий для объявления собственных
// контрактов.
func Describe[O any, H any](category Category, dataType reflect.Type, invoke func(ctx context.Context, h H, op O) (result.Outcome, error)) Descriptor {
	opType := reflect.TypeOf((*O)(nil)).Elem()
	contract := resolve.ContractOf[H]()

	return Descriptor{
		OperationType: opType,
		Category:      category,
		Contract:      contract,
		DataType:      dataType,
		Invoke: func(ctx context.Context, handler any, op any) (result.Outcome, error) {
			h, ok := handler.(H)
			if !ok {
				return nil, fmt.Errorf("%w: '%s' не реализует '%s'", ErrContractMismatch, reflect.TypeOf(handler), contract)
			}
			o, ok := op.(O)
			if !ok {
				return nil, fmt.Errorf("%w: ожидалась операция '%s', получена '%s'", ErrContractMismatch, opType, reflect.TypeOf(op))
			}
			return invoke(ctx, h, o)
		},
	}
}

// DataTypeOf возвращает тип данных T для описания операции с данными.
func DataTypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Register регистрирует операцию O с контрактом Handler[O].
func Register[O Operation](r *Registry) error {
	return r.Define(Describe(CategoryOperation, nil, func(ctx context.Context, h Handler[O], op O) (result.Outcome, error) {
		return h.Handle(ctx, op)
	}))
}

// RegisterData регистрирует операцию O с контрактом DataHandler[O, T].
func RegisterData[O DataOperation[T], T any](r *Registry) error {
	return r.Define(Describe(CategoryOperation, DataTypeOf[T](), func(ctx context.Context, h DataHandler[O, T], op O) (result.Outcome, error) {
		return h.Handle(ctx, op)
	}))
}

// Bind регистрирует операцию O и фабрику ее обработчика в контейнере.
func Bind[O Operation](r *Registry, c *resolve.Container, factory func() Handler[O]) error {
	if err := Register[O](r); err != nil {
		return err
	}
	return resolve.Provide(c, factory)
}

// BindData регистрирует операцию O с данными и фабрику ее обработчика в контейнере.
func BindData[O DataOperation[T], T any](r *Registry, c *resolve.Container, factory func() DataHandler[O, T]) error {
	if err := RegisterData[O, T](r); err != nil {
		return err
	}
	return resolve.Provide(c, factory)
}
