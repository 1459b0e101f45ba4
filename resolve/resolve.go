// Package resolve описывает контракт получения экземпляров обработчиков и
// правил по типу контракта. Сборка зависимостей остается задачей приложения:
// шины и валидатор принимают любой Resolver, а Container служит простой
// реализацией на основе карты фабрик.
package resolve

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-reflect"
)

// ErrAlreadyRegistered возвращается при повторной регистрации фабрики для
// одного и того же контракта.
var ErrAlreadyRegistered = errors.New("фабрика уже зарегистрирована")

// Resolver возвращает экземпляр, реализующий контракт. Второй результат
// равен false, если реализация отсутствует.
type Resolver interface {
	Resolve(contract reflect.Type) (any, bool)
}

// Func является адаптером, позволяющим использовать обычную функцию как Resolver.
type Func func(contract reflect.Type) (any, bool)

// Resolve реализует интерфейс Resolver.
func (f Func) Resolve(contract reflect.Type) (any, bool) {
	return f(contract)
}

// ContractOf возвращает тип контракта C. Для интерфейсов это сам интерфейс,
// а не тип nil-значения.
func ContractOf[C any]() reflect.Type {
	return reflect.TypeOf((*C)(nil)).Elem()
}

// Container — потокобезопасная реализация Resolver, хранящая по одной
// фабрике на контракт. Фабрика вызывается при каждом разрешении.
type Container struct {
	factories map[reflect.Type]func() any
	mu        sync.RWMutex
}

// NewContainer создает пустой контейнер.
func NewContainer() *Container {
	return &Container{
		factories: make(map[reflect.Type]func() any),
	}
}

// Register регистрирует фабрику для контракта.
func (c *Container) Register(contract reflect.Type, factory func() any) error {
	if factory == nil {
		return fmt.Errorf("фабрика для контракта '%s' не задана", contract)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.factories[contract]; exists {
		return fmt.Errorf("%w: контракт '%s'", ErrAlreadyRegistered, contract)
	}
	c.factories[contract] = factory
	return nil
}

// Resolve реализует интерфейс Resolver.
func (c *Container) Resolve(contract reflect.Type) (any, bool) {
	c.mu.RLock()
	factory, ok := c.factories[contract]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	instance := factory()
	return instance, instance != nil
}

// Provide регистрирует строго типизированную фабрику для контракта C.
func Provide[C any](c *Container, factory func() C) error {
	if factory == nil {
		return fmt.Errorf("фабрика для контракта '%s' не задана", ContractOf[C]())
	}
	return c.Register(ContractOf[C](), func() any { return factory() })
}

// Instance регистрирует один и тот же экземпляр для контракта C.
func Instance[C any](c *Container, instance C) error {
	return Provide(c, func() C { return instance })
}

// Get разрешает контракт C и приводит результат к нужному типу.
func Get[C any](r Resolver) (C, bool) {
	var zero C
	raw, ok := r.Resolve(ContractOf[C]())
	if !ok {
		return zero, false
	}
	typed, ok := raw.(C)
	return typed, ok
}
