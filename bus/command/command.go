// Package command добавляет к шине операций категорию команд. Команды
// изменяют состояние и регистрируются с собственными контрактами
// обработчиков, отличными от контрактов операций общего вида.
package command

import (
	"context"

	"github.com/x-research-team/dtx-logic/bus/operation"
	"github.com/x-research-team/dtx-logic/result"
)

// Command представляет собой интерфейс-маркер для команды без возвращаемых данных.
// Реализуется встраиванием Base.
type Command interface {
	operation.Operation
	command()
}

// DataCommand представляет собой команду, возвращающую данные типа T.
// Реализуется встраиванием Returns[T].
type DataCommand[T any] interface {
	operation.DataOperation[T]
	command()
}

// Base встраивается в команды без возвращаемых данных.
type Base struct {
	operation.Void
}

// OperationCategory реализует operation.Categorized.
func (Base) OperationCategory() operation.Category { return operation.CategoryCommand }

func (Base) command() {}

// Returns встраивается в команды, возвращающие данные типа T.
type Returns[T any] struct {
	operation.Returns[T]
}

// OperationCategory реализует operation.Categorized.
func (Returns[T]) OperationCategory() operation.Category { return operation.CategoryCommand }

func (Returns[T]) command() {}

// Handler определяет контракт обработчика команды C.
type Handler[C Command] interface {
	Handle(ctx context.Context, cmd C) (result.Result, error)
}

// DataHandler определяет контракт обработчика команды C, возвращающей данные типа T.
type DataHandler[C DataCommand[T], T any] interface {
	Handle(ctx context.Context, cmd C) (result.Of[T], error)
}

// HandlerFunc является адаптером, позволяющим использовать обычную функцию как Handler.
type HandlerFunc[C Command] func(ctx context.Context, cmd C) (result.Result, error)

// Handle реализует интерфейс Handler.
func (f HandlerFunc[C]) Handle(ctx context.Context, cmd C) (result.Result, error) {
	return f(ctx, cmd)
}

// DataHandlerFunc является адаптером, позволяющим использовать обычную функцию как DataHandler.
type DataHandlerFunc[C DataCommand[T], T any] func(ctx context.Context, cmd C) (result.Of[T], error)

// Handle реализует интерфейс DataHandler.
func (f DataHandlerFunc[C, T]) Handle(ctx context.Context, cmd C) (result.Of[T], error) {
	return f(ctx, cmd)
}
