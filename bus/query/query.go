// Package query добавляет к шине операций категорию запросов. Запрос
// всегда возвращает данные и не должен изменять состояние.
package query

import (
	"context"

	"github.com/x-research-team/dtx-logic/bus/operation"
	"github.com/x-research-team/dtx-logic/result"
)

// Query представляет собой интерфейс-маркер для запроса, параметризованный
// типом возвращаемого значения T. Реализуется встраиванием Returns[T].
type Query[T any] interface {
	operation.DataOperation[T]
	query()
}

// Returns встраивается в запросы, возвращающие данные типа T.
type Returns[T any] struct {
	operation.Returns[T]
}

// OperationCategory реализует operation.Categorized.
func (Returns[T]) OperationCategory() operation.Category { return operation.CategoryQuery }

func (Returns[T]) query() {}

// Handler определяет контракт обработчика запроса Q, возвращающего данные типа T.
type Handler[Q Query[T], T any] interface {
	Handle(ctx context.Context, q Q) (result.Of[T], error)
}

// HandlerFunc является адаптером, позволяющим использовать обычную функцию как Handler.
type HandlerFunc[Q Query[T], T any] func(ctx context.Context, q Q) (result.Of[T], error)

// Handle реализует интерфейс Handler.
func (f HandlerFunc[Q, T]) Handle(ctx context.Context, q Q) (result.Of[T], error) {
	return f(ctx, q)
}
