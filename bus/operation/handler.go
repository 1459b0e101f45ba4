package operation

import (
	"context"

	"github.com/x-research-team/dtx-logic/result"
)

// Handler обрабатывает операцию O без возвращаемых данных.
type Handler[O Operation] interface {
	Handle(ctx context.Context, op O) (result.Result, error)
}

// DataHandler обрабатывает операцию O, возвращающую данные типа T.
type DataHandler[O DataOperation[T], T any] interface {
	Handle(ctx context.Context, op O) (result.Of[T], error)
}

// HandlerFunc является адаптером, позволяющим использовать обычную функцию как Handler.
type HandlerFunc[O Operation] func(ctx context.Context, op O) (result.Result, error)

// Handle реализует интерфейс Handler.
func (f HandlerFunc[O]) Handle(ctx context.Context, op O) (result.Result, error) {
	return f(ctx, op)
}

// DataHandlerFunc является адаптером, позволяющим использовать обычную функцию как DataHandler.
type DataHandlerFunc[O DataOperation[T], T any] func(ctx context.Context, op O) (result.Of[T], error)

// Handle реализует интерфейс DataHandler.
func (f DataHandlerFunc[O, T]) Handle(ctx context.Context, op O) (result.Of[T], error) {
	return f(ctx, op)
}
