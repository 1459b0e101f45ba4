package query

import (
	"context"

	"github.com/x-research-team/dtx-logic/bus/operation"
	"github.com/x-research-team/dtx-logic/resolve"
	"github.com/x-research-team/dtx-logic/result"
)

// Register регистрирует запрос Q с контрактом Handler[Q, T].
func Register[Q Query[T], T any](r *operation.Registry) error {
	return r.Define(operation.Describe(operation.CategoryQuery, operation.DataTypeOf[T](), func(ctx context.Context, h Handler[Q, T], q Q) (result.Outcome, error) {
		return h.Handle(ctx, q)
	}))
}

// Bind регистрирует запрос Q и фабрику его обработчика в контейнере.
func Bind[Q Query[T], T any](r *operation.Registry, c *resolve.Container, factory func() Handler[Q, T]) error {
	if err := Register[Q, T](r); err != nil {
		return err
	}
	return resolve.Provide(c, factory)
}
