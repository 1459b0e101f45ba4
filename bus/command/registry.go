package command

import (
	"context"

	"github.com/x-research-team/dtx-logic/bus/operation"
	"github.com/x-research-team/dtx-logic/resolve"
	"github.com/x-research-team/dtx-logic/result"
)

// Register регистрирует команду C с контрактом Handler[C].
func Register[C Command](r *operation.Registry) error {
	return r.Define(operation.Describe(operation.CategoryCommand, nil, func(ctx context.Context, h Handler[C], cmd C) (result.Outcome, error) {
		return h.Handle(ctx, cmd)
	}))
}

// RegisterData регистрирует команду C с контрактом DataHandler[C, T].
func RegisterData[C DataCommand[T], T any](r *operation.Registry) error {
	return r.Define(operation.Describe(operation.CategoryCommand, operation.DataTypeOf[T](), func(ctx context.Context, h DataHandler[C, T], cmd C) (result.Outcome, error) {
		return h.Handle(ctx, cmd)
	}))
}

// Bind регистрирует команду C и фабрику ее обработчика в контейнере.
func Bind[C Command](r *operation.Registry, c *resolve.Container, factory func() Handler[C]) error {
	if err := Register[C](r); err != nil {
		return err
	}
	return resolve.Provide(c, factory)
}

// BindData регистрирует команду C с данными и фабрику ее обработчика в контейнере.
func BindData[C DataCommand[T], T any](r *operation.Registry, c *resolve.Container, factory func() DataHandler[C, T]) error {
	if err := RegisterData[C, T](r); err != nil {
		return err
	}
	return resolve.Provide(c, factory)
}
