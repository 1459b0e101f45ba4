package command

import (
	"context"

	"github.com/x-research-team/dtx-logic/bus/operation"
	"github.com/x-research-team/dtx-logic/result"
)

// Dispatch отправляет команду на выполнение через шину.
func Dispatch(ctx context.Context, bus *operation.Bus, cmd Command) (result.Result, error) {
	return bus.Handle(ctx, cmd)
}

// DispatchData отправляет на выполнение команду, возвращающую данные.
func DispatchData[T any](ctx context.Context, bus *operation.Bus, cmd DataCommand[T]) (result.Of[T], error) {
	return operation.HandleData[T](ctx, bus, cmd)
}
