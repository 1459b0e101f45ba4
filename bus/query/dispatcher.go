package query

import (
	"context"

	"github.com/x-research-team/dtx-logic/bus/operation"
	"github.com/x-research-team/dtx-logic/result"
)

// Dispatch отправляет запрос в шину и возвращает результат с данными.
// Если обработчик для запроса не найден, возвращается ошибка operation.ErrNoHandler.
func Dispatch[T any](ctx context.Context, bus *operation.Bus, q Query[T]) (result.Of[T], error) {
	return operation.HandleData[T](ctx, bus, q)
}
