// Package validation объединяет множество правил проверки в один проход.
// Правила делятся на группы и упорядочиваются по приоритету, неуспешное
// правило может остановить свою группу, а неуспешная группа останавливает
// весь проход. Исходы неуспешных правил объединяются через result.Flatten.
package validation

import (
	"context"

	"github.com/x-research-team/dtx-logic/result"
)

// Rule проверяет данные типа D. Доменная ошибка проверки возвращается
// неуспешным результатом, error означает сбой самого правила и прерывает
// проход. Правила не хранят состояние между вызовами.
type Rule[D any] interface {
	Validate(ctx context.Context, data D) (result.Result, error)
}

// RuleFunc является адаптером, позволяющим использовать обычную функцию как Rule.
type RuleFunc[D any] func(ctx context.Context, data D) (result.Result, error)

// Validate реализует интерфейс Rule.
func (f RuleFunc[D]) Validate(ctx context.Context, data D) (result.Result, error) {
	return f(ctx, data)
}

// Group — номер группы правил. Группы выполняются по возрастанию, правила
// без группы выполняются последними.
type Group int

// Priority — приоритет правила внутри группы. Правила выполняются по
// убыванию приоритета, правила без приоритета выполняются последними.
type Priority int
