// Package event реализует внутрипроцессную шину событий с типизированными
// подписками. Событие доставляется всем текущим подписчикам его типа
// последовательно в порядке подписки. Ошибка или паника одного подписчика
// не прерывает доставку остальным.
package event

import (
	"context"
	"errors"
)

var (
	// ErrDisposed возвращается при обращении к закрытой шине.
	ErrDisposed = errors.New("шина событий закрыта")
	// ErrHandlerPanic оборачивает панику, перехваченную в обработчике события.
	ErrHandlerPanic = errors.New("паника в обработчике события")
)

// Handler — это тип для функции-обработчика, которая принимает контекст
// и конкретный тип события.
type Handler[E any] func(ctx context.Context, event E) error

// ErrorHandler — это функция для обработки ошибок, возникших в Handler.
type ErrorHandler[E any] func(err error, event E)

// Middleware — это функция-декоратор для Handler.
// Она принимает следующий обработчик в цепочке и возвращает новый обработчик.
type Middleware[E any] func(next Handler[E]) Handler[E]

// Metadatable определяет интерфейс для событий, которые несут метаданные.
// Шина записывает в них контекст трассировки при отправке и извлекает его
// при доставке.
type Metadatable interface {
	Metadata() map[string]string
}
