package validation

import (
	"errors"

	"github.com/x-research-team/dtx-logic/result"
)

var (
	// ErrRuleNotResolved возвращается, если резолвер не смог предоставить
	// правило требуемого типа. Это ошибка конфигурации, а не результат проверки.
	ErrRuleNotResolved = errors.New("правило валидации не разрешено")
	// ErrValidationFailed сопоставляется с FailedError через errors.Is.
	ErrValidationFailed = errors.New("валидация не пройдена")
)

// FailedError возвращается EnsureValid при неуспешной проверке и несет
// объединенный результат.
type FailedError struct {
	Result result.Result
}

// Error реализует интерфейс error.
func (e *FailedError) Error() string {
	errs := e.Result.Errors()
	if errs.Len() == 0 {
		return ErrValidationFailed.Error()
	}
	return ErrValidationFailed.Error() + ": " + errs.String()
}

// Is позволяет сравнивать ошибку с ErrValidationFailed.
func (e *FailedError) Is(target error) bool {
	return target == ErrValidationFailed
}
