package result

// Copy создает новый типизированный результат с признаком успеха из src и
// новыми данными. Если errors или metadata равны nil, используются
// коллекции исходного результата.
func Copy[T any](src Outcome, data T, errors Errors, metadata Metadata) Of[T] {
	if errors == nil {
		errors = src.Errors()
	}
	if metadata == nil {
		metadata = src.Metadata()
	}
	return Of[T]{Result: New(src.Succeeded(), errors, metadata), data: data}
}

// Map преобразует данные результата функцией fn, сохраняя признак успеха,
// ошибки и метаданные.
func Map[T, U any](r Of[T], fn func(T) U) Of[U] {
	return Copy(r, fn(r.Data()), nil, nil)
}

// As переносит исход в результат с другим типом данных и нулевыми данными.
func As[U any](r Outcome) Of[U] {
	var zero U
	return Copy(r, zero, nil, nil)
}

// Discard отбрасывает данные исхода.
func Discard(r Outcome) Result {
	return New(r.Succeeded(), r.Errors(), r.Metadata())
}

// AddMetadata возвращает копию результата с замененными метаданными.
func AddMetadata[T any](r Of[T], metadata Metadata) Of[T] {
	if metadata == nil {
		metadata = Metadata{}
	}
	return Copy(r, r.Data(), nil, metadata)
}

// Flatten объединяет результаты в один: успех — только если успешны все;
// ошибки сливаются по ключам с сохранением порядка входа; из метаданных при
// совпадении ключей сохраняется первое встреченное значение. Пустой вход
// дает успешный результат. Пустой, но не nil словарь ошибок или метаданных
// сохраняется пустым, поэтому Flatten от одного результата равен ему.
func Flatten[R Outcome](results ...R) Result {
	succeeded := true
	var errors Errors
	var metadata Metadata

	for _, r := range results {
		if !r.Succeeded() {
			succeeded = false
		}

		if errs := r.Errors(); errs != nil {
			if errors == nil {
				errors = NewErrors()
			}
			errors.Merge(errs)
		}

		if md := r.Metadata(); md != nil {
			if metadata == nil {
				metadata = make(Metadata, len(md))
			}
			mergeFirstWins(metadata, md)
		}
	}

	return New(succeeded, errors, metadata)
}

// FlattenOf объединяет типизированные результаты. Данные объединенного
// результата нулевые.
func FlattenOf[T any](results ...Of[T]) Of[T] {
	return Of[T]{Result: Flatten(results...)}
}
