package result

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-reflect"
)

// ErrInvalidFieldPath возвращается FieldKey, если путь не соответствует
// структуре типа.
var ErrInvalidFieldPath = errors.New("некорректный путь к полю")

// Errors — словарь ошибок: ключ поля или правила и упорядоченный список
// сообщений. Повторное добавление ключа дописывает сообщения.
type Errors map[string][]string

// NewErrors создает пустой словарь ошибок.
func NewErrors() Errors {
	return make(Errors)
}

// Add добавляет сообщения для ключа и возвращает сам словарь для цепочки
// вызовов. Вызов на nil-словаре приводит к панике, используйте NewErrors.
func (e Errors) Add(key string, messages ...string) Errors {
	e[key] = append(e[key], messages...)
	return e
}

// Merge дописывает все ошибки other в словарь, сохраняя порядок сообщений.
func (e Errors) Merge(other Errors) Errors {
	for _, key := range other.Keys() {
		e[key] = append(e[key], other[key]...)
	}
	return e
}

// Get возвращает копию сообщений для ключа.
func (e Errors) Get(key string) []string {
	return slices.Clone(e[key])
}

// Has сообщает, есть ли ошибки для ключа.
func (e Errors) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// Len возвращает количество ключей.
func (e Errors) Len() int {
	return len(e)
}

// Keys возвращает отсортированный список ключей.
func (e Errors) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone возвращает глубокую копию словаря. Для nil возвращается nil.
func (e Errors) Clone() Errors {
	if e == nil {
		return nil
	}
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = slices.Clone(v)
	}
	return out
}

// String возвращает компактное представление вида "key: msg1, msg2; key2: msg".
func (e Errors) String() string {
	parts := make([]string, 0, len(e))
	for _, k := range e.Keys() {
		parts = append(parts, k+": "+strings.Join(e[k], ", "))
	}
	return strings.Join(parts, "; ")
}

// AddFieldError добавляет сообщения под ключом, построенным FieldKey.
func AddFieldError[T any](e Errors, path []string, messages ...string) (Errors, error) {
	key, err := FieldKey[T](path...)
	if err != nil {
		return e, err
	}
	return e.Add(key, messages...), nil
}

// FieldKey строит ключ ошибки вида "Type.FieldA.FieldB" для типа T.
// Каждый сегмент проверяется по полям структуры. Указатели и элементы
// коллекций (срезы, массивы, карты) проходятся насквозь, поэтому путь может
// вести через коллекцию. Сегмент может нести суффикс индекса ("Items[2]"),
// он сохраняется в ключе, а для проверки используется имя поля.
func FieldKey[T any](path ...string) (string, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	typeName := t.Name()
	if typeName == "" {
		return "", fmt.Errorf("%w: тип '%s' не имеет имени", ErrInvalidFieldPath, t)
	}

	current := t
	segments := make([]string, 0, len(path)+1)
	segments = append(segments, typeName)

	for _, segment := range path {
		name := segment
		if i := strings.IndexByte(segment, '['); i >= 0 {
			name = segment[:i]
		}

		current = elementType(current)
		if current.Kind() != reflect.Struct {
			return "", fmt.Errorf("%w: '%s' не является структурой в пути '%s'", ErrInvalidFieldPath, current, strings.Join(path, "."))
		}

		field := reflect.Zero(current).FieldByName(name)
		if !field.IsValid() {
			return "", fmt.Errorf("%w: поле '%s' не найдено в типе '%s'", ErrInvalidFieldPath, name, current)
		}

		current = field.Type()
		segments = append(segments, segment)
	}

	return strings.Join(segments, "."), nil
}

// MustFieldKey работает как FieldKey, но паникует при ошибке.
func MustFieldKey[T any](path ...string) string {
	key, err := FieldKey[T](path...)
	if err != nil {
		panic(err)
	}
	return key
}

// elementType снимает указатели и обертки коллекций, пока не доберется до
// типа элемента.
func elementType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Map:
			t = t.Elem()
		default:
			return t
		}
	}
}
