package result

// Стандартные ключи метаданных пагинации.
const (
	MetadataOffset = "offset"
	MetadataLimit  = "limit"
)

// Metadata — произвольные вспомогательные данные результата, например
// параметры пагинации.
type Metadata map[string]any

// Clone возвращает поверхностную копию метаданных. Для nil возвращается nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Get возвращает значение по ключу.
func (m Metadata) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// mergeFirstWins добавляет в dst ключи src, которых еще нет в dst.
func mergeFirstWins(dst, src Metadata) {
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}

// MetadataValue извлекает типизированное значение метаданных.
func MetadataValue[V any](r Outcome, key string) (V, bool) {
	var zero V
	raw, ok := r.Metadata()[key]
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	return v, ok
}
