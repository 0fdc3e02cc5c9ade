package cube

import "github.com/kamstrup/intmap"

// registry хранит сущности пула: индекс по id и порядок появления
type registry[T any] struct {
	index *intmap.Map[uint32, T]
	ids   []uint32
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{index: intmap.New[uint32, T](64)}
}

func (r *registry[T]) put(id uint32, v T) {
	if !r.index.Has(id) {
		r.ids = append(r.ids, id)
	}
	r.index.Put(id, v)
}

func (r *registry[T]) get(id uint32) (T, bool) {
	return r.index.Get(id)
}

func (r *registry[T]) len() int {
	return r.index.Len()
}

// each обходит сущности в порядке появления; fn может добавлять новые
func (r *registry[T]) each(fn func(T)) {
	ids := r.ids
	for _, id := range ids {
		if v, ok := r.index.Get(id); ok {
			fn(v)
		}
	}
}

// prune удаляет сущности, для которых keep вернул false, и вызывает для них drop
func (r *registry[T]) prune(keep func(T) bool, drop func(T)) int {
	removed := 0
	live := r.ids[:0]
	for _, id := range r.ids {
		v, ok := r.index.Get(id)
		if !ok {
			continue
		}
		if keep(v) {
			live = append(live, id)
			continue
		}
		r.index.Del(id)
		if drop != nil {
			drop(v)
		}
		removed++
	}
	r.ids = live
	return removed
}

func (r *registry[T]) clear(drop func(T)) {
	r.each(func(v T) {
		if drop != nil {
			drop(v)
		}
	})
	r.index.Clear()
	r.ids = nil
}
