package mapping

// Ordered is a map that remembers insertion order.
type Ordered[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

func NewOrdered[K comparable, V any]() *Ordered[K, V] {
	return &Ordered[K, V]{values: make(map[K]V)}
}

func (o *Ordered[K, V]) Get(k K) (V, bool) {
	v, ok := o.values[k]
	return v, ok
}

// GetOrCreate returns the value for k, inserting mk() on a miss.
func (o *Ordered[K, V]) GetOrCreate(k K, mk func() V) V {
	if v, ok := o.values[k]; ok {
		return v
	}
	v := mk()
	o.values[k] = v
	o.keys = append(o.keys, k)
	return v
}

func (o *Ordered[K, V]) Len() int {
	return len(o.keys)
}

func (o *Ordered[K, V]) Keys() []K {
	return append([]K(nil), o.keys...)
}

func (o *Ordered[K, V]) Values() []V {
	out := make([]V, len(o.keys))
	for i, k := range o.keys {
		out[i] = o.values[k]
	}
	return out
}
