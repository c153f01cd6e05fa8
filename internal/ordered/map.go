// Package ordered provides a generic map that preserves insertion order,
// giving deterministic iteration for handler registries and transaction
// bookkeeping.
package ordered

type Map[K comparable, V any] struct {
	items map[K]V
	order []K
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{items: map[K]V{}}
}

func (m *Map[K, V]) Len() int { return len(m.items) }

// Set stores v under k. Returns true if k was already present; in that
// case the value is replaced and the key keeps its original position.
func (m *Map[K, V]) Set(k K, v V) (replaced bool) {
	_, replaced = m.items[k]
	if !replaced {
		m.order = append(m.order, k)
	}
	m.items[k] = v
	return replaced
}

func (m *Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.items[k]
	return v, ok
}

// Delete removes k. O(n) in map size to keep the order slice compact.
func (m *Map[K, V]) Delete(k K) bool {
	if _, ok := m.items[k]; !ok {
		return false
	}
	delete(m.items, k)
	for i, key := range m.order {
		if key == k {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (m *Map[K, V]) Keys() []K {
	out := make([]K, len(m.order))
	copy(out, m.order)
	return out
}

// Values returns the values in insertion order. The returned slice is a copy.
func (m *Map[K, V]) Values() []V {
	out := make([]V, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.items[k])
	}
	return out
}

func (m *Map[K, V]) Clear() {
	m.items = map[K]V{}
	m.order = nil
}
