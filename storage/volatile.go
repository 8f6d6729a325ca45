package storage

import (
	"github.com/rotisserie/eris"
)

var ErrKeyNotFound = eris.New("key not found")

var _ VolatileStorage[string, any] = &MapCache[string, any]{}

// MapCache is the map-backed VolatileStorage implementation.
type MapCache[K comparable, V any] struct {
	internalMap map[K]V
}

func NewMapCache[K comparable, V any]() *MapCache[K, V] {
	return &MapCache[K, V]{
		internalMap: make(map[K]V),
	}
}

func (m *MapCache[K, V]) Get(key K) (V, error) {
	v, ok := m.internalMap[key]
	if !ok {
		return v, eris.Wrap(ErrKeyNotFound, "")
	}
	return v, nil
}

func (m *MapCache[K, V]) Set(key K, value V) error {
	m.internalMap[key] = value
	return nil
}

func (m *MapCache[K, V]) Delete(key K) error {
	delete(m.internalMap, key)
	return nil
}

func (m *MapCache[K, V]) Keys() ([]K, error) {
	acc := make([]K, 0, len(m.internalMap))
	for k := range m.internalMap {
		acc = append(acc, k)
	}
	return acc, nil
}

func (m *MapCache[K, V]) Len() int {
	return len(m.internalMap)
}

func (m *MapCache[K, V]) Clear() error {
	m.internalMap = make(map[K]V)
	return nil
}
