package storage

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/cairn-engine/cairn/types"
)

var _ WordStorage = &MapStorage{}

// MapStorage is an in-memory WordStorage. It backs tests and embedded worlds
// that do not need persistence. It is not safe for concurrent use; the
// execution model runs one operation at a time.
type MapStorage struct {
	words map[string]types.Word
	blobs map[string][]byte
}

func NewMapStorage() *MapStorage {
	return &MapStorage{
		words: make(map[string]types.Word),
		blobs: make(map[string][]byte),
	}
}

func (m *MapStorage) GetWord(_ context.Context, key string) (types.Word, error) {
	return m.words[key], nil
}

func (m *MapStorage) SetWord(_ context.Context, key string, value types.Word) error {
	m.words[key] = value
	return nil
}

func (m *MapStorage) GetBytes(_ context.Context, key string) ([]byte, error) {
	bz, ok := m.blobs[key]
	if !ok {
		return nil, eris.Wrap(ErrNoValue, key)
	}
	return bz, nil
}

func (m *MapStorage) SetBytes(_ context.Context, key string, value []byte) error {
	m.blobs[key] = append([]byte(nil), value...)
	return nil
}

func (m *MapStorage) GetUInt64(_ context.Context, key string) (uint64, error) {
	bz, ok := m.blobs[key]
	if !ok {
		return 0, eris.Wrap(ErrNoValue, key)
	}
	v, err := strconv.ParseUint(string(bz), 10, 64)
	if err != nil {
		return 0, eris.Wrap(err, "")
	}
	return v, nil
}

func (m *MapStorage) SetUInt64(_ context.Context, key string, value uint64) error {
	m.blobs[key] = []byte(strconv.FormatUint(value, 10))
	return nil
}

func (m *MapStorage) Incr(ctx context.Context, key string) error {
	v, err := m.GetUInt64(ctx, key)
	if err != nil && !eris.Is(eris.Cause(err), ErrNoValue) {
		return err
	}
	return m.SetUInt64(ctx, key, v+1)
}

func (m *MapStorage) Delete(_ context.Context, key string) error {
	delete(m.words, key)
	delete(m.blobs, key)
	return nil
}

func (m *MapStorage) Keys(_ context.Context) ([]string, error) {
	keys := make([]string, 0, len(m.words)+len(m.blobs))
	for k := range m.words {
		keys = append(keys, k)
	}
	for k := range m.blobs {
		keys = append(keys, k)
	}
	return keys, nil
}

// StartTransaction returns the storage itself: in-memory writes are applied
// immediately and EndTransaction is a no-op.
func (m *MapStorage) StartTransaction(_ context.Context) (Transaction, error) {
	return m, nil
}

func (m *MapStorage) EndTransaction(_ context.Context) error { return nil }

func (m *MapStorage) Close(_ context.Context) error { return nil }
