package storage

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/cairn-engine/cairn/types"
)

// WordStorage is the narrow persistent substrate the engine writes through.
// The substrate is a flat, address-indexed namespace of fixed-width words:
// GetWord returns the zero word for an address that has never been written,
// so record deletion and record absence are indistinguishable at this level.
//
// The engine composes many WordStorage calls per logical operation and makes
// no cross-call atomicity assumption; all-or-nothing semantics belong to the
// enclosing execution context (see StartTransaction for substrates that can
// batch their writes).
type WordStorage interface {
	GetWord(ctx context.Context, key string) (types.Word, error)
	SetWord(ctx context.Context, key string, value types.Word) error

	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte) error
	GetUInt64(ctx context.Context, key string) (uint64, error)
	SetUInt64(ctx context.Context, key string, value uint64) error
	Incr(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)

	StartTransaction(ctx context.Context) (Transaction, error)
	EndTransaction(ctx context.Context) error
	Close(ctx context.Context) error
}

type Transaction = WordStorage

// ErrNoValue is returned by the byte/integer getters when the key has never
// been written. GetWord does not return it: a missing word reads as zero.
var ErrNoValue = eris.New("no value stored at key")

// VolatileStorage is a non-persistent key value cache. It fronts WordStorage
// for data that is expensive to decode on every call, like model metadata.
type VolatileStorage[K comparable, V any] interface {
	Get(key K) (V, error)
	Set(key K, value V) error
	Delete(key K) error
	Keys() ([]K, error)
	Len() int
	Clear() error
}
