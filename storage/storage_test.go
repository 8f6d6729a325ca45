package storage_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cairn-engine/cairn/assert"
	"github.com/cairn-engine/cairn/storage"
	"github.com/cairn-engine/cairn/types"
)

func newRedisStorage(t *testing.T) *storage.RedisStorage {
	t.Helper()
	s := miniredis.RunT(t)
	return storage.NewRedisStorage(redis.NewClient(&redis.Options{Addr: s.Addr()}))
}

// Both substrates must behave identically from the engine's point of view.
func eachStorage(t *testing.T, run func(t *testing.T, store storage.WordStorage)) {
	t.Run("map", func(t *testing.T) { run(t, storage.NewMapStorage()) })
	t.Run("redis", func(t *testing.T) { run(t, newRedisStorage(t)) })
}

func TestWordDefaultsToZero(t *testing.T) {
	eachStorage(t, func(t *testing.T, store storage.WordStorage) {
		w, err := store.GetWord(context.Background(), "never-written")
		assert.NilError(t, err)
		assert.Equal(t, w, types.Word{})
	})
}

func TestWordRoundTrip(t *testing.T) {
	eachStorage(t, func(t *testing.T, store storage.WordStorage) {
		ctx := context.Background()
		value := types.NewWord(0xDEADBEEF)
		assert.NilError(t, store.SetWord(ctx, "slot", value))
		got, err := store.GetWord(ctx, "slot")
		assert.NilError(t, err)
		assert.Equal(t, got, value)

		// Overwriting with zero reads back as zero, same as never written.
		assert.NilError(t, store.SetWord(ctx, "slot", types.Word{}))
		got, err = store.GetWord(ctx, "slot")
		assert.NilError(t, err)
		assert.Equal(t, got, types.Word{})
	})
}

func TestWordFullWidth(t *testing.T) {
	eachStorage(t, func(t *testing.T, store storage.WordStorage) {
		ctx := context.Background()
		var value types.Word
		value.SetAllOne()
		assert.NilError(t, store.SetWord(ctx, "slot", value))
		got, err := store.GetWord(ctx, "slot")
		assert.NilError(t, err)
		assert.Equal(t, got, value)
	})
}

func TestBytesRoundTrip(t *testing.T) {
	eachStorage(t, func(t *testing.T, store storage.WordStorage) {
		ctx := context.Background()
		_, err := store.GetBytes(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNoValue)

		assert.NilError(t, store.SetBytes(ctx, "blob", []byte(`{"a":1}`)))
		got, err := store.GetBytes(ctx, "blob")
		assert.NilError(t, err)
		assert.DeepEqual(t, got, []byte(`{"a":1}`))
	})
}

func TestUInt64AndIncr(t *testing.T) {
	eachStorage(t, func(t *testing.T, store storage.WordStorage) {
		ctx := context.Background()
		assert.NilError(t, store.Incr(ctx, "counter"))
		assert.NilError(t, store.Incr(ctx, "counter"))
		got, err := store.GetUInt64(ctx, "counter")
		assert.NilError(t, err)
		assert.Equal(t, got, uint64(2))

		assert.NilError(t, store.SetUInt64(ctx, "counter", 40))
		assert.NilError(t, store.Incr(ctx, "counter"))
		got, err = store.GetUInt64(ctx, "counter")
		assert.NilError(t, err)
		assert.Equal(t, got, uint64(41))
	})
}

func TestDelete(t *testing.T) {
	eachStorage(t, func(t *testing.T, store storage.WordStorage) {
		ctx := context.Background()
		assert.NilError(t, store.SetWord(ctx, "slot", types.NewWord(1)))
		assert.NilError(t, store.Delete(ctx, "slot"))
		got, err := store.GetWord(ctx, "slot")
		assert.NilError(t, err)
		assert.Equal(t, got, types.Word{})
	})
}

func TestKeys(t *testing.T) {
	eachStorage(t, func(t *testing.T, store storage.WordStorage) {
		ctx := context.Background()
		assert.NilError(t, store.SetWord(ctx, "a", types.NewWord(1)))
		assert.NilError(t, store.SetBytes(ctx, "b", []byte("x")))
		keys, err := store.Keys(ctx)
		assert.NilError(t, err)
		assert.Contains(t, keys, "a")
		assert.Contains(t, keys, "b")
	})
}

func TestTransactionCommits(t *testing.T) {
	ctx := context.Background()
	store := newRedisStorage(t)

	tx, err := store.StartTransaction(ctx)
	assert.NilError(t, err)
	assert.NilError(t, tx.SetWord(ctx, "slot", types.NewWord(5)))
	assert.NilError(t, tx.EndTransaction(ctx))

	got, err := store.GetWord(ctx, "slot")
	assert.NilError(t, err)
	assert.Equal(t, got, types.NewWord(5))
}

func TestMapCache(t *testing.T) {
	cache := storage.NewMapCache[string, int]()
	_, err := cache.Get("missing")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	assert.NilError(t, cache.Set("a", 1))
	assert.NilError(t, cache.Set("b", 2))
	got, err := cache.Get("a")
	assert.NilError(t, err)
	assert.Equal(t, got, 1)
	assert.Equal(t, cache.Len(), 2)

	assert.NilError(t, cache.Delete("a"))
	_, err = cache.Get("a")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	assert.NilError(t, cache.Clear())
	assert.Equal(t, cache.Len(), 0)
}
