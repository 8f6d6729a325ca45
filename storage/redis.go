package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/cairn-engine/cairn/types"
)

var _ WordStorage = &RedisStorage{}

// RedisStorage adapts a redis client to the WordStorage substrate. Words are
// stored as hex strings; a missing key reads back as the zero word.
type RedisStorage struct {
	currentClient redis.Cmdable
}

func NewRedisStorage(client redis.Cmdable) *RedisStorage {
	return &RedisStorage{currentClient: client}
}

func (r *RedisStorage) GetWord(ctx context.Context, key string) (types.Word, error) {
	res, err := r.currentClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.Word{}, nil
		}
		return types.Word{}, eris.Wrap(err, "")
	}
	var w types.Word
	if err := w.SetFromHex(res); err != nil {
		return types.Word{}, eris.Wrap(err, "")
	}
	return w, nil
}

func (r *RedisStorage) SetWord(ctx context.Context, key string, value types.Word) error {
	return eris.Wrap(r.currentClient.Set(ctx, key, value.Hex(), 0).Err(), "")
}

func (r *RedisStorage) GetBytes(ctx context.Context, key string) ([]byte, error) {
	bz, err := r.currentClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, eris.Wrap(ErrNoValue, key)
		}
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}

func (r *RedisStorage) SetBytes(ctx context.Context, key string, value []byte) error {
	return eris.Wrap(r.currentClient.Set(ctx, key, value, 0).Err(), "")
}

func (r *RedisStorage) GetUInt64(ctx context.Context, key string) (uint64, error) {
	res, err := r.currentClient.Get(ctx, key).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, eris.Wrap(ErrNoValue, key)
		}
		return 0, eris.Wrap(err, "")
	}
	return res, nil
}

func (r *RedisStorage) SetUInt64(ctx context.Context, key string, value uint64) error {
	return eris.Wrap(r.currentClient.Set(ctx, key, value, 0).Err(), "")
}

func (r *RedisStorage) Incr(ctx context.Context, key string) error {
	return eris.Wrap(r.currentClient.Incr(ctx, key).Err(), "")
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	return eris.Wrap(r.currentClient.Del(ctx, key).Err(), "")
}

func (r *RedisStorage) Keys(ctx context.Context) ([]string, error) {
	res, err := r.currentClient.Keys(ctx, "*").Result()
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return res, nil
}

// StartTransaction returns a RedisStorage backed by a transaction pipeline.
// Writes issued through the returned storage are buffered until
// EndTransaction is called on it.
func (r *RedisStorage) StartTransaction(_ context.Context) (Transaction, error) {
	pipeline := r.currentClient.TxPipeline()
	return NewRedisStorage(pipeline), nil
}

func (r *RedisStorage) EndTransaction(ctx context.Context) error {
	pipeline, ok := r.currentClient.(redis.Pipeliner)
	if !ok {
		return eris.New("current redis dbStorage is not a pipeline")
	}
	_, err := pipeline.Exec(ctx)
	return eris.Wrap(err, "")
}

func (r *RedisStorage) Close(ctx context.Context) error {
	err := eris.Wrap(r.currentClient.Shutdown(ctx).Err(), "")
	if eris.Is(eris.Cause(err), redis.ErrClosed) {
		// Another shutdown pathway already closed the client.
		return nil
	}
	return err
}
