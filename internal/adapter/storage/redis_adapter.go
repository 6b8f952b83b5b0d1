package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/catrink/internal/port"
)

const maxUpdateAttempts = 10

// compareAndSetScript writes ARGV[2] only if the key still holds ARGV[1].
// ARGV[3] == "0" means the caller saw no key at all.
var compareAndSetScript = redis.NewScript(`
local key = KEYS[1]
local expected = ARGV[1]
local existed = ARGV[3] == "1"

local current = redis.call('GET', key)
if not current then
	if existed then
		return 0
	end
elseif not existed or current ~= expected then
	return 0
end

redis.call('SET', key, ARGV[2])
return 1
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisAdapter) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisAdapter) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) Update(ctx context.Context, key string, fn port.UpdateFunc) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, ok, err := r.Get(ctx, key)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		existed := "0"
		if ok {
			existed = "1"
		}
		swapped, err := compareAndSetScript.Run(ctx, r.client, []string{key}, current, next, existed).Int()
		if err != nil {
			return fmt.Errorf("compare and set: %w", err)
		}
		if swapped == 1 {
			return nil
		}
	}
	return port.ErrConflict
}
