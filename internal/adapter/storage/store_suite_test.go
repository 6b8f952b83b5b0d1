package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catrink/internal/port"
)

// runStoreSuite exercises the KeyValueStore contract against any backend.
// Keys are namespaced so runs against shared servers do not collide.
func runStoreSuite(t *testing.T, store port.KeyValueStore) {
	ns := fmt.Sprintf("test_%d_", time.Now().UnixNano())

	t.Run("GetMissing", func(t *testing.T) {
		_, ok, err := store.Get(context.Background(), ns+"missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetGetDelete", func(t *testing.T) {
		ctx := context.Background()
		key := ns + "doc"

		require.NoError(t, store.Set(ctx, key, []byte(`{"a":1}`)))
		v, ok, err := store.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"a":1}`, string(v))

		require.NoError(t, store.Set(ctx, key, []byte(`{"a":2}`)))
		v, _, _ = store.Get(ctx, key)
		assert.JSONEq(t, `{"a":2}`, string(v))

		require.NoError(t, store.Delete(ctx, key))
		_, ok, err = store.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Delete(ctx, key))
	})

	t.Run("UpdateCreatesMissingKey", func(t *testing.T) {
		ctx := context.Background()
		key := ns + "created"

		err := store.Update(ctx, key, func(current []byte) ([]byte, error) {
			assert.Nil(t, current)
			return []byte("1"), nil
		})
		require.NoError(t, err)

		v, ok, _ := store.Get(ctx, key)
		assert.True(t, ok)
		assert.Equal(t, "1", string(v))
	})

	t.Run("UpdateCallbackErrorLeavesValue", func(t *testing.T) {
		ctx := context.Background()
		key := ns + "unchanged"
		require.NoError(t, store.Set(ctx, key, []byte("7")))

		boom := errors.New("boom")
		err := store.Update(ctx, key, func(current []byte) ([]byte, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		v, _, _ := store.Get(ctx, key)
		assert.Equal(t, "7", string(v))
	})

	t.Run("ConcurrentUpdatesNoLostWrites", func(t *testing.T) {
		ctx := context.Background()
		key := ns + "counter"
		workers := 20

		var (
			wg        sync.WaitGroup
			succeeded atomic.Int32
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Update(ctx, key, func(current []byte) ([]byte, error) {
					n := 0
					if current != nil {
						n, _ = strconv.Atoi(string(current))
					}
					return []byte(strconv.Itoa(n + 1)), nil
				})
				switch {
				case err == nil:
					succeeded.Add(1)
				case !errors.Is(err, port.ErrConflict):
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		v, _, err := store.Get(ctx, key)
		require.NoError(t, err)
		n, _ := strconv.Atoi(string(v))
		assert.Equal(t, int(succeeded.Load()), n)
		assert.Positive(t, n)
	})
}
