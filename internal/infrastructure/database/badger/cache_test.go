package badger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(config.BadgerConfig{InMemory: true}, time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_SetGet(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key:L", "Long-RInChIKey=SA-FUHFF", 0))

	var got string
	require.NoError(t, c.Get(ctx, "key:L", &got))
	assert.Equal(t, "Long-RInChIKey=SA-FUHFF", got)
	assert.Equal(t, "badger", c.Name())
	assert.NoError(t, c.Ping(ctx))
}

func TestCache_Miss(t *testing.T) {
	c := openTestCache(t)

	var got string
	err := c.Get(context.Background(), "absent", &got)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheMiss))
}

func TestCache_CorruptValue(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(c.key("bad"), []byte("{not json"))
	}))

	var got map[string]string
	err := c.Get(context.Background(), "bad", &got)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestCache_Delete(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))

	require.NoError(t, c.Delete(ctx, "a", "b"))
	var n int
	assert.True(t, errors.IsCode(c.Get(ctx, "a", &n), errors.ErrCodeCacheMiss))
	assert.True(t, errors.IsCode(c.Get(ctx, "b", &n), errors.ErrCodeCacheMiss))
}

func TestCache_DeleteByPrefix(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	for _, k := range []string{"key:1", "key:2", "dec:1"} {
		require.NoError(t, c.Set(ctx, k, k, 0))
	}

	n, err := c.DeleteByPrefix(ctx, "key:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var v string
	assert.NoError(t, c.Get(ctx, "dec:1", &v))
}

func TestCache_GetOrLoadCachesLoadedValue(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	var calls int32
	load := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return []string{"InChI=1S/H2O/h1H2"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got []string
			assert.NoError(t, c.GetOrLoad(ctx, "dec:w", &got, 0, load))
			assert.Equal(t, []string{"InChI=1S/H2O/h1H2"}, got)
		}()
	}
	wg.Wait()
	first := atomic.LoadInt32(&calls)
	assert.GreaterOrEqual(t, first, int32(1))

	var got []string
	require.NoError(t, c.GetOrLoad(ctx, "dec:w", &got, 0, load))
	assert.Equal(t, first, atomic.LoadInt32(&calls))
}

func TestCache_GetOrLoadPropagatesLoaderError(t *testing.T) {
	c := openTestCache(t)

	var got string
	err := c.GetOrLoad(context.Background(), "x", &got, 0, func(context.Context) (interface{}, error) {
		return nil, errors.NewPreconditionError("Invalid key selector 'Q'")
	})
	assert.True(t, errors.IsPrecondition(err))
}

func TestCache_RunGCInMemory(t *testing.T) {
	c := openTestCache(t)
	assert.NoError(t, c.RunGC())
}

func TestCache_PingAfterClose(t *testing.T) {
	c, err := Open(config.BadgerConfig{InMemory: true}, 0, nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))
}
