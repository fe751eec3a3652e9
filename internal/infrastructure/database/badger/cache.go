// Package badger is the embedded alternative to the Redis cache. It keeps
// keys and decompositions in a local Badger store with per-entry TTLs.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/singleflight"

	"github.com/IUPAC-InChI/RInChI/internal/config"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

var ErrCacheMiss = errors.New(errors.ErrCodeCacheMiss, "cache miss")

// Cache is a Badger-backed key/value cache with JSON values.
type Cache struct {
	db         *badger.DB
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
	group      singleflight.Group
}

// Open opens (or creates) the store described by cfg.
func Open(cfg config.BadgerConfig, ttl time.Duration, log logging.Logger) (*Cache, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{log.Named("badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to open badger store")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	log.Info("badger cache opened", logging.String("dir", cfg.Dir), logging.Bool("in_memory", cfg.InMemory))
	return &Cache{db: db, logger: log, prefix: "rinchi:", defaultTTL: ttl}, nil
}

func (c *Cache) Name() string { return "badger" }

func (c *Cache) key(k string) []byte { return []byte(c.prefix + k) }

func (c *Cache) Get(_ context.Context, key string, dest interface{}) error {
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, dest)
		})
	})
	switch {
	case err == nil:
		return nil
	case err == badger.ErrKeyNotFound:
		return ErrCacheMiss
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode cached value")
	}
	return errors.Wrap(err, errors.ErrCodeCacheError, "failed to read cache")
}

func (c *Cache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode cache value")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(c.key(key), data).WithTTL(ttl))
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write cache")
	}
	return nil
}

func (c *Cache) Delete(_ context.Context, keys ...string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(c.key(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete cache keys")
	}
	return nil
}

// GetOrLoad mirrors the Redis cache: one load per key across concurrent
// callers, with write failures logged.
func (c *Cache) GetOrLoad(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func(context.Context) (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil || !errors.IsCode(err, errors.ErrCodeCacheMiss) {
		return err
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, v, ttl); err != nil {
			c.logger.Warn("failed to populate cache", logging.String("key", key), logging.Error(err))
		}
		return v, nil
	})
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode loaded value")
	}
	return json.Unmarshal(data, dest)
}

// DeleteByPrefix drops every key under prefix.
func (c *Cache) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	p := c.key(prefix)
	var keys [][]byte
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan cache keys")
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete cache keys")
	}
	return int64(len(keys)), nil
}

// Ping reports whether the store is open.
func (c *Cache) Ping(context.Context) error {
	if c.db.IsClosed() {
		return errors.New(errors.ErrCodeCacheError, "badger store is closed")
	}
	return nil
}

// RunGC reclaims value-log space until Badger reports nothing to rewrite.
func (c *Cache) RunGC() error {
	for {
		err := c.db.RunValueLogGC(0.5)
		if err == badger.ErrNoRewrite || err == badger.ErrGCInMemoryMode {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeCacheError, "badger value log GC failed")
		}
	}
}

func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to close badger store")
	}
	return nil
}

// badgerLogger routes Badger's printf-style logging into the structured
// logger. Badger is chatty at info level, so info goes to debug.
type badgerLogger struct{ log logging.Logger }

func (l badgerLogger) Errorf(f string, args ...interface{})   { l.log.Error(fmt.Sprintf(f, args...)) }
func (l badgerLogger) Warningf(f string, args ...interface{}) { l.log.Warn(fmt.Sprintf(f, args...)) }
func (l badgerLogger) Infof(f string, args ...interface{})    { l.log.Debug(fmt.Sprintf(f, args...)) }
func (l badgerLogger) Debugf(f string, args ...interface{})   { l.log.Debug(fmt.Sprintf(f, args...)) }
