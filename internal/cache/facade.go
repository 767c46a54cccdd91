// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pdiddy/kernel-press/pkg/types"
)

// Facade sits in front of every oracle call. Store failures never reach
// callers: they are logged as CacheErrors and a fresh computation stands in.
type Facade struct {
	store Store
	log   *slog.Logger
}

// NewFacade wraps store. A nil store disables caching.
func NewFacade(store Store, log *slog.Logger) *Facade {
	if log == nil {
		log = slog.Default()
	}
	return &Facade{store: store, log: log}
}

// lookup returns the cached bytes for key, or false on a miss or failure.
func (f *Facade) lookup(key string) ([]byte, bool) {
	if f == nil || f.store == nil {
		return nil, false
	}
	data, ok, err := f.store.Get(key)
	if err != nil {
		f.log.Warn("cache read failed", "error", &types.CacheError{Op: "get", Key: key, Err: err})
		return nil, false
	}
	return data, ok
}

// save stores value under key, logging failures.
func (f *Facade) save(key string, value []byte) {
	if f == nil || f.store == nil {
		return
	}
	if err := f.store.Set(key, value); err != nil {
		f.log.Warn("cache write failed", "error", &types.CacheError{Op: "set", Key: key, Err: err})
	}
}

// Memo returns the cached value for key, or runs compute and caches its
// result. With bypass set the cached value is ignored and overwritten.
// Errors from compute are returned as is and nothing is cached. hit reports
// whether the value came from the cache.
func Memo[T any](ctx context.Context, f *Facade, key string, bypass bool, compute func(context.Context) (T, error)) (value T, hit bool, err error) {
	if !bypass {
		if data, ok := f.lookup(key); ok {
			var cached T
			decodeErr := json.Unmarshal(data, &cached)
			if decodeErr == nil {
				return cached, true, nil
			}
			f.log.Warn("cache entry unreadable, recomputing", "error", &types.CacheError{Op: "decode", Key: key, Err: decodeErr})
		}
	}

	value, err = compute(ctx)
	if err != nil || f == nil || f.store == nil {
		return value, false, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		f.log.Warn("cache encode failed", "error", &types.CacheError{Op: "encode", Key: key, Err: err})
		return value, false, nil
	}
	f.save(key, data)
	return value, false, nil
}
