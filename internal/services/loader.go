package services

import (
	"context"
	"sync"
	"time"

	"reelnotes/internal/utils"

	"golang.org/x/sync/singleflight"
)

// cacheLoader 合并同一个键的并发未命中加载。
// 键被失效后，失效之前开始的加载不会再把旧快照写回缓存
type cacheLoader struct {
	cache *utils.Cache
	group singleflight.Group

	mu  sync.Mutex
	gen map[string]uint64
}

func newCacheLoader(cache *utils.Cache) *cacheLoader {
	return &cacheLoader{cache: cache, gen: make(map[string]uint64)}
}

func (l *cacheLoader) generation(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen[key]
}

// setIfCurrent 仅当加载开始后键未被失效时写入缓存
func (l *cacheLoader) setIfCurrent(key string, gen uint64, value interface{}, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen[key] != gen {
		return false
	}
	l.cache.Set(key, value, ttl)
	return true
}

// invalidate 删除缓存键，并作废进行中的加载
func (l *cacheLoader) invalidate(keys ...string) {
	l.mu.Lock()
	for _, key := range keys {
		l.gen[key]++
		l.group.Forget(key)
	}
	l.mu.Unlock()
	l.cache.Delete(keys...)
}

// cachedList cache-aside 读取整个集合，同一个键的并发未命中只查一次库
func cachedList[T any](ctx context.Context, l *cacheLoader, key string, ttl time.Duration, fetch func(context.Context) ([]T, error)) ([]T, error) {
	var out []T
	if l.cache.Get(key, &out) {
		return out, nil
	}

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		gen := l.generation(key)
		items, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		l.setIfCurrent(key, gen, items, ttl)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}
