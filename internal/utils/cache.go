package utils

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"reelnotes/internal/logging"
	"reelnotes/internal/metrics"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrCacheMiss 后端中不存在该键或已过期
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheUnavailable 后端不可用，门面层吸收后按未命中处理
	ErrCacheUnavailable = errors.New("cache unavailable")
)

const previewLen = 120

// CacheItem 包装序列化后的数据和过期时间，ExpiresAt 为零值表示永不过期
type CacheItem struct {
	Data      []byte
	ExpiresAt time.Time
}

func (i CacheItem) expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// CacheBackend 键值存储后端
type CacheBackend interface {
	Get(key string) (CacheItem, error)
	Set(key string, item CacheItem) error
	Delete(key string) error
	// DeleteMatching 在一次原子操作内删除所有匹配的键
	DeleteMatching(match func(key string) bool) (int, error)
	Keys() ([]string, error)
	Purge() error
}

// LRUBackend 进程内 LRU 后端
type LRUBackend struct {
	mu  sync.Mutex
	lru *lru.Cache[string, CacheItem]
	now func() time.Time
}

// NewLRUBackend 创建容量为 size 的 LRU 后端
func NewLRUBackend(size int) (*LRUBackend, error) {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, fmt.Errorf("创建 LRU 缓存失败: %w", err)
	}
	return &LRUBackend{lru: l, now: time.Now}, nil
}

func (b *LRUBackend) Get(key string) (CacheItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	item, ok := b.lru.Get(key)
	if !ok {
		return CacheItem{}, ErrCacheMiss
	}
	if item.expired(b.now()) {
		b.lru.Remove(key)
		return CacheItem{}, ErrCacheMiss
	}
	return item, nil
}

func (b *LRUBackend) Set(key string, item CacheItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lru.Add(key, item)
	return nil
}

func (b *LRUBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lru.Remove(key)
	return nil
}

func (b *LRUBackend) DeleteMatching(match func(key string) bool) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, key := range b.lru.Keys() {
		if match(key) {
			b.lru.Remove(key)
			n++
		}
	}
	return n, nil
}

// Keys 返回未过期的键
func (b *LRUBackend) Keys() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	keys := make([]string, 0, b.lru.Len())
	for _, key := range b.lru.Keys() {
		if item, ok := b.lru.Peek(key); ok && !item.expired(now) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (b *LRUBackend) Purge() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lru.Purge()
	return nil
}

// KeyInfo 单个缓存键的概况，TTL 为 -1 表示永不过期
type KeyInfo struct {
	Key     string        `json:"key"`
	Size    int           `json:"size"`
	TTL     time.Duration `json:"-"`
	TTLSecs int64         `json:"ttl"`
	Preview string        `json:"preview"`
}

// Cache 缓存门面。所有操作尽力而为：后端或编解码出错时记录日志并按未命中处理，
// 不会把错误抛给调用方。缓存值是序列化后的快照，不是活引用
type Cache struct {
	backend CacheBackend
	now     func() time.Time
}

func NewCache(backend CacheBackend) *Cache {
	return &Cache{backend: backend, now: time.Now}
}

// KeyClass 取键的命名空间部分用作指标标签，例如 article:abc -> article
func KeyClass(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

func (c *Cache) absorb(op, key string, err error) {
	metrics.CacheErrors.WithLabelValues(op).Inc()
	logging.Warn().Err(fmt.Errorf("%w: %v", ErrCacheUnavailable, err)).
		Str("op", op).Str("key", key).Msg("缓存操作失败，按未命中处理")
}

// Get 读取缓存并反序列化到 dest，未命中或出错时返回 false
func (c *Cache) Get(key string, dest interface{}) bool {
	item, err := c.backend.Get(key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.absorb("get", key, err)
		}
		metrics.CacheMisses.WithLabelValues(KeyClass(key)).Inc()
		return false
	}

	if err := json.Unmarshal(item.Data, dest); err != nil {
		c.absorb("decode", key, err)
		if derr := c.backend.Delete(key); derr != nil {
			c.absorb("delete", key, derr)
		}
		metrics.CacheMisses.WithLabelValues(KeyClass(key)).Inc()
		return false
	}

	metrics.CacheHits.WithLabelValues(KeyClass(key)).Inc()
	return true
}

// Set 写入缓存。ttl <= 0 表示永不过期，派生数据必须显式传入 ttl
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.absorb("encode", key, err)
		return
	}
	item := CacheItem{Data: data}
	if ttl > 0 {
		item.ExpiresAt = c.now().Add(ttl)
	}
	if err := c.backend.Set(key, item); err != nil {
		c.absorb("set", key, err)
	}
}

// Replace 覆盖已存在键的值并保留其剩余过期时间，键不存在时返回 false
func (c *Cache) Replace(key string, value interface{}) bool {
	old, err := c.backend.Get(key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.absorb("get", key, err)
		}
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.absorb("encode", key, err)
		return false
	}
	if err := c.backend.Set(key, CacheItem{Data: data, ExpiresAt: old.ExpiresAt}); err != nil {
		c.absorb("set", key, err)
		return false
	}
	return true
}

// Delete 删除一个或多个键
func (c *Cache) Delete(keys ...string) {
	for _, key := range keys {
		if err := c.backend.Delete(key); err != nil {
			c.absorb("delete", key, err)
			continue
		}
		metrics.CacheInvalidations.WithLabelValues(KeyClass(key)).Inc()
	}
}

// DeleteByPattern 按 glob 模式批量删除，返回删除的键数量
func (c *Cache) DeleteByPattern(pattern string) int {
	if _, err := path.Match(pattern, ""); err != nil {
		logging.Warn().Err(err).Str("pattern", pattern).Msg("无效的缓存匹配模式")
		return 0
	}
	n, err := c.backend.DeleteMatching(func(key string) bool {
		ok, _ := path.Match(pattern, key)
		return ok
	})
	if err != nil {
		c.absorb("delete_pattern", pattern, err)
		return 0
	}
	metrics.CacheInvalidations.WithLabelValues(KeyClass(pattern)).Add(float64(n))
	return n
}

// ClearAll 清空全部缓存
func (c *Cache) ClearAll() {
	if err := c.backend.Purge(); err != nil {
		c.absorb("purge", "*", err)
	}
}

// ListKeys 返回排序后的全部有效键
func (c *Cache) ListKeys() []string {
	keys, err := c.backend.Keys()
	if err != nil {
		c.absorb("keys", "*", err)
		return []string{}
	}
	sort.Strings(keys)
	return keys
}

// Info 返回键的大小、剩余 TTL 与内容预览
func (c *Cache) Info(key string) (KeyInfo, bool) {
	item, err := c.backend.Get(key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.absorb("info", key, err)
		}
		return KeyInfo{}, false
	}

	info := KeyInfo{Key: key, Size: len(item.Data), TTL: -1, TTLSecs: -1}
	if !item.ExpiresAt.IsZero() {
		info.TTL = item.ExpiresAt.Sub(c.now())
		info.TTLSecs = int64(info.TTL.Seconds())
	}

	preview := string(item.Data)
	if utf8.RuneCountInString(preview) > previewLen {
		preview = string([]rune(preview)[:previewLen]) + "..."
	}
	info.Preview = preview
	return info, true
}
