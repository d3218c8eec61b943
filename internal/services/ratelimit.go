package services

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// RateLimiter 按 (调用者, 动作) 限流。长时间不活跃的调用者会从表中过期，
// 每个实例互相独立
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

func NewRateLimiter(perMinute, burst, capacity int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 1
	}
	if capacity <= 0 {
		capacity = 10000
	}

	// 令牌桶回满所需时间之后，条目可以安全丢弃
	ttl := time.Duration(burst) * time.Minute / time.Duration(perMinute)
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](capacity, nil, ttl),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
	}
}

// Allow 消耗一个令牌，返回是否允许继续
func (r *RateLimiter) Allow(caller, action string) bool {
	key := action + ":" + caller

	r.mu.Lock()
	l, ok := r.limiters.Get(key)
	if !ok {
		l = rate.NewLimiter(r.limit, r.burst)
	}
	// 重新写入以刷新过期时间
	r.limiters.Add(key, l)
	r.mu.Unlock()

	return l.Allow()
}
