// Package metrics 定义 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelnotes_cache_hits_total",
		Help: "Cache hits by key class",
	}, []string{"class"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelnotes_cache_misses_total",
		Help: "Cache misses by key class",
	}, []string{"class"})

	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelnotes_cache_errors_total",
		Help: "Absorbed cache backend and codec errors by operation",
	}, []string{"op"})

	CacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelnotes_cache_invalidations_total",
		Help: "Keys removed by explicit invalidation, by key class",
	}, []string{"class"})

	RefreshRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelnotes_refresh_runs_total",
		Help: "Content refresh runs by section and final status",
	}, []string{"section", "status"})

	RefreshItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reelnotes_refresh_items",
		Help: "Items written by the last successful refresh per section",
	}, []string{"section"})

	UpstreamFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelnotes_upstream_fallbacks_total",
		Help: "Times the fallback content source was used after the primary failed",
	}, []string{"source"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelnotes_rate_limited_total",
		Help: "Requests rejected by the per-caller rate limiter",
	}, []string{"action"})
)
