package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	layerMemory = "memory"
	layerRedis  = "redis"
)

var (
	// CacheHits tracks cache hits by layer (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapi_cache_hits_total",
			Help: "Total number of upstream cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses by layer
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapi_cache_misses_total",
			Help: "Total number of upstream cache misses",
		},
		[]string{"layer"},
	)

	// CacheExpired tracks entries found expired on read or removed by a sweep
	CacheExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapi_cache_expired_total",
			Help: "Total number of expired cache entries",
		},
		[]string{"layer"},
	)

	// CacheEntries tracks the number of entries held by a layer
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swapi_cache_entries",
			Help: "Current number of cache entries",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks backend operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapi_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set"
	)
)
