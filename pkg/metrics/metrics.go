package metrics

import (
    "net/http"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    // Cache metrics
    CacheLookups = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "marketdata_cache_lookups_total",
            Help: "Cache lookups by data kind and result (hit, miss, error)",
        },
        []string{"kind", "result"},
    )
    CacheWrites = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "marketdata_cache_writes_total",
            Help: "Cache writes by data kind, mode (sync, async) and status",
        },
        []string{"kind", "mode", "status"},
    )
    WriteBehindFailures = prometheus.NewCounter(
        prometheus.CounterOpts{
            Name: "marketdata_write_behind_failures_total",
            Help: "Background cache writes that failed",
        },
    )

    // Provider metrics
    ProviderFetches = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "marketdata_provider_fetches_total",
            Help: "External provider calls by source, operation and result (ok, miss, error)",
        },
        []string{"source", "op", "result"},
    )
    ProviderLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "marketdata_provider_latency_seconds",
            Help:    "External provider call duration",
            Buckets: prometheus.DefBuckets,
        },
        []string{"source", "op"},
    )
    ProviderWait = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "marketdata_provider_ratelimit_wait_seconds",
            Help:    "Time spent waiting for a rate-limit token",
            Buckets: prometheus.DefBuckets,
        },
        []string{"source"},
    )

    // Refresh metrics
    RefreshOutcomes = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "marketdata_refresh_outcomes_total",
            Help: "Per-symbol refresh outcomes",
        },
        []string{"asset_class", "status"},
    )

    // Admin HTTP metrics
    HTTPRequestDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "marketdata_http_request_duration_seconds",
            Help:    "Admin endpoint request duration",
            Buckets: prometheus.DefBuckets,
        },
        []string{"method", "route", "code"},
    )

    // Redis metrics
    RedisOperationDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "redis_operation_duration_seconds",
            Help:    "Redis operation duration",
            Buckets: prometheus.DefBuckets,
        },
        []string{"operation", "status"},
    )
    RedisErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "redis_errors_total",
            Help: "Total Redis errors",
        },
        []string{"operation"},
    )
)

func init() {
    // MustRegister panics if registration fails (e.g. duplicate)
    prometheus.MustRegister(
        CacheLookups, CacheWrites, WriteBehindFailures,
        ProviderFetches, ProviderLatency, ProviderWait,
        RefreshOutcomes,
        HTTPRequestDuration,
        RedisOperationDuration, RedisErrors,
    )
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
    return promhttp.Handler()
}

// Status maps an error to the "success"/"error" label used across metrics.
func Status(err error) string {
    if err != nil {
        return "error"
    }
    return "success"
}
