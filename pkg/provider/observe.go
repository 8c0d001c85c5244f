package provider

import (
    "time"

    "github.com/alim08/marketdata/pkg/metrics"
)

// Observe records one provider call: found reports whether usable data came
// back, err an unexpected failure.
func Observe(source, op string, start time.Time, found bool, err error) {
    result := "ok"
    switch {
    case err != nil:
        result = "error"
    case !found:
        result = "miss"
    }
    metrics.ProviderFetches.WithLabelValues(source, op, result).Inc()
    metrics.ProviderLatency.WithLabelValues(source, op).Observe(time.Since(start).Seconds())
}
