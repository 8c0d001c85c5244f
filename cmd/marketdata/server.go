package main

import (
    "context"
    "encoding/json"
    "net/http"
    "strconv"
    "time"

    "github.com/alim08/marketdata/pkg/logger"
    "github.com/alim08/marketdata/pkg/metrics"
    "github.com/gorilla/mux"
    "go.uber.org/zap"
)

// pinger is the readiness probe of the cache backend. The in-process cache
// has none and is always ready.
type pinger interface {
    Ping(ctx context.Context) error
}

func newRouter(cache pinger) *mux.Router {
    router := mux.NewRouter()
    router.Use(loggingMiddleware)
    router.Use(metricsMiddleware)

    router.HandleFunc("/health", healthHandler).Methods("GET")
    router.HandleFunc("/ready", readyHandler(cache)).Methods("GET")
    return router
}

func newMetricsRouter() *mux.Router {
    router := mux.NewRouter()
    router.Handle("/metrics", metrics.Handler()).Methods("GET")
    return router
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    if err := json.NewEncoder(w).Encode(body); err != nil {
        logger.Log.Error("JSON encoding error", zap.Error(err))
    }
}

// Liveness only: the process is up.
func healthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func readyHandler(cache pinger) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        if cache != nil {
            ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
            defer cancel()
            if err := cache.Ping(ctx); err != nil {
                logger.Log.Warn("readiness check failed", zap.Error(err))
                writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "cache unavailable"})
                return
            }
        }
        writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
    }
}

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
    http.ResponseWriter
    code int
}

func (r *statusRecorder) WriteHeader(code int) {
    r.code = code
    r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
        next.ServeHTTP(rec, r)
        logger.Log.Debug("HTTP request",
            zap.String("method", r.Method),
            zap.String("path", r.URL.Path),
            zap.Int("code", rec.code),
            zap.Duration("duration", time.Since(start)))
    })
}

func metricsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
        next.ServeHTTP(rec, r)

        // label by route template, not raw path
        route := r.URL.Path
        if cur := mux.CurrentRoute(r); cur != nil {
            if tpl, err := cur.GetPathTemplate(); err == nil {
                route = tpl
            }
        }
        metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.code)).Observe(time.Since(start).Seconds())
    })
}
