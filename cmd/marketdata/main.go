package main

import (
    "context"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/alim08/marketdata/pkg/config"
    "github.com/alim08/marketdata/pkg/logger"
    "github.com/alim08/marketdata/pkg/marketdata"
    "github.com/alim08/marketdata/pkg/memcache"
    "github.com/alim08/marketdata/pkg/redisclient"
    "go.uber.org/zap"
)

func main() {
    // 1. Load configuration
    cfg, err := config.Load()
    if err != nil {
        panic("config load error: " + err.Error())
    }

    // 2. Initialize structured logging
    if err := logger.InitLevel(cfg.LogLevel); err != nil {
        panic("logger init error: " + err.Error())
    }
    defer logger.Log.Sync()
    log := logger.Log

    policy, err := cfg.CachePolicy()
    if err != nil {
        log.Fatal("invalid cache policy", zap.Error(err))
    }

    // 3. Cache backend: Redis when configured, in-process otherwise
    var (
        cache marketdata.KeyValueCache
        ready pinger
    )
    if cfg.RedisURL != "" {
        rdb, err := redisclient.New(cfg.RedisURL)
        if err != nil {
            log.Fatal("failed to create Redis client", zap.Error(err))
        }
        defer rdb.Close()
        cache, ready = rdb, rdb
        log.Info("using redis cache")
    } else {
        mem := memcache.New(cfg.Cache.MaxItems)
        defer mem.Close()
        cache = mem
        log.Warn("REDIS_URL not set, using in-process cache", zap.Int("max_items", cfg.Cache.MaxItems))
    }

    // 4. Providers and orchestrator
    reg, err := buildRegistry(cfg, log)
    if err != nil {
        log.Fatal("failed to build provider registry", zap.Error(err))
    }
    orch := marketdata.New(cache, policy, reg,
        marketdata.WithLogger(log),
        marketdata.WithWriteTimeout(cfg.Cache.WriteTimeout),
        marketdata.WithErrorBuffer(cfg.Cache.ErrorBuffer),
        marketdata.WithMaxFanOut(cfg.MaxFanOut),
    )

    // 5. Optional warm-cache job
    var warm *warmer
    if spec := cfg.RefreshSchedule(); spec != "" {
        warm = newWarmer(orch, cfg.Refresh.Symbols, log)
        if err := warm.Schedule(spec); err != nil {
            log.Fatal("invalid refresh schedule", zap.String("schedule", spec), zap.Error(err))
        }
        warm.Start()
    }

    // 6. Admin and metrics servers
    servers := []*http.Server{
        {
            Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
            Handler:      newRouter(ready),
            ReadTimeout:  10 * time.Second,
            WriteTimeout: 10 * time.Second,
            IdleTimeout:  60 * time.Second,
        },
        {
            Addr:         fmt.Sprintf(":%d", cfg.MetricsPort),
            Handler:      newMetricsRouter(),
            ReadTimeout:  10 * time.Second,
            WriteTimeout: 10 * time.Second,
        },
    }
    for _, srv := range servers {
        srv := srv
        go func() {
            log.Info("starting HTTP server", zap.String("addr", srv.Addr))
            if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
                log.Fatal("failed to start server", zap.Error(err))
            }
        }()
    }

    // 7. Graceful shutdown on SIGINT/SIGTERM
    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    <-stop

    log.Info("shutdown signal received")
    if warm != nil {
        warm.Stop()
    }

    shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
    defer shutdownCancel()
    for _, srv := range servers {
        if err := srv.Shutdown(shutdownCtx); err != nil {
            log.Error("server forced to shutdown", zap.Error(err))
        }
    }
    // flush background cache writes before the backend is closed
    if err := orch.Close(shutdownCtx); err != nil {
        log.Error("pending cache writes abandoned", zap.Error(err))
    }
    log.Info("server exited")
}
