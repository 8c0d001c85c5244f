package main

import (
    "context"
    "sync"
    "time"

    "github.com/alim08/marketdata/pkg/models"
    "github.com/robfig/cron/v3"
    "go.uber.org/zap"
)

type refresher interface {
    RefreshAssets(ctx context.Context, syms []string, class *models.AssetClass) (map[models.Symbol]bool, error)
}

// warmer keeps a fixed symbol list in cache by refreshing it on a cron
// schedule. A run still in progress when the next one is due is skipped.
type warmer struct {
    cron    *cron.Cron
    job     cron.Job
    r       refresher
    symbols []string
    log     *zap.Logger

    ctx    context.Context
    cancel context.CancelFunc
    wg     sync.WaitGroup
}

func newWarmer(r refresher, symbols []string, log *zap.Logger) *warmer {
    ctx, cancel := context.WithCancel(context.Background())
    w := &warmer{
        cron:    cron.New(),
        r:       r,
        symbols: symbols,
        log:     log.With(zap.String("component", "warmer")),
        ctx:     ctx,
        cancel:  cancel,
    }
    // one wrapped job serves both the startup run and the schedule, so they
    // share the skip-if-running guard
    w.job = cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(w.run))
    return w
}

// Schedule registers the refresh under a standard cron spec or descriptor
// such as "@every 5m".
func (w *warmer) Schedule(spec string) error {
    if _, err := w.cron.AddJob(spec, w.job); err != nil {
        return err
    }
    w.log.Info("job registered", zap.String("schedule", spec), zap.Strings("symbols", w.symbols))
    return nil
}

// Start runs one refresh immediately, then follows the schedule.
func (w *warmer) Start() {
    w.wg.Add(1)
    go func() {
        defer w.wg.Done()
        w.job.Run()
    }()
    w.cron.Start()
}

// Stop cancels the refresh in progress and waits for it to return.
func (w *warmer) Stop() {
    w.cancel()
    <-w.cron.Stop().Done()
    w.wg.Wait()
}

func (w *warmer) run() {
    if w.ctx.Err() != nil {
        return
    }
    start := time.Now()
    results, err := w.r.RefreshAssets(w.ctx, w.symbols, nil)
    if err != nil {
        if w.ctx.Err() == nil {
            w.log.Error("cache warm-up failed", zap.Error(err))
        }
        return
    }
    var failed []string
    for sym, ok := range results {
        if !ok {
            failed = append(failed, sym.String())
        }
    }
    w.log.Info("cache warm-up finished",
        zap.Int("symbols", len(results)),
        zap.Int("failed", len(failed)),
        zap.Strings("failed_symbols", failed),
        zap.Duration("duration", time.Since(start)))
}
