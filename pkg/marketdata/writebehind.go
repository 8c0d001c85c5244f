package marketdata

import (
    "context"
    "sync"
    "time"

    "github.com/alim08/marketdata/pkg/metrics"
    "go.uber.org/zap"
)

const (
    modeSync  = "sync"
    modeAsync = "async"
)

// writeBehind runs cache writes the caller does not wait for. Each write is
// detached from the caller's cancellation and bounded by timeout. Failures
// go to errs, drained by a single logging goroutine.
type writeBehind struct {
    timeout time.Duration
    log     *zap.Logger

    mu      sync.Mutex
    closed  bool
    pending sync.WaitGroup
    errs    chan error
    stop    sync.Once
    drained chan struct{}
}

func newWriteBehind(timeout time.Duration, buffer int, log *zap.Logger) *writeBehind {
    w := &writeBehind{
        timeout: timeout,
        log:     log,
        errs:    make(chan error, buffer),
        drained: make(chan struct{}),
    }
    go w.drain()
    return w
}

func (w *writeBehind) drain() {
    defer close(w.drained)
    for err := range w.errs {
        w.log.Warn("write-behind cache write failed", zap.Error(err))
    }
}

// submit schedules fn. After close, fn runs inline so no write is lost.
func (w *writeBehind) submit(ctx context.Context, fn func(ctx context.Context) error) {
    w.mu.Lock()
    if w.closed {
        w.mu.Unlock()
        if err := w.run(ctx, fn); err != nil {
            w.log.Warn("cache write failed", zap.Error(err))
        }
        return
    }
    w.pending.Add(1)
    w.mu.Unlock()

    go func() {
        defer w.pending.Done()
        if err := w.run(ctx, fn); err != nil {
            w.report(err)
        }
    }()
}

func (w *writeBehind) run(ctx context.Context, fn func(ctx context.Context) error) error {
    wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
    defer cancel()
    return fn(wctx)
}

// report never blocks a writer: with a full buffer the error is logged here.
func (w *writeBehind) report(err error) {
    metrics.WriteBehindFailures.Inc()
    select {
    case w.errs <- err:
    default:
        w.log.Warn("write-behind cache write failed (error buffer full)", zap.Error(err))
    }
}

// close waits for pending writes, bounded by ctx, then stops the drain.
func (w *writeBehind) close(ctx context.Context) error {
    w.mu.Lock()
    w.closed = true
    w.mu.Unlock()

    idle := make(chan struct{})
    go func() {
        w.pending.Wait()
        close(idle)
    }()
    select {
    case <-idle:
    case <-ctx.Done():
        return ctx.Err()
    }

    w.stop.Do(func() { close(w.errs) })
    <-w.drained
    return nil
}
