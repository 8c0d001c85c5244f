package marketdata

import (
    "context"
    "fmt"
    "sync"

    "github.com/alim08/marketdata/pkg/metrics"
    "github.com/alim08/marketdata/pkg/models"
    "github.com/alim08/marketdata/pkg/symbols"
    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"
)

// outcomes is the per-symbol result of a bulk refresh. Every symbol starts
// false so the result always has one entry per symbol.
type outcomes struct {
    mu sync.Mutex
    m  map[models.Symbol]bool
}

func newOutcomes(syms []models.Symbol) *outcomes {
    m := make(map[models.Symbol]bool, len(syms))
    for _, s := range syms {
        m[s] = false
    }
    return &outcomes{m: m}
}

func (o *outcomes) set(sym models.Symbol, ok bool) {
    o.mu.Lock()
    o.m[sym] = ok
    o.mu.Unlock()
}

func (o *outcomes) snapshot() map[models.Symbol]bool {
    o.mu.Lock()
    defer o.mu.Unlock()
    out := make(map[models.Symbol]bool, len(o.m))
    for k, v := range o.m {
        out[k] = v
    }
    return out
}

// RefreshAsset force-fetches price and detail of symbol concurrently and
// caches what comes back. It reports true when neither fetch raised an
// error; a provider with no data is not a failure. Errors are returned only
// for invalid input and cancellation.
func (o *Orchestrator) RefreshAsset(ctx context.Context, symbol string, class models.AssetClass) (bool, error) {
    sym, err := symbols.Normalize(symbol)
    if err != nil {
        return false, err
    }
    ok := o.refreshOne(ctx, sym, class)
    if err := ctx.Err(); err != nil {
        return false, err
    }
    return ok, nil
}

// RefreshAssets refreshes every symbol and returns one outcome per
// deduplicated symbol. With a class, prices are warmed in one batch or
// fan-out and details follow one symbol at a time. Without one, symbols are
// grouped by inferred class and refreshed concurrently.
func (o *Orchestrator) RefreshAssets(ctx context.Context, syms []string, class *models.AssetClass) (map[models.Symbol]bool, error) {
    normalized, err := symbols.NormalizeAll(syms)
    if err != nil {
        return nil, err
    }
    results := newOutcomes(normalized)

    if class != nil {
        o.refreshClass(ctx, normalized, *class, results)
    } else {
        var wg sync.WaitGroup
        for cls, group := range symbols.GroupByAssetClass(normalized) {
            wg.Add(1)
            go func(cls models.AssetClass, group []models.Symbol) {
                defer wg.Done()
                var g errgroup.Group
                g.SetLimit(o.fanOut)
                for _, sym := range group {
                    sym := sym
                    g.Go(func() error {
                        results.set(sym, o.refreshOne(ctx, sym, cls))
                        return nil
                    })
                }
                _ = g.Wait()
            }(cls, group)
        }
        wg.Wait()
    }

    if err := ctx.Err(); err != nil {
        return nil, err
    }
    return results.snapshot(), nil
}

// refreshClass warms prices for syms in one pass, then refreshes details
// sequentially. A symbol succeeds when both its price and detail refresh
// did.
func (o *Orchestrator) refreshClass(ctx context.Context, syms []models.Symbol, class models.AssetClass, results *outcomes) {
    set, err := o.pricesForClass(ctx, syms, class, true, modeSync)
    if err != nil {
        if ctx.Err() == nil {
            o.log.Warn("price warm-up failed", zap.String("asset_class", class.String()), zap.Error(err))
            for _, sym := range syms {
                o.record(sym, class, false)
            }
        }
        return
    }

    for _, sym := range syms {
        if ctx.Err() != nil {
            return
        }
        ok := true
        if ferr := set.failed[sym]; ferr != nil {
            o.log.Warn("refresh failed", zap.String("symbol", sym.String()), zap.String("kind", "price"), zap.Error(ferr))
            ok = false
        }
        if err := safely(func() error {
            _, err := o.loadDetail(ctx, sym, class, true)
            return err
        }); err != nil {
            o.log.Warn("refresh failed", zap.String("symbol", sym.String()), zap.String("kind", "detail"), zap.Error(err))
            ok = false
        }
        results.set(sym, ok)
        o.record(sym, class, ok)
    }
}

// refreshOne runs the forced price and detail loads side by side and
// converts any error or panic into false.
func (o *Orchestrator) refreshOne(ctx context.Context, sym models.Symbol, class models.AssetClass) bool {
    var g errgroup.Group
    g.Go(func() error {
        return safely(func() error {
            _, err := o.loadPrice(ctx, sym, class, true)
            return err
        })
    })
    g.Go(func() error {
        return safely(func() error {
            _, err := o.loadDetail(ctx, sym, class, true)
            return err
        })
    })
    if err := g.Wait(); err != nil {
        if ctx.Err() == nil {
            o.log.Warn("refresh failed", zap.String("symbol", sym.String()), zap.String("asset_class", class.String()), zap.Error(err))
        }
        o.record(sym, class, false)
        return false
    }
    o.record(sym, class, true)
    return true
}

func (o *Orchestrator) record(sym models.Symbol, class models.AssetClass, ok bool) {
    status := "success"
    if !ok {
        status = "failure"
    }
    metrics.RefreshOutcomes.WithLabelValues(class.String(), status).Inc()
    o.log.Debug("refresh outcome", zap.String("symbol", sym.String()), zap.Bool("ok", ok))
}

// safely runs fn and turns a panic into an error.
func safely(fn func() error) (err error) {
    defer func() {
        if r := recover(); r != nil {
            err = fmt.Errorf("panic: %v", r)
        }
    }()
    return fn()
}
