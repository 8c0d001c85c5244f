package marketdata

import (
    "context"
    "fmt"
    "sync"

    "github.com/alim08/marketdata/pkg/models"
    "github.com/alim08/marketdata/pkg/provider"
    "github.com/alim08/marketdata/pkg/symbols"
    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"
)

// priceSet is the result of resolving prices for one asset class. failed
// holds symbols whose fetch or awaited cache write raised an error.
type priceSet struct {
    quotes []models.PriceQuote
    failed map[models.Symbol]error
}

// GetPrices returns prices for symbols in no particular order. Symbols with
// no available data are left out. When class is nil every symbol's class is
// inferred and each class is served concurrently.
func (o *Orchestrator) GetPrices(ctx context.Context, syms []string, class *models.AssetClass, forceRefresh bool) ([]models.PriceQuote, error) {
    normalized, err := symbols.NormalizeAll(syms)
    if err != nil {
        return nil, err
    }

    groups := map[models.AssetClass][]models.Symbol{}
    if class != nil {
        groups[*class] = normalized
    } else {
        groups = symbols.GroupByAssetClass(normalized)
    }

    var (
        mu  sync.Mutex
        out = make([]models.PriceQuote, 0, len(normalized))
    )
    g, gctx := errgroup.WithContext(ctx)
    for cls, group := range groups {
        cls, group := cls, group
        g.Go(func() error {
            set, err := o.pricesForClass(gctx, group, cls, forceRefresh, modeAsync)
            if err != nil {
                return err
            }
            for sym, ferr := range set.failed {
                o.log.Warn("price fetch degraded", zap.String("symbol", sym.String()),
                    zap.String("asset_class", cls.String()), zap.Error(ferr))
            }
            mu.Lock()
            out = append(out, set.quotes...)
            mu.Unlock()
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        if cerr := ctx.Err(); cerr != nil {
            return nil, cerr
        }
        return nil, err
    }
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// pricesForClass runs the cache-aside procedure for symbols of one class:
// concurrent cache reads unless forced, then one batch fetch or a fan-out of
// single fetches for the misses. In modeAsync fetched quotes are cached
// without waiting; in modeSync writes are awaited and failures recorded.
//
// The returned error is cancellation or provider configuration; per-symbol
// failures are reported in priceSet.failed.
func (o *Orchestrator) pricesForClass(ctx context.Context, syms []models.Symbol, class models.AssetClass, force bool, mode string) (priceSet, error) {
    set := priceSet{failed: map[models.Symbol]error{}}

    missing := syms
    if !force {
        cached := make([]*models.PriceQuote, len(syms))
        g, gctx := errgroup.WithContext(ctx)
        g.SetLimit(o.fanOut)
        for i, sym := range syms {
            i, sym := i, sym
            g.Go(func() error {
                q, err := o.cache.getPrice(gctx, sym, class)
                cached[i] = q
                return err
            })
        }
        if err := g.Wait(); err != nil {
            return set, err
        }
        missing = make([]models.Symbol, 0, len(syms))
        for i, q := range cached {
            if q != nil {
                set.quotes = append(set.quotes, *q)
            } else {
                missing = append(missing, syms[i])
            }
        }
    }
    if len(missing) == 0 {
        return set, nil
    }

    p, err := o.resolver.ProviderFor(class)
    if err != nil {
        return set, err
    }
    fetched, err := o.fetchMissing(ctx, p, missing, set.failed)
    if err != nil {
        return set, err
    }

    set.quotes = append(set.quotes, fetched...)
    if err := o.storePrices(ctx, fetched, class, mode, set.failed); err != nil {
        return set, err
    }
    return set, ctx.Err()
}

// fetchMissing asks p for the missing symbols: one batch call when the
// provider supports it, otherwise one concurrent call per symbol. Only
// quotes for requested symbols are returned.
func (o *Orchestrator) fetchMissing(ctx context.Context, p provider.ExternalProvider, missing []models.Symbol, failed map[models.Symbol]error) ([]models.PriceQuote, error) {
    wanted := make(map[models.Symbol]bool, len(missing))
    for _, s := range missing {
        wanted[s] = true
    }

    if p.SupportsBatch() {
        var quotes []models.PriceQuote
        err := safely(func() (err error) {
            quotes, err = p.FetchBatchPrices(ctx, missing)
            return err
        })
        if err != nil {
            if cerr := ctx.Err(); cerr != nil {
                return nil, cerr
            }
            berr := fmt.Errorf("%s batch price: %w", p.Name(), err)
            for _, s := range missing {
                failed[s] = berr
            }
            return nil, nil
        }
        out := make([]models.PriceQuote, 0, len(quotes))
        for _, q := range quotes {
            if !wanted[q.Symbol] {
                o.log.Debug("ignoring unrequested quote", zap.String("symbol", q.Symbol.String()), zap.String("source", p.Name()))
                continue
            }
            delete(wanted, q.Symbol)
            out = append(out, q)
        }
        if len(wanted) > 0 {
            o.log.Debug("provider miss", zap.Int("symbols", len(wanted)), zap.String("kind", "price"), zap.String("source", p.Name()))
        }
        return out, nil
    }

    results := make([]*models.PriceQuote, len(missing))
    errs := make([]error, len(missing))
    var g errgroup.Group
    g.SetLimit(o.fanOut)
    for i, sym := range missing {
        i, sym := i, sym
        g.Go(func() error {
            errs[i] = safely(func() (err error) {
                results[i], err = p.FetchPrice(ctx, sym)
                return err
            })
            return nil
        })
    }
    _ = g.Wait()
    if err := ctx.Err(); err != nil {
        return nil, err
    }

    out := make([]models.PriceQuote, 0, len(missing))
    for i, sym := range missing {
        switch {
        case errs[i] != nil:
            failed[sym] = fmt.Errorf("%s price %s: %w", p.Name(), sym, errs[i])
        case results[i] == nil:
            o.log.Debug("provider miss", zap.String("symbol", sym.String()), zap.String("kind", "price"), zap.String("source", p.Name()))
        default:
            out = append(out, *results[i])
        }
    }
    return out, nil
}

// storePrices caches fetched quotes. Async writes are handed to the
// write-behind worker; sync writes run concurrently and are awaited.
func (o *Orchestrator) storePrices(ctx context.Context, quotes []models.PriceQuote, class models.AssetClass, mode string, failed map[models.Symbol]error) error {
    if mode == modeAsync {
        for _, q := range quotes {
            q := q
            o.writes.submit(ctx, func(wctx context.Context) error {
                return o.cache.putPrice(wctx, q, class, modeAsync)
            })
        }
        return nil
    }

    errs := make([]error, len(quotes))
    var g errgroup.Group
    g.SetLimit(o.fanOut)
    for i, q := range quotes {
        i, q := i, q
        g.Go(func() error {
            errs[i] = o.cache.putPrice(ctx, q, class, modeSync)
            return nil
        })
    }
    _ = g.Wait()
    if err := ctx.Err(); err != nil {
        return err
    }
    for i, err := range errs {
        if err != nil {
            failed[quotes[i].Symbol] = err
        }
    }
    return nil
}
