// Package marketdata serves prices and asset details through a cache-aside
// layer in front of rate-limited external providers.
//
// Provider and cache I/O failures are absorbed: reads degrade to "not
// found" and refreshes to a false outcome. Only invalid input, missing
// provider configuration and cancellation are returned as errors.
package marketdata

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/alim08/marketdata/pkg/cachekey"
    "github.com/alim08/marketdata/pkg/logger"
    "github.com/alim08/marketdata/pkg/models"
    "github.com/alim08/marketdata/pkg/provider"
    "github.com/alim08/marketdata/pkg/symbols"
    "go.uber.org/zap"
)

// ProviderResolver returns the provider serving an asset class.
// *provider.Registry implements it.
type ProviderResolver interface {
    ProviderFor(class models.AssetClass) (provider.ExternalProvider, error)
}

const (
    defaultWriteTimeout = 5 * time.Second
    defaultErrorBuffer  = 64
    defaultFanOut       = 16
)

// Orchestrator holds no per-call state; it is safe for concurrent use.
type Orchestrator struct {
    cache    *store
    resolver ProviderResolver
    log      *zap.Logger
    writes   *writeBehind

    writeTimeout time.Duration
    errorBuffer  int
    fanOut       int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
    return func(o *Orchestrator) {
        o.log = l
    }
}

// WithWriteTimeout bounds each fire-and-forget cache write.
func WithWriteTimeout(d time.Duration) Option {
    return func(o *Orchestrator) {
        if d > 0 {
            o.writeTimeout = d
        }
    }
}

// WithErrorBuffer sizes the queue of failed background writes awaiting
// logging.
func WithErrorBuffer(n int) Option {
    return func(o *Orchestrator) {
        if n > 0 {
            o.errorBuffer = n
        }
    }
}

// WithMaxFanOut caps concurrent per-symbol provider calls within one
// request.
func WithMaxFanOut(n int) Option {
    return func(o *Orchestrator) {
        if n > 0 {
            o.fanOut = n
        }
    }
}

// New wires an orchestrator. Call Close to flush background cache writes.
func New(cache KeyValueCache, policy *cachekey.Policy, resolver ProviderResolver, options ...Option) *Orchestrator {
    o := &Orchestrator{
        resolver:     resolver,
        writeTimeout: defaultWriteTimeout,
        errorBuffer:  defaultErrorBuffer,
        fanOut:       defaultFanOut,
    }
    for _, option := range options {
        option(o)
    }
    o.log = logger.Or(o.log).With(zap.String("component", "marketdata"))
    o.cache = &store{kv: cache, policy: policy, log: o.log}
    o.writes = newWriteBehind(o.writeTimeout, o.errorBuffer, o.log)
    return o
}

// Close waits for in-flight background cache writes, bounded by ctx.
func (o *Orchestrator) Close(ctx context.Context) error {
    return o.writes.close(ctx)
}

// GetPrice returns the price of symbol, from cache unless forceRefresh is
// set. A nil quote without error means no data is available now.
func (o *Orchestrator) GetPrice(ctx context.Context, symbol string, class models.AssetClass, forceRefresh bool) (*models.PriceQuote, error) {
    sym, err := symbols.Normalize(symbol)
    if err != nil {
        return nil, err
    }
    q, err := o.loadPrice(ctx, sym, class, forceRefresh)
    if err := o.absorb(ctx, err, sym, class, models.Price); err != nil {
        return nil, err
    }
    return q, nil
}

// GetDetail returns asset details of symbol, from cache unless forceRefresh
// is set. Details are always fetched one symbol at a time.
func (o *Orchestrator) GetDetail(ctx context.Context, symbol string, class models.AssetClass, forceRefresh bool) (*models.AssetDetail, error) {
    sym, err := symbols.Normalize(symbol)
    if err != nil {
        return nil, err
    }
    d, err := o.loadDetail(ctx, sym, class, forceRefresh)
    if err := o.absorb(ctx, err, sym, class, models.Detail); err != nil {
        return nil, err
    }
    return d, nil
}

// loadPrice is the cache-aside read. It returns every failure unabsorbed;
// a non-nil quote together with an error means the fetch succeeded and the
// cache write did not.
func (o *Orchestrator) loadPrice(ctx context.Context, sym models.Symbol, class models.AssetClass, force bool) (*models.PriceQuote, error) {
    if !force {
        q, err := o.cache.getPrice(ctx, sym, class)
        if err != nil || q != nil {
            return q, err
        }
    }
    p, err := o.resolver.ProviderFor(class)
    if err != nil {
        return nil, err
    }
    q, err := p.FetchPrice(ctx, sym)
    if err != nil {
        return nil, fmt.Errorf("%s price %s: %w", p.Name(), sym, err)
    }
    if q == nil {
        o.log.Debug("provider miss", zap.String("symbol", sym.String()), zap.String("kind", "price"), zap.String("source", p.Name()))
        return nil, nil
    }
    return q, o.cache.putPrice(ctx, *q, class, modeSync)
}

func (o *Orchestrator) loadDetail(ctx context.Context, sym models.Symbol, class models.AssetClass, force bool) (*models.AssetDetail, error) {
    if !force {
        d, err := o.cache.getDetail(ctx, sym, class)
        if err != nil || d != nil {
            return d, err
        }
    }
    p, err := o.resolver.ProviderFor(class)
    if err != nil {
        return nil, err
    }
    d, err := p.FetchDetail(ctx, sym)
    if err != nil {
        return nil, fmt.Errorf("%s detail %s: %w", p.Name(), sym, err)
    }
    if d == nil {
        o.log.Debug("provider miss", zap.String("symbol", sym.String()), zap.String("kind", "detail"), zap.String("source", p.Name()))
        return nil, nil
    }
    return d, o.cache.putDetail(ctx, *d, class, modeSync)
}

// absorb decides which failures reach the caller of a read: cancellation
// and provider configuration errors. Everything else is logged.
func (o *Orchestrator) absorb(ctx context.Context, err error, sym models.Symbol, class models.AssetClass, kind models.DataKind) error {
    if err == nil {
        return nil
    }
    if cerr := ctx.Err(); cerr != nil {
        return cerr
    }
    if isConfigError(err) {
        return err
    }
    o.log.Warn("lookup degraded",
        zap.String("symbol", sym.String()),
        zap.String("asset_class", class.String()),
        zap.String("kind", kind.String()),
        zap.Error(err))
    return nil
}

func isConfigError(err error) bool {
    return errors.Is(err, provider.ErrUnsupportedAssetClass) ||
        errors.Is(err, provider.ErrUnsupportedProvider) ||
        errors.Is(err, provider.ErrProviderUnavailable)
}
