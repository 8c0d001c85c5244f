// Package ratelimit gates provider calls on a shared limiter so one API
// key's quota is respected across every asset class that uses it.
package ratelimit

import (
    "context"
    "fmt"
    "time"

    "github.com/alim08/marketdata/pkg/metrics"
    "github.com/alim08/marketdata/pkg/models"
    "github.com/alim08/marketdata/pkg/provider"
    "golang.org/x/time/rate"
)

// PerMinute builds a limiter from a requests-per-minute quota. It starts
// with burst tokens available.
func PerMinute(requests float64, burst int) *rate.Limiter {
    if burst <= 0 {
        burst = 1
    }
    return rate.NewLimiter(rate.Limit(requests/60), burst)
}

// Provider wraps an ExternalProvider and takes one token per remote call.
type Provider struct {
    P       provider.ExternalProvider
    Limiter *rate.Limiter
}

func (p *Provider) Name() string                  { return p.P.Name() }
func (p *Provider) AssetClass() models.AssetClass { return p.P.AssetClass() }
func (p *Provider) SupportsBatch() bool           { return p.P.SupportsBatch() }

func (p *Provider) wait(ctx context.Context) error {
    if p.Limiter == nil {
        return nil
    }
    start := time.Now()
    err := p.Limiter.Wait(ctx)
    metrics.ProviderWait.WithLabelValues(p.P.Name()).Observe(time.Since(start).Seconds())
    if err == nil {
        return nil
    }
    // Wait refuses up front when the token would arrive after the deadline.
    if ctxErr := ctx.Err(); ctxErr != nil {
        return ctxErr
    }
    return fmt.Errorf("%s rate limit: %w", p.P.Name(), err)
}

func (p *Provider) FetchPrice(ctx context.Context, symbol models.Symbol) (*models.PriceQuote, error) {
    if err := p.wait(ctx); err != nil {
        return nil, err
    }
    return p.P.FetchPrice(ctx, symbol)
}

func (p *Provider) FetchBatchPrices(ctx context.Context, symbols []models.Symbol) ([]models.PriceQuote, error) {
    if !p.P.SupportsBatch() {
        return nil, provider.ErrBatchNotSupported
    }
    if err := p.wait(ctx); err != nil {
        return nil, err
    }
    return p.P.FetchBatchPrices(ctx, symbols)
}

func (p *Provider) FetchDetail(ctx context.Context, symbol models.Symbol) (*models.AssetDetail, error) {
    if err := p.wait(ctx); err != nil {
        return nil, err
    }
    return p.P.FetchDetail(ctx, symbol)
}

// Wrap decorates every provider built by f with l. The limiter is shared by
// all classes the factory serves.
func Wrap(f provider.Factory, l *rate.Limiter) provider.Factory {
    return func(class models.AssetClass) (provider.ExternalProvider, error) {
        p, err := f(class)
        if err != nil {
            return nil, err
        }
        return &Provider{P: p, Limiter: l}, nil
    }
}
