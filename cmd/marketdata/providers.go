package main

import (
    "time"

    "github.com/alim08/marketdata/pkg/config"
    "github.com/alim08/marketdata/pkg/httpx"
    "github.com/alim08/marketdata/pkg/provider"
    "github.com/alim08/marketdata/pkg/provider/alphavantage"
    "github.com/alim08/marketdata/pkg/provider/coingecko"
    "github.com/alim08/marketdata/pkg/provider/ratelimit"
    "go.uber.org/zap"
)

const defaultSourceTimeout = 10 * time.Second

// buildRegistry registers every known source. Each source gets its own HTTP
// client and one rate limiter shared by all asset classes it serves.
func buildRegistry(cfg *config.Config, log *zap.Logger) (*provider.Registry, error) {
    routes, err := cfg.Routes()
    if err != nil {
        return nil, err
    }
    reg := provider.NewRegistry(routes, log)

    av := cfg.Sources[alphavantage.Name]
    avOpts := []alphavantage.Option{
        alphavantage.WithHTTPClient(httpClient(av)),
        alphavantage.WithLogger(log),
    }
    if av.BaseURL != "" {
        avOpts = append(avOpts, alphavantage.WithBaseURL(av.BaseURL))
    }
    reg.Register(alphavantage.Name, limited(alphavantage.Factory(av.APIKey, avOpts...), av))

    cg := cfg.Sources[coingecko.Name]
    cgOpts := []coingecko.Option{
        coingecko.WithHTTPClient(httpClient(cg)),
        coingecko.WithLogger(log),
    }
    if cg.BaseURL != "" {
        cgOpts = append(cgOpts, coingecko.WithBaseURL(cg.BaseURL))
    }
    reg.Register(coingecko.Name, limited(coingecko.Factory(cg.APIKey, cgOpts...), cg))

    return reg, nil
}

func httpClient(src config.Source) *httpx.Client {
    timeout := src.Timeout
    if timeout <= 0 {
        timeout = defaultSourceTimeout
    }
    return httpx.New(timeout)
}

// limited wraps f in a rate limiter unless the source has no quota.
func limited(f provider.Factory, src config.Source) provider.Factory {
    if src.RequestsPerMinute <= 0 {
        return f
    }
    return ratelimit.Wrap(f, ratelimit.PerMinute(src.RequestsPerMinute, src.Burst))
}
