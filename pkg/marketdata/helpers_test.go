package marketdata

import (
    "context"
    "fmt"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/alim08/marketdata/pkg/cachekey"
    "github.com/alim08/marketdata/pkg/memcache"
    "github.com/alim08/marketdata/pkg/models"
    "github.com/alim08/marketdata/pkg/provider"
    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/require"
    "go.uber.org/mock/gomock"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "go.uber.org/zap/zaptest/observer"
)

var lastUpdated = time.Date(2024, 5, 10, 16, 0, 0, 0, time.UTC)

const (
    equityPriceTTL  = 15 * time.Minute
    equityDetailTTL = 24 * time.Hour
    cryptoPriceTTL  = 5 * time.Minute
    cryptoDetailTTL = 12 * time.Hour
)

// recordingCache is an in-memory KeyValueCache that remembers the TTL of
// every write and can be told to fail.
type recordingCache struct {
    *memcache.Cache

    mu     sync.Mutex
    ttls   map[string]time.Duration
    getErr error
    setErr error
}

func newRecordingCache() *recordingCache {
    return &recordingCache{Cache: memcache.New(0), ttls: map[string]time.Duration{}}
}

func (c *recordingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
    c.mu.Lock()
    err := c.getErr
    c.mu.Unlock()
    if err != nil {
        return nil, false, err
    }
    return c.Cache.Get(ctx, key)
}

func (c *recordingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
    c.mu.Lock()
    err := c.setErr
    if err == nil {
        c.ttls[key] = ttl
    }
    c.mu.Unlock()
    if err != nil {
        return err
    }
    return c.Cache.Set(ctx, key, value, ttl)
}

func (c *recordingCache) ttl(key string) (time.Duration, bool) {
    c.mu.Lock()
    defer c.mu.Unlock()
    d, ok := c.ttls[key]
    return d, ok
}

func (c *recordingCache) writes() int {
    c.mu.Lock()
    defer c.mu.Unlock()
    return len(c.ttls)
}

type harness struct {
    orch     *Orchestrator
    cache    *recordingCache
    logs     *observer.ObservedLogs
    resolves int32
}

func testPolicy(t *testing.T) *cachekey.Policy {
    t.Helper()
    p, err := cachekey.NewPolicy(map[models.AssetClass]cachekey.Durations{
        models.Equity: {Price: equityPriceTTL, Detail: equityDetailTTL},
        models.Crypto: {Price: cryptoPriceTTL, Detail: cryptoDetailTTL},
    }, cachekey.Durations{Price: equityPriceTTL, Detail: equityDetailTTL})
    require.NoError(t, err)
    return p
}

// newHarness builds an orchestrator over providers. Classes without a
// provider resolve to ErrUnsupportedAssetClass.
func newHarness(t *testing.T, providers map[models.AssetClass]provider.ExternalProvider, options ...Option) *harness {
    t.Helper()
    core, logs := observer.New(zapcore.DebugLevel)
    h := &harness{cache: newRecordingCache(), logs: logs}

    resolver := resolverFunc(func(class models.AssetClass) (provider.ExternalProvider, error) {
        atomic.AddInt32(&h.resolves, 1)
        if p, ok := providers[class]; ok {
            return p, nil
        }
        return nil, fmt.Errorf("%w: %s", provider.ErrUnsupportedAssetClass, class)
    })
    options = append([]Option{WithLogger(zap.New(core)), WithWriteTimeout(time.Second)}, options...)
    h.orch = New(h.cache, testPolicy(t), resolver, options...)
    t.Cleanup(func() {
        ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
        defer cancel()
        _ = h.orch.Close(ctx)
    })
    return h
}

// flush waits for background writes.
func (h *harness) flush(t *testing.T) {
    t.Helper()
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    require.NoError(t, h.orch.Close(ctx))
}

func (h *harness) seedPrice(t *testing.T, class models.AssetClass, q *models.PriceQuote) {
    t.Helper()
    data, err := models.MarshalQuote(*q)
    require.NoError(t, err)
    require.NoError(t, h.cache.Cache.Set(context.Background(), fmt.Sprintf("%s:%s:Price", class, q.Symbol), data, time.Hour))
}

func (h *harness) seedDetail(t *testing.T, class models.AssetClass, d *models.AssetDetail) {
    t.Helper()
    data, err := models.MarshalDetail(*d)
    require.NoError(t, err)
    require.NoError(t, h.cache.Cache.Set(context.Background(), fmt.Sprintf("%s:%s:Detail", class, d.Symbol), data, time.Hour))
}

type resolverFunc func(models.AssetClass) (provider.ExternalProvider, error)

func (f resolverFunc) ProviderFor(class models.AssetClass) (provider.ExternalProvider, error) {
    return f(class)
}

func newMockProvider(ctrl *gomock.Controller, class models.AssetClass, batch bool) *MockExternalProvider {
    p := NewMockExternalProvider(ctrl)
    p.EXPECT().Name().Return("mock-" + class.String()).AnyTimes()
    p.EXPECT().AssetClass().Return(class).AnyTimes()
    p.EXPECT().SupportsBatch().Return(batch).AnyTimes()
    return p
}

func quote(sym models.Symbol, price string) *models.PriceQuote {
    return &models.PriceQuote{
        Symbol:       sym,
        CurrentPrice: decimal.RequireFromString(price),
        LastUpdated:  lastUpdated,
    }
}

func detail(sym models.Symbol, class models.AssetClass) *models.AssetDetail {
    return &models.AssetDetail{
        Symbol:      sym,
        Name:        sym.String() + " Holdings",
        AssetClass:  class,
        LastUpdated: lastUpdated,
    }
}

func symbolsOf(quotes []models.PriceQuote) []models.Symbol {
    out := make([]models.Symbol, 0, len(quotes))
    for _, q := range quotes {
        out = append(out, q.Symbol)
    }
    return out
}
