package marketdata

import (
    "context"
    "fmt"
    "time"

    "github.com/alim08/marketdata/pkg/cachekey"
    "github.com/alim08/marketdata/pkg/metrics"
    "github.com/alim08/marketdata/pkg/models"
    "go.uber.org/zap"
)

// KeyValueCache is the external store behind the orchestrator. Values are
// opaque; implementations must be safe for concurrent use.
type KeyValueCache interface {
    Get(ctx context.Context, key string) ([]byte, bool, error)
    Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
    Exists(ctx context.Context, key string) (bool, error)
    Remove(ctx context.Context, key string) (bool, error)
}

// store is the typed layer over KeyValueCache. Reads absorb I/O and decode
// failures as misses; only cancellation is returned.
type store struct {
    kv     KeyValueCache
    policy *cachekey.Policy
    log    *zap.Logger
}

func (s *store) read(ctx context.Context, key string, kind models.DataKind) ([]byte, bool, error) {
    data, ok, err := s.kv.Get(ctx, key)
    switch {
    case err != nil:
        if cerr := ctx.Err(); cerr != nil {
            return nil, false, cerr
        }
        metrics.CacheLookups.WithLabelValues(kind.String(), "error").Inc()
        s.log.Warn("cache read failed, treating as miss", zap.String("key", key), zap.Error(err))
        return nil, false, nil
    case !ok:
        metrics.CacheLookups.WithLabelValues(kind.String(), "miss").Inc()
        s.log.Debug("cache miss", zap.String("key", key))
        return nil, false, nil
    }
    metrics.CacheLookups.WithLabelValues(kind.String(), "hit").Inc()
    s.log.Debug("cache hit", zap.String("key", key))
    return data, true, nil
}

func (s *store) getPrice(ctx context.Context, sym models.Symbol, class models.AssetClass) (*models.PriceQuote, error) {
    key := s.policy.KeyFor(sym, class, models.Price)
    data, ok, err := s.read(ctx, key, models.Price)
    if err != nil || !ok {
        return nil, err
    }
    q, err := models.UnmarshalQuote(data)
    if err != nil {
        s.log.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
        return nil, nil
    }
    return &q, nil
}

func (s *store) getDetail(ctx context.Context, sym models.Symbol, class models.AssetClass) (*models.AssetDetail, error) {
    key := s.policy.KeyFor(sym, class, models.Detail)
    data, ok, err := s.read(ctx, key, models.Detail)
    if err != nil || !ok {
        return nil, err
    }
    d, err := models.UnmarshalDetail(data)
    if err != nil {
        s.log.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
        return nil, nil
    }
    return &d, nil
}

// putPrice writes q under the Price TTL of class.
func (s *store) putPrice(ctx context.Context, q models.PriceQuote, class models.AssetClass, mode string) error {
    data, err := models.MarshalQuote(q)
    if err != nil {
        return err
    }
    return s.write(ctx, s.policy.KeyFor(q.Symbol, class, models.Price), data, s.policy.TTLFor(class, models.Price), models.Price, mode)
}

// putDetail writes d under the Detail TTL of class.
func (s *store) putDetail(ctx context.Context, d models.AssetDetail, class models.AssetClass, mode string) error {
    data, err := models.MarshalDetail(d)
    if err != nil {
        return err
    }
    return s.write(ctx, s.policy.KeyFor(d.Symbol, class, models.Detail), data, s.policy.TTLFor(class, models.Detail), models.Detail, mode)
}

func (s *store) write(ctx context.Context, key string, data []byte, ttl time.Duration, kind models.DataKind, mode string) error {
    err := s.kv.Set(ctx, key, data, ttl)
    metrics.CacheWrites.WithLabelValues(kind.String(), mode, metrics.Status(err)).Inc()
    if err != nil {
        return fmt.Errorf("cache write %s: %w", key, err)
    }
    s.log.Info("cache populated", zap.String("key", key), zap.Duration("ttl", ttl), zap.String("mode", mode))
    return nil
}
