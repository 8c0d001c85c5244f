package provider

import (
    "fmt"
    "strings"
    "sync"

    "github.com/alim08/marketdata/pkg/logger"
    "github.com/alim08/marketdata/pkg/models"
    "go.uber.org/zap"
    "golang.org/x/sync/singleflight"
)

// Route names the backing source for one asset class. Fallback is carried
// through from configuration but never used to substitute a failing
// primary.
type Route struct {
    Primary  string
    Fallback string
}

// Registry resolves one provider per asset class and keeps it for reuse.
type Registry struct {
    routes    map[models.AssetClass]Route
    factories map[string]Factory
    log       *zap.Logger

    mu        sync.RWMutex
    providers map[models.AssetClass]ExternalProvider
    group     singleflight.Group
}

// NewRegistry builds a registry over routes. Source names are matched
// case-insensitively against the registered factories.
func NewRegistry(routes map[models.AssetClass]Route, log *zap.Logger) *Registry {
    r := &Registry{
        routes:    make(map[models.AssetClass]Route, len(routes)),
        factories: make(map[string]Factory),
        log:       logger.Or(log),
        providers: make(map[models.AssetClass]ExternalProvider),
    }
    for class, route := range routes {
        r.routes[class] = route
    }
    return r
}

// Register makes a source available under name. Call before serving.
func (r *Registry) Register(name string, f Factory) {
    r.mu.Lock()
    r.factories[strings.ToLower(name)] = f
    r.mu.Unlock()
}

// ProviderFor returns the memoized provider for class, constructing it on
// first use. Concurrent first calls for one class construct it once.
// Construction failures are returned to the caller and not memoized.
func (r *Registry) ProviderFor(class models.AssetClass) (ExternalProvider, error) {
    r.mu.RLock()
    p, ok := r.providers[class]
    r.mu.RUnlock()
    if ok {
        return p, nil
    }

    v, err, _ := r.group.Do(class.String(), func() (interface{}, error) {
        r.mu.RLock()
        p, ok := r.providers[class]
        r.mu.RUnlock()
        if ok {
            return p, nil
        }

        p, err := r.build(class)
        if err != nil {
            return nil, err
        }
        r.mu.Lock()
        r.providers[class] = p
        r.mu.Unlock()
        return p, nil
    })
    if err != nil {
        return nil, err
    }
    return v.(ExternalProvider), nil
}

func (r *Registry) build(class models.AssetClass) (ExternalProvider, error) {
    route, ok := r.routes[class]
    if !ok || route.Primary == "" {
        return nil, fmt.Errorf("%w: %s", ErrUnsupportedAssetClass, class)
    }

    r.mu.RLock()
    factory, ok := r.factories[strings.ToLower(route.Primary)]
    r.mu.RUnlock()
    if !ok {
        return nil, fmt.Errorf("%w: %q for %s", ErrUnsupportedProvider, route.Primary, class)
    }

    p, err := factory(class)
    if err != nil {
        return nil, fmt.Errorf("%w: %s for %s: %w", ErrProviderUnavailable, route.Primary, class, err)
    }
    r.log.Info("provider created",
        zap.String("asset_class", class.String()),
        zap.String("source", p.Name()),
        zap.String("fallback", route.Fallback),
        zap.Bool("batch", p.SupportsBatch()))
    return p, nil
}
