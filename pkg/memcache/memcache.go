// Package memcache is an in-process key-value cache with per-entry expiry.
// It backs the service when no Redis URL is configured.
package memcache

import (
    "context"
    "time"

    "github.com/jellydator/ttlcache/v3"
)

// Cache is safe for concurrent use. Once MaxItems entries are stored the
// least recently used one is evicted; zero means unbounded. Expired entries
// are purged in the background until Close is called.
type Cache struct {
    MaxItems int

    items *ttlcache.Cache[string, []byte]
}

func New(maxItems int) *Cache {
    opts := []ttlcache.Option[string, []byte]{
        // a hit must not extend the freshness of a quote
        ttlcache.WithDisableTouchOnHit[string, []byte](),
    }
    if maxItems > 0 {
        opts = append(opts, ttlcache.WithCapacity[string, []byte](uint64(maxItems)))
    }
    c := &Cache{MaxItems: maxItems, items: ttlcache.New[string, []byte](opts...)}
    go c.items.Start()
    return c
}

// Get returns a copy of the live value stored at key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
    if err := ctx.Err(); err != nil {
        return nil, false, err
    }
    item := c.items.Get(key)
    if item == nil {
        return nil, false, nil
    }
    return clone(item.Value()), true, nil
}

// Set stores value until now+ttl. Non-positive ttls are ignored.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    if ttl <= 0 {
        return nil
    }
    c.items.Set(key, clone(value), ttl)
    return nil
}

// Exists reports whether a live entry is stored at key.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
    if err := ctx.Err(); err != nil {
        return false, err
    }
    return c.items.Get(key) != nil, nil
}

// Remove deletes key and reports whether a live entry was removed.
func (c *Cache) Remove(ctx context.Context, key string) (bool, error) {
    if err := ctx.Err(); err != nil {
        return false, err
    }
    live := c.items.Get(key) != nil
    c.items.Delete(key)
    return live, nil
}

// Len returns the number of stored entries, expired ones not yet purged
// included.
func (c *Cache) Len() int {
    return c.items.Len()
}

// Close stops the background purge.
func (c *Cache) Close() {
    c.items.Stop()
}

func clone(b []byte) []byte {
    out := make([]byte, len(b))
    copy(out, b)
    return out
}
