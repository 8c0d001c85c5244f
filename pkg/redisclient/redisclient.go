package redisclient

import (
    "context"
    "errors"
    "fmt"
    "sync/atomic"
    "time"

    "github.com/alim08/marketdata/pkg/logger"
    "github.com/alim08/marketdata/pkg/metrics"
    "github.com/cenkalti/backoff/v4"
    "github.com/go-redis/redis/v8"
    "go.uber.org/zap"
)

var (
    ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

const (
    stateClosed int32 = iota
    stateOpen
    stateHalfOpen
)

const (
    failureThreshold = 5
    breakerCooldown  = 30 * time.Second
    opTimeout        = 250 * time.Millisecond
    maxRetries       = 3
)

// Client is a key-value cache over Redis strings with retry, a circuit
// breaker and per-operation metrics.
type Client struct {
    rdb *redis.Client
    log *zap.Logger
    // Circuit breaker state
    failureCount int64
    lastFailure  int64
    state        int32
}

// New constructs a Client with sensible pool defaults.
func New(redisURL string) (*Client, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil {
        return nil, fmt.Errorf("invalid redis url: %w", err)
    }
    opt.PoolSize = 20
    opt.MinIdleConns = 5
    opt.MaxRetries = 0 // retries are handled by backoff below
    opt.DialTimeout = 5 * time.Second
    opt.ReadTimeout = 3 * time.Second
    opt.WriteTimeout = 3 * time.Second
    opt.IdleTimeout = 5 * time.Minute
    return NewWithClient(redis.NewClient(opt), nil), nil
}

// NewWithClient wraps an existing go-redis client.
func NewWithClient(rdb *redis.Client, log *zap.Logger) *Client {
    return &Client{rdb: rdb, log: logger.Or(log)}
}

// withMetrics wraps operations with metrics collection
func (c *Client) withMetrics(operation string, fn func() error) error {
    start := time.Now()
    err := fn()
    failed := err
    if errors.Is(err, redis.Nil) {
        failed = nil // a miss is not a failure
    }
    metrics.RedisOperationDuration.WithLabelValues(operation, metrics.Status(failed)).Observe(time.Since(start).Seconds())
    if failed != nil {
        metrics.RedisErrors.WithLabelValues(operation).Inc()
    }
    return err
}

// allow reports whether a call may reach Redis and whether it is the single
// probe admitted after the cooldown. Other callers are rejected while the
// probe is in flight.
func (c *Client) allow() (ok, probe bool) {
    switch atomic.LoadInt32(&c.state) {
    case stateClosed:
        return true, false
    case stateHalfOpen:
        return false, false
    }
    last := time.Unix(atomic.LoadInt64(&c.lastFailure), 0)
    if time.Since(last) < breakerCooldown {
        return false, false
    }
    if atomic.CompareAndSwapInt32(&c.state, stateOpen, stateHalfOpen) {
        return true, true
    }
    return false, false
}

// checkCircuitBreaker records the outcome of one attempt.
func (c *Client) checkCircuitBreaker(err error) {
    if err != nil && !errors.Is(err, redis.Nil) {
        n := atomic.AddInt64(&c.failureCount, 1)
        atomic.StoreInt64(&c.lastFailure, time.Now().Unix())
        if n >= failureThreshold || atomic.LoadInt32(&c.state) == stateHalfOpen {
            if atomic.SwapInt32(&c.state, stateOpen) != stateOpen {
                c.log.Warn("circuit breaker opened", zap.String("operation", "redis"), zap.Int64("failures", n))
            }
        }
        return
    }
    atomic.StoreInt64(&c.failureCount, 0)
    atomic.StoreInt32(&c.state, stateClosed)
}

// do runs op with a per-attempt timeout and exponential backoff. redis.Nil
// and context cancellation are not retried, and attempts cut short by the
// caller's context do not count against the breaker.
func (c *Client) do(ctx context.Context, operation string, op func(ctx context.Context) error) error {
    return c.withMetrics(operation, func() error {
        ok, probe := c.allow()
        if !ok {
            return ErrCircuitBreakerOpen
        }
        if probe {
            // a probe abandoned by its caller says nothing about Redis; let
            // the next caller probe instead
            defer atomic.CompareAndSwapInt32(&c.state, stateHalfOpen, stateOpen)
        }
        attempt := func() error {
            actx, cancel := context.WithTimeout(ctx, opTimeout)
            defer cancel()
            err := op(actx)
            // the caller giving up is not a Redis failure
            if ctx.Err() == nil {
                c.checkCircuitBreaker(err)
            }
            if err == nil {
                return nil
            }
            if errors.Is(err, redis.Nil) || ctx.Err() != nil {
                return backoff.Permanent(err)
            }
            return err
        }
        b := backoff.NewExponentialBackOff()
        b.InitialInterval = 20 * time.Millisecond
        b.MaxInterval = 200 * time.Millisecond
        return backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx))
    })
}

// Get returns the value stored at key. A missing key is (nil, false, nil).
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
    var val []byte
    err := c.do(ctx, "get", func(ctx context.Context) error {
        b, err := c.rdb.Get(ctx, key).Bytes()
        val = b
        return err
    })
    if errors.Is(err, redis.Nil) {
        return nil, false, nil
    }
    if err != nil {
        return nil, false, err
    }
    return val, true, nil
}

// Set stores value at key with the given expiry.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
    return c.do(ctx, "set", func(ctx context.Context) error {
        return c.rdb.Set(ctx, key, value, ttl).Err()
    })
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
    var n int64
    err := c.do(ctx, "exists", func(ctx context.Context) error {
        v, err := c.rdb.Exists(ctx, key).Result()
        n = v
        return err
    })
    return n > 0, err
}

// Remove deletes key and reports whether it existed.
func (c *Client) Remove(ctx context.Context, key string) (bool, error) {
    var n int64
    err := c.do(ctx, "del", func(ctx context.Context) error {
        v, err := c.rdb.Del(ctx, key).Result()
        n = v
        return err
    })
    return n > 0, err
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
    return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying connection pool
func (c *Client) Close() error {
    return c.rdb.Close()
}
