// Package cachekey derives cache keys and expiry for market data entries.
package cachekey

import (
	"errors"
	"fmt"
	"time"

	"github.com/alim08/marketdata/pkg/models"
)

var ErrInvalidTTL = errors.New("invalid cache ttl")

// Durations is the pair of expiries configured for one asset class.
type Durations struct {
	Price  time.Duration
	Detail time.Duration
}

func (d Durations) validate(name string) error {
	if d.Price <= 0 {
		return fmt.Errorf("%w: %s price ttl must be positive, got %s", ErrInvalidTTL, name, d.Price)
	}
	if d.Detail <= 0 {
		return fmt.Errorf("%w: %s detail ttl must be positive, got %s", ErrInvalidTTL, name, d.Detail)
	}
	if d.Detail <= d.Price {
		return fmt.Errorf("%w: %s detail ttl %s must exceed price ttl %s", ErrInvalidTTL, name, d.Detail, d.Price)
	}
	return nil
}

// Policy maps (class, symbol, kind) to a key and a TTL. It is immutable after
// construction and safe for concurrent use.
type Policy struct {
	byClass  map[models.AssetClass]Durations
	fallback Durations
}

// NewPolicy validates the configured durations. Invalid durations are a
// startup error so TTLFor never has to fail at request time.
func NewPolicy(byClass map[models.AssetClass]Durations, fallback Durations) (*Policy, error) {
	if err := fallback.validate("default"); err != nil {
		return nil, err
	}
	m := make(map[models.AssetClass]Durations, len(byClass))
	for class, d := range byClass {
		if err := d.validate(class.String()); err != nil {
			return nil, err
		}
		m[class] = d
	}
	return &Policy{byClass: m, fallback: fallback}, nil
}

// KeyFor returns "{class}:{symbol}:{kind}", e.g. "Equity:AAPL:Price".
// Keys carry no process-specific parts so any instance can read them.
func (p *Policy) KeyFor(symbol models.Symbol, class models.AssetClass, kind models.DataKind) string {
	return class.String() + ":" + symbol.String() + ":" + kind.String()
}

// TTLFor returns the expiry for a class and kind, falling back to the
// default entry for classes without their own configuration.
func (p *Policy) TTLFor(class models.AssetClass, kind models.DataKind) time.Duration {
	d, ok := p.byClass[class]
	if !ok {
		d = p.fallback
	}
	if kind == models.Detail {
		return d.Detail
	}
	return d.Price
}
