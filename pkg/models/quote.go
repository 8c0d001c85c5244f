package models

import (
    "encoding/json"
    "fmt"
    "time"

    "github.com/alim08/marketdata/pkg/validation"
    "github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PriceQuote is a point-in-time price for one symbol. Quotes are created by
// providers and never mutated afterwards.
type PriceQuote struct {
    Symbol        Symbol           `json:"symbol" validate:"required"`
    CurrentPrice  decimal.Decimal  `json:"currentPrice" validate:"gt=0"`
    Open          *decimal.Decimal `json:"open,omitempty"`
    High          *decimal.Decimal `json:"high,omitempty"`
    Low           *decimal.Decimal `json:"low,omitempty"`
    PreviousClose *decimal.Decimal `json:"previousClose,omitempty"`
    Volume        *int64           `json:"volume,omitempty"`
    LastUpdated   time.Time        `json:"lastUpdated" validate:"required"`
}

// Validate checks the fields a provider must always supply.
func (q PriceQuote) Validate() error {
    if errors := validation.ValidateStruct(q); len(errors) > 0 {
        return errors
    }
    return nil
}

// Change is the absolute move versus the previous close.
func (q PriceQuote) Change() (decimal.Decimal, bool) {
    if q.PreviousClose == nil {
        return decimal.Zero, false
    }
    return q.CurrentPrice.Sub(*q.PreviousClose), true
}

// ChangePercent is the move versus the previous close in percent. It is
// undefined when the previous close is missing or zero.
func (q PriceQuote) ChangePercent() (decimal.Decimal, bool) {
    if q.PreviousClose == nil || q.PreviousClose.IsZero() {
        return decimal.Zero, false
    }
    return q.CurrentPrice.Sub(*q.PreviousClose).Div(*q.PreviousClose).Mul(hundred), true
}

// AssetDetail carries descriptive and fundamental data. Only Symbol, Name and
// AssetClass are mandatory; providers fill what they can.
type AssetDetail struct {
    Symbol        Symbol           `json:"symbol" validate:"required"`
    Name          string           `json:"name" validate:"required"`
    Description   string           `json:"description,omitempty"`
    AssetClass    AssetClass       `json:"assetClass" validate:"required,assetclass"`
    Category      string           `json:"category,omitempty"`
    Subcategory   string           `json:"subcategory,omitempty"`
    MarketCap     *decimal.Decimal `json:"marketCap,omitempty"`
    PERatio       *decimal.Decimal `json:"peRatio,omitempty"`
    DividendYield *decimal.Decimal `json:"dividendYield,omitempty"`
    YearHigh      *decimal.Decimal `json:"yearHigh,omitempty"`
    YearLow       *decimal.Decimal `json:"yearLow,omitempty"`
    LastUpdated   time.Time        `json:"lastUpdated" validate:"required"`
}

// Validate checks the identity fields of the detail.
func (d AssetDetail) Validate() error {
    if errors := validation.ValidateStruct(d); len(errors) > 0 {
        return errors
    }
    return nil
}

// MarshalQuote encodes a quote for the cache.
func MarshalQuote(q PriceQuote) ([]byte, error) {
    data, err := json.Marshal(q)
    if err != nil {
        return nil, fmt.Errorf("json marshal error: %w", err)
    }
    return data, nil
}

// UnmarshalQuote decodes a cached quote and rejects payloads that do not
// describe a usable quote.
func UnmarshalQuote(data []byte) (PriceQuote, error) {
    var q PriceQuote
    if err := json.Unmarshal(data, &q); err != nil {
        return q, fmt.Errorf("json unmarshal error: %w", err)
    }
    if err := q.Validate(); err != nil {
        return q, fmt.Errorf("validation failed: %w", err)
    }
    return q, nil
}

// MarshalDetail encodes a detail for the cache.
func MarshalDetail(d AssetDetail) ([]byte, error) {
    data, err := json.Marshal(d)
    if err != nil {
        return nil, fmt.Errorf("json marshal error: %w", err)
    }
    return data, nil
}

// UnmarshalDetail decodes a cached detail.
func UnmarshalDetail(data []byte) (AssetDetail, error) {
    var d AssetDetail
    if err := json.Unmarshal(data, &d); err != nil {
        return d, fmt.Errorf("json unmarshal error: %w", err)
    }
    if err := d.Validate(); err != nil {
        return d, fmt.Errorf("validation failed: %w", err)
    }
    return d, nil
}

// DecimalPtr is a small helper for optional numeric fields.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
