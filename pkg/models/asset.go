package models

import (
    "fmt"
    "strings"
)

// AssetClass is the coarse category that selects a provider and a TTL policy.
type AssetClass string

const (
    Equity AssetClass = "Equity"
    Crypto AssetClass = "Crypto"
    Other  AssetClass = "Other"
)

// ParseAssetClass maps a configuration or request value onto an AssetClass.
// "Stock" is accepted as an alias for Equity.
func ParseAssetClass(s string) (AssetClass, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "equity", "stock":
        return Equity, nil
    case "crypto":
        return Crypto, nil
    case "other":
        return Other, nil
    }
    return "", fmt.Errorf("unknown asset class %q", s)
}

func (c AssetClass) String() string { return string(c) }

// DataKind distinguishes the two kinds of cached market data.
type DataKind string

const (
    Price  DataKind = "Price"
    Detail DataKind = "Detail"
)

func (k DataKind) String() string { return string(k) }

// Symbol is a normalized ticker: trimmed and upper-cased.
// Build one with symbols.Normalize.
type Symbol string

func (s Symbol) String() string { return string(s) }
