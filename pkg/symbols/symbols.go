// Package symbols canonicalizes ticker symbols and guesses their asset class.
package symbols

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alim08/marketdata/pkg/models"
	"github.com/alim08/marketdata/pkg/validation"
)

var (
	ErrInvalidSymbol = errors.New("symbol cannot be empty")
	ErrNoSymbols     = errors.New("at least one symbol is required")
)

// Normalize trims and upper-cases a raw symbol. Normalize is idempotent.
func Normalize(raw string) (models.Symbol, error) {
	s := validation.SanitizeString(raw)
	if s == "" {
		return "", ErrInvalidSymbol
	}
	return models.Symbol(strings.ToUpper(s)), nil
}

// NormalizeAll normalizes every entry, failing on the first invalid one, and
// drops duplicates while keeping first-occurrence order.
func NormalizeAll(raw []string) ([]models.Symbol, error) {
	if len(raw) == 0 {
		return nil, ErrNoSymbols
	}
	out := make([]models.Symbol, 0, len(raw))
	seen := make(map[models.Symbol]struct{}, len(raw))
	for i, r := range raw {
		s, err := Normalize(r)
		if err != nil {
			return nil, fmt.Errorf("symbol %d: %w", i, err)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}
