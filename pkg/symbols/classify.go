package symbols

import (
	"strings"

	"github.com/alim08/marketdata/pkg/models"
)

// InferAssetClass guesses the asset class of a normalized symbol. It is a
// heuristic used only when a caller omits the class and it can misclassify
// (a short crypto ticker such as "BTC" reads as Equity). Callers that need
// precision must pass the class explicitly.
func InferAssetClass(s models.Symbol) models.AssetClass {
	sym := string(s)
	if len(sym) <= 5 && !strings.Contains(sym, "-") {
		return models.Equity
	}
	if strings.Contains(sym, "-USD") || strings.Contains(sym, "BTC") || strings.Contains(sym, "ETH") {
		return models.Crypto
	}
	return models.Equity
}

// GroupByAssetClass buckets symbols by inferred class, keeping input order
// inside each bucket.
func GroupByAssetClass(in []models.Symbol) map[models.AssetClass][]models.Symbol {
	groups := make(map[models.AssetClass][]models.Symbol)
	for _, s := range in {
		class := InferAssetClass(s)
		groups[class] = append(groups[class], s)
	}
	return groups
}

// BaseTicker strips a USD quote suffix from a crypto pair, so "BTC-USD"
// becomes "BTC". Other symbols are returned unchanged.
func BaseTicker(s models.Symbol) string {
	sym := string(s)
	for _, suffix := range []string{"-USD", "/USD"} {
		if strings.HasSuffix(sym, suffix) && len(sym) > len(suffix) {
			return strings.TrimSuffix(sym, suffix)
		}
	}
	return sym
}
