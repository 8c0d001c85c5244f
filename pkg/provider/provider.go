package provider

import (
    "context"
    "errors"

    "github.com/alim08/marketdata/pkg/models"
)

var (
    ErrUnsupportedAssetClass = errors.New("no provider configured for asset class")
    ErrUnsupportedProvider   = errors.New("provider source is not registered")
    ErrBatchNotSupported     = errors.New("provider does not support batch price requests")
    ErrProviderUnavailable   = errors.New("provider could not be constructed")
)

// ExternalProvider fetches market data from one backing source for one
// asset class.
//
// FetchPrice and FetchDetail return (nil, nil) when the source has no usable
// data: it was unreachable or its response could not be mapped onto a valid
// quote/detail. A non-nil error means an unexpected failure, cancellation
// included.
//
// FetchBatchPrices may only be called when SupportsBatch reports true; it
// returns ErrBatchNotSupported otherwise.
//
//go:generate mockgen -package=marketdata -destination=../marketdata/mock_provider_test.go -source=provider.go ExternalProvider
type ExternalProvider interface {
    Name() string
    AssetClass() models.AssetClass
    SupportsBatch() bool
    FetchPrice(ctx context.Context, symbol models.Symbol) (*models.PriceQuote, error)
    FetchBatchPrices(ctx context.Context, symbols []models.Symbol) ([]models.PriceQuote, error)
    FetchDetail(ctx context.Context, symbol models.Symbol) (*models.AssetDetail, error)
}

// Factory builds the provider of one source for the given asset class.
type Factory func(class models.AssetClass) (ExternalProvider, error)
