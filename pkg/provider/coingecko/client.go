// Package coingecko serves crypto prices and details from the CoinGecko v3
// API. Prices are fetched in batches through simple/price.
package coingecko

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/alim08/marketdata/pkg/httpx"
    "github.com/alim08/marketdata/pkg/logger"
    "github.com/alim08/marketdata/pkg/models"
    "github.com/alim08/marketdata/pkg/provider"
    "github.com/alim08/marketdata/pkg/symbols"
    "github.com/shopspring/decimal"
    "go.uber.org/zap"
)

// Name is the source name used in configuration.
const Name = "coingecko"

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// coinIDs maps well-known tickers to CoinGecko coin ids. Unlisted tickers
// fall back to their lower-cased base.
var coinIDs = map[string]string{
    "BTC":  "bitcoin",
    "ETH":  "ethereum",
    "SOL":  "solana",
    "ADA":  "cardano",
    "DOGE": "dogecoin",
    "XRP":  "ripple",
    "LTC":  "litecoin",
    "DOT":  "polkadot",
}

// CoinID returns the CoinGecko id for a crypto symbol.
func CoinID(s models.Symbol) string {
    base := symbols.BaseTicker(s)
    if id, ok := coinIDs[base]; ok {
        return id
    }
    return strings.ToLower(base)
}

// Client is an ExternalProvider for Crypto.
type Client struct {
    apiKey  string
    baseURL string
    http    *httpx.Client
    log     *zap.Logger
    now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
    return func(c *Client) {
        c.baseURL = strings.TrimRight(baseURL, "/")
    }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *httpx.Client) Option {
    return func(c *Client) {
        c.http = h
    }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
    return func(c *Client) {
        c.log = l
    }
}

// New creates a client for class. An empty apiKey uses the keyless public
// tier.
func New(apiKey string, class models.AssetClass, options ...Option) (*Client, error) {
    if class != models.Crypto {
        return nil, fmt.Errorf("%w: %s via %s", provider.ErrUnsupportedAssetClass, class, Name)
    }
    c := &Client{
        apiKey:  apiKey,
        baseURL: defaultBaseURL,
        now:     time.Now,
    }
    for _, option := range options {
        option(c)
    }
    if c.http == nil {
        c.http = httpx.New(10 * time.Second)
    }
    c.log = logger.Or(c.log).With(zap.String("source", Name))
    return c, nil
}

// Factory returns a provider.Factory building clients that share options.
func Factory(apiKey string, options ...Option) provider.Factory {
    return func(class models.AssetClass) (provider.ExternalProvider, error) {
        return New(apiKey, class, options...)
    }
}

func (c *Client) Name() string                   { return Name }
func (c *Client) AssetClass() models.AssetClass  { return models.Crypto }
func (c *Client) SupportsBatch() bool            { return true }

// get fetches path and decodes the body into out. ok is false when the
// source had nothing usable; only cancellation is returned as an error.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) (bool, error) {
    var header http.Header
    if c.apiKey != "" {
        header = http.Header{"x-cg-demo-api-key": {c.apiKey}}
    }
    body, err := c.http.GetBody(ctx, c.baseURL+path+"?"+params.Encode(), header)
    if err != nil {
        if ctx.Err() != nil {
            return false, ctx.Err()
        }
        c.log.Warn("request failed", zap.String("path", path), zap.Error(err))
        return false, nil
    }
    if err := json.Unmarshal(body, out); err != nil {
        c.log.Warn("unexpected response shape", zap.String("path", path), zap.Error(err))
        return false, nil
    }
    return true, nil
}

type simplePrice struct {
    USD         *decimal.Decimal `json:"usd"`
    Volume24h   *decimal.Decimal `json:"usd_24h_vol"`
    LastUpdated int64            `json:"last_updated_at"`
}

// FetchPrice is a single-symbol batch.
func (c *Client) FetchPrice(ctx context.Context, symbol models.Symbol) (*models.PriceQuote, error) {
    quotes, err := c.fetchPrices(ctx, "price", []models.Symbol{symbol})
    if err != nil || len(quotes) == 0 {
        return nil, err
    }
    return &quotes[0], nil
}

// FetchBatchPrices returns quotes for the symbols CoinGecko knows; unknown
// symbols are left out.
func (c *Client) FetchBatchPrices(ctx context.Context, syms []models.Symbol) ([]models.PriceQuote, error) {
    return c.fetchPrices(ctx, "batch_price", syms)
}

func (c *Client) fetchPrices(ctx context.Context, op string, syms []models.Symbol) (out []models.PriceQuote, err error) {
    start := time.Now()
    defer func() { provider.Observe(Name, op, start, len(out) > 0, err) }()

    if len(syms) == 0 {
        return nil, nil
    }
    byID := make(map[string][]models.Symbol, len(syms))
    ids := make([]string, 0, len(syms))
    for _, s := range syms {
        id := CoinID(s)
        if _, seen := byID[id]; !seen {
            ids = append(ids, id)
        }
        byID[id] = append(byID[id], s)
    }

    var resp map[string]simplePrice
    ok, err := c.get(ctx, "/simple/price", url.Values{
        "ids":                     {strings.Join(ids, ",")},
        "vs_currencies":           {"usd"},
        "include_24hr_vol":        {"true"},
        "include_last_updated_at": {"true"},
    }, &resp)
    if err != nil || !ok {
        return nil, err
    }

    out = make([]models.PriceQuote, 0, len(syms))
    for _, id := range ids {
        p, found := resp[id]
        if !found || p.USD == nil {
            c.log.Debug("no price for coin", zap.String("id", id))
            continue
        }
        for _, s := range byID[id] {
            q := models.PriceQuote{
                Symbol:       s,
                CurrentPrice: *p.USD,
                LastUpdated:  c.now().UTC(),
            }
            if p.LastUpdated > 0 {
                q.LastUpdated = time.Unix(p.LastUpdated, 0).UTC()
            }
            if p.Volume24h != nil {
                v := p.Volume24h.IntPart()
                q.Volume = &v
            }
            if err := q.Validate(); err != nil {
                c.log.Warn("discarding invalid quote", zap.String("symbol", s.String()), zap.Error(err))
                continue
            }
            out = append(out, q)
        }
    }
    return out, nil
}

type coinResponse struct {
    ID          string   `json:"id"`
    Symbol      string   `json:"symbol"`
    Name        string   `json:"name"`
    Categories  []string `json:"categories"`
    Description struct {
        EN string `json:"en"`
    } `json:"description"`
    MarketData struct {
        MarketCap map[string]decimal.Decimal `json:"market_cap"`
    } `json:"market_data"`
    LastUpdated time.Time `json:"last_updated"`
}

// FetchDetail returns coin metadata, or nil when the coin is unknown.
func (c *Client) FetchDetail(ctx context.Context, symbol models.Symbol) (d *models.AssetDetail, err error) {
    start := time.Now()
    defer func() { provider.Observe(Name, "detail", start, d != nil, err) }()

    var resp coinResponse
    ok, err := c.get(ctx, "/coins/"+url.PathEscape(CoinID(symbol)), url.Values{
        "localization":   {"false"},
        "tickers":        {"false"},
        "market_data":    {"true"},
        "community_data": {"false"},
        "developer_data": {"false"},
    }, &resp)
    if err != nil || !ok {
        return nil, err
    }
    if resp.Name == "" {
        c.log.Debug("empty coin detail", zap.String("symbol", symbol.String()))
        return nil, nil
    }

    d = &models.AssetDetail{
        Symbol:      symbol,
        Name:        resp.Name,
        Description: resp.Description.EN,
        AssetClass:  models.Crypto,
        Category:    "Cryptocurrency",
        LastUpdated: c.now().UTC(),
    }
    if len(resp.Categories) > 0 {
        d.Subcategory = resp.Categories[0]
    }
    if v, ok := resp.MarketData.MarketCap["usd"]; ok {
        d.MarketCap = models.DecimalPtr(v)
    }
    if !resp.LastUpdated.IsZero() {
        d.LastUpdated = resp.LastUpdated.UTC()
    }
    if err := d.Validate(); err != nil {
        c.log.Warn("discarding invalid detail", zap.String("symbol", symbol.String()), zap.Error(err))
        return nil, nil
    }
    return d, nil
}
