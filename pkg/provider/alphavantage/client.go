// Package alphavantage serves equity and crypto prices and details from the
// Alpha Vantage query API. The free tier has no batch endpoint.
package alphavantage

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/url"
    "strings"
    "time"

    "github.com/alim08/marketdata/pkg/httpx"
    "github.com/alim08/marketdata/pkg/logger"
    "github.com/alim08/marketdata/pkg/models"
    "github.com/alim08/marketdata/pkg/provider"
    "github.com/shopspring/decimal"
    "go.uber.org/zap"
)

// Name is the source name used in configuration.
const Name = "alphavantage"

const defaultBaseURL = "https://www.alphavantage.co"

var ErrMissingAPIKey = errors.New("alphavantage: api key is required")

// Client is an ExternalProvider bound to one asset class.
type Client struct {
    class   models.AssetClass
    apiKey  string
    baseURL string
    http    *httpx.Client
    log     *zap.Logger
    now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API host.
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

// New creates a client for class. Only Equity and Crypto are served.
func New(apiKey string, class models.AssetClass, options ...Option) (*Client, error) {
    if apiKey == "" {
        return nil, ErrMissingAPIKey
    }
    if class != models.Equity && class != models.Crypto {
        return nil, fmt.Errorf("%w: %s via %s", provider.ErrUnsupportedAssetClass, class, Name)
    }
    c := &Client{
        class:   class,
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
    c.log = logger.Or(c.log).With(zap.String("source", Name), zap.String("asset_class", class.String()))
    return c, nil
}

// Factory returns a provider.Factory building clients that share options.
func Factory(apiKey string, options ...Option) provider.Factory {
    return func(class models.AssetClass) (provider.ExternalProvider, error) {
        return New(apiKey, class, options...)
    }
}

func (c *Client) Name() string                   { return Name }
func (c *Client) AssetClass() models.AssetClass  { return c.class }
func (c *Client) SupportsBatch() bool            { return false }

func (c *Client) FetchBatchPrices(ctx context.Context, symbols []models.Symbol) ([]models.PriceQuote, error) {
    return nil, provider.ErrBatchNotSupported
}

// FetchPrice returns the latest quote, or nil when none is available.
func (c *Client) FetchPrice(ctx context.Context, symbol models.Symbol) (q *models.PriceQuote, err error) {
    start := time.Now()
    defer func() { provider.Observe(Name, "price", start, q != nil, err) }()

    if c.class == models.Crypto {
        return c.fetchExchangeRate(ctx, symbol)
    }
    return c.fetchGlobalQuote(ctx, symbol)
}

// FetchDetail returns descriptive data, or nil when none is available.
func (c *Client) FetchDetail(ctx context.Context, symbol models.Symbol) (d *models.AssetDetail, err error) {
    start := time.Now()
    defer func() { provider.Observe(Name, "detail", start, d != nil, err) }()

    if c.class == models.Crypto {
        return c.fetchDigitalCurrency(ctx, symbol)
    }
    return c.fetchOverview(ctx, symbol)
}

// query calls one API function and decodes the body into out. ok is false
// when the source had nothing usable; the reason is logged. Only
// cancellation is returned as an error.
func (c *Client) query(ctx context.Context, symbol models.Symbol, params url.Values, out interface{}) (bool, error) {
    params.Set("apikey", c.apiKey)
    body, err := c.http.GetBody(ctx, c.baseURL+"/query?"+params.Encode(), nil)
    if err != nil {
        if ctx.Err() != nil {
            return false, ctx.Err()
        }
        c.log.Warn("request failed", zap.String("symbol", symbol.String()),
            zap.String("function", params.Get("function")), zap.Error(err))
        return false, nil
    }

    var notice struct {
        Note         string `json:"Note"`
        Information  string `json:"Information"`
        ErrorMessage string `json:"Error Message"`
    }
    if err := json.Unmarshal(body, &notice); err != nil {
        c.log.Warn("malformed response", zap.String("symbol", symbol.String()), zap.Error(err))
        return false, nil
    }
    if msg := firstNonEmpty(notice.Note, notice.Information, notice.ErrorMessage); msg != "" {
        c.log.Warn("request rejected", zap.String("symbol", symbol.String()),
            zap.String("function", params.Get("function")), zap.String("message", msg))
        return false, nil
    }

    if err := json.Unmarshal(body, out); err != nil {
        c.log.Warn("unexpected response shape", zap.String("symbol", symbol.String()), zap.Error(err))
        return false, nil
    }
    return true, nil
}

func firstNonEmpty(vals ...string) string {
    for _, v := range vals {
        if v != "" {
            return v
        }
    }
    return ""
}

// parseDecimal reads the string numbers the API returns. "None", "-" and
// blanks are absent values.
func parseDecimal(s string) *decimal.Decimal {
    s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
    if s == "" || s == "None" || s == "-" {
        return nil
    }
    d, err := decimal.NewFromString(s)
    if err != nil {
        return nil
    }
    return &d
}

// parseTime reads a date or timestamp in the API's layouts, interpreted as
// UTC.
func parseTime(s string) (time.Time, bool) {
    for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
        if t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.UTC); err == nil {
            return t, true
        }
    }
    return time.Time{}, false
}
