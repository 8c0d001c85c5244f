package alphavantage

import (
    "context"
    "net/url"
    "sort"

    "github.com/alim08/marketdata/pkg/models"
    "github.com/alim08/marketdata/pkg/symbols"
    "github.com/shopspring/decimal"
    "go.uber.org/zap"
)

type exchangeRateResponse struct {
    Rate struct {
        From          string `json:"1. From_Currency Code"`
        FromName      string `json:"2. From_Currency Name"`
        ExchangeRate  string `json:"5. Exchange Rate"`
        LastRefreshed string `json:"6. Last Refreshed"`
    } `json:"Realtime Currency Exchange Rate"`
}

type digitalCurrencyResponse struct {
    Meta struct {
        Information   string `json:"1. Information"`
        Code          string `json:"2. Digital Currency Code"`
        Name          string `json:"3. Digital Currency Name"`
        LastRefreshed string `json:"6. Last Refreshed"`
    } `json:"Meta Data"`
    Series map[string]map[string]string `json:"Time Series (Digital Currency Daily)"`
}

// The daily series has been served under both key styles.
var (
    highKeys = []string{"2. high", "2a. high (USD)"}
    lowKeys  = []string{"3. low", "3a. low (USD)"}
)

func (c *Client) fetchExchangeRate(ctx context.Context, symbol models.Symbol) (*models.PriceQuote, error) {
    var resp exchangeRateResponse
    ok, err := c.query(ctx, symbol, url.Values{
        "function":      {"CURRENCY_EXCHANGE_RATE"},
        "from_currency": {symbols.BaseTicker(symbol)},
        "to_currency":   {"USD"},
    }, &resp)
    if err != nil || !ok {
        return nil, err
    }

    price := parseDecimal(resp.Rate.ExchangeRate)
    if price == nil {
        c.log.Debug("no exchange rate", zap.String("symbol", symbol.String()))
        return nil, nil
    }
    q := &models.PriceQuote{
        Symbol:       symbol,
        CurrentPrice: *price,
        LastUpdated:  c.now().UTC(),
    }
    if t, ok := parseTime(resp.Rate.LastRefreshed); ok {
        q.LastUpdated = t
    }
    if err := q.Validate(); err != nil {
        c.log.Warn("discarding invalid quote", zap.String("symbol", symbol.String()), zap.Error(err))
        return nil, nil
    }
    return q, nil
}

func (c *Client) fetchDigitalCurrency(ctx context.Context, symbol models.Symbol) (*models.AssetDetail, error) {
    var resp digitalCurrencyResponse
    ok, err := c.query(ctx, symbol, url.Values{
        "function": {"DIGITAL_CURRENCY_DAILY"},
        "symbol":   {symbols.BaseTicker(symbol)},
        "market":   {"USD"},
    }, &resp)
    if err != nil || !ok {
        return nil, err
    }
    if resp.Meta.Code == "" && len(resp.Series) == 0 {
        c.log.Debug("empty digital currency series", zap.String("symbol", symbol.String()))
        return nil, nil
    }

    name := resp.Meta.Name
    if name == "" {
        name = symbols.BaseTicker(symbol)
    }
    d := &models.AssetDetail{
        Symbol:      symbol,
        Name:        name,
        Description: resp.Meta.Information,
        AssetClass:  models.Crypto,
        Category:    "Cryptocurrency",
        LastUpdated: c.now().UTC(),
    }
    if t, ok := parseTime(resp.Meta.LastRefreshed); ok {
        d.LastUpdated = t
    }
    d.YearHigh, d.YearLow = yearRange(resp.Series)
    if err := d.Validate(); err != nil {
        c.log.Warn("discarding invalid detail", zap.String("symbol", symbol.String()), zap.Error(err))
        return nil, nil
    }
    return d, nil
}

// yearRange scans the most recent 365 daily bars for the high and low.
func yearRange(series map[string]map[string]string) (high, low *decimal.Decimal) {
    days := make([]string, 0, len(series))
    for day := range series {
        days = append(days, day)
    }
    sort.Sort(sort.Reverse(sort.StringSlice(days)))
    if len(days) > 365 {
        days = days[:365]
    }

    for _, day := range days {
        bar := series[day]
        if h := lookup(bar, highKeys); h != nil && (high == nil || h.GreaterThan(*high)) {
            high = h
        }
        if l := lookup(bar, lowKeys); l != nil && (low == nil || l.LessThan(*low)) {
            low = l
        }
    }
    return high, low
}

func lookup(bar map[string]string, keys []string) *decimal.Decimal {
    for _, k := range keys {
        if v, ok := bar[k]; ok {
            return parseDecimal(v)
        }
    }
    return nil
}
