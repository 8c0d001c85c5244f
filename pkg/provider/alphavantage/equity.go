package alphavantage

import (
    "context"
    "net/url"
    "strconv"
    "strings"

    "github.com/alim08/marketdata/pkg/models"
    "go.uber.org/zap"
)

type globalQuoteResponse struct {
    Quote struct {
        Symbol        string `json:"01. symbol"`
        Open          string `json:"02. open"`
        High          string `json:"03. high"`
        Low           string `json:"04. low"`
        Price         string `json:"05. price"`
        Volume        string `json:"06. volume"`
        LatestDay     string `json:"07. latest trading day"`
        PreviousClose string `json:"08. previous close"`
    } `json:"Global Quote"`
}

type overviewResponse struct {
    Symbol        string `json:"Symbol"`
    Name          string `json:"Name"`
    Description   string `json:"Description"`
    Sector        string `json:"Sector"`
    Industry      string `json:"Industry"`
    MarketCap     string `json:"MarketCapitalization"`
    PERatio       string `json:"PERatio"`
    DividendYield string `json:"DividendYield"`
    YearHigh      string `json:"52WeekHigh"`
    YearLow       string `json:"52WeekLow"`
}

func (c *Client) fetchGlobalQuote(ctx context.Context, symbol models.Symbol) (*models.PriceQuote, error) {
    var resp globalQuoteResponse
    ok, err := c.query(ctx, symbol, url.Values{
        "function": {"GLOBAL_QUOTE"},
        "symbol":   {symbol.String()},
    }, &resp)
    if err != nil || !ok {
        return nil, err
    }

    price := parseDecimal(resp.Quote.Price)
    if price == nil {
        c.log.Debug("no price in quote", zap.String("symbol", symbol.String()))
        return nil, nil
    }
    q := &models.PriceQuote{
        Symbol:        symbol,
        CurrentPrice:  *price,
        Open:          parseDecimal(resp.Quote.Open),
        High:          parseDecimal(resp.Quote.High),
        Low:           parseDecimal(resp.Quote.Low),
        PreviousClose: parseDecimal(resp.Quote.PreviousClose),
        LastUpdated:   c.now().UTC(),
    }
    if v, err := strconv.ParseInt(strings.TrimSpace(resp.Quote.Volume), 10, 64); err == nil {
        q.Volume = &v
    }
    if t, ok := parseTime(resp.Quote.LatestDay); ok {
        q.LastUpdated = t
    }
    if err := q.Validate(); err != nil {
        c.log.Warn("discarding invalid quote", zap.String("symbol", symbol.String()), zap.Error(err))
        return nil, nil
    }
    return q, nil
}

func (c *Client) fetchOverview(ctx context.Context, symbol models.Symbol) (*models.AssetDetail, error) {
    var resp overviewResponse
    ok, err := c.query(ctx, symbol, url.Values{
        "function": {"OVERVIEW"},
        "symbol":   {symbol.String()},
    }, &resp)
    if err != nil || !ok {
        return nil, err
    }
    if resp.Symbol == "" {
        c.log.Debug("empty overview", zap.String("symbol", symbol.String()))
        return nil, nil
    }

    d := &models.AssetDetail{
        Symbol:        symbol,
        Name:          resp.Name,
        Description:   resp.Description,
        AssetClass:    models.Equity,
        Category:      resp.Sector,
        Subcategory:   resp.Industry,
        MarketCap:     parseDecimal(resp.MarketCap),
        PERatio:       parseDecimal(resp.PERatio),
        DividendYield: parseDecimal(resp.DividendYield),
        YearHigh:      parseDecimal(resp.YearHigh),
        YearLow:       parseDecimal(resp.YearLow),
        LastUpdated:   c.now().UTC(),
    }
    if err := d.Validate(); err != nil {
        c.log.Warn("discarding invalid detail", zap.String("symbol", symbol.String()), zap.Error(err))
        return nil, nil
    }
    return d, nil
}
