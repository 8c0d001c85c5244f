package alphavantage_test

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alim08/marketdata/pkg/httpx"
    "github.com/alim08/marketdata/pkg/models"
    "github.com/alim08/marketdata/pkg/provider"
    "github.com/alim08/marketdata/pkg/provider/alphavantage"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

const globalQuoteBody = `{
    "Global Quote": {
        "01. symbol": "IBM",
        "02. open": "167.5000",
        "03. high": "169.1000",
        "04. low": "166.9000",
        "05. price": "168.2500",
        "06. volume": "3410012",
        "07. latest trading day": "2024-05-10",
        "08. previous close": "167.1500",
        "09. change": "1.1000",
        "10. change percent": "0.6581%"
    }
}`

const overviewBody = `{
    "Symbol": "IBM",
    "Name": "International Business Machines",
    "Description": "IBM is an American multinational technology company.",
    "Sector": "TECHNOLOGY",
    "Industry": "COMPUTER & OFFICE EQUIPMENT",
    "MarketCapitalization": "154012345000",
    "PERatio": "19.05",
    "DividendYield": "None",
    "52WeekHigh": "199.18",
    "52WeekLow": "131.69"
}`

const exchangeRateBody = `{
    "Realtime Currency Exchange Rate": {
        "1. From_Currency Code": "BTC",
        "2. From_Currency Name": "Bitcoin",
        "3. To_Currency Code": "USD",
        "4. To_Currency Name": "United States Dollar",
        "5. Exchange Rate": "61234.56000000",
        "6. Last Refreshed": "2024-05-10 14:32:01",
        "7. Time Zone": "UTC"
    }
}`

const digitalCurrencyBody = `{
    "Meta Data": {
        "1. Information": "Daily Prices and Volumes for Digital Currency",
        "2. Digital Currency Code": "BTC",
        "3. Digital Currency Name": "Bitcoin",
        "6. Last Refreshed": "2024-05-10 00:00:00"
    },
    "Time Series (Digital Currency Daily)": {
        "2024-05-10": {"1. open": "60000", "2. high": "63000", "3. low": "59000", "4. close": "61000"},
        "2024-05-09": {"1. open": "58000", "2. high": "61000", "3. low": "57000", "4. close": "60000"},
        "2024-05-08": {"1a. open (USD)": "57000", "2a. high (USD)": "64000", "3a. low (USD)": "56500"}
    }
}`

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
    t.Helper()
    srv := httptest.NewServer(http.HandlerFunc(handler))
    t.Cleanup(srv.Close)
    return srv
}

func newClient(t *testing.T, srv *httptest.Server, class models.AssetClass) *alphavantage.Client {
    t.Helper()
    h := httpx.New(time.Second)
    h.RetryInitial = time.Millisecond
    h.RetryMax = time.Millisecond
    c, err := alphavantage.New("demo", class,
        alphavantage.WithBaseURL(srv.URL+"/"),
        alphavantage.WithHTTPClient(h))
    require.NoError(t, err)
    return c
}

func TestNew_Validation(t *testing.T) {
    _, err := alphavantage.New("", models.Equity)
    assert.ErrorIs(t, err, alphavantage.ErrMissingAPIKey)

    _, err = alphavantage.New("demo", models.Other)
    assert.ErrorIs(t, err, provider.ErrUnsupportedAssetClass)

    c, err := alphavantage.New("demo", models.Crypto)
    require.NoError(t, err)
    assert.Equal(t, "alphavantage", c.Name())
    assert.Equal(t, models.Crypto, c.AssetClass())
    assert.False(t, c.SupportsBatch())
}

func TestFactory_BindsClass(t *testing.T) {
    p, err := alphavantage.Factory("demo")(models.Equity)
    require.NoError(t, err)
    assert.Equal(t, models.Equity, p.AssetClass())
}

func TestFetchPrice_Equity(t *testing.T) {
    srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, "/query", r.URL.Path)
        assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
        assert.Equal(t, "IBM", r.URL.Query().Get("symbol"))
        assert.Equal(t, "demo", r.URL.Query().Get("apikey"))
        fmt.Fprint(w, globalQuoteBody)
    })

    q, err := newClient(t, srv, models.Equity).FetchPrice(context.Background(), "IBM")
    require.NoError(t, err)
    require.NotNil(t, q)

    assert.Equal(t, models.Symbol("IBM"), q.Symbol)
    assert.Equal(t, "168.25", q.CurrentPrice.String())
    require.NotNil(t, q.PreviousClose)
    assert.Equal(t, "167.15", q.PreviousClose.String())
    require.NotNil(t, q.Volume)
    assert.Equal(t, int64(3410012), *q.Volume)
    assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), q.LastUpdated)
}

func TestFetchPrice_EmptyQuoteIsMiss(t *testing.T) {
    srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
        fmt.Fprint(w, `{"Global Quote": {}}`)
    })

    q, err := newClient(t, srv, models.Equity).FetchPrice(context.Background(), "NOPE")
    assert.NoError(t, err)
    assert.Nil(t, q)
}

func TestFetchPrice_RateLimitNoteIsMiss(t *testing.T) {
    srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
        fmt.Fprint(w, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`)
    })

    q, err := newClient(t, srv, models.Equity).FetchPrice(context.Background(), "IBM")
    assert.NoError(t, err)
    assert.Nil(t, q)
}

func TestFetchPrice_ServerErrorIsMiss(t *testing.T) {
    srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusInternalServerError)
    })

    q, err := newClient(t, srv, models.Equity).FetchPrice(context.Background(), "IBM")
    assert.NoError(t, err)
    assert.Nil(t, q)
}

func TestFetchPrice_MalformedBodyIsMiss(t *testing.T) {
    srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
        fmt.Fprint(w, `<html>maintenance</html>`)
    })

    q, err := newClient(t, srv, models.Equity).FetchPrice(context.Background(), "IBM")
    assert.NoError(t, err)
    assert.Nil(t, q)
}

func TestFetchPrice_CanceledReturnsError(t *testing.T) {
    srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
        fmt.Fprint(w, globalQuoteBody)
    })
    ctx, cancel := context.WithCancel(context.Background())
    cancel()

    q, err := newClient(t, srv, models.Equity).FetchPrice(ctx, "IBM")
    assert.Nil(t, q)
    assert.True(t, errors.Is(err, context.Canceled), "err = %v", err)
}

func TestFetchPrice_CryptoUsesBaseCurrency(t *testing.T) {
    srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, "CURRENCY_EXCHANGE_RATE", r.URL.Query().Get("function"))
        assert.Equal(t, "BTC", r.URL.Query().Get("from_currency"))
        assert.Equal(t, "USD", r.URL.Query().Get("to_currency"))
        fmt.Fprint(w, exchangeRateBody)
    })

    q, err := newClient(t, srv, models.Crypto).FetchPrice(context.Background(), "BTC-USD")
    require.NoError(t, err)
    require.NotNil(t, q)
    assert.Equal(t, models.Symbol("BTC-USD"), q.Symbol)
    assert.Equal(t, "61234.56", q.CurrentPrice.String())
    assert.Equal(t, time.Date(2024, 5, 10, 14, 32, 1, 0, time.UTC), q.LastUpdated)
}

func TestFetchDetail_Equity(t *testing.T) {
    srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, "OVERVIEW", r.URL.Query().Get("function"))
        fmt.Fprint(w, overviewBody)
    })

    d, err := newClient(t, srv, models.Equity).FetchDetail(context.Background(), "IBM")
    require.NoError(t, err)
    require.NotNil(t, d)

    assert.Equal(t, "International Business Machines", d.Name)
    assert.Equal(t, models.Equity, d.AssetClass)
    assert.Equal(t, "TECHNOLOGY", d.Category)
    assert.Equal(t, "COMPUTER & OFFICE EQUIPMENT", d.Subcategory)
    require.NotNil(t, d.PERatio)
    assert.Equal(t, "19.05", d.PERatio.String())
    assert.Nil(t, d.DividendYield, "None is an absent value")
    require.NotNil(t, d.YearLow)
    assert.Equal(t, "131.69", d.YearLow.String())
}

func TestFetchDetail_EmptyOverviewIsMiss(t *testing.T) {
    srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
        fmt.Fprint(w, `{}`)
    })

    d, err := newClient(t, srv, models.Equity).FetchDetail(context.Background(), "NOPE")
    assert.NoError(t, err)
    assert.Nil(t, d)
}

func TestFetchDetail_CryptoYearRange(t *testing.T) {
    srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, "DIGITAL_CURRENCY_DAILY", r.URL.Query().Get("function"))
        assert.Equal(t, "BTC", r.URL.Query().Get("symbol"))
        fmt.Fprint(w, digitalCurrencyBody)
    })

    d, err := newClient(t, srv, models.Crypto).FetchDetail(context.Background(), "BTC-USD")
    require.NoError(t, err)
    require.NotNil(t, d)

    assert.Equal(t, "Bitcoin", d.Name)
    assert.Equal(t, models.Crypto, d.AssetClass)
    assert.Equal(t, "Cryptocurrency", d.Category)
    require.NotNil(t, d.YearHigh)
    require.NotNil(t, d.YearLow)
    assert.Equal(t, "64000", d.YearHigh.String())
    assert.Equal(t, "56500", d.YearLow.String())
}

func TestFetchBatchPrices_NotSupported(t *testing.T) {
    c, err := alphavantage.New("demo", models.Equity)
    require.NoError(t, err)

    _, err = c.FetchBatchPrices(context.Background(), []models.Symbol{"IBM"})
    assert.ErrorIs(t, err, provider.ErrBatchNotSupported)
}
