package httpx

import (
    "context"
    "errors"
    "fmt"
    "io"
    "net"
    "net/http"
    "time"

    "github.com/cenkalti/backoff/v4"
)

const maxBodyBytes = 4 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
    Code int
    URL  string
}

func (e *StatusError) Error() string {
    return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Client is a small wrapper around http.Client with pooled transport
// defaults and retries for idempotent GETs.
type Client struct {
    HTTP      *http.Client
    UserAgent string
    Headers   map[string]string

    // MaxRetries bounds the retries of GetBody after the first attempt.
    MaxRetries   uint64
    RetryInitial time.Duration
    RetryMax     time.Duration
}

func New(timeout time.Duration) *Client {
    transport := &http.Transport{
        Proxy:                 http.ProxyFromEnvironment,
        DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
        MaxIdleConns:          100,
        MaxIdleConnsPerHost:   20,
        MaxConnsPerHost:       50,
        ForceAttemptHTTP2:     true,
        IdleConnTimeout:       90 * time.Second,
        TLSHandshakeTimeout:   3 * time.Second,
        ExpectContinueTimeout: 1 * time.Second,
        ResponseHeaderTimeout: 5 * time.Second,
    }
    return &Client{
        HTTP:         &http.Client{Timeout: timeout, Transport: transport},
        UserAgent:    "marketdata/1.0",
        MaxRetries:   2,
        RetryInitial: 250 * time.Millisecond,
        RetryMax:     2 * time.Second,
    }
}

func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
    req = req.WithContext(ctx)
    if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
        req.Header.Set("User-Agent", c.UserAgent)
    }
    for k, v := range c.Headers {
        if req.Header.Get(k) == "" {
            req.Header.Set(k, v)
        }
    }
    return c.HTTP.Do(req)
}

// GetBody issues a GET and returns the response body. Transport errors and
// 5xx responses are retried with exponential backoff; other non-2xx
// responses fail immediately with a *StatusError.
func (c *Client) GetBody(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
    var body []byte
    attempt := func() error {
        req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
        if err != nil {
            return backoff.Permanent(err)
        }
        for k, vs := range header {
            for _, v := range vs {
                req.Header.Add(k, v)
            }
        }
        resp, err := c.Do(ctx, req)
        if err != nil {
            if ctx.Err() != nil {
                return backoff.Permanent(ctx.Err())
            }
            return err
        }
        defer resp.Body.Close()

        if resp.StatusCode < 200 || resp.StatusCode > 299 {
            _, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
            u := *req.URL
            u.RawQuery = ""
            serr := &StatusError{Code: resp.StatusCode, URL: u.String()}
            if resp.StatusCode >= 500 {
                return serr
            }
            return backoff.Permanent(serr)
        }
        b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
        if err != nil {
            return err
        }
        body = b
        return nil
    }

    b := backoff.NewExponentialBackOff()
    b.InitialInterval = c.RetryInitial
    b.MaxInterval = c.RetryMax
    if err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(b, c.MaxRetries), ctx)); err != nil {
        if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
            return nil, fmt.Errorf("%v: %w", err, ctx.Err())
        }
        return nil, err
    }
    return body, nil
}
