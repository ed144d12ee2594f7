// Package quote is the client for the remote chart data source. The
// pipeline consumes it through the Provider interface only; per-symbol
// failures are classified as ErrNotFound or TransientError so callers
// can keep the rest of a chunk moving.
package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"resty.dev/v3"
)

const (
	defaultRetryCount       = 3
	defaultRetryWaitTime    = 1 * time.Second
	defaultRetryMaxWaitTime = 10 * time.Second
)

// Provider fetches the closing prices for one symbol over [from, to).
// Implementations must be safe for concurrent use.
type Provider interface {
	ClosingPrices(ctx context.Context, symbol string, from, to time.Time) ([]float64, error)
}

// Client talks to a chart-style REST endpoint
// (GET {base}/v8/finance/chart/{symbol}?period1=&period2=&interval=1d).
type Client struct {
	rc      *resty.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewClient creates a rate-limited chart client with retry and
// exponential backoff on transient failures.
func NewClient(baseURL string, timeout time.Duration, rps float64, burst int, log *zap.Logger) *Client {
	c := &Client{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}

	c.rc = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(defaultRetryWaitTime).
		SetRetryMaxWaitTime(defaultRetryMaxWaitTime).
		AddRetryConditions(retryCondition).
		AddRetryHooks(c.retryHook)

	return c
}

// ClosingPrices fetches the bar history for symbol and returns its
// closing prices sorted by bar timestamp. An empty slice (no bars in
// range) is not an error.
func (c *Client) ClosingPrices(ctx context.Context, symbol string, from, to time.Time) ([]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransientError{Err: err}
	}

	var result chartResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"period1":  fmt.Sprintf("%d", from.Unix()),
			"period2":  fmt.Sprintf("%d", to.Unix()),
			"interval": "1d",
		}).
		SetResult(&result).
		SetError(&result).
		Get("/v8/finance/chart/" + symbol)

	if err != nil {
		return nil, &TransientError{Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	if !resp.IsSuccess() {
		return nil, classifyStatus(resp.StatusCode())
	}
	if result.Chart.Error != nil {
		if result.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
		}
		return nil, &TransientError{Err: fmt.Errorf("%s: %s", result.Chart.Error.Code, result.Chart.Error.Description)}
	}
	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	return extractCloses(result.Chart.Result[0]), nil
}

// extractCloses pairs each bar's timestamp with its close, preferring
// adjusted closes, drops null bars, and sorts by timestamp.
func extractCloses(res chartResult) []float64 {
	closes := closeSeries(res)

	type bar struct {
		ts    int64
		close float64
	}
	bars := make([]bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		bars = append(bars, bar{ts: ts, close: *closes[i]})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].ts < bars[j].ts })

	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.close
	}
	return out
}

func closeSeries(res chartResult) []*float64 {
	if len(res.Indicators.Adjclose) > 0 && len(res.Indicators.Adjclose[0].Adjclose) > 0 {
		return res.Indicators.Adjclose[0].Adjclose
	}
	if len(res.Indicators.Quote) > 0 {
		return res.Indicators.Quote[0].Close
	}
	return nil
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusTooManyRequests || code >= 500:
		return &TransientError{StatusCode: code, Err: errors.New("server rejected request")}
	default:
		return &TransientError{StatusCode: code, Err: errors.New("unexpected response")}
	}
}

// retryCondition retries on network errors, 5xx, rate limits, and
// request timeouts; other client errors are final.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	switch {
	case r.StatusCode() >= 500:
		return true
	case r.StatusCode() == http.StatusTooManyRequests:
		return true
	case r.StatusCode() == http.StatusRequestTimeout:
		return true
	}
	return false
}

func (c *Client) retryHook(r *resty.Response, err error) {
	if err != nil {
		c.log.Debug("retrying quote request",
			zap.String("url", r.Request.URL),
			zap.Int("attempt", r.Request.Attempt),
			zap.Error(err))
		return
	}
	c.log.Debug("retrying quote request",
		zap.String("url", r.Request.URL),
		zap.Int("attempt", r.Request.Attempt),
		zap.Int("status", r.StatusCode()))
}
