package pendle

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	domrepo "PendlePulse/internal/domain/repository"
	"PendlePulse/internal/service/ratelimit"
	xhttp "PendlePulse/pkg/http"
	applogger "PendlePulse/pkg/logger"
	"PendlePulse/pkg/retrier"
)

const DefaultAPIBase = "https://api-v2.pendle.finance/core"

// Option configures Client.
type Option func(*Client)

// Client implements repository.MarketSource against the Pendle REST API.
type Client struct {
	baseURL     string
	host        string
	http        *xhttp.Client
	retry       *retrier.Retrier
	limiter     *ratelimit.Limiter
	rateBurst   float64
	ratePerSec  float64
	reqTimeout  time.Duration
	maxAttempts int
	l           *applogger.Logger
}

var _ domrepo.MarketSource = (*Client)(nil)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(c *xhttp.Client) Option { return func(cl *Client) { cl.http = c } }

// WithRequestTimeout bounds every single upstream request.
func WithRequestTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.reqTimeout = d
		}
	}
}

// WithRetries sets how many retries follow a failed request, and the initial backoff.
func WithRetries(n int, initial time.Duration) Option {
	return func(cl *Client) {
		cl.maxAttempts = n
		cl.retry = newRetrier(cl, n, initial)
	}
}

// WithRateLimit sets the token bucket shared by every request to the API host.
func WithRateLimit(l *ratelimit.Limiter, burst, perSec float64) Option {
	return func(cl *Client) {
		cl.limiter = l
		cl.rateBurst = burst
		cl.ratePerSec = perSec
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option { return func(cl *Client) { cl.l = l } }

// New creates a Pendle API client.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("pendle: invalid api base %q", baseURL)
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		host:        u.Host,
		http:        xhttp.NewClient(xhttp.WithUserAgent("pendlepulse/1.0")),
		reqTimeout:  20 * time.Second,
		maxAttempts: 3,
		rateBurst:   5,
		ratePerSec:  5,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry == nil {
		c.retry = newRetrier(c, c.maxAttempts, 500*time.Millisecond)
	}
	return c, nil
}

func newRetrier(c *Client, retries int, initial time.Duration) *retrier.Retrier {
	return retrier.New(
		retrier.WithMaxRetries(retries),
		retrier.WithInitialInterval(initial),
		retrier.WithMaxInterval(10*time.Second),
		retrier.WithRetryIf(IsRetryable),
		retrier.WithOnRetry(func(attempt int, err error, wait time.Duration) {
			c.l.Warn("pendle request retry",
				applogger.Int("attempt", attempt),
				applogger.Duration("wait_ms", wait),
				applogger.Error(err),
			)
		}),
	)
}

// IsRetryable reports whether err is a network failure, 429 or 5xx.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// ActiveMarketIDs lists the ids of currently active markets.
func (c *Client) ActiveMarketIDs(ctx context.Context) ([]string, error) {
	raw, err := c.ActiveMarketsRaw(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := ParseMarketIDs(raw)
	if err != nil {
		return nil, fmt.Errorf("pendle: decode active markets: %w", err)
	}
	return ids, nil
}

// ActiveMarketsRaw returns the active markets response body verbatim.
func (c *Client) ActiveMarketsRaw(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/markets/active")
}

// MarketDetail returns one market's detail record verbatim.
func (c *Client) MarketDetail(ctx context.Context, marketID string) ([]byte, error) {
	if marketID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	return c.get(ctx, "/market/"+url.PathEscape(marketID))
}

// YieldRaw returns the yield record of a token such as PT-stETH verbatim.
func (c *Client) YieldRaw(ctx context.Context, tokenID string) ([]byte, error) {
	if tokenID == "" {
		return nil, domrepo.ErrInvalidInput
	}
	return c.get(ctx, "/yield/"+url.PathEscape(tokenID))
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	body, err := retrier.DoWithData(c.retry, ctx, func(ctx context.Context) ([]byte, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, c.host, c.rateBurst, c.ratePerSec); err != nil {
				return nil, err
			}
		}
		reqCtx, cancel := context.WithTimeout(ctx, c.reqTimeout)
		defer cancel()

		var out []byte
		err := c.http.SendAndParse(reqCtx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    c.baseURL + path,
		}, &out)
		return out, err
	})
	if err != nil {
		c.l.Error("pendle request failed",
			applogger.String("path", path),
			applogger.Duration("duration_ms", time.Since(start)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("pendle GET %s: %w", path, err)
	}
	c.l.Debug("pendle request ok",
		applogger.String("path", path),
		applogger.Int("bytes", len(body)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return body, nil
}
