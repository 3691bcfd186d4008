package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/coinscope/coinscope/agent/internal/config"
	"github.com/coinscope/coinscope/pkg/types"
)

// Endpoint labels used for metrics and cache keys.
const (
	EndpointMarkets = "markets"
	EndpointRates   = "rates"
)

// Recorder receives request and cache observations. *metrics.Metrics
// satisfies it.
type Recorder interface {
	ObserveRequest(endpoint, outcome string, d time.Duration)
	CacheHit(endpoint string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, string, time.Duration) {}
func (nopRecorder) CacheHit(string)                              {}

// NewLimiter returns a token bucket allowing perMinute requests per minute
// with the given burst. A non-positive rate disables limiting.
func NewLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}

// Client fetches coin market data from a CoinGecko-compatible API.
type Client struct {
	cfg     config.MarketConfig
	http    *http.Client
	cache   *Cache
	limiter *rate.Limiter
	rec     Recorder
}

// Option customises a Client.
type Option func(*Client)

// WithCache replaces the default cache.
func WithCache(c *Cache) Option { return func(cl *Client) { cl.cache = c } }

// WithLimiter replaces the default token bucket.
func WithLimiter(l *rate.Limiter) Option { return func(cl *Client) { cl.limiter = l } }

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option { return func(cl *Client) { cl.rec = r } }

// WithHTTPClient replaces the HTTP client. The auth round-tripper is not
// applied to a client supplied this way.
func WithHTTPClient(h *http.Client) Option { return func(cl *Client) { cl.http = h } }

// New builds a Client from cfg. Cache and limiter default to the sizes in cfg.
func New(cfg config.MarketConfig, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		http:    buildHTTPClient(cfg.Auth, cfg.Timeout),
		cache:   NewCache(cfg.CacheTTL),
		limiter: NewLimiter(cfg.RatePerMinute, cfg.Burst),
		rec:     nopRecorder{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// MarketsURL returns the request URL for the top coins by market cap.
func (c *Client) MarketsURL() string {
	q := url.Values{}
	q.Set("vs_currency", strings.ToLower(c.cfg.VsCurrency))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "24h,7d")
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/coins/markets?" + q.Encode()
}

// Markets returns the current top coins by market cap. A fresh cached
// response is returned without consuming a limiter token.
func (c *Client) Markets(ctx context.Context) ([]types.CoinSnapshot, error) {
	u := c.MarketsURL()
	if v, ok := c.cache.Get(u); ok {
		c.rec.CacheHit(EndpointMarkets)
		return v.([]types.CoinSnapshot), nil
	}

	var coins []types.CoinSnapshot
	if err := getJSON(ctx, c.http, c.limiter, c.rec, EndpointMarkets, u, &coins); err != nil {
		return nil, fmt.Errorf("market: %w", err)
	}
	c.cache.Set(u, coins)
	return coins, nil
}

// getJSON waits for a limiter token, performs a GET and decodes the body.
func getJSON(ctx context.Context, hc *http.Client, lim *rate.Limiter, rec Recorder, endpoint, u string, out any) error {
	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	err = doJSON(hc, req, out)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	rec.ObserveRequest(endpoint, outcome, time.Since(start))
	return err
}

func doJSON(hc *http.Client, req *http.Request, out any) error {
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
