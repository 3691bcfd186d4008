package market

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/coinscope/coinscope/agent/internal/config"
	"github.com/coinscope/coinscope/pkg/types"
)

// RatesClient fetches currency exchange rates. It never fails: when the
// provider is unreachable or returns nonsense, the configured fallback is
// reported with Fallback set.
type RatesClient struct {
	cfg     config.RatesConfig
	http    *http.Client
	cache   *Cache
	limiter *rate.Limiter
	rec     Recorder
	now     func() time.Time
}

// NewRates builds a RatesClient. Responses are cached for ttl.
func NewRates(cfg config.RatesConfig, ttl, timeout time.Duration, opts ...RatesOption) *RatesClient {
	r := &RatesClient{
		cfg:     cfg,
		http:    buildHTTPClient(config.AuthConfig{}, timeout),
		cache:   NewCache(ttl),
		limiter: rate.NewLimiter(rate.Inf, 0),
		rec:     nopRecorder{},
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RatesOption customises a RatesClient.
type RatesOption func(*RatesClient)

// WithRatesRecorder attaches a metrics recorder.
func WithRatesRecorder(rec Recorder) RatesOption { return func(r *RatesClient) { r.rec = rec } }

// WithRatesHTTPClient replaces the HTTP client.
func WithRatesHTTPClient(h *http.Client) RatesOption { return func(r *RatesClient) { r.http = h } }

// ratesResponse is the body of GET /latest.
type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Rate returns how many units of quote one unit of base buys.
func (r *RatesClient) Rate(ctx context.Context, base, quote string) types.ExchangeRate {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)

	resp, err := r.fetch(ctx, base, []string{quote})
	if err == nil {
		if v, ok := resp.Rates[quote]; ok && v > 0 {
			return types.ExchangeRate{Base: base, Quote: quote, Rate: v, UpdatedAt: r.now().UTC()}
		}
		err = fmt.Errorf("no positive rate for %s", quote)
	}

	slog.Warn("rates: using fallback", "base", base, "quote", quote,
		"fallback", r.cfg.Fallback, "err", err)
	return types.ExchangeRate{
		Base:      base,
		Quote:     quote,
		Rate:      r.cfg.Fallback,
		Fallback:  true,
		UpdatedAt: r.now().UTC(),
	}
}

// All returns one ExchangeRate per configured symbol.
func (r *RatesClient) All(ctx context.Context) []types.ExchangeRate {
	out := make([]types.ExchangeRate, 0, len(r.cfg.Symbols))
	for _, sym := range r.cfg.Symbols {
		out = append(out, r.Rate(ctx, r.cfg.Base, sym))
	}
	return out
}

// LatestURL returns the request URL for base and symbols.
func (r *RatesClient) LatestURL(base string, symbols []string) string {
	q := url.Values{}
	q.Set("base", base)
	q.Set("symbols", strings.Join(symbols, ","))
	return strings.TrimRight(r.cfg.BaseURL, "/") + "/latest?" + q.Encode()
}

func (r *RatesClient) fetch(ctx context.Context, base string, symbols []string) (*ratesResponse, error) {
	u := r.LatestURL(base, symbols)
	if v, ok := r.cache.Get(u); ok {
		r.rec.CacheHit(EndpointRates)
		return v.(*ratesResponse), nil
	}

	var resp ratesResponse
	if err := getJSON(ctx, r.http, r.limiter, r.rec, EndpointRates, u, &resp); err != nil {
		return nil, fmt.Errorf("rates: %w", err)
	}
	r.cache.Set(u, &resp)
	return &resp, nil
}
