package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coinscope/coinscope/agent/internal/config"
)

func ratesCfg(baseURL string) config.RatesConfig {
	return config.RatesConfig{BaseURL: baseURL, Base: "USD", Symbols: []string{"INR"}, Fallback: 83.12}
}

func TestRate_FromProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest" || r.URL.Query().Get("base") != "USD" || r.URL.Query().Get("symbols") != "INR" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"base":"USD","rates":{"INR":84.5}}`))
	}))
	defer srv.Close()

	got := NewRates(ratesCfg(srv.URL), time.Minute, time.Second).Rate(context.Background(), "usd", "inr")
	if got.Rate != 84.5 || got.Fallback {
		t.Errorf("Rate = %+v, want 84.5 from provider", got)
	}
	if got.Base != "USD" || got.Quote != "INR" {
		t.Errorf("pair = %s/%s", got.Base, got.Quote)
	}
}

func TestRate_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"missing symbol", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"base":"USD","rates":{"EUR":0.9}}`))
		}},
		{"zero rate", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"base":"USD","rates":{"INR":0}}`))
		}},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			got := NewRates(ratesCfg(srv.URL), time.Minute, time.Second).Rate(context.Background(), "USD", "INR")
			if !got.Fallback || got.Rate != 83.12 {
				t.Errorf("Rate = %+v, want fallback 83.12", got)
			}
		})
	}
}

func TestRate_Unreachable(t *testing.T) {
	got := NewRates(ratesCfg("http://127.0.0.1:1"), 0, time.Second).Rate(context.Background(), "USD", "INR")
	if !got.Fallback {
		t.Errorf("Rate = %+v, want fallback", got)
	}
}

func TestRates_AllCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"base":"USD","rates":{"INR":84}}`))
	}))
	defer srv.Close()

	rec := newFakeRecorder()
	rc := NewRates(ratesCfg(srv.URL), time.Minute, time.Second, WithRatesRecorder(rec))
	for i := 0; i < 2; i++ {
		all := rc.All(context.Background())
		if len(all) != 1 || all[0].Rate != 84 {
			t.Fatalf("All = %+v", all)
		}
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
	if rec.hits[EndpointRates] != 1 || rec.requests["rates/ok"] != 1 {
		t.Errorf("recorder hits=%v requests=%v", rec.hits, rec.requests)
	}
}
