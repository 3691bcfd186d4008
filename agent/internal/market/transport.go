package market

import (
	"net/http"
	"time"

	"github.com/coinscope/coinscope/agent/internal/config"
)

const defaultTimeout = 10 * time.Second

// authRoundTripper injects the API key header into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.auth.Mode == "apikey" && t.auth.Header != "" {
		if key := t.auth.Key(); key != "" {
			req = req.Clone(req.Context())
			req.Header.Set(t.auth.Header, key)
		}
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the provider's auth settings.
func buildHTTPClient(auth config.AuthConfig, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Transport: &authRoundTripper{base: http.DefaultTransport, auth: auth},
		Timeout:   timeout,
	}
}
