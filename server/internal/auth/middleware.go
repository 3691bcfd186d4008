package auth

import (
	"net/http"
)

// Middleware rejects HTTP requests without a valid key with 401 and a JSON
// error body. OPTIONS requests pass so CORS preflights work. WebSocket
// clients that cannot set headers may pass the key as ?api_key=.
func (c *Checker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.enabled || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get(c.header)
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if !c.Valid(key) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid api key"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
