// Package auth provides API key authentication for coinscope-server.
//
// A Checker is built from the server auth config. UnaryInterceptor guards the
// gRPC snapshot endpoint; Middleware guards the REST API and WebSocket.
//
// When mode != "apikey" or the key is unset, everything passes through
// (useful for local development with auth disabled).
//
// In mtls mode ServerOptions returns gRPC TLS credentials that require an
// agent certificate signed by the configured CA.
package auth
