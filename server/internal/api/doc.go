// Package api implements the HTTP REST API for coinscope-server.
//
// New(store, opts) returns an http.Handler (chi router) that serves:
//
//	GET    /api/v1/health                  state, counts, diagnostics
//	GET    /api/v1/coins                   latest market list (?q=, ?limit=)
//	GET    /api/v1/coins/{id}              one coin plus its prediction
//	GET    /api/v1/predictions             ranked recommendations
//	GET    /api/v1/booming                 top 24h gainers
//	GET    /api/v1/safe                    large, low-volatility coins
//	GET    /api/v1/rates                   exchange rates
//	GET    /api/v1/upstreams               upstream reachability and TLS
//	GET    /api/v1/alerts                  firing and recently resolved alerts
//	GET    /api/v1/snapshot                every live agent snapshot
//	GET    /api/v1/watchlist               POST to add, DELETE /{id} to remove
//	GET    /api/v1/portfolio               POST to add, PATCH/DELETE /{id}
//	GET    /api/v1/portfolio/value         marked to market
//	GET    /api/v1/price-alerts            POST to create, DELETE /{id}, POST /{id}/toggle
//	GET    /api/v1/preferences             PUT to merge-update
//
// Market endpoints accept ?currency= and convert prices with the agent's
// exchange rates; an unknown currency is a 400 and no data yet is a 503.
// Errors are {"error": msg}; wrong methods get 405.
package api
