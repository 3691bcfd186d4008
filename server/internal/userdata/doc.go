// Package userdata stores the user's watchlist, portfolio, price alerts and
// preferences.
//
// Each collection is one JSON document in a Backend: Memory for a single
// process, or Redis (go-redis) so the data survives restarts and can be
// shared. Store wraps the backend with the domain operations:
//
//   - Watchlist: add (idempotent), remove, list
//   - Portfolio: add (merges into an existing holding), update, remove,
//     list, Value (mark to market with shopspring/decimal)
//   - Price alerts: create (uuid id), remove, toggle, mark triggered
//   - Preferences: defaults INR/dark/notifications on, merge-update
//
// Missing items return an error wrapping ErrNotFound. There is a single
// user profile and the last write wins.
package userdata
