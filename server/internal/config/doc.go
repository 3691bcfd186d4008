// Package config loads the server-side configuration from the `server:` section
// of the config file (the `agent:` key is ignored by the server binary).
//
// Config fields:
//   - GRPCPort: port for the snapshot receiver (default 50051)
//   - HTTPPort: port for the REST API and WebSocket hub (default 8080)
//   - Auth: mode apikey|none, key_env, header (default "x-api-key"),
//     applied to both gRPC and REST
//   - Snapshot.TTL: how long an agent snapshot stays live (default 10m)
//   - Alerts: per-coin rules (name, condition, coin, severity, cooldown) and
//     webhooks (slack, teams, http, ntfy)
//   - Storage: user-data backend, memory or redis (addr, password_env, db, prefix)
//   - BroadcastInterval: WebSocket push period (default 5s)
//   - Log: level and optional rotated file
//
// Load(path) applies defaults before unmarshalling, then validates. Rule
// conditions are checked for presence here and compiled by package alerts.
package config
