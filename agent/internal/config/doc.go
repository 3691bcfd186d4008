// Package config loads and watches the agent configuration file (agent.yaml).
//
// Top-level types:
//   - Config{Agent}: the `agent:` tree parsed from YAML
//   - AgentConfig: source_id, server_endpoint, poll_interval, buffer_size,
//     metrics_addr, market, rates, predict, server_auth, log
//   - MarketConfig: provider base_url, vs_currency, per_page, cache_ttl,
//     rate_per_minute/burst for the token bucket, timeout, auth
//   - RatesConfig: exchange-rate provider and the fallback rate
//   - PredictConfig: limit and mode (score|blended) for the ranking engine,
//     sizes of the booming and safe screens
//   - AuthConfig: mode (mtls|apikey|none), cert/key/ca files, header, key_env;
//     Key() resolves the secret from the environment
//
// LoadEnv(files...) pulls .env files into the environment before Load so that
// key_env references can live outside the YAML.
//
// Load(path) reads the YAML file, applies defaults (3m poll, 100 buffer,
// 2m cache, 25 req/min), then validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. The agent applies predict settings
// from it on the next cycle.
package config
