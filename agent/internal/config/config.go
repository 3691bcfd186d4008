package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/coinscope/coinscope/pkg/logging"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultSourceID      = "coinscope-agent"
	DefaultPollInterval  = 3 * time.Minute
	DefaultBufferSize    = 100
	DefaultMetricsAddr   = ":9102"
	DefaultMarketBaseURL = "https://api.coingecko.com/api/v3"
	DefaultVsCurrency    = "usd"
	DefaultPerPage       = 100
	DefaultCacheTTL      = 2 * time.Minute
	DefaultRatePerMinute = 25
	DefaultBurst         = 5
	DefaultHTTPTimeout   = 10 * time.Second
	DefaultRatesBaseURL  = "https://api.exchangerate.host"
	DefaultRatesBase     = "USD"
	DefaultFallbackRate  = 83.12
	DefaultPredictLimit  = 5
	DefaultScreenSize    = 10
)

// Config is the top-level configuration file. The agent reads only the
// `agent:` section; the server section of a shared file is ignored.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// SourceID identifies this agent to the server. Snapshots are stored per SourceID.
	SourceID string `yaml:"source_id"`

	// ServerEndpoint is the gRPC address of coinscope-server (host:port).
	ServerEndpoint string `yaml:"server_endpoint"`

	// PollInterval controls how often market data is fetched and ranked.
	PollInterval time.Duration `yaml:"poll_interval"`

	// BufferSize is the maximum number of snapshots held in memory when
	// the server is unreachable.
	BufferSize int `yaml:"buffer_size"`

	// MetricsAddr is the listen address for the Prometheus /metrics endpoint.
	// Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	Market  MarketConfig  `yaml:"market"`
	Rates   RatesConfig   `yaml:"rates"`
	Predict PredictConfig `yaml:"predict"`

	// ServerAuth configures how the agent authenticates to coinscope-server.
	ServerAuth AuthConfig `yaml:"server_auth"`

	Log logging.Config `yaml:"log"`
}

// MarketConfig describes the market-data provider.
type MarketConfig struct {
	// BaseURL is the API root, e.g. https://api.coingecko.com/api/v3.
	BaseURL string `yaml:"base_url"`

	// VsCurrency is the quote currency for prices (usd, eur, inr, ...).
	VsCurrency string `yaml:"vs_currency"`

	// PerPage is the number of coins requested per poll, by market cap.
	PerPage int `yaml:"per_page"`

	// CacheTTL is how long a fetched response is reused.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// RatePerMinute and Burst configure the outgoing token bucket.
	RatePerMinute int `yaml:"rate_per_minute"`
	Burst         int `yaml:"burst"`

	Timeout time.Duration `yaml:"timeout"`

	// Auth is used for paid/demo API keys. Only apikey and none are valid.
	Auth AuthConfig `yaml:"auth"`
}

// RatesConfig describes the currency-exchange-rate provider.
type RatesConfig struct {
	BaseURL string   `yaml:"base_url"`
	Base    string   `yaml:"base"`
	Symbols []string `yaml:"symbols"`

	// Fallback is reported, flagged as such, when the provider fails.
	Fallback float64 `yaml:"fallback"`
}

// PredictConfig controls the scoring engine and screens.
type PredictConfig struct {
	Limit int `yaml:"limit"`

	// Mode is one of: score | blended.
	Mode string `yaml:"mode"`

	Booming int `yaml:"booming"`
	Safe    int `yaml:"safe"`
}

// AuthConfig specifies an authentication mode.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the HTTP header or gRPC metadata key carrying the API key.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// LoadEnv loads KEY=value pairs from the given .env files into the process
// environment. Missing files are not an error; variables already set win.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: load env file %q: %w", f, err)
		}
	}
	return nil
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			SourceID:     DefaultSourceID,
			PollInterval: DefaultPollInterval,
			BufferSize:   DefaultBufferSize,
			MetricsAddr:  DefaultMetricsAddr,
			Market: MarketConfig{
				BaseURL:       DefaultMarketBaseURL,
				VsCurrency:    DefaultVsCurrency,
				PerPage:       DefaultPerPage,
				CacheTTL:      DefaultCacheTTL,
				RatePerMinute: DefaultRatePerMinute,
				Burst:         DefaultBurst,
				Timeout:       DefaultHTTPTimeout,
			},
			Rates: RatesConfig{
				BaseURL:  DefaultRatesBaseURL,
				Base:     DefaultRatesBase,
				Symbols:  []string{"INR"},
				Fallback: DefaultFallbackRate,
			},
			Predict: PredictConfig{
				Limit:   DefaultPredictLimit,
				Mode:    "score",
				Booming: DefaultScreenSize,
				Safe:    DefaultScreenSize,
			},
			Log: logging.Config{Level: "info"},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.ServerEndpoint == "" {
		return fmt.Errorf("agent.server_endpoint is required")
	}
	if a.SourceID == "" {
		return fmt.Errorf("agent.source_id must not be empty")
	}
	if a.PollInterval <= 0 {
		return fmt.Errorf("agent.poll_interval must be positive")
	}
	if a.BufferSize <= 0 {
		return fmt.Errorf("agent.buffer_size must be positive")
	}
	if a.Market.BaseURL == "" {
		return fmt.Errorf("agent.market.base_url is required")
	}
	if a.Market.PerPage <= 0 || a.Market.PerPage > 250 {
		return fmt.Errorf("agent.market.per_page %d is out of range [1, 250]", a.Market.PerPage)
	}
	if a.Market.RatePerMinute <= 0 {
		return fmt.Errorf("agent.market.rate_per_minute must be positive")
	}
	if a.Market.Burst <= 0 {
		return fmt.Errorf("agent.market.burst must be positive")
	}
	if a.Market.CacheTTL < 0 {
		return fmt.Errorf("agent.market.cache_ttl must not be negative")
	}
	switch a.Market.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("agent.market.auth.mode %q unknown: want apikey|none", a.Market.Auth.Mode)
	}
	if a.Market.Auth.Mode == "apikey" && a.Market.Auth.Header == "" {
		return fmt.Errorf("agent.market.auth.header is required for apikey mode")
	}
	if a.Rates.Fallback <= 0 {
		return fmt.Errorf("agent.rates.fallback must be positive")
	}
	if a.Predict.Limit <= 0 {
		return fmt.Errorf("agent.predict.limit must be positive")
	}
	switch a.Predict.Mode {
	case "score", "blended", "":
	default:
		return fmt.Errorf("agent.predict.mode %q unknown: want score|blended", a.Predict.Mode)
	}
	switch a.ServerAuth.Mode {
	case "mtls", "apikey", "none", "":
	default:
		return fmt.Errorf("agent.server_auth.mode %q unknown: want mtls|apikey|none", a.ServerAuth.Mode)
	}
	if err := a.Log.Validate(); err != nil {
		return fmt.Errorf("agent.log: %w", err)
	}
	return nil
}
