package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/coinscope/coinscope/pkg/logging"
)

// Default values for the server configuration.
const (
	DefaultGRPCPort       = 50051
	DefaultHTTPPort       = 8080
	DefaultSnapshotTTL    = 10 * time.Minute
	DefaultAlertCooldown  = 15 * time.Minute
	DefaultBroadcastEvery = 5 * time.Second
	DefaultRedisPrefix    = "coinscope:"
)

// Config holds the server-side configuration parsed from the `server:` section
// of the config file. The `agent:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// GRPCPort is the port the snapshot receiver listens on (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates incoming gRPC and REST clients.
	Auth AuthConfig `yaml:"auth"`

	Snapshot SnapshotConfig `yaml:"snapshot"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Storage  StorageConfig  `yaml:"storage"`

	// BroadcastInterval is how often WebSocket clients receive a snapshot.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	Log logging.Config `yaml:"log"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | mtls | none.
	Mode string `yaml:"mode"`

	// mTLS fields, used when Mode == "mtls". Agents must present a
	// certificate signed by CAFile.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key and HTTP header name carrying the key.
	// Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// SnapshotConfig controls in-memory snapshot retention.
type SnapshotConfig struct {
	// TTL is how long an agent's snapshot stays live after its last update.
	TTL time.Duration `yaml:"ttl"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one per-coin threshold condition.
type AlertRule struct {
	// Name identifies the rule. Together with the coin id it forms the
	// deduplication key.
	Name string `yaml:"name"`

	// Condition is "field op value", e.g. "change_24h > 15" or "rank <= 10".
	Condition string `yaml:"condition"`

	// Coin limits the rule to one coin id. Empty means every coin.
	Coin string `yaml:"coin"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration. Defaults to 15m.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http | ntfy.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// StorageConfig selects the user-data backend.
type StorageConfig struct {
	// Backend is one of: memory | redis.
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis user-data backend.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	Prefix      string `yaml:"prefix"`
}

// Password returns the redis password resolved from the environment.
func (r RedisConfig) Password() string {
	if r.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(r.PasswordEnv)
}

// LoadEnv loads KEY=value pairs from file into the process environment so
// the *_env settings can resolve them. A missing file is not an error, and
// variables already set are not overridden.
func LoadEnv(file string) error {
	if file == "" {
		return nil
	}
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(file); err != nil {
		return fmt.Errorf("server config: load env %q: %w", file, err)
	}
	return nil
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCPort:          DefaultGRPCPort,
			HTTPPort:          DefaultHTTPPort,
			Snapshot:          SnapshotConfig{TTL: DefaultSnapshotTTL},
			Storage:           StorageConfig{Backend: "memory", Redis: RedisConfig{Prefix: DefaultRedisPrefix}},
			BroadcastInterval: DefaultBroadcastEvery,
			Log:               logging.Config{Level: "info"},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.GRPCPort <= 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", s.GRPCPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	case "mtls":
		if s.Auth.CertFile == "" || s.Auth.KeyFile == "" || s.Auth.CAFile == "" {
			return fmt.Errorf("server.auth: mtls requires cert_file, key_file and ca_file")
		}
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|mtls|none", s.Auth.Mode)
	}
	if s.Snapshot.TTL < 0 {
		return fmt.Errorf("server.snapshot.ttl must not be negative")
	}
	if s.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d] %q: condition is required", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("server.alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, w := range s.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http", "ntfy":
		default:
			return fmt.Errorf("server.alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	switch s.Storage.Backend {
	case "memory", "":
	case "redis":
		if s.Storage.Redis.Addr == "" {
			return fmt.Errorf("server.storage.redis.addr is required for redis backend")
		}
	default:
		return fmt.Errorf("server.storage.backend %q unknown: want memory|redis", s.Storage.Backend)
	}
	if err := s.Log.Validate(); err != nil {
		return fmt.Errorf("server.log: %w", err)
	}
	return nil
}
