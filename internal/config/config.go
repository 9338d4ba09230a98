// Package config loads runtime configuration for both the indexer and the
// API server from flags and environment variables, following the same
// viper/pflag wiring the teacher repository uses for its own Config struct.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every option recognized by either binary. Fields unused by
// a given binary are simply left at their defaults.
type Config struct {
	// Node connectivity (§6 Configuration table).
	NodeEndpoints             []string      `mapstructure:"node_endpoints"`
	NodeRequestTimeout        time.Duration `mapstructure:"node_request_timeout"`
	NodeConnectTimeout        time.Duration `mapstructure:"node_connect_timeout"`
	NodeMaxBehind             time.Duration `mapstructure:"node_max_behind"`
	NodeRequestRateLimit      float64       `mapstructure:"node_request_rate_limit"`
	NodeRequestConcurrencyLimit int         `mapstructure:"node_request_concurrency_limit"`

	// Pipeline shape (§4.1).
	MaxParallelBlockPreprocessors int `mapstructure:"max_parallel_block_preprocessors"`
	MaxProcessingBatch            int `mapstructure:"max_processing_batch"`
	MaxSuccessiveFailures          int `mapstructure:"max_successive_failures"`

	// Storage.
	PostgresDSN string `mapstructure:"postgres_dsn"`

	// Migration engine (§4.5).
	Migrate bool `mapstructure:"migrate"`

	// API-side page-size ceilings, one per connection-type; keyed by
	// GraphQL field name, e.g. "accounts", "transactions", "blocks".
	ConnectionLimits map[string]int32 `mapstructure:"connection_limits"`

	// API bind address.
	APIListenAddr string `mapstructure:"api_listen_addr"`

	// Logging.
	LogLevel string `mapstructure:"log_level"`
}

// defaults mirrors the defaults called out in spec §4.1: P=8, B=4, K=10,
// node_max_behind=60s.
func defaults() Config {
	return Config{
		NodeRequestTimeout:            30 * time.Second,
		NodeConnectTimeout:            5 * time.Second,
		NodeMaxBehind:                 60 * time.Second,
		NodeRequestRateLimit:          50,
		NodeRequestConcurrencyLimit:   16,
		MaxParallelBlockPreprocessors: 8,
		MaxProcessingBatch:            4,
		MaxSuccessiveFailures:         10,
		ConnectionLimits: map[string]int32{
			"accounts":     100,
			"blocks":       100,
			"transactions": 100,
			"tokens":       100,
			"contracts":    100,
			"validators":   100,
		},
		APIListenAddr: ":8080",
		LogLevel:      "INFO",
	}
}

// Load binds flags, environment variables (CCDSCAN_ prefixed) and defaults
// into a Config, the same layering the teacher applies through viper.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := defaults()

	v := viper.New()
	v.SetEnvPrefix("ccdscan")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.StringSlice("node-endpoints", nil, "Concordium node gRPC endpoints, host:port")
	fs.Duration("node-request-timeout", cfg.NodeRequestTimeout, "per-RPC timeout")
	fs.Duration("node-connect-timeout", cfg.NodeConnectTimeout, "per-connect timeout")
	fs.Duration("node-max-behind", cfg.NodeMaxBehind, "reject nodes whose last finalized slot time trails wall clock by more than this")
	fs.Float64("node-request-rate-limit", cfg.NodeRequestRateLimit, "per-connection RPS cap")
	fs.Int("node-request-concurrency-limit", cfg.NodeRequestConcurrencyLimit, "per-connection in-flight cap")
	fs.Int("max-parallel-block-preprocessors", cfg.MaxParallelBlockPreprocessors, "preprocessor pool size (P)")
	fs.Int("max-processing-batch", cfg.MaxProcessingBatch, "commit batch size (B)")
	fs.Int("max-successive-failures", cfg.MaxSuccessiveFailures, "shutdown threshold (K)")
	fs.String("postgres-dsn", "", "Postgres connection string")
	fs.Bool("migrate", false, "run pending schema migrations on startup")
	fs.String("api-listen-addr", cfg.APIListenAddr, "API server bind address")
	fs.String("log-level", cfg.LogLevel, "log level")

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: bind flags: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if eps := v.GetStringSlice("node-endpoints"); len(eps) > 0 {
		cfg.NodeEndpoints = eps
	}
	if dsn := v.GetString("postgres-dsn"); dsn != "" {
		cfg.PostgresDSN = dsn
	}
	cfg.NodeRequestTimeout = v.GetDuration("node-request-timeout")
	cfg.NodeConnectTimeout = v.GetDuration("node-connect-timeout")
	cfg.NodeMaxBehind = v.GetDuration("node-max-behind")
	cfg.NodeRequestRateLimit = v.GetFloat64("node-request-rate-limit")
	cfg.NodeRequestConcurrencyLimit = v.GetInt("node-request-concurrency-limit")
	cfg.MaxParallelBlockPreprocessors = v.GetInt("max-parallel-block-preprocessors")
	cfg.MaxProcessingBatch = v.GetInt("max-processing-batch")
	cfg.MaxSuccessiveFailures = v.GetInt("max-successive-failures")
	cfg.Migrate = v.GetBool("migrate")
	if addr := v.GetString("api-listen-addr"); addr != "" {
		cfg.APIListenAddr = addr
	}
	if lvl := v.GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	if len(cfg.NodeEndpoints) == 0 {
		return nil, fmt.Errorf("config: at least one node endpoint is required")
	}
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("config: postgres_dsn is required")
	}

	return &cfg, nil
}

// ConnectionLimit returns the configured page-size ceiling for a GraphQL
// connection field, or a safe default if unset.
func (c *Config) ConnectionLimit(field string) int32 {
	if n, ok := c.ConnectionLimits[field]; ok && n > 0 {
		return n
	}
	return 50
}
