package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ChainConfig declares one chain to index. Chains are declared in the config
// file; flags and environment cover the scalar settings.
type ChainConfig struct {
	ChainID    uint64   `mapstructure:"chain-id"`
	Name       string   `mapstructure:"name"`
	RPCURL     string   `mapstructure:"rpc"`
	Factories  []string `mapstructure:"factories"`
	StartBlock uint64   `mapstructure:"start-block"`
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Chains             []ChainConfig
	PostgresDSN        string
	APIAddr            string
	BatchSize          uint64
	PollInterval       time.Duration
	RPCTimeout         time.Duration
	MaxRetries         int
	RetryBackoff       time.Duration
	AnalyticsCacheTTL  time.Duration
	AnalyticsCacheSize int
	LogLevel           string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GRANTSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("api-addr", ":8080")
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("poll-interval", 12*time.Second)
	v.SetDefault("rpc-timeout", 15*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("analytics-cache-ttl", 30*time.Second)
	v.SetDefault("analytics-cache-size", 16)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		PostgresDSN:        v.GetString("pg-dsn"),
		APIAddr:            v.GetString("api-addr"),
		BatchSize:          v.GetUint64("batch-size"),
		PollInterval:       v.GetDuration("poll-interval"),
		RPCTimeout:         v.GetDuration("rpc-timeout"),
		MaxRetries:         v.GetInt("max-retries"),
		RetryBackoff:       v.GetDuration("retry-backoff"),
		AnalyticsCacheTTL:  v.GetDuration("analytics-cache-ttl"),
		AnalyticsCacheSize: v.GetInt("analytics-cache-size"),
		LogLevel:           v.GetString("log-level"),
	}

	if err := v.UnmarshalKey("chains", &cfg.Chains); err != nil {
		return Config{}, fmt.Errorf("parse chains: %w", err)
	}

	return cfg, nil
}
