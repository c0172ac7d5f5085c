package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL     string
	PrivateKey string

	Token0   string
	Token1   string
	Fee      uint32
	Factory  string
	Registry string

	NotifyOut string
	PgDSN     string
	LogLevel  string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("fee", uint32(3000))
	v.SetDefault("notify-out", "./data/notifications.jsonl")
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
		RPCURL:     v.GetString("rpc"),
		PrivateKey: v.GetString("private-key"),
		Token0:     v.GetString("token0"),
		Token1:     v.GetString("token1"),
		Fee:        v.GetUint32("fee"),
		Factory:    v.GetString("factory"),
		Registry:   v.GetString("registry"),
		NotifyOut:  v.GetString("notify-out"),
		PgDSN:      v.GetString("pg-dsn"),
		LogLevel:   v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks that the fields every command needs are present.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.Token0 == "" || c.Token1 == "" {
		return fmt.Errorf("token0 and token1 are required")
	}
	if c.Factory == "" || c.Registry == "" {
		return fmt.Errorf("factory and registry addresses are required")
	}
	return nil
}
