package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jdziat/simple-durable-jobstore/pkg/jobstore"
	"github.com/jdziat/simple-durable-jobstore/pkg/storage"
)

// Config is the CLI configuration, read from flags, JOBSTORE_* environment
// variables and an optional config file, in that order of precedence.
type Config struct {
	Dialect          string        `mapstructure:"dialect"`
	DSN              string        `mapstructure:"dsn"`
	Instance         string        `mapstructure:"instance"`
	MisfireThreshold time.Duration `mapstructure:"misfire_threshold"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dialect", storage.DialectSQLite)
	v.SetDefault("dsn", "jobstore.db")
	v.SetDefault("instance", jobstore.DefaultInstanceName)
	v.SetDefault("misfire_threshold", jobstore.DefaultMisfireThreshold)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// newViper returns a viper instance bound to the JOBSTORE_ environment.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("JOBSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// LoadConfig merges configFile (when set) and the bound flags into a Config.
func LoadConfig(v *viper.Viper, configFile string, flags *pflag.FlagSet) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	if flags != nil {
		for key, flag := range map[string]string{
			"dialect":           "dialect",
			"dsn":               "dsn",
			"instance":          "instance",
			"misfire_threshold": "misfire-threshold",
			"log_level":         "log-level",
			"log_format":        "log-format",
		} {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.MisfireThreshold < jobstore.MinMisfireThreshold {
		return nil, fmt.Errorf("misfire_threshold %s: must be at least %s", cfg.MisfireThreshold, jobstore.MinMisfireThreshold)
	}
	return &cfg, nil
}
