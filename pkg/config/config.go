// Package config loads ibcompare settings from, in increasing precedence,
// defaults, a YAML config file, the environment (optionally seeded from a
// .env file) and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/yurifrl/ibcompare/pkg/flex"
	"github.com/yurifrl/ibcompare/pkg/register"
)

const EnvPrefix = "IBCOMPARE"

type FlexConfig struct {
	ReportPath string `mapstructure:"report_path"`
	ReportsDir string `mapstructure:"reports_dir"`
	Pattern    string `mapstructure:"pattern"`
}

type LedgerConfig struct {
	Journal  string        `mapstructure:"journal"`
	Binary   string        `mapstructure:"binary"`
	Currency string        `mapstructure:"currency"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SymbolsConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	Flex           FlexConfig    `mapstructure:"flex"`
	Ledger         LedgerConfig  `mapstructure:"ledger"`
	Symbols        SymbolsConfig `mapstructure:"symbols"`
	Server         ServerConfig  `mapstructure:"server"`
	EffectiveDates bool          `mapstructure:"effective_dates"`
	LogLevel       string        `mapstructure:"log_level"`
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"report":      "flex.report_path",
	"reports-dir": "flex.reports_dir",
	"ledger-file": "ledger.journal",
	"symbols":     "symbols.path",
	"effective":   "effective_dates",
	"log-level":   "log_level",
	"addr":        "server.addr",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("flex.report_path", "")
	v.SetDefault("flex.reports_dir", "")
	v.SetDefault("flex.pattern", flex.DefaultPattern)
	v.SetDefault("ledger.journal", "")
	v.SetDefault("ledger.binary", "ledger")
	v.SetDefault("ledger.currency", register.DefaultCurrency)
	v.SetDefault("ledger.timeout", 30*time.Second)
	v.SetDefault("symbols.path", "")
	v.SetDefault("effective_dates", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("server.addr", "0.0.0.0:3000")
}

// Build loads the configuration. cfgFile may be empty, in which case
// config.yaml is looked up in the working directory and in
// $HOME/.config/ibcompare; a missing file is not an error. flags may be nil.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "ibcompare"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Ledger.Currency = strings.ToUpper(cfg.Ledger.Currency)
	if money.GetCurrency(cfg.Ledger.Currency) == nil {
		return nil, fmt.Errorf("ledger.currency: unknown currency %q", cfg.Ledger.Currency)
	}
	return &cfg, nil
}

// Validate checks the settings a comparison run needs.
func (c *Config) Validate() error {
	switch {
	case c.Flex.ReportPath != "" && c.Flex.ReportsDir != "":
		return errors.New("report and reports-dir are mutually exclusive")
	case c.Flex.ReportPath == "" && c.Flex.ReportsDir == "":
		return errors.New("one of report or reports-dir is required")
	case c.Ledger.Journal == "":
		return errors.New("ledger journal is required")
	case c.Symbols.Path == "":
		return errors.New("symbols path is required")
	}
	return nil
}
