// Package config loads the autotrader configuration from a YAML file, an
// optional .env file and environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/kis-autotrader/internal/broker"
	"github.com/rxtech-lab/kis-autotrader/internal/scheduler"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"gopkg.in/yaml.v3"
)

type TokenStoreBackend string

const (
	TokenStoreFile  TokenStoreBackend = "file"
	TokenStoreRedis TokenStoreBackend = "redis"
)

var symbolPattern = regexp.MustCompile(`^[0-9]{6}$`)

// Config is the complete autotrader configuration.
type Config struct {
	Broker     broker.Config      `yaml:"broker" json:"broker"`
	Log        LogConfig          `yaml:"log" json:"log"`
	TokenStore TokenStoreConfig   `yaml:"token_store" json:"token_store"`
	Scheduler  scheduler.Settings `yaml:"scheduler" json:"scheduler"`
	Ops        OpsConfig          `yaml:"ops" json:"ops"`
	Journal    JournalConfig      `yaml:"journal" json:"journal"`
	Synthetic  SyntheticConfig    `yaml:"synthetic" json:"synthetic"`
	// Watchlist is the symbol list used by watchlist selection
	Watchlist  []string               `yaml:"watchlist" json:"watchlist"`
	Strategies []types.StrategyConfig `yaml:"strategies" json:"strategies"`
}

type LogConfig struct {
	Level    string `yaml:"level" json:"level" default:"info" validate:"oneof=debug info warn error"`
	Encoding string `yaml:"encoding" json:"encoding" default:"json" validate:"oneof=json console"`
}

// TokenStoreConfig selects where issued tokens are persisted.
type TokenStoreConfig struct {
	Backend TokenStoreBackend `yaml:"backend" json:"backend" default:"file" validate:"oneof=file redis"`
	// Path is the token file; empty uses the per-user default
	Path          string `yaml:"path" json:"path"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `yaml:"redis_password" json:"-"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db" validate:"gte=0"`
	RedisPrefix   string `yaml:"redis_prefix" json:"redis_prefix" default:"kis:token:"`
}

// OpsConfig configures the operations HTTP server.
type OpsConfig struct {
	Addr     string `yaml:"addr" json:"addr" default:":9090"`
	Disabled bool   `yaml:"disabled" json:"disabled"`
}

// JournalConfig configures the signal and order journal.
type JournalConfig struct {
	// Path is the DuckDB file; empty keeps the journal in memory
	Path string `yaml:"path" json:"path"`
	// ExportDir receives Parquet exports on shutdown when set
	ExportDir string `yaml:"export_dir" json:"export_dir"`
}

// SyntheticConfig configures the fallback quote generator.
type SyntheticConfig struct {
	Seed       int64   `yaml:"seed" json:"seed"`
	Volatility float64 `yaml:"volatility" json:"volatility" default:"0.015" validate:"gt=0"`
}

// Load reads path (optional), applies .env and environment overrides and
// fills defaults. The result is not validated; call Validate before
// connecting to the brokerage.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
		}

		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config file %s", path)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to apply config defaults", err)
	}

	for i := range cfg.Strategies {
		if err := cfg.Strategies[i].ApplyDefaults(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	if val := os.Getenv("KIS_APP_KEY"); val != "" {
		c.Broker.AppKey = val
	}

	if val := os.Getenv("KIS_APP_SECRET"); val != "" {
		c.Broker.AppSecret = val
	}

	if val := os.Getenv("KIS_ACCOUNT_NO"); val != "" {
		c.Broker.AccountNo = val
	}

	if val := os.Getenv("KIS_ACCOUNT_PRODUCT_CD"); val != "" {
		c.Broker.ProductCode = val
	}

	if val := os.Getenv("KIS_BASE_URL"); val != "" {
		c.Broker.BaseURL = val
	}

	if val := os.Getenv("USE_MOCK_DATA"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid USE_MOCK_DATA %q", val)
		}

		c.Broker.UseFallback = enabled
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}

	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.TokenStore.Backend = TokenStoreRedis
		c.TokenStore.RedisAddr = val
	}

	return nil
}

// Validate checks the whole configuration, including the brokerage
// credentials.
func (c *Config) Validate() error {
	if err := c.Broker.Validate(); err != nil {
		return err
	}

	return c.ValidateOffline()
}

// ValidateOffline checks everything except the brokerage credentials.
func (c *Config) ValidateOffline() error {
	validate := validator.New()

	if err := validate.StructExcept(c, "Broker"); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if err := validateStrategies(c.Strategies); err != nil {
		return err
	}

	return validateWatchlist(c.Watchlist)
}

func validateStrategies(strategies []types.StrategyConfig) error {
	seen := make(map[string]struct{}, len(strategies))

	for i := range strategies {
		if err := strategies[i].Validate(); err != nil {
			return err
		}

		if _, ok := seen[strategies[i].Name]; ok {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "duplicate strategy name %q", strategies[i].Name)
		}

		seen[strategies[i].Name] = struct{}{}
	}

	return nil
}

func validateWatchlist(symbols []string) error {
	for _, symbol := range symbols {
		if !symbolPattern.MatchString(symbol) {
			return errors.Newf(errors.ErrCodeInvalidSymbol, "invalid watchlist symbol %q", symbol)
		}
	}

	return nil
}

// String renders the configuration as YAML with secrets masked.
func (c Config) String() string {
	masked := c
	masked.Broker.AppKey = mask(c.Broker.AppKey)
	masked.Broker.AppSecret = mask(c.Broker.AppSecret)
	masked.Broker.AccountNo = mask(c.Broker.AccountNo)
	masked.TokenStore.RedisPassword = mask(c.TokenStore.RedisPassword)

	raw, err := yaml.Marshal(masked)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}

	return string(raw)
}

func mask(s string) string {
	if s == "" {
		return ""
	}

	return "***"
}
