package types

import (
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

// StrategyType names a registered strategy implementation.
type StrategyType string

const (
	StrategyTypeMovingAverageCrossover StrategyType = "moving_average_crossover"
	StrategyTypeRSI                    StrategyType = "rsi"
	StrategyTypeBollingerBands         StrategyType = "bollinger_bands"
	StrategyTypeMACD                   StrategyType = "macd"
	StrategyTypeMomentum               StrategyType = "momentum"
	StrategyTypeMeanReversion          StrategyType = "mean_reversion"
)

// SelectionMode decides where a strategy gets its symbols.
type SelectionMode string

const (
	SelectionModeWatchlist SelectionMode = "watchlist"
	SelectionModeAuto      SelectionMode = "auto"
	SelectionModeRanking   SelectionMode = "ranking"
)

// SelectionCriteria filters the ranked universe.
type SelectionCriteria struct {
	RankingType   RankingKind `yaml:"ranking_type" json:"ranking_type" default:"fluctuation" validate:"oneof=fluctuation volume market_cap"`
	MaxStocks     int         `yaml:"max_stocks" json:"max_stocks" default:"10" validate:"gte=1"`
	MinChangeRate float64     `yaml:"min_change_rate" json:"min_change_rate" default:"3.0" validate:"gte=0"`
	MinVolume     int64       `yaml:"min_volume" json:"min_volume" default:"1000000" validate:"gte=0"`
}

// StrategyConfig is a strategy row as supplied by the strategy source.
type StrategyConfig struct {
	Name       string         `yaml:"name" json:"name" validate:"required"`
	Type       StrategyType   `yaml:"type" json:"type" validate:"required"`
	Parameters map[string]any `yaml:"parameters" json:"parameters"`
	// AllocationRatio overrides the strategy default when non-zero
	AllocationRatio   float64           `yaml:"allocation_ratio" json:"allocation_ratio" validate:"gte=0,lte=1"`
	SelectionMode     SelectionMode     `yaml:"selection_mode" json:"selection_mode" default:"watchlist" validate:"oneof=watchlist auto ranking"`
	SelectionCriteria SelectionCriteria `yaml:"selection_criteria" json:"selection_criteria"`
	// MaxSellQuantity caps sell orders; 0 means sell the whole holding
	MaxSellQuantity int       `yaml:"max_sell_quantity" json:"max_sell_quantity" validate:"gte=0"`
	OrderKind       OrderKind `yaml:"order_kind" json:"order_kind" default:"00"`
	// Disabled strategies are skipped by the trading cycle
	Disabled bool `yaml:"disabled" json:"disabled"`
}

// ApplyDefaults fills zero-valued fields from their default tags.
func (c *StrategyConfig) ApplyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to apply strategy defaults", err)
	}

	return nil
}

// Validate validates the StrategyConfig struct.
func (c *StrategyConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "invalid configuration for strategy %q", c.Name)
	}

	if c.OrderKind != "" && !c.OrderKind.IsValid() {
		return errors.Newf(errors.ErrCodeStrategyConfigError, "invalid order kind %q for strategy %q", c.OrderKind, c.Name)
	}

	return nil
}
