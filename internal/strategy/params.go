package strategy

import (
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"gopkg.in/yaml.v3"
)

// decodeParams converts a free-form parameter map into a typed parameter
// struct, then applies defaults and validates it.
func decodeParams(cfg types.StrategyConfig, out any) error {
	if len(cfg.Parameters) > 0 {
		raw, err := yaml.Marshal(cfg.Parameters)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to encode parameters for strategy %q", cfg.Name)
		}

		if err := yaml.Unmarshal(raw, out); err != nil {
			return errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to decode parameters for strategy %q", cfg.Name)
		}
	}

	if err := defaults.Set(out); err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to apply parameter defaults for strategy %q", cfg.Name)
	}

	validate := validator.New()
	if err := validate.Struct(out); err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "invalid parameters for strategy %q", cfg.Name)
	}

	return nil
}

// MovingAverageParams configures the moving average crossover.
type MovingAverageParams struct {
	ShortPeriod int `yaml:"short_period" json:"short_period" jsonschema:"title=Short Period,description=Period of the fast moving average,minimum=1,default=5" default:"5" validate:"gte=1,ltfield=LongPeriod"`
	LongPeriod  int `yaml:"long_period" json:"long_period" jsonschema:"title=Long Period,description=Period of the slow moving average,minimum=2,default=20" default:"20" validate:"gte=2"`
}

// RSIParams configures the RSI strategy.
type RSIParams struct {
	Period     int     `yaml:"rsi_period" json:"rsi_period" jsonschema:"title=RSI Period,minimum=1,default=14" default:"14" validate:"gte=1"`
	Oversold   float64 `yaml:"oversold" json:"oversold" jsonschema:"title=Oversold,description=Buy below this RSI,minimum=0,maximum=100,default=30" default:"30" validate:"gte=0,lte=100,ltfield=Overbought"`
	Overbought float64 `yaml:"overbought" json:"overbought" jsonschema:"title=Overbought,description=Sell above this RSI,minimum=0,maximum=100,default=70" default:"70" validate:"gte=0,lte=100"`
	// WarmupDays is how many calendar days of daily bars seed the history
	WarmupDays int `yaml:"warmup_days" json:"warmup_days" jsonschema:"title=Warm-up Days,minimum=1,default=30" default:"30" validate:"gte=1"`
}

// BollingerParams configures the Bollinger Bands strategy.
type BollingerParams struct {
	Period int     `yaml:"period" json:"period" jsonschema:"title=Period,minimum=2,default=20" default:"20" validate:"gte=2"`
	StdDev float64 `yaml:"std_dev" json:"std_dev" jsonschema:"title=Standard Deviations,exclusiveMinimum=0,default=2" default:"2" validate:"gt=0"`
}

// MACDParams configures the MACD strategy.
type MACDParams struct {
	FastPeriod   int `yaml:"fast_period" json:"fast_period" jsonschema:"title=Fast Period,minimum=1,default=12" default:"12" validate:"gte=1,ltfield=SlowPeriod"`
	SlowPeriod   int `yaml:"slow_period" json:"slow_period" jsonschema:"title=Slow Period,minimum=2,default=26" default:"26" validate:"gte=2"`
	SignalPeriod int `yaml:"signal_period" json:"signal_period" jsonschema:"title=Signal Period,minimum=1,default=9" default:"9" validate:"gte=1,ltefield=SlowPeriod"`
}

// MomentumParams configures the momentum strategy.
type MomentumParams struct {
	Period    int     `yaml:"period" json:"period" jsonschema:"title=Period,minimum=1,default=10" default:"10" validate:"gte=1"`
	Threshold float64 `yaml:"momentum_threshold" json:"momentum_threshold" jsonschema:"title=Momentum Threshold,description=Fractional change over the period,exclusiveMinimum=0,default=0.05" default:"0.05" validate:"gt=0"`
	// VolumeRatio is the fraction of trailing average volume a buy requires
	VolumeRatio float64 `yaml:"volume_ratio" json:"volume_ratio" jsonschema:"title=Volume Ratio,minimum=0,default=0.8" default:"0.8" validate:"gte=0"`
}

// MeanReversionParams configures the mean reversion strategy.
type MeanReversionParams struct {
	Period    int     `yaml:"period" json:"period" jsonschema:"title=Period,minimum=1,default=20" default:"20" validate:"gte=1"`
	Threshold float64 `yaml:"deviation_threshold" json:"deviation_threshold" jsonschema:"title=Deviation Threshold,description=Fractional distance from the average,exclusiveMinimum=0,default=0.03" default:"0.03" validate:"gt=0"`
}
