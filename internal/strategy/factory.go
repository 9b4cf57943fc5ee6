package strategy

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

// Types lists the supported strategy type keys.
func Types() []types.StrategyType {
	return []types.StrategyType{
		types.StrategyTypeMovingAverageCrossover,
		types.StrategyTypeRSI,
		types.StrategyTypeBollingerBands,
		types.StrategyTypeMACD,
		types.StrategyTypeMomentum,
		types.StrategyTypeMeanReversion,
	}
}

// New builds a strategy for cfg.Type. Defaults are applied to a copy of cfg
// and the result is validated before construction. source is used only by
// strategies that warm up from daily bars.
func New(cfg types.StrategyConfig, source HistorySource, log *logger.Logger) (Strategy, error) {
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case types.StrategyTypeMovingAverageCrossover:
		return NewMovingAverageCrossover(cfg, log)
	case types.StrategyTypeRSI:
		return NewRSI(cfg, source, log)
	case types.StrategyTypeBollingerBands:
		return NewBollingerBands(cfg, log)
	case types.StrategyTypeMACD:
		return NewMACD(cfg, log)
	case types.StrategyTypeMomentum:
		return NewMomentum(cfg, log)
	case types.StrategyTypeMeanReversion:
		return NewMeanReversion(cfg, log)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unknown strategy type %q", cfg.Type)
	}
}

// ParameterSchema returns the JSON schema of the parameters accepted by
// the strategy type.
func ParameterSchema(strategyType types.StrategyType) (string, error) {
	switch strategyType {
	case types.StrategyTypeMovingAverageCrossover:
		return ToJSONSchema(MovingAverageParams{})
	case types.StrategyTypeRSI:
		return ToJSONSchema(RSIParams{})
	case types.StrategyTypeBollingerBands:
		return ToJSONSchema(BollingerParams{})
	case types.StrategyTypeMACD:
		return ToJSONSchema(MACDParams{})
	case types.StrategyTypeMomentum:
		return ToJSONSchema(MomentumParams{})
	case types.StrategyTypeMeanReversion:
		return ToJSONSchema(MeanReversionParams{})
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedStrategy, "unknown strategy type %q", strategyType)
	}
}

// ToJSONSchema converts a struct to a JSON schema
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(t)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}
