package strategy

import (
	"github.com/rxtech-lab/kis-autotrader/internal/indicator"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
)

const defaultMovingAverageAllocation = 0.1

// MovingAverageCrossover buys on a golden cross of the short and long
// simple moving averages and sells on a dead cross.
type MovingAverageCrossover struct {
	*base
	params MovingAverageParams
}

// NewMovingAverageCrossover creates the strategy from cfg.
func NewMovingAverageCrossover(cfg types.StrategyConfig, log *logger.Logger) (*MovingAverageCrossover, error) {
	var params MovingAverageParams
	if err := decodeParams(cfg, &params); err != nil {
		return nil, err
	}

	return &MovingAverageCrossover{
		base:   newBase(cfg, defaultMovingAverageAllocation, params.LongPeriod, log),
		params: params,
	}, nil
}

// Params returns the decoded parameters.
func (s *MovingAverageCrossover) Params() MovingAverageParams {
	return s.params
}

func (s *MovingAverageCrossover) ShouldBuy(symbol string, snapshot types.MarketSnapshot) bool {
	if snapshot.Price <= 0 {
		return false
	}

	prices, _ := s.history.append(symbol, snapshot.Price, snapshot.Volume)

	return s.cross(symbol, prices) == indicator.CrossGolden
}

func (s *MovingAverageCrossover) ShouldSell(symbol string, snapshot types.MarketSnapshot) bool {
	if snapshot.Price <= 0 {
		return false
	}

	return s.cross(symbol, s.history.prices(symbol)) == indicator.CrossDead
}

func (s *MovingAverageCrossover) cross(symbol string, prices []float64) indicator.Cross {
	prev, curr, err := indicator.MACrossPair(prices, s.params.ShortPeriod, s.params.LongPeriod)
	if err != nil {
		s.skip(symbol, err)

		return indicator.CrossNone
	}

	cross := indicator.DetectCross(prev, curr)

	switch cross {
	case indicator.CrossGolden:
		s.note(symbol, "golden cross: MA%d %.2f > MA%d %.2f", s.params.ShortPeriod, curr.Fast, s.params.LongPeriod, curr.Slow)
	case indicator.CrossDead:
		s.note(symbol, "dead cross: MA%d %.2f < MA%d %.2f", s.params.ShortPeriod, curr.Fast, s.params.LongPeriod, curr.Slow)
	}

	return cross
}
