package strategy

import (
	"github.com/rxtech-lab/kis-autotrader/internal/indicator"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
)

const defaultMomentumAllocation = 0.1

// Momentum buys on a strong rise over the lookback confirmed by volume and
// sells on a strong fall.
type Momentum struct {
	*base
	params MomentumParams
}

// NewMomentum creates the strategy from cfg.
func NewMomentum(cfg types.StrategyConfig, log *logger.Logger) (*Momentum, error) {
	var params MomentumParams
	if err := decodeParams(cfg, &params); err != nil {
		return nil, err
	}

	return &Momentum{
		base:   newBase(cfg, defaultMomentumAllocation, params.Period, log),
		params: params,
	}, nil
}

// Params returns the decoded parameters.
func (s *Momentum) Params() MomentumParams {
	return s.params
}

func (s *Momentum) ShouldBuy(symbol string, snapshot types.MarketSnapshot) bool {
	if snapshot.Price <= 0 {
		return false
	}

	prices, previousVolumes := s.history.append(symbol, snapshot.Price, snapshot.Volume)

	momentum, ok := s.momentum(symbol, prices)
	if !ok || momentum <= s.params.Threshold {
		return false
	}

	average := averageVolume(previousVolumes)
	if float64(snapshot.Volume) < average*s.params.VolumeRatio {
		return false
	}

	s.note(symbol, "momentum %.2f%% with volume %d vs average %.0f", momentum*100, snapshot.Volume, average)

	return true
}

func (s *Momentum) ShouldSell(symbol string, snapshot types.MarketSnapshot) bool {
	if snapshot.Price <= 0 {
		return false
	}

	momentum, ok := s.momentum(symbol, s.history.prices(symbol))
	if !ok || momentum >= -s.params.Threshold {
		return false
	}

	s.note(symbol, "momentum %.2f%% below -%.2f%%", momentum*100, s.params.Threshold*100)

	return true
}

func (s *Momentum) momentum(symbol string, prices []float64) (float64, bool) {
	momentum, err := indicator.Momentum(prices, s.params.Period)
	if err != nil {
		s.skip(symbol, err)

		return 0, false
	}

	return momentum, true
}

// averageVolume returns the mean of the recorded volumes, or 0 when there
// are none.
func averageVolume(volumes []int64) float64 {
	if len(volumes) == 0 {
		return 0
	}

	var sum float64
	for _, v := range volumes {
		sum += float64(v)
	}

	return sum / float64(len(volumes))
}
