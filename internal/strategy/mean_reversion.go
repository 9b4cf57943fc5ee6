package strategy

import (
	"github.com/rxtech-lab/kis-autotrader/internal/indicator"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
)

const defaultMeanReversionAllocation = 0.1

// MeanReversion buys when the price is well below its moving average and
// sells when it is well above.
type MeanReversion struct {
	*base
	params MeanReversionParams
}

// NewMeanReversion creates the strategy from cfg.
func NewMeanReversion(cfg types.StrategyConfig, log *logger.Logger) (*MeanReversion, error) {
	var params MeanReversionParams
	if err := decodeParams(cfg, &params); err != nil {
		return nil, err
	}

	return &MeanReversion{
		base:   newBase(cfg, defaultMeanReversionAllocation, params.Period, log),
		params: params,
	}, nil
}

// Params returns the decoded parameters.
func (s *MeanReversion) Params() MeanReversionParams {
	return s.params
}

func (s *MeanReversion) ShouldBuy(symbol string, snapshot types.MarketSnapshot) bool {
	if snapshot.Price <= 0 {
		return false
	}

	prices, _ := s.history.append(symbol, snapshot.Price, snapshot.Volume)

	deviation, ok := s.deviation(symbol, prices, snapshot.Price)
	if !ok || -deviation <= s.params.Threshold {
		return false
	}

	s.note(symbol, "price %.2f%% below %d period average", -deviation*100, s.params.Period)

	return true
}

func (s *MeanReversion) ShouldSell(symbol string, snapshot types.MarketSnapshot) bool {
	if snapshot.Price <= 0 {
		return false
	}

	deviation, ok := s.deviation(symbol, s.history.prices(symbol), snapshot.Price)
	if !ok || deviation <= s.params.Threshold {
		return false
	}

	s.note(symbol, "price %.2f%% above %d period average", deviation*100, s.params.Period)

	return true
}

func (s *MeanReversion) deviation(symbol string, prices []float64, price float64) (float64, bool) {
	deviation, err := indicator.Deviation(prices, s.params.Period, price)
	if err != nil {
		s.skip(symbol, err)

		return 0, false
	}

	return deviation, true
}
