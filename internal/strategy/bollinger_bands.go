package strategy

import (
	"github.com/rxtech-lab/kis-autotrader/internal/indicator"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
)

const (
	defaultBollingerAllocation = 0.12
	// bandTolerance widens each band by 2% toward the middle
	bandTolerance = 0.02
)

// BollingerBands buys near the lower band and sells near the upper band.
type BollingerBands struct {
	*base
	params BollingerParams
}

// NewBollingerBands creates the strategy from cfg.
func NewBollingerBands(cfg types.StrategyConfig, log *logger.Logger) (*BollingerBands, error) {
	var params BollingerParams
	if err := decodeParams(cfg, &params); err != nil {
		return nil, err
	}

	return &BollingerBands{
		base:   newBase(cfg, defaultBollingerAllocation, params.Period, log),
		params: params,
	}, nil
}

// Params returns the decoded parameters.
func (s *BollingerBands) Params() BollingerParams {
	return s.params
}

func (s *BollingerBands) ShouldBuy(symbol string, snapshot types.MarketSnapshot) bool {
	if snapshot.Price <= 0 {
		return false
	}

	prices, _ := s.history.append(symbol, snapshot.Price, snapshot.Volume)

	bands, ok := s.bands(symbol, prices)
	if !ok || snapshot.Price > bands.Lower*(1+bandTolerance) {
		return false
	}

	s.note(symbol, "price %.0f near lower band %.2f", snapshot.Price, bands.Lower)

	return true
}

func (s *BollingerBands) ShouldSell(symbol string, snapshot types.MarketSnapshot) bool {
	if snapshot.Price <= 0 {
		return false
	}

	bands, ok := s.bands(symbol, s.history.prices(symbol))
	if !ok || snapshot.Price < bands.Upper*(1-bandTolerance) {
		return false
	}

	s.note(symbol, "price %.0f near upper band %.2f", snapshot.Price, bands.Upper)

	return true
}

func (s *BollingerBands) bands(symbol string, prices []float64) (indicator.Bands, bool) {
	bands, err := indicator.BollingerBands(prices, s.params.Period, s.params.StdDev)
	if err != nil {
		s.skip(symbol, err)

		return indicator.Bands{}, false
	}

	return bands, true
}
