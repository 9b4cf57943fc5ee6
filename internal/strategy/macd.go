package strategy

import (
	"sync"

	"github.com/rxtech-lab/kis-autotrader/internal/indicator"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
)

const defaultMACDAllocation = 0.12

// macdState is the pair produced by the latest evaluation of a symbol and
// the crossover it formed with the evaluation before it.
type macdState struct {
	pair  indicator.Pair
	cross indicator.Cross
}

// MACD buys when the MACD line crosses above its signal line and sells on
// the opposite cross. Crossovers compare against the pair the previous
// evaluation produced, not one recomputed from the trimmed window.
type MACD struct {
	*base
	params MACDParams

	mu    sync.Mutex
	state map[string]macdState
}

// NewMACD creates the strategy from cfg.
func NewMACD(cfg types.StrategyConfig, log *logger.Logger) (*MACD, error) {
	var params MACDParams
	if err := decodeParams(cfg, &params); err != nil {
		return nil, err
	}

	return &MACD{
		base:   newBase(cfg, defaultMACDAllocation, params.SlowPeriod, log),
		params: params,
		state:  map[string]macdState{},
	}, nil
}

// Params returns the decoded parameters.
func (s *MACD) Params() MACDParams {
	return s.params
}

func (s *MACD) ShouldBuy(symbol string, snapshot types.MarketSnapshot) bool {
	if snapshot.Price <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prices, _ := s.history.append(symbol, snapshot.Price, snapshot.Volume)

	cross := s.evaluate(symbol, prices)
	if cross == indicator.CrossGolden {
		curr := s.state[symbol].pair
		s.note(symbol, "MACD %.2f crossed above signal %.2f", curr.Fast, curr.Slow)
	}

	return cross == indicator.CrossGolden
}

// ShouldSell reports the crossover of the latest ShouldBuy evaluation.
func (s *MACD) ShouldSell(symbol string, snapshot types.MarketSnapshot) bool {
	if snapshot.Price <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.state[symbol]
	if !ok || state.cross != indicator.CrossDead {
		return false
	}

	s.note(symbol, "MACD %.2f crossed below signal %.2f", state.pair.Fast, state.pair.Slow)

	return true
}

// Preload replaces the history of symbol and forgets its recorded pair.
func (s *MACD) Preload(symbol string, prices []float64, volumes []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.state, symbol)
	s.base.Preload(symbol, prices, volumes)
}

func (s *MACD) indicatorParams() indicator.MACDParams {
	return indicator.MACDParams{
		Fast:   s.params.FastPeriod,
		Slow:   s.params.SlowPeriod,
		Signal: s.params.SignalPeriod,
	}
}

// evaluate computes the pair for prices and records it with its crossover.
// A symbol without a recorded pair, e.g. after Preload, is compared
// against the window minus its newest price.
func (s *MACD) evaluate(symbol string, prices []float64) indicator.Cross {
	params := s.indicatorParams()

	var (
		prev, curr indicator.Pair
		hasPrev    bool
		err        error
	)

	if previous, ok := s.state[symbol]; ok {
		prev, hasPrev = previous.pair, true
		curr, err = indicator.MACD(prices, params)
	} else if len(prices) > params.MinPrices() {
		prev, curr, err = indicator.MACDCrossPair(prices, params)
		hasPrev = err == nil
	} else {
		curr, err = indicator.MACD(prices, params)
	}

	if err != nil {
		s.skip(symbol, err)
		delete(s.state, symbol)

		return indicator.CrossNone
	}

	cross := indicator.CrossNone
	if hasPrev {
		cross = indicator.DetectCross(prev, curr)
	}

	s.state[symbol] = macdState{pair: curr, cross: cross}

	return cross
}
