package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/indicator"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"go.uber.org/zap"
)

const defaultRSIAllocation = 0.15

// RSI buys when the relative strength index is below the oversold level
// and sells when it is above the overbought level. History is backfilled
// from daily closes on first use of a symbol.
type RSI struct {
	*base
	params RSIParams
	source HistorySource
	now    func() time.Time

	initMu      sync.Mutex
	initialized map[string]bool
}

// NewRSI creates the strategy from cfg. source may be nil, in which case
// history builds up from live evaluations only.
func NewRSI(cfg types.StrategyConfig, source HistorySource, log *logger.Logger) (*RSI, error) {
	var params RSIParams
	if err := decodeParams(cfg, &params); err != nil {
		return nil, err
	}

	return &RSI{
		base:        newBase(cfg, defaultRSIAllocation, params.Period, log),
		params:      params,
		source:      source,
		now:         time.Now,
		initialized: map[string]bool{},
	}, nil
}

// Params returns the decoded parameters.
func (s *RSI) Params() RSIParams {
	return s.params
}

// Initialize seeds the history of symbol from recent daily closes. It is a
// no-op once a symbol has been seeded. A window too short to compute RSI
// is not kept and the symbol stays uninitialized.
func (s *RSI) Initialize(ctx context.Context, symbol string) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.initialized[symbol] || s.source == nil {
		return nil
	}

	end := s.now()
	start := end.AddDate(0, 0, -s.params.WarmupDays)

	bars, err := s.source.GetDailyPrices(ctx, symbol, start, end)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to load daily prices for %s", symbol)
	}

	prices := make([]float64, 0, len(bars))
	volumes := make([]int64, 0, len(bars))

	for _, bar := range bars {
		if bar.Close <= 0 {
			continue
		}

		prices = append(prices, bar.Close)
		volumes = append(volumes, bar.Volume)
	}

	if len(prices) < s.params.Period+1 {
		s.logger.Warn("Not enough daily prices to seed RSI",
			zap.String("symbol", symbol),
			zap.Int("required", s.params.Period+1),
			zap.Int("actual", len(prices)),
		)

		return nil
	}

	s.history.preload(symbol, prices, volumes)
	s.initialized[symbol] = true

	s.logger.Info("Seeded RSI history",
		zap.String("strategy", s.cfg.Name),
		zap.String("symbol", symbol),
		zap.Int("prices", s.history.count(symbol)),
	)

	return nil
}

func (s *RSI) ShouldBuy(symbol string, snapshot types.MarketSnapshot) bool {
	if snapshot.Price <= 0 {
		return false
	}

	prices, _ := s.history.append(symbol, snapshot.Price, snapshot.Volume)

	rsi, ok := s.compute(symbol, prices)
	if !ok || rsi >= s.params.Oversold {
		return false
	}

	s.note(symbol, "RSI %.2f below oversold %.0f", rsi, s.params.Oversold)

	return true
}

func (s *RSI) ShouldSell(symbol string, snapshot types.MarketSnapshot) bool {
	if snapshot.Price <= 0 {
		return false
	}

	rsi, ok := s.compute(symbol, s.history.prices(symbol))
	if !ok || rsi <= s.params.Overbought {
		return false
	}

	s.note(symbol, "RSI %.2f above overbought %.0f", rsi, s.params.Overbought)

	return true
}

func (s *RSI) compute(symbol string, prices []float64) (float64, bool) {
	rsi, err := indicator.RSI(prices, s.params.Period)
	if err != nil {
		s.skip(symbol, err)

		return 0, false
	}

	return rsi, true
}
