// Package strategy implements the indicator trading strategies. Each
// strategy keeps a bounded price history per symbol and recomputes its
// indicator from that window on every evaluation.
package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Strategy is the buy/sell/size/price contract shared by every variant.
//
// ShouldBuy is the first check of an evaluation and appends the snapshot
// price to the symbol's history. ShouldSell reads the same window without
// appending.
type Strategy interface {
	// Name returns the configured strategy name
	Name() string
	// Type returns the strategy type key
	Type() types.StrategyType
	// Config returns the configuration the strategy was built from
	Config() types.StrategyConfig
	ShouldBuy(symbol string, snapshot types.MarketSnapshot) bool
	ShouldSell(symbol string, snapshot types.MarketSnapshot) bool
	// BuyQuantity returns floor(balance * allocation / price), or 0 when
	// that does not cover one share
	BuyQuantity(symbol string, availableBalance float64, price float64) int
	BuyPrice(symbol string, snapshot types.MarketSnapshot) float64
	SellPrice(symbol string, snapshot types.MarketSnapshot) float64
	// Reason describes the indicator reading behind the last signal check
	Reason(symbol string) string
}

// Initializer is implemented by strategies that backfill history before
// their first evaluation of a symbol. Initialize is idempotent per symbol.
type Initializer interface {
	Initialize(ctx context.Context, symbol string) error
}

// HistorySource supplies daily bars for warm-up.
type HistorySource interface {
	GetDailyPrices(ctx context.Context, symbol string, start, end time.Time) ([]types.DailyBar, error)
}

// base carries the configuration, sizing and history shared by all variants.
type base struct {
	cfg        types.StrategyConfig
	allocation float64
	history    *history
	logger     *logger.Logger

	mu      sync.Mutex
	reasons map[string]string
}

func newBase(cfg types.StrategyConfig, defaultAllocation float64, lookback int, log *logger.Logger) *base {
	if log == nil {
		log = logger.NewNop()
	}

	allocation := cfg.AllocationRatio
	if allocation <= 0 {
		allocation = defaultAllocation
	}

	return &base{
		cfg:        cfg,
		allocation: allocation,
		history:    newHistory(2 * lookback),
		logger:     log,
		reasons:    map[string]string{},
	}
}

func (b *base) Name() string {
	return b.cfg.Name
}

func (b *base) Type() types.StrategyType {
	return b.cfg.Type
}

func (b *base) Config() types.StrategyConfig {
	return b.cfg
}

// AllocationRatio returns the fraction of available balance used per buy.
func (b *base) AllocationRatio() float64 {
	return b.allocation
}

func (b *base) BuyQuantity(_ string, availableBalance float64, price float64) int {
	if price <= 0 || availableBalance <= 0 {
		return 0
	}

	amount := decimal.NewFromFloat(availableBalance).Mul(decimal.NewFromFloat(b.allocation))
	quantity := amount.Div(decimal.NewFromFloat(price)).Floor().IntPart()

	if quantity < 0 {
		return 0
	}

	return int(quantity)
}

func (b *base) BuyPrice(_ string, snapshot types.MarketSnapshot) float64 {
	return snapshot.Price
}

func (b *base) SellPrice(_ string, snapshot types.MarketSnapshot) float64 {
	return snapshot.Price
}

func (b *base) Reason(symbol string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.reasons[symbol]
}

// Preload replaces the history of symbol with the newest entries of
// prices. volumes may be nil.
func (b *base) Preload(symbol string, prices []float64, volumes []int64) {
	b.history.preload(symbol, prices, volumes)
}

// History returns a copy of the price window for symbol, oldest first.
func (b *base) History(symbol string) []float64 {
	return b.history.prices(symbol)
}

func (b *base) note(symbol string, format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reasons[symbol] = fmt.Sprintf(format, args...)
}

func (b *base) skip(symbol string, err error) {
	b.logger.Debug("Indicator not computed",
		zap.String("strategy", b.cfg.Name),
		zap.String("symbol", symbol),
		zap.Error(err),
	)
}
