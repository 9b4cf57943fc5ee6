// Package engine evaluates registered strategies against live quotes and
// turns their decisions into signals.
package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/strategy"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// MarketData supplies the current quote for a symbol.
type MarketData interface {
	GetCurrentPrice(ctx context.Context, symbol string) (types.MarketSnapshot, error)
}

// AccountProvider supplies the available balance and held quantities.
type AccountProvider interface {
	GetBalance(ctx context.Context) (types.AccountBalance, error)
}

// SignalRecorder observes produced signals.
type SignalRecorder interface {
	RecordSignal(strategy string, action string)
	RecordPrice(symbol string, price float64)
}

// Engine holds the active strategies. Registration and evaluation may be
// called concurrently.
type Engine struct {
	market   MarketData
	account  AccountProvider
	history  strategy.HistorySource
	logger   *logger.Logger
	recorder SignalRecorder

	mu         sync.RWMutex
	strategies map[string]strategy.Strategy
}

// NewEngine creates an Engine. account may be nil, in which case buys are
// sized against a zero balance and no holdings are known.
func NewEngine(market MarketData, account AccountProvider, history strategy.HistorySource, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}

	return &Engine{
		market:     market,
		account:    account,
		history:    history,
		logger:     log,
		strategies: map[string]strategy.Strategy{},
	}
}

// SetRecorder attaches a signal observer.
func (e *Engine) SetRecorder(recorder SignalRecorder) {
	e.recorder = recorder
}

// Register builds and activates a strategy from cfg, replacing any active
// strategy with the same name. An invalid configuration leaves the active
// set unchanged.
func (e *Engine) Register(cfg types.StrategyConfig) error {
	s, err := strategy.New(cfg, e.history, e.logger)
	if err != nil {
		e.logger.Error("Failed to register strategy", zap.String("strategy", cfg.Name), zap.Error(err))

		return err
	}

	e.mu.Lock()
	e.strategies[s.Name()] = s
	e.mu.Unlock()

	e.logger.Info("Strategy registered", zap.String("strategy", s.Name()), zap.String("type", string(s.Type())))

	return nil
}

// Unregister deactivates the named strategy. Unknown names are ignored.
func (e *Engine) Unregister(name string) {
	e.mu.Lock()
	_, ok := e.strategies[name]
	delete(e.strategies, name)
	e.mu.Unlock()

	if ok {
		e.logger.Info("Strategy unregistered", zap.String("strategy", name))
	}
}

// Get returns the named strategy.
func (e *Engine) Get(name string) (strategy.Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s, ok := e.strategies[name]

	return s, ok
}

// Strategies returns the active strategies ordered by name.
func (e *Engine) Strategies() []strategy.Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]strategy.Strategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })

	return out
}

// Evaluate runs the named strategy against symbol. It yields at most one
// signal: a BUY when the buy check passes and sizing allows a share,
// otherwise a SELL when the sell check passes and shares are held.
func (e *Engine) Evaluate(ctx context.Context, name string, symbol string) (optional.Option[types.Signal], error) {
	s, ok := e.Get(name)
	if !ok {
		return optional.None[types.Signal](), errors.Newf(errors.ErrCodeStrategyNotLoaded, "strategy %q is not registered", name)
	}

	balance := e.balance(ctx)

	return e.evaluate(ctx, s, symbol, balance)
}

// EvaluateAll evaluates every active strategy against every symbol and
// returns the produced signals. Each pair is sized against the same
// balance snapshot; capital is not reserved across pairs. Per-symbol
// failures are logged and skipped.
func (e *Engine) EvaluateAll(ctx context.Context, symbols []string) []types.Signal {
	strategies := e.Strategies()
	if len(strategies) == 0 || len(symbols) == 0 {
		return nil
	}

	balance := e.balance(ctx)

	var signals []types.Signal

	for _, s := range strategies {
		for _, symbol := range symbols {
			if ctx.Err() != nil {
				return signals
			}

			signal, err := e.evaluate(ctx, s, symbol, balance)
			if err != nil {
				continue
			}

			if signal.IsSome() {
				signals = append(signals, signal.Unwrap())
			}
		}
	}

	return signals
}

// EvaluateStrategy evaluates one strategy against symbols using a single
// balance snapshot.
func (e *Engine) EvaluateStrategy(ctx context.Context, name string, symbols []string) ([]types.Signal, error) {
	s, ok := e.Get(name)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotLoaded, "strategy %q is not registered", name)
	}

	balance := e.balance(ctx)

	var signals []types.Signal

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}

		signal, err := e.evaluate(ctx, s, symbol, balance)
		if err == nil && signal.IsSome() {
			signals = append(signals, signal.Unwrap())
		}
	}

	return signals, nil
}

func (e *Engine) evaluate(ctx context.Context, s strategy.Strategy, symbol string, balance types.AccountBalance) (optional.Option[types.Signal], error) {
	log := e.logger.With(zap.String("strategy", s.Name()), zap.String("symbol", symbol))

	if initializer, ok := s.(strategy.Initializer); ok {
		if err := initializer.Initialize(ctx, symbol); err != nil {
			// evaluation continues on whatever history exists
			log.Warn("Strategy warm-up failed", zap.Error(err))
		}
	}

	snapshot, err := e.market.GetCurrentPrice(ctx, symbol)
	if err != nil {
		log.Error("Failed to fetch current price", zap.String("error", logger.Redact(err.Error())))

		return optional.None[types.Signal](), err
	}

	if e.recorder != nil {
		e.recorder.RecordPrice(symbol, snapshot.Price)
	}

	cfg := s.Config()

	if s.ShouldBuy(symbol, snapshot) {
		price := s.BuyPrice(symbol, snapshot)
		quantity := s.BuyQuantity(symbol, balance.AvailableBalance(), price)

		if quantity > 0 {
			return e.emit(log, s, types.NewSignal(types.SignalActionBuy, symbol, quantity, price, cfg.OrderKind)), nil
		}

		log.Info("Buy condition met but balance does not cover one share",
			zap.Float64("balance", balance.AvailableBalance()),
			zap.Float64("price", price),
		)
	}

	held := balance.HeldQuantity(symbol)

	if s.ShouldSell(symbol, snapshot) {
		if held <= 0 {
			log.Debug("Sell condition met without holdings")

			return optional.None[types.Signal](), nil
		}

		quantity := held
		if cfg.MaxSellQuantity > 0 && cfg.MaxSellQuantity < quantity {
			quantity = cfg.MaxSellQuantity
		}

		return e.emit(log, s, types.NewSignal(types.SignalActionSell, symbol, quantity, s.SellPrice(symbol, snapshot), cfg.OrderKind)), nil
	}

	return optional.None[types.Signal](), nil
}

func (e *Engine) emit(log *zap.Logger, s strategy.Strategy, signal types.Signal) optional.Option[types.Signal] {
	signal.StrategyName = s.Name()
	signal.Reason = s.Reason(signal.Symbol)

	log.Info("Signal produced",
		zap.String("action", string(signal.Action)),
		zap.Int("quantity", signal.Quantity),
		zap.Float64("price", signal.Price),
		zap.String("reason", signal.Reason),
	)

	if e.recorder != nil {
		e.recorder.RecordSignal(s.Name(), string(signal.Action))
	}

	return optional.Some(signal)
}

func (e *Engine) balance(ctx context.Context) types.AccountBalance {
	if e.account == nil {
		return types.AccountBalance{}
	}

	balance, err := e.account.GetBalance(ctx)
	if err != nil {
		e.logger.Warn("Failed to load account balance, sizing against zero", zap.String("error", logger.Redact(err.Error())))

		return types.AccountBalance{}
	}

	return balance
}
