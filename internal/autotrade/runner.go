// Package autotrade runs the evaluate-and-submit trading cycle: for every
// active strategy it selects a universe, evaluates it and submits the
// resulting signals as cash orders.
package autotrade

import (
	"context"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/engine"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/internal/universe"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// StrategySource supplies the configured strategy rows.
type StrategySource interface {
	Strategies(ctx context.Context) ([]types.StrategyConfig, error)
}

// OrderPlacer submits cash orders.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order types.OrderRequest) (types.OrderResult, error)
}

// Journal persists signals and order outcomes.
type Journal interface {
	RecordSignal(ctx context.Context, signal types.Signal) error
	RecordOutcome(ctx context.Context, outcome types.OrderOutcome) error
}

// OrderRecorder observes order outcomes.
type OrderRecorder interface {
	RecordOrder(side string, status string)
}

// OnSignalCallback is called for each signal before it is submitted.
type OnSignalCallback func(signal types.Signal)

// OnOrderCallback is called with the outcome of each submitted signal.
type OnOrderCallback func(outcome types.OrderOutcome)

// OnStrategyErrorCallback is called when a strategy cannot be registered
// or evaluated.
type OnStrategyErrorCallback func(strategy string, err error)

// Callbacks holds the cycle callbacks. All fields are pointers - nil means
// no callback will be invoked.
type Callbacks struct {
	OnSignal        *OnSignalCallback
	OnOrder         *OnOrderCallback
	OnStrategyError *OnStrategyErrorCallback
}

// Report summarises one cycle.
type Report struct {
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Strategies int                  `json:"strategies"`
	Signals    []types.Signal       `json:"signals"`
	Outcomes   []types.OrderOutcome `json:"outcomes"`
}

// Executed returns the number of orders the brokerage accepted.
func (r Report) Executed() int {
	count := 0

	for _, outcome := range r.Outcomes {
		if outcome.Status == types.OrderStatusExecuted {
			count++
		}
	}

	return count
}

// Runner executes trading cycles. A Runner is driven by one scheduler and
// must not run cycles concurrently.
type Runner struct {
	engine   *engine.Engine
	selector *universe.Selector
	source   StrategySource
	orders   OrderPlacer
	journal  Journal
	recorder OrderRecorder
	logger   *logger.Logger

	callbacks Callbacks
	dryRun    bool
}

// NewRunner creates a Runner.
func NewRunner(eng *engine.Engine, selector *universe.Selector, source StrategySource, orders OrderPlacer, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}

	return &Runner{
		engine:   eng,
		selector: selector,
		source:   source,
		orders:   orders,
		logger:   log,
	}
}

// SetJournal attaches a signal and outcome journal.
func (r *Runner) SetJournal(journal Journal) {
	r.journal = journal
}

// SetRecorder attaches an order observer.
func (r *Runner) SetRecorder(recorder OrderRecorder) {
	r.recorder = recorder
}

// SetCallbacks replaces the cycle callbacks.
func (r *Runner) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

// SetDryRun makes the runner record signals without submitting orders.
func (r *Runner) SetDryRun(dryRun bool) {
	r.dryRun = dryRun
}

// RunCycle runs one cycle and discards the report.
func (r *Runner) RunCycle(ctx context.Context) error {
	_, err := r.RunOnce(ctx)

	return err
}

// RunOnce runs one cycle over every enabled strategy. Only a failure to
// load the strategy list fails the cycle; per-strategy and per-order
// failures are logged and recorded in the report.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	report := Report{StartedAt: time.Now()}

	configs, err := r.source.Strategies(ctx)
	if err != nil {
		return report, errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to load strategies", err)
	}

	for _, cfg := range configs {
		if ctx.Err() != nil {
			break
		}

		if cfg.Disabled {
			r.engine.Unregister(cfg.Name)

			continue
		}

		if err := r.ensureRegistered(cfg); err != nil {
			r.strategyError(cfg.Name, err)

			continue
		}

		report.Strategies++
		r.runStrategy(ctx, cfg, &report)
	}

	report.FinishedAt = time.Now()

	r.logger.Info("Trading cycle finished",
		zap.Int("strategies", report.Strategies),
		zap.Int("signals", len(report.Signals)),
		zap.Int("executed", report.Executed()),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	return report, nil
}

func (r *Runner) ensureRegistered(cfg types.StrategyConfig) error {
	if _, ok := r.engine.Get(cfg.Name); ok {
		return nil
	}

	return r.engine.Register(cfg)
}

func (r *Runner) runStrategy(ctx context.Context, cfg types.StrategyConfig, report *Report) {
	log := r.logger.With(zap.String("strategy", cfg.Name))

	symbols := r.selector.Select(ctx, cfg.SelectionMode, cfg.SelectionCriteria)
	if len(symbols) == 0 {
		log.Info("No symbols selected", zap.String("mode", string(cfg.SelectionMode)))

		return
	}

	signals, err := r.engine.EvaluateStrategy(ctx, cfg.Name, symbols)
	if err != nil {
		r.strategyError(cfg.Name, err)

		return
	}

	for _, signal := range signals {
		report.Signals = append(report.Signals, signal)

		if r.callbacks.OnSignal != nil {
			(*r.callbacks.OnSignal)(signal)
		}

		if r.journal != nil {
			if err := r.journal.RecordSignal(ctx, signal); err != nil {
				log.Warn("Failed to journal signal", zap.String("signal", signal.ID), zap.Error(err))
			}
		}

		outcome := r.submit(ctx, signal)
		report.Outcomes = append(report.Outcomes, outcome)

		if r.journal != nil {
			if err := r.journal.RecordOutcome(ctx, outcome); err != nil {
				log.Warn("Failed to journal order outcome", zap.String("signal", signal.ID), zap.Error(err))
			}
		}

		if r.recorder != nil {
			r.recorder.RecordOrder(string(signal.Action), string(outcome.Status))
		}

		if r.callbacks.OnOrder != nil {
			(*r.callbacks.OnOrder)(outcome)
		}
	}
}

// submit places the order for signal and reports what happened.
func (r *Runner) submit(ctx context.Context, signal types.Signal) types.OrderOutcome {
	outcome := types.OrderOutcome{
		Signal:   signal,
		Strategy: signal.StrategyName,
		Time:     time.Now(),
	}

	log := r.logger.With(
		zap.String("strategy", signal.StrategyName),
		zap.String("symbol", signal.Symbol),
		zap.String("side", string(signal.Action)),
		zap.Int("quantity", signal.Quantity),
	)

	if r.dryRun {
		outcome.Status = types.OrderStatusSkipped

		log.Info("Dry run, order not submitted", zap.Float64("price", signal.Price))

		return outcome
	}

	result, err := r.orders.PlaceOrder(ctx, types.OrderRequestFromSignal(signal))
	if err != nil {
		outcome.Status = types.OrderStatusFailed
		outcome.Error = logger.Redact(err.Error())

		log.Error("Order failed", zap.String("error", outcome.Error))

		return outcome
	}

	outcome.Status = types.OrderStatusExecuted
	outcome.OrderNo = result.OrderNo

	log.Info("Order placed", zap.String("order_no", result.OrderNo), zap.Float64("price", signal.Price))

	return outcome
}

func (r *Runner) strategyError(name string, err error) {
	r.logger.Error("Strategy skipped this cycle", zap.String("strategy", name), zap.String("error", logger.Redact(err.Error())))

	if r.callbacks.OnStrategyError != nil {
		(*r.callbacks.OnStrategyError)(name, err)
	}
}
