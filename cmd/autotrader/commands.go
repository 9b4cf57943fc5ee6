package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/app"
	"github.com/rxtech-lab/kis-autotrader/internal/autotrade"
	"github.com/rxtech-lab/kis-autotrader/internal/config"
	"github.com/rxtech-lab/kis-autotrader/internal/market"
	"github.com/rxtech-lab/kis-autotrader/internal/scheduler"
	"github.com/rxtech-lab/kis-autotrader/internal/strategy"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/urfave/cli/v3"
)

// newApp loads the configuration named by the global --config flag and
// assembles the application.
func newApp(cmd *cli.Command, override func(cfg *config.Config)) (*app.App, error) {
	path := cmd.String("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if override != nil {
		override(cfg)
	}

	a, err := app.New(cfg, app.Options{ConfigPath: path})
	if err != nil {
		return nil, fmt.Errorf("failed to create autotrader: %w", err)
	}

	return a, nil
}

func printCallbacks() autotrade.Callbacks {
	onSignal := autotrade.OnSignalCallback(func(signal types.Signal) {
		fmt.Printf("Signal: %s %s %d @ %.0f (%s: %s)\n",
			signal.Action, signal.Symbol, signal.Quantity, signal.Price, signal.StrategyName, signal.Reason)
	})
	onOrder := autotrade.OnOrderCallback(func(outcome types.OrderOutcome) {
		switch outcome.Status {
		case types.OrderStatusExecuted:
			fmt.Printf("Order placed: %s %s order_no=%s\n", outcome.Signal.Action, outcome.Signal.Symbol, outcome.OrderNo)
		case types.OrderStatusFailed:
			fmt.Printf("Order failed: %s %s: %s\n", outcome.Signal.Action, outcome.Signal.Symbol, outcome.Error)
		default:
			fmt.Printf("Order skipped: %s %s\n", outcome.Signal.Action, outcome.Signal.Symbol)
		}
	})
	onStrategyError := autotrade.OnStrategyErrorCallback(func(name string, err error) {
		fmt.Printf("Strategy %s skipped: %v\n", name, err)
	})

	return autotrade.Callbacks{
		OnSignal:        &onSignal,
		OnOrder:         &onOrder,
		OnStrategyError: &onStrategyError,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd, func(cfg *config.Config) {
		if mode := cmd.String("mode"); mode != "" {
			cfg.Scheduler.Mode = scheduler.Mode(mode)
		}

		if interval := cmd.Duration("interval"); interval > 0 {
			cfg.Scheduler.IntervalSeconds = int(interval / time.Second)
		}

		if dailyTime := cmd.String("daily-time"); dailyTime != "" {
			cfg.Scheduler.DailyTime = dailyTime
		}

		if addr := cmd.String("ops-addr"); addr != "" {
			cfg.Ops.Addr = addr
		}
	})
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	a.Runner.SetCallbacks(printCallbacks())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Scheduler.Start(a.Config.Scheduler); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	status := a.Scheduler.Status()
	fmt.Printf("Scheduler started in %s mode, market %s\n", status.Mode, marketState(status.Market))

	if a.Config.Ops.Disabled {
		<-ctx.Done()
	} else if err := app.NewServer(a).ListenAndServe(ctx, a.Config.Ops.Addr); err != nil {
		return fmt.Errorf("ops server failed: %w", err)
	}

	fmt.Println("\nReceived interrupt signal, stopping...")

	return nil
}

func evaluateAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	a.Runner.SetDryRun(cmd.Bool("dry-run"))
	a.Runner.SetCallbacks(printCallbacks())

	report, err := a.Runner.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("trading cycle failed: %w", err)
	}

	fmt.Printf("Cycle finished: %d strategies, %d signals, %d executed\n",
		report.Strategies, len(report.Signals), report.Executed())

	return nil
}

func tokenAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if _, err := a.Sessions.EnsureToken(ctx); err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}

	session, ok := a.Sessions.Session()
	if !ok {
		return fmt.Errorf("no session after token issuance")
	}

	fmt.Printf("Access token valid until %s\n", session.ExpiresAt.In(market.Seoul).Format(time.DateTime))

	return nil
}

func marketAction(_ context.Context, cmd *cli.Command) error {
	status := market.NewRegularHours().Status(cmd.Timestamp("at"))

	return printJSON(status)
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		for _, t := range strategy.Types() {
			fmt.Println(t)
		}

		return nil
	}

	schema, err := strategy.ParameterSchema(types.StrategyType(cmd.Args().First()))
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func configAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	fmt.Print(cfg.String())

	return cfg.Validate()
}

func marketState(status types.MarketStatus) string {
	if status.IsOpen {
		return "open"
	}

	return fmt.Sprintf("closed until %s", status.NextOpen.Format(time.DateTime))
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}
