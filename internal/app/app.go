// Package app builds the process-scoped autotrader: one session manager,
// one brokerage client, one strategy engine and one scheduler, with
// explicit construction and teardown.
package app

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rxtech-lab/kis-autotrader/internal/autotrade"
	"github.com/rxtech-lab/kis-autotrader/internal/broker"
	"github.com/rxtech-lab/kis-autotrader/internal/broker/synthetic"
	"github.com/rxtech-lab/kis-autotrader/internal/broker/tokenstore"
	"github.com/rxtech-lab/kis-autotrader/internal/config"
	"github.com/rxtech-lab/kis-autotrader/internal/engine"
	"github.com/rxtech-lab/kis-autotrader/internal/journal"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/market"
	"github.com/rxtech-lab/kis-autotrader/internal/metrics"
	"github.com/rxtech-lab/kis-autotrader/internal/scheduler"
	"github.com/rxtech-lab/kis-autotrader/internal/universe"
	"go.uber.org/zap"
)

// Options overrides collaborators that are otherwise built from the
// configuration.
type Options struct {
	// ConfigPath is re-read for strategies and the watchlist every cycle;
	// empty serves the loaded configuration as is
	ConfigPath string
	Logger     *logger.Logger
	TokenStore tokenstore.Store
	Hours      market.Hours
}

// App is the assembled autotrader.
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Metrics   *metrics.Recorder
	Hours     market.Hours
	Sessions  *broker.SessionManager
	Broker    *broker.Client
	Source    *config.Source
	Engine    *engine.Engine
	Selector  *universe.Selector
	Journal   *journal.Journal
	Runner    *autotrade.Runner
	Scheduler *scheduler.Scheduler

	redis     *redis.Client
	ownLogger bool
}

// New validates cfg and wires every component. The brokerage is not
// contacted until the first request.
func New(cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Hours: opts.Hours}

	a.Logger = opts.Logger
	if a.Logger == nil {
		log, err := logger.NewLoggerWithLevel(cfg.Log.Level, cfg.Log.Encoding)
		if err != nil {
			return nil, err
		}

		a.Logger = log
		a.ownLogger = true
	}

	if a.Hours == nil {
		a.Hours = market.NewRegularHours()
	}

	a.Metrics = metrics.New()

	store := opts.TokenStore
	if store == nil {
		built, err := a.tokenStore()
		if err != nil {
			return nil, err
		}

		store = built
	}

	a.Sessions = broker.NewSessionManager(cfg.Broker, store, a.Logger)
	a.Sessions.SetRecorder(a.Metrics)

	client, err := broker.NewClient(cfg.Broker, a.Sessions, a.Logger)
	if err != nil {
		a.closeRedis()

		return nil, err
	}

	client.SetRecorder(a.Metrics)

	if cfg.Broker.UseFallback {
		client.SetFallback(synthetic.NewGenerator(synthetic.Config{
			Seed:       cfg.Synthetic.Seed,
			Volatility: cfg.Synthetic.Volatility,
		}))
		a.Logger.Warn("Synthetic quotes enabled for connectivity failures")
	}

	a.Broker = client
	a.Source = config.NewSource(opts.ConfigPath, cfg)

	a.Engine = engine.NewEngine(client, client, client, a.Logger)
	a.Engine.SetRecorder(a.Metrics)

	a.Selector = universe.NewSelector(client, a.Source, a.Logger)

	a.Journal, err = journal.Open(cfg.Journal.Path, a.Logger)
	if err != nil {
		a.closeRedis()

		return nil, err
	}

	a.Runner = autotrade.NewRunner(a.Engine, a.Selector, a.Source, client, a.Logger)
	a.Runner.SetJournal(a.Journal)
	a.Runner.SetRecorder(a.Metrics)

	a.Scheduler = scheduler.NewScheduler(a.Runner, a.Hours, a.Logger)
	a.Scheduler.SetRecorder(a.Metrics)

	return a, nil
}

func (a *App) tokenStore() (tokenstore.Store, error) {
	ts := a.Config.TokenStore

	if ts.Backend == config.TokenStoreRedis {
		a.redis = tokenstore.NewRedisClient(ts.RedisAddr, ts.RedisPassword, ts.RedisDB)
		a.Logger.Info("Using redis token store", zap.String("addr", ts.RedisAddr))

		return tokenstore.NewRedisStore(a.redis, ts.RedisPrefix), nil
	}

	path := ts.Path
	if path == "" {
		defaultPath, err := tokenstore.DefaultPath()
		if err != nil {
			return nil, err
		}

		path = defaultPath
	}

	a.Logger.Info("Using file token store", zap.String("path", path))

	return tokenstore.NewFileStore(path), nil
}

// Close stops the scheduler, exports and closes the journal and releases
// the token store connection. It is safe to call once.
func (a *App) Close(ctx context.Context) error {
	if a.Scheduler != nil && a.Scheduler.Running() {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn("Failed to stop scheduler", zap.Error(err))
		}
	}

	var firstErr error

	if a.Journal != nil {
		if dir := a.Config.Journal.ExportDir; dir != "" {
			if err := a.Journal.Export(ctx, dir); err != nil {
				a.Logger.Error("Failed to export journal", zap.Error(err))
				firstErr = err
			}
		}

		if err := a.Journal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	a.closeRedis()

	if a.ownLogger {
		_ = a.Logger.Sync()
	}

	return firstErr
}

func (a *App) closeRedis() {
	if a.redis == nil {
		return
	}

	if err := a.redis.Close(); err != nil {
		a.Logger.Warn("Failed to close redis client", zap.Error(err))
	}

	a.redis = nil
}
