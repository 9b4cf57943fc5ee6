package mocks

//go:generate mockgen -destination=./mock_history_source.go -package=mocks github.com/rxtech-lab/kis-autotrader/internal/strategy HistorySource
//go:generate mockgen -destination=./mock_engine.go -package=mocks github.com/rxtech-lab/kis-autotrader/internal/engine MarketData,AccountProvider
//go:generate mockgen -destination=./mock_universe.go -package=mocks github.com/rxtech-lab/kis-autotrader/internal/universe RankingSource,WatchlistProvider
//go:generate mockgen -destination=./mock_autotrade.go -package=mocks github.com/rxtech-lab/kis-autotrader/internal/autotrade StrategySource,OrderPlacer,Journal
//go:generate mockgen -destination=./mock_scheduler.go -package=mocks github.com/rxtech-lab/kis-autotrader/internal/scheduler Job
