package config

import (
	"context"
	"sync"

	"github.com/rxtech-lab/kis-autotrader/internal/types"
)

// Source serves strategy rows and the watchlist from the configuration
// file. The file is re-read on every call so edits take effect on the next
// trading cycle without a restart. A Source without a path serves the
// configuration it was created with.
type Source struct {
	path string

	mu      sync.Mutex
	current *Config
}

// NewSource creates a Source seeded with cfg.
func NewSource(path string, cfg *Config) *Source {
	if cfg == nil {
		cfg = &Config{}
	}

	return &Source{path: path, current: cfg}
}

// Strategies returns the configured strategy rows with defaults applied.
func (s *Source) Strategies(ctx context.Context) ([]types.StrategyConfig, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	strategies := make([]types.StrategyConfig, len(cfg.Strategies))
	copy(strategies, cfg.Strategies)

	return strategies, nil
}

// Watchlist returns the configured watchlist.
func (s *Source) Watchlist(ctx context.Context) ([]string, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateWatchlist(cfg.Watchlist); err != nil {
		return nil, err
	}

	symbols := make([]string, len(cfg.Watchlist))
	copy(symbols, cfg.Watchlist)

	return symbols, nil
}

func (s *Source) load(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return s.current, nil
	}

	cfg, err := Load(s.path)
	if err != nil {
		return nil, err
	}

	s.current = cfg

	return cfg, nil
}
