// Package universe chooses the symbols a strategy evaluates.
package universe

import (
	"context"
	"math"

	"github.com/creasty/defaults"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"go.uber.org/zap"
)

// RankingSource supplies brokerage ranking lists.
type RankingSource interface {
	GetRanking(ctx context.Context, kind types.RankingKind) ([]types.RankEntry, error)
}

// WatchlistProvider supplies the user's watchlist.
type WatchlistProvider interface {
	Watchlist(ctx context.Context) ([]string, error)
}

// Selector resolves a selection mode into symbols.
type Selector struct {
	ranking   RankingSource
	watchlist WatchlistProvider
	logger    *logger.Logger
}

// NewSelector creates a Selector. Either source may be nil; the modes that
// need it then select nothing.
func NewSelector(ranking RankingSource, watchlist WatchlistProvider, log *logger.Logger) *Selector {
	if log == nil {
		log = logger.NewNop()
	}

	return &Selector{
		ranking:   ranking,
		watchlist: watchlist,
		logger:    log,
	}
}

// Select returns the symbols for mode. Failures are logged and produce an
// empty list.
func (s *Selector) Select(ctx context.Context, mode types.SelectionMode, criteria types.SelectionCriteria) []string {
	switch mode {
	case types.SelectionModeAuto, types.SelectionModeRanking:
		return s.fromRanking(ctx, criteria)
	case types.SelectionModeWatchlist, "":
		return s.fromWatchlist(ctx)
	default:
		s.logger.Warn("Unknown selection mode", zap.String("mode", string(mode)))

		return []string{}
	}
}

func (s *Selector) fromWatchlist(ctx context.Context) []string {
	if s.watchlist == nil {
		return []string{}
	}

	symbols, err := s.watchlist.Watchlist(ctx)
	if err != nil {
		s.logger.Error("Failed to load watchlist", zap.Error(err))

		return []string{}
	}

	return unique(symbols)
}

func (s *Selector) fromRanking(ctx context.Context, criteria types.SelectionCriteria) []string {
	if s.ranking == nil {
		return []string{}
	}

	if err := defaults.Set(&criteria); err != nil {
		s.logger.Error("Failed to apply selection defaults", zap.Error(err))

		return []string{}
	}

	entries, err := s.ranking.GetRanking(ctx, criteria.RankingType)
	if err != nil {
		s.logger.Error("Failed to load ranking",
			zap.String("ranking", string(criteria.RankingType)),
			zap.String("error", logger.Redact(err.Error())),
		)

		return []string{}
	}

	if len(entries) > criteria.MaxStocks {
		entries = entries[:criteria.MaxStocks]
	}

	selected := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.Symbol == "" {
			continue
		}

		if math.Abs(entry.ChangeRate) < criteria.MinChangeRate || entry.Volume < criteria.MinVolume {
			continue
		}

		selected = append(selected, entry.Symbol)
	}

	s.logger.Info("Auto selection complete",
		zap.String("ranking", string(criteria.RankingType)),
		zap.Int("candidates", len(entries)),
		zap.Int("selected", len(selected)),
	)

	return unique(selected)
}

func unique(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))

	for _, symbol := range symbols {
		if symbol == "" {
			continue
		}

		if _, ok := seen[symbol]; ok {
			continue
		}

		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}

	return out
}
