// Package indicator computes technical indicators over a price window.
// Windows are ordered oldest first; every function reads only the tail it
// needs and never mutates its input.
package indicator

import (
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

// Pair is a fast/slow indicator pair used for crossover detection.
type Pair struct {
	Fast float64
	Slow float64
}

// Cross describes how a pair moved between two evaluations.
type Cross int

const (
	CrossNone Cross = iota
	// CrossGolden means fast moved from at-or-below slow to above it
	CrossGolden
	// CrossDead means fast moved from at-or-above slow to below it
	CrossDead
)

// DetectCross compares the current pair with the immediately preceding one.
func DetectCross(prev, curr Pair) Cross {
	switch {
	case curr.Fast > curr.Slow && prev.Fast <= prev.Slow:
		return CrossGolden
	case curr.Fast < curr.Slow && prev.Fast >= prev.Slow:
		return CrossDead
	default:
		return CrossNone
	}
}

func validatePeriod(period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	return nil
}

func insufficient(required, actual int, name string) error {
	return errors.NewInsufficientDataErrorf(required, actual, "", "insufficient data points for %s: required %d, got %d", name, required, actual)
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
