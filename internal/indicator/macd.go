package indicator

import "github.com/rxtech-lab/kis-autotrader/pkg/errors"

// MACDParams configures the MACD calculation.
type MACDParams struct {
	Fast   int
	Slow   int
	Signal int
}

func (p MACDParams) validate() error {
	for _, period := range []int{p.Fast, p.Slow, p.Signal} {
		if err := validatePeriod(period); err != nil {
			return err
		}
	}

	if p.Fast >= p.Slow {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "fast period %d must be less than slow period %d", p.Fast, p.Slow)
	}

	return nil
}

// MinPrices is the number of prices needed to produce one MACD/signal pair.
func (p MACDParams) MinPrices() int {
	return p.Slow + p.Signal - 1
}

// MACD returns the MACD line and its signal line for the window. The MACD
// line is computed at every prefix from Slow onward and the signal line is
// the EMA of that series.
func MACD(prices []float64, params MACDParams) (Pair, error) {
	if err := params.validate(); err != nil {
		return Pair{}, err
	}

	if len(prices) < params.MinPrices() {
		return Pair{}, insufficient(params.MinPrices(), len(prices), "MACD")
	}

	series := make([]float64, 0, len(prices)-params.Slow+1)

	for end := params.Slow; end <= len(prices); end++ {
		fast, err := EMA(prices[:end], params.Fast)
		if err != nil {
			return Pair{}, err
		}

		slow, err := EMA(prices[:end], params.Slow)
		if err != nil {
			return Pair{}, err
		}

		series = append(series, fast-slow)
	}

	signal, err := EMA(series, params.Signal)
	if err != nil {
		return Pair{}, err
	}

	return Pair{Fast: series[len(series)-1], Slow: signal}, nil
}

// MACDCrossPair returns the MACD/signal pair for the full window and for
// the window without its newest price.
func MACDCrossPair(prices []float64, params MACDParams) (prev Pair, curr Pair, err error) {
	if len(prices) < params.MinPrices()+1 {
		return Pair{}, Pair{}, insufficient(params.MinPrices()+1, len(prices), "MACD crossover")
	}

	prev, err = MACD(prices[:len(prices)-1], params)
	if err != nil {
		return Pair{}, Pair{}, err
	}

	curr, err = MACD(prices, params)
	if err != nil {
		return Pair{}, Pair{}, err
	}

	return prev, curr, nil
}
