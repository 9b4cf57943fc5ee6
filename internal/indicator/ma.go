package indicator

// SMA returns the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if err := validatePeriod(period); err != nil {
		return 0, err
	}

	if len(prices) < period {
		return 0, insufficient(period, len(prices), "SMA")
	}

	return Mean(prices[len(prices)-period:]), nil
}

// MACrossPair returns the short/long moving averages for the full window
// and for the window without its newest price.
func MACrossPair(prices []float64, short, long int) (prev Pair, curr Pair, err error) {
	if len(prices) < long+1 {
		return Pair{}, Pair{}, insufficient(long+1, len(prices), "moving average crossover")
	}

	prev, err = maPair(prices[:len(prices)-1], short, long)
	if err != nil {
		return Pair{}, Pair{}, err
	}

	curr, err = maPair(prices, short, long)
	if err != nil {
		return Pair{}, Pair{}, err
	}

	return prev, curr, nil
}

func maPair(prices []float64, short, long int) (Pair, error) {
	fast, err := SMA(prices, short)
	if err != nil {
		return Pair{}, err
	}

	slow, err := SMA(prices, long)
	if err != nil {
		return Pair{}, err
	}

	return Pair{Fast: fast, Slow: slow}, nil
}
