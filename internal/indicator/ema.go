package indicator

// EMA returns the exponential moving average over prices. The average is
// seeded with the SMA of the first period values and then smoothed with
// multiplier 2 / (period + 1).
func EMA(prices []float64, period int) (float64, error) {
	if err := validatePeriod(period); err != nil {
		return 0, err
	}

	if len(prices) < period {
		return 0, insufficient(period, len(prices), "EMA")
	}

	alpha := 2.0 / float64(period+1)

	ema := Mean(prices[:period])
	for _, price := range prices[period:] {
		ema = (price * alpha) + (ema * (1 - alpha))
	}

	return ema, nil
}
