package indicator

// RSI returns the relative strength index over the last period price
// changes using simple averages of gains and losses. A window with no
// losses yields 100.
func RSI(prices []float64, period int) (float64, error) {
	if err := validatePeriod(period); err != nil {
		return 0, err
	}

	if len(prices) < period+1 {
		return 0, insufficient(period+1, len(prices), "RSI")
	}

	window := prices[len(prices)-period-1:]

	gain, loss := 0.0, 0.0

	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}

	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs)), nil
}
