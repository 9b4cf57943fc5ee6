package indicator

import "github.com/rxtech-lab/kis-autotrader/pkg/errors"

// Momentum returns the fractional price change between the newest price
// and the price period steps earlier.
func Momentum(prices []float64, period int) (float64, error) {
	if err := validatePeriod(period); err != nil {
		return 0, err
	}

	if len(prices) < period+1 {
		return 0, insufficient(period+1, len(prices), "momentum")
	}

	past := prices[len(prices)-period-1]
	if past == 0 {
		return 0, errors.New(errors.ErrCodeInvalidParameter, "momentum base price is zero")
	}

	return (prices[len(prices)-1] - past) / past, nil
}

// Deviation returns (price - mean) / mean for the mean of the last period
// prices. Positive values mean the price is above its average.
func Deviation(prices []float64, period int, price float64) (float64, error) {
	avg, err := SMA(prices, period)
	if err != nil {
		return 0, err
	}

	if avg == 0 {
		return 0, errors.New(errors.ErrCodeInvalidParameter, "average price is zero")
	}

	return (price - avg) / avg, nil
}
