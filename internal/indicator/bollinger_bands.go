package indicator

import "math"

// Bands holds Bollinger band values.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands returns bands around the SMA of the last period prices at
// stdDev population standard deviations.
func BollingerBands(prices []float64, period int, stdDev float64) (Bands, error) {
	middle, err := SMA(prices, period)
	if err != nil {
		return Bands{}, err
	}

	var squaredDiffSum float64

	for _, price := range prices[len(prices)-period:] {
		diff := price - middle
		squaredDiffSum += diff * diff
	}

	sd := math.Sqrt(squaredDiffSum / float64(period))

	return Bands{
		Upper:  middle + (stdDev * sd),
		Middle: middle,
		Lower:  middle - (stdDev * sd),
	}, nil
}
