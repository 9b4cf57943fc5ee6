package indicator

import (
	"testing"

	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func ascending(n int, start float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = start + float64(i)
	}

	return prices
}

func (suite *IndicatorTestSuite) TestSMA() {
	value, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	suite.Require().NoError(err)
	suite.InDelta(4.0, value, 1e-9)

	_, err = SMA([]float64{1, 2}, 3)
	suite.True(errors.IsInsufficientDataError(err))

	_, err = SMA([]float64{1, 2}, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *IndicatorTestSuite) TestEMA() {
	value, err := EMA([]float64{1, 2, 3, 4, 5}, 3)
	suite.Require().NoError(err)
	suite.InDelta(4.0, value, 1e-9)

	// seed only
	value, err = EMA([]float64{2, 4, 6}, 3)
	suite.Require().NoError(err)
	suite.InDelta(4.0, value, 1e-9)
}

func (suite *IndicatorTestSuite) TestRSI() {
	testCases := []struct {
		name     string
		prices   []float64
		period   int
		expected float64
	}{
		{"strictly increasing", ascending(15, 100), 14, 100},
		{"balanced", []float64{10, 11, 10, 11, 10}, 4, 50},
		{"strictly decreasing", []float64{5, 4, 3, 2, 1}, 4, 0},
		{"flat", []float64{7, 7, 7, 7}, 3, 100},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			value, err := RSI(tc.prices, tc.period)
			suite.Require().NoError(err)
			suite.InDelta(tc.expected, value, 1e-9)
		})
	}

	_, err := RSI(ascending(14, 1), 14)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestRSIUsesOnlyTrailingWindow() {
	// a large early drop must not leak into a 3 period RSI
	prices := []float64{100, 50, 51, 52, 53}
	value, err := RSI(prices, 3)
	suite.Require().NoError(err)
	suite.InDelta(100.0, value, 1e-9)
}

func (suite *IndicatorTestSuite) TestRSIBounded() {
	prices := []float64{10, 12, 9, 14, 13, 8, 15, 11, 10, 16, 9, 12, 13, 7, 14, 12}
	for period := 1; period < len(prices); period++ {
		value, err := RSI(prices, period)
		suite.Require().NoError(err)
		suite.GreaterOrEqual(value, 0.0)
		suite.LessOrEqual(value, 100.0)
	}
}

func (suite *IndicatorTestSuite) TestBollingerBands() {
	bands, err := BollingerBands([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, 2)
	suite.Require().NoError(err)
	suite.InDelta(5.0, bands.Middle, 1e-9)
	suite.InDelta(9.0, bands.Upper, 1e-9)
	suite.InDelta(1.0, bands.Lower, 1e-9)

	_, err = BollingerBands([]float64{1, 2, 3}, 8, 2)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestDetectCross() {
	suite.Equal(CrossGolden, DetectCross(Pair{Fast: 1, Slow: 2}, Pair{Fast: 3, Slow: 2}))
	suite.Equal(CrossGolden, DetectCross(Pair{Fast: 2, Slow: 2}, Pair{Fast: 3, Slow: 2}))
	suite.Equal(CrossNone, DetectCross(Pair{Fast: 3, Slow: 2}, Pair{Fast: 4, Slow: 2}))
	suite.Equal(CrossDead, DetectCross(Pair{Fast: 3, Slow: 2}, Pair{Fast: 1, Slow: 2}))
	suite.Equal(CrossNone, DetectCross(Pair{Fast: 1, Slow: 2}, Pair{Fast: 0, Slow: 2}))
}

func (suite *IndicatorTestSuite) TestMACrossPair() {
	prev, curr, err := MACrossPair([]float64{5, 4, 3, 6}, 2, 3)
	suite.Require().NoError(err)
	suite.InDelta(3.5, prev.Fast, 1e-9)
	suite.InDelta(4.0, prev.Slow, 1e-9)
	suite.InDelta(4.5, curr.Fast, 1e-9)
	suite.Equal(CrossGolden, DetectCross(prev, curr))

	_, _, err = MACrossPair([]float64{5, 4, 3}, 2, 3)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestMACD() {
	params := MACDParams{Fast: 3, Slow: 6, Signal: 3}
	suite.Equal(8, params.MinPrices())

	flat := make([]float64, 10)
	for i := range flat {
		flat[i] = 50
	}

	pair, err := MACD(flat, params)
	suite.Require().NoError(err)
	suite.InDelta(0.0, pair.Fast, 1e-9)
	suite.InDelta(0.0, pair.Slow, 1e-9)

	pair, err = MACD(ascending(20, 10), params)
	suite.Require().NoError(err)
	suite.Greater(pair.Fast, 0.0)

	_, err = MACD(ascending(7, 10), params)
	suite.True(errors.IsInsufficientDataError(err))

	_, err = MACD(ascending(20, 10), MACDParams{Fast: 6, Slow: 3, Signal: 3})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *IndicatorTestSuite) TestMACDCrossPair() {
	params := MACDParams{Fast: 3, Slow: 6, Signal: 3}

	_, _, err := MACDCrossPair(ascending(8, 10), params)
	suite.True(errors.IsInsufficientDataError(err))

	prev, curr, err := MACDCrossPair(ascending(9, 10), params)
	suite.Require().NoError(err)
	suite.NotEqual(Pair{}, prev)
	suite.NotEqual(Pair{}, curr)
}

func (suite *IndicatorTestSuite) TestMomentum() {
	value, err := Momentum([]float64{100, 105, 110}, 2)
	suite.Require().NoError(err)
	suite.InDelta(0.1, value, 1e-9)

	_, err = Momentum([]float64{100, 105}, 2)
	suite.True(errors.IsInsufficientDataError(err))

	_, err = Momentum([]float64{0, 1, 2}, 2)
	suite.Error(err)
}

func (suite *IndicatorTestSuite) TestDeviation() {
	value, err := Deviation([]float64{100, 100, 100, 100}, 4, 97)
	suite.Require().NoError(err)
	suite.InDelta(-0.03, value, 1e-9)
}
