package broker

import (
	"context"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/broker/brokertest"
	"github.com/rxtech-lab/kis-autotrader/internal/market"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

func (suite *ClientTestSuite) TestGetCurrentPrice() {
	suite.server.SetQuote("005930", brokertest.Quote{Name: "삼성전자", Price: 71500, ChangeRate: -1.25, Volume: 12_345_678})

	snapshot, err := suite.client.GetCurrentPrice(context.Background(), "005930")
	suite.Require().NoError(err)
	suite.Equal("005930", snapshot.Symbol)
	suite.Equal("삼성전자", snapshot.Name)
	suite.Equal(71500.0, snapshot.Price)
	suite.InDelta(-1.25, snapshot.ChangeRate, 1e-9)
	suite.Equal(int64(12_345_678), snapshot.Volume)
	suite.False(snapshot.Synthetic)
}

func (suite *ClientTestSuite) TestInvalidSymbolIsRejectedLocally() {
	for _, symbol := range []string{"", "5930", "00593A", "0059300"} {
		_, err := suite.client.GetCurrentPrice(context.Background(), symbol)
		suite.Equal(errors.ErrCodeInvalidSymbol, errors.GetCode(err), symbol)
	}

	suite.Equal(0, suite.server.Issued())
}

func (suite *ClientTestSuite) TestGetDailyPricesOldestFirst() {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, market.Seoul)
	suite.server.SetBars("005930", []brokertest.Bar{
		{Date: start, Close: 100, Volume: 10},
		{Date: start.AddDate(0, 0, 1), Close: 101, Volume: 11},
		{Date: start.AddDate(0, 0, 2), Close: 0, Volume: 0},
		{Date: start.AddDate(0, 0, 3), Close: 103, Volume: 13},
	})

	bars, err := suite.client.GetDailyPrices(context.Background(), "005930", start, start.AddDate(0, 0, 3))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 3)
	suite.Equal(100.0, bars[0].Close)
	suite.Equal(101.0, bars[1].Close)
	suite.Equal(103.0, bars[2].Close)
	suite.True(bars[0].Date.Before(bars[2].Date))
	suite.Equal(int64(13), bars[2].Volume)
}

func (suite *ClientTestSuite) TestGetOrderBook() {
	suite.server.SetQuote("005930", brokertest.Quote{Price: 70000})

	book, err := suite.client.GetOrderBook(context.Background(), "005930")
	suite.Require().NoError(err)
	suite.Len(book.Asks, 10)
	suite.Len(book.Bids, 10)
	suite.Equal(70100.0, book.Asks[0].Price)
	suite.Equal(69900.0, book.Bids[0].Price)
	suite.Equal(int64(200), book.Bids[0].Quantity)
}

func (suite *ClientTestSuite) TestGetRanking() {
	suite.server.SetRanking("volume", []brokertest.Rank{
		{Symbol: "005930", Name: "삼성전자", Price: 71000, ChangeRate: 3.5, Volume: 20_000_000},
		{Symbol: "000660", Name: "SK하이닉스", Price: 150000, ChangeRate: -4.1, Volume: 5_000_000},
	})

	entries, err := suite.client.GetRanking(context.Background(), types.RankingKindVolume)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 2)
	suite.Equal(1, entries[0].Rank)
	suite.Equal("005930", entries[0].Symbol)
	suite.InDelta(-4.1, entries[1].ChangeRate, 1e-9)
	suite.Equal(int64(5_000_000), entries[1].Volume)

	fluctuation, err := suite.client.GetRanking(context.Background(), types.RankingKindFluctuation)
	suite.Require().NoError(err)
	suite.Empty(fluctuation)

	_, err = suite.client.GetRanking(context.Background(), types.RankingKind("unknown"))
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (suite *ClientTestSuite) TestPlaceOrder() {
	result, err := suite.client.PlaceOrder(context.Background(), types.OrderRequest{
		Symbol:   "005930",
		Side:     types.SignalActionBuy,
		Quantity: 3,
		Price:    71000.7,
	})
	suite.Require().NoError(err)
	suite.NotEmpty(result.OrderNo)

	_, err = suite.client.PlaceOrder(context.Background(), types.OrderRequest{
		Symbol:   "005930",
		Side:     types.SignalActionSell,
		Quantity: 2,
		Price:    71000,
		Kind:     types.OrderKindMarket,
	})
	suite.Require().NoError(err)

	orders := suite.server.Orders()
	suite.Require().Len(orders, 2)

	suite.Equal("02", orders[0].SideCode)
	suite.Equal("00", orders[0].Kind)
	suite.Equal("71000", orders[0].Price)
	suite.Equal(3, orders[0].Quantity)
	suite.Equal("1234567801", orders[0].Account)

	suite.Equal("01", orders[1].SideCode)
	suite.Equal("01", orders[1].Kind)
	suite.Equal("0", orders[1].Price)
}

func (suite *ClientTestSuite) TestPlaceOrderValidation() {
	_, err := suite.client.PlaceOrder(context.Background(), types.OrderRequest{
		Symbol:   "005930",
		Side:     types.SignalActionBuy,
		Quantity: 0,
		Price:    71000,
	})
	suite.Equal(errors.ErrCodeInvalidOrder, errors.GetCode(err))

	_, err = suite.client.PlaceOrder(context.Background(), types.OrderRequest{
		Symbol:   "005930",
		Side:     types.SignalActionBuy,
		Quantity: 1,
		Kind:     types.OrderKind("99"),
	})
	suite.Equal(errors.ErrCodeInvalidOrder, errors.GetCode(err))
	suite.Empty(suite.server.Orders())
}

func (suite *ClientTestSuite) TestAccountCallsRequireAccount() {
	client, err := NewClient(Config{BaseURL: suite.server.URL, AppKey: "k", AppSecret: "s"}, suite.manager, nil)
	suite.Require().NoError(err)

	_, err = client.GetBalance(context.Background())
	suite.Equal(errors.ErrCodeInvalidAccount, errors.GetCode(err))

	_, err = client.PlaceOrder(context.Background(), types.OrderRequest{Symbol: "005930", Side: types.SignalActionBuy, Quantity: 1, Price: 1})
	suite.Equal(errors.ErrCodeInvalidAccount, errors.GetCode(err))
}

func (suite *ClientTestSuite) TestCancelOrder() {
	result, err := suite.client.CancelOrder(context.Background(), "0000012345")
	suite.Require().NoError(err)
	suite.Equal("0000012345", result.OrderNo)

	_, err = suite.client.CancelOrder(context.Background(), "")
	suite.Equal(errors.ErrCodeInvalidOrder, errors.GetCode(err))
}

func (suite *ClientTestSuite) TestGetOrderHistory() {
	_, err := suite.client.PlaceOrder(context.Background(), types.OrderRequest{
		Symbol:   "000660",
		Side:     types.SignalActionBuy,
		Quantity: 4,
		Price:    150000,
	})
	suite.Require().NoError(err)

	history, err := suite.client.GetOrderHistory(context.Background(), time.Time{}, time.Time{})
	suite.Require().NoError(err)
	suite.Require().Len(history, 1)
	suite.Equal("000660", history[0].Symbol)
	suite.Equal(4, history[0].OrderQty)
	suite.Equal(150000.0, history[0].OrderPrice)
}

func (suite *ClientTestSuite) TestGetBalance() {
	suite.server.SetAccount(2_500_000, []brokertest.Holding{
		{Symbol: "005930", Quantity: 10},
		{Symbol: "000660", Quantity: 0},
	})

	balance, err := suite.client.GetBalance(context.Background())
	suite.Require().NoError(err)
	suite.Equal(2_500_000.0, balance.Cash)
	suite.Equal(2_500_000.0, balance.AvailableBalance())
	suite.Require().Len(balance.Holdings, 1)
	suite.Equal(10, balance.HeldQuantity("005930"))
	suite.Equal(0, balance.HeldQuantity("000660"))
}
