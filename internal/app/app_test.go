package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/broker/brokertest"
	"github.com/rxtech-lab/kis-autotrader/internal/broker/tokenstore"
	"github.com/rxtech-lab/kis-autotrader/internal/config"
	"github.com/rxtech-lab/kis-autotrader/internal/journal"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/market"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

const samsung = "005930"

// openHours keeps the market open so manual triggers always run.
type openHours struct{}

func (openHours) IsOpen(time.Time) bool { return true }

func (openHours) NextOpen(t time.Time) time.Time { return t }

func (openHours) Status(t time.Time) types.MarketStatus {
	return types.MarketStatus{IsOpen: true, CurrentTime: t, MarketHours: market.HoursLabel, NextOpen: t}
}

type AppTestSuite struct {
	suite.Suite
	broker     *brokertest.Server
	dir        string
	configPath string
	app        *App
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}

func (suite *AppTestSuite) SetupTest() {
	for _, key := range []string{
		"KIS_APP_KEY", "KIS_APP_SECRET", "KIS_ACCOUNT_NO", "KIS_ACCOUNT_PRODUCT_CD",
		"KIS_BASE_URL", "USE_MOCK_DATA", "LOG_LEVEL", "REDIS_ADDR",
	} {
		suite.T().Setenv(key, "")
	}

	suite.broker = brokertest.NewServer()
	suite.broker.SetQuote(samsung, brokertest.Quote{Name: "삼성전자", Price: 10000, Volume: 1000})
	suite.broker.SetAccount(1000000, nil)

	suite.dir = suite.T().TempDir()
	suite.configPath = filepath.Join(suite.dir, "config.yaml")
	suite.writeConfig("")

	suite.app = suite.newApp()
}

func (suite *AppTestSuite) TearDownTest() {
	if suite.app != nil {
		suite.NoError(suite.app.Close(context.Background()))
	}

	suite.broker.Close()
}

func (suite *AppTestSuite) writeConfig(extra string) {
	content := fmt.Sprintf(`
broker:
  base_url: %s
  app_key: test-app-key
  app_secret: test-app-secret
  account_no: "5012345601"
watchlist: ["%s"]
strategies:
  - name: ma
    type: moving_average_crossover
    parameters:
      short_period: 2
      long_period: 3
%s`, suite.broker.URL, samsung, extra)

	suite.Require().NoError(os.WriteFile(suite.configPath, []byte(content), 0600))
}

func (suite *AppTestSuite) load() *config.Config {
	cfg, err := config.Load(suite.configPath)
	suite.Require().NoError(err)

	return cfg
}

func (suite *AppTestSuite) newApp() *App {
	a, err := New(suite.load(), Options{
		ConfigPath: suite.configPath,
		Logger:     logger.NewNop(),
		TokenStore: tokenstore.NewFileStore(filepath.Join(suite.dir, "tokens.yaml")),
		Hours:      openHours{},
	})
	suite.Require().NoError(err)

	return a
}

// runGoldenCross drives the moving average strategy into one buy.
func (suite *AppTestSuite) runGoldenCross() {
	for _, price := range []float64{10000, 10000, 10000, 10000, 11000} {
		suite.broker.SetQuote(samsung, brokertest.Quote{Name: "삼성전자", Price: price, Volume: 1000})

		_, err := suite.app.Runner.RunOnce(context.Background())
		suite.Require().NoError(err)
	}
}

func (suite *AppTestSuite) TestCycleAgainstBrokerage() {
	suite.runGoldenCross()

	orders := suite.broker.Orders()
	suite.Require().Len(orders, 1)
	suite.Equal(samsung, orders[0].Symbol)
	suite.Equal("02", orders[0].SideCode)
	suite.Equal("00", orders[0].Kind)
	suite.Equal(9, orders[0].Quantity)
	suite.Equal("11000", orders[0].Price)
	suite.Equal("5012345601", orders[0].Account)

	suite.Equal(1, suite.broker.Issued())
	suite.True(suite.app.Sessions.IsValid())

	summary, err := suite.app.Journal.Summary(context.Background())
	suite.Require().NoError(err)
	suite.Equal([]journal.StrategySummary{{Strategy: "ma", Signals: 1, Executed: 1, Failed: 0}}, summary)

	outcomes, err := suite.app.Journal.Outcomes(context.Background(), time.Time{})
	suite.Require().NoError(err)
	suite.Require().Len(outcomes, 1)
	suite.Equal(orders[0].OrderNo, outcomes[0].OrderNo)
}

func (suite *AppTestSuite) TestStrategyEditsApplyNextCycle() {
	_, err := suite.app.Runner.RunOnce(context.Background())
	suite.Require().NoError(err)

	_, ok := suite.app.Engine.Get("ma")
	suite.True(ok)

	suite.writeConfig("    disabled: true\n")

	_, err = suite.app.Runner.RunOnce(context.Background())
	suite.Require().NoError(err)

	_, ok = suite.app.Engine.Get("ma")
	suite.False(ok)
}

func (suite *AppTestSuite) TestMissingCredentials() {
	cfg := suite.load()
	cfg.Broker.AppSecret = ""

	_, err := New(cfg, Options{Logger: logger.NewNop()})
	suite.Error(err)
	suite.Equal(errors.ErrCodeAuthentication, errors.GetCode(err))
}

func (suite *AppTestSuite) TestRedisTokenStore() {
	cfg := suite.load()
	cfg.TokenStore.Backend = config.TokenStoreRedis
	cfg.TokenStore.RedisAddr = "127.0.0.1:6379"

	a, err := New(cfg, Options{Logger: logger.NewNop()})
	suite.Require().NoError(err)
	suite.NotNil(a.redis)

	suite.NoError(a.Close(context.Background()))
	suite.Nil(a.redis)
}

func (suite *AppTestSuite) TestCloseExportsJournal() {
	suite.runGoldenCross()

	exportDir := filepath.Join(suite.dir, "export")
	suite.app.Config.Journal.ExportDir = exportDir

	suite.Require().NoError(suite.app.Close(context.Background()))
	suite.app = nil

	for _, name := range []string{"signals.parquet", "orders.parquet"} {
		_, err := os.Stat(filepath.Join(exportDir, name))
		suite.NoError(err, name)
	}
}

func (suite *AppTestSuite) TestCloseStopsScheduler() {
	suite.Require().NoError(suite.app.Scheduler.Start(suite.app.Config.Scheduler))
	suite.True(suite.app.Scheduler.Running())

	suite.Require().NoError(suite.app.Close(context.Background()))
	suite.False(suite.app.Scheduler.Running())
	suite.app = nil
}
