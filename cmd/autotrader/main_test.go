package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/app"
	"github.com/rxtech-lab/kis-autotrader/internal/config"
	"github.com/rxtech-lab/kis-autotrader/internal/market"
	"github.com/rxtech-lab/kis-autotrader/internal/scheduler"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/stretchr/testify/suite"
	"github.com/urfave/cli/v3"
)

type AutotraderCmdTestSuite struct {
	suite.Suite
	configPath string
}

func TestAutotraderCmdSuite(t *testing.T) {
	suite.Run(t, new(AutotraderCmdTestSuite))
}

func (suite *AutotraderCmdTestSuite) SetupTest() {
	for _, key := range []string{
		"KIS_APP_KEY", "KIS_APP_SECRET", "KIS_ACCOUNT_NO", "KIS_ACCOUNT_PRODUCT_CD",
		"KIS_BASE_URL", "USE_MOCK_DATA", "LOG_LEVEL", "REDIS_ADDR",
	} {
		suite.T().Setenv(key, "")
	}

	dir := suite.T().TempDir()
	suite.configPath = filepath.Join(dir, "config.yaml")

	content := `
broker:
  app_key: test-app-key
  app_secret: test-app-secret
token_store:
  path: ` + filepath.Join(dir, "tokens.yaml") + `
log:
  level: error
scheduler:
  mode: interval
  interval_seconds: 120
`
	suite.Require().NoError(os.WriteFile(suite.configPath, []byte(content), 0600))
}

// withApp runs newApp inside a command carrying the global config flag.
func (suite *AutotraderCmdTestSuite) withApp(override func(cfg *config.Config), check func(a *app.App)) {
	cmd := &cli.Command{
		Name:  "autotrader",
		Flags: []cli.Flag{&cli.StringFlag{Name: "config"}},
		Action: func(_ context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd, override)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			check(a)

			return nil
		},
	}

	suite.Require().NoError(cmd.Run(context.Background(), []string{"autotrader", "--config", suite.configPath}))
}

func (suite *AutotraderCmdTestSuite) TestNewAppLoadsConfig() {
	suite.withApp(nil, func(a *app.App) {
		suite.Equal("test-app-key", a.Config.Broker.AppKey)
		suite.Equal(120, a.Config.Scheduler.IntervalSeconds)
		suite.False(a.Scheduler.Running())
	})
}

func (suite *AutotraderCmdTestSuite) TestNewAppOverride() {
	suite.withApp(func(cfg *config.Config) {
		cfg.Scheduler.Mode = scheduler.ModeDaily
		cfg.Scheduler.DailyTime = "13:00"
	}, func(a *app.App) {
		suite.Equal(scheduler.ModeDaily, a.Config.Scheduler.Mode)
		suite.Equal("13:00", a.Config.Scheduler.DailyTime)
	})
}

func (suite *AutotraderCmdTestSuite) TestNewAppMissingConfig() {
	cmd := &cli.Command{
		Name:  "autotrader",
		Flags: []cli.Flag{&cli.StringFlag{Name: "config"}},
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, err := newApp(cmd, nil)

			return err
		},
	}

	err := cmd.Run(context.Background(), []string{"autotrader", "--config", filepath.Join(suite.T().TempDir(), "missing.yaml")})
	suite.ErrorContains(err, "failed to load config")
}

func (suite *AutotraderCmdTestSuite) TestMarketState() {
	open := time.Date(2024, 3, 15, 10, 0, 0, 0, market.Seoul)
	suite.Equal("open", marketState(types.MarketStatus{IsOpen: true, NextOpen: open}))

	closed := marketState(types.MarketStatus{IsOpen: false, NextOpen: open})
	suite.Equal("closed until 2024-03-15 10:00:00", closed)
}
