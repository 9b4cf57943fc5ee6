package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/rxtech-lab/kis-autotrader/internal/scheduler"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

func (suite *AppTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()

	NewServer(suite.app).Handler().ServeHTTP(rec, req)

	return rec
}

func (suite *AppTestSuite) decode(rec *httptest.ResponseRecorder, v any) {
	suite.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (suite *AppTestSuite) TestHealth() {
	rec := suite.do(http.MethodGet, "/healthz", "")
	suite.Equal(http.StatusOK, rec.Code)
	suite.JSONEq(`{"status":"ok","version":"main"}`, rec.Body.String())
}

func (suite *AppTestSuite) TestStatus() {
	rec := suite.do(http.MethodGet, "/status", "")
	suite.Require().Equal(http.StatusOK, rec.Code)

	var status StatusResponse
	suite.decode(rec, &status)
	suite.False(status.Scheduler.Running)
	suite.True(status.Scheduler.Market.IsOpen)
	suite.False(status.Token.Valid)
	suite.Nil(status.Token.ExpiresAt)
	suite.Empty(status.Strategies)
	suite.False(status.Fallback)

	suite.runGoldenCross()

	rec = suite.do(http.MethodGet, "/status", "")
	suite.decode(rec, &status)
	suite.True(status.Token.Valid)
	suite.NotNil(status.Token.ExpiresAt)
	suite.Equal([]StrategyInfo{{
		Name:          "ma",
		Type:          types.StrategyTypeMovingAverageCrossover,
		SelectionMode: types.SelectionModeWatchlist,
	}}, status.Strategies)
	suite.NotContains(rec.Body.String(), "access_token")
}

func (suite *AppTestSuite) TestSchedulerControl() {
	rec := suite.do(http.MethodPost, "/scheduler/start", `{"mode":"interval","interval_seconds":5}`)
	suite.Equal(http.StatusBadRequest, rec.Code)

	var failure errorResponse
	suite.decode(rec, &failure)
	suite.Equal(errors.ErrCodeInvalidSchedule, failure.Code)

	rec = suite.do(http.MethodPost, "/scheduler/start", "")
	suite.Require().Equal(http.StatusOK, rec.Code)

	var status scheduler.Status
	suite.decode(rec, &status)
	suite.True(status.Running)
	suite.Equal(scheduler.ModeInterval, status.Mode)
	suite.Equal(60, status.IntervalSeconds)
	suite.NotNil(status.NextRun)

	rec = suite.do(http.MethodPost, "/scheduler/start", "")
	suite.Equal(http.StatusConflict, rec.Code)

	rec = suite.do(http.MethodPut, "/scheduler", `{"mode":"daily","daily_time":"14:30"}`)
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.decode(rec, &status)
	suite.Equal(scheduler.ModeDaily, status.Mode)
	suite.Equal("14:30", status.DailyTime)

	rec = suite.do(http.MethodPut, "/scheduler", `{"mode":`)
	suite.Equal(http.StatusBadRequest, rec.Code)

	rec = suite.do(http.MethodPost, "/scheduler/stop", "")
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.decode(rec, &status)
	suite.False(status.Running)

	rec = suite.do(http.MethodPost, "/scheduler/stop", "")
	suite.Equal(http.StatusConflict, rec.Code)
}

func (suite *AppTestSuite) TestSchedulerRun() {
	rec := suite.do(http.MethodPost, "/scheduler/run", "")
	suite.Require().Equal(http.StatusOK, rec.Code)

	rec = suite.do(http.MethodGet, "/strategies", "")
	suite.Require().Equal(http.StatusOK, rec.Code)

	var infos []StrategyInfo
	suite.decode(rec, &infos)
	suite.Require().Len(infos, 1)
	suite.Equal("ma", infos[0].Name)
	suite.Equal(1, suite.broker.Issued())
}

func (suite *AppTestSuite) TestSchema() {
	rec := suite.do(http.MethodGet, "/strategies/rsi/schema", "")
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Equal("application/schema+json", rec.Header().Get("Content-Type"))
	suite.Contains(rec.Body.String(), "rsi_period")

	rec = suite.do(http.MethodGet, "/strategies/turtle/schema", "")
	suite.Equal(http.StatusNotFound, rec.Code)
}

func (suite *AppTestSuite) TestJournalEndpoints() {
	rec := suite.do(http.MethodGet, "/journal/summary", "")
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.JSONEq(`[]`, rec.Body.String())

	suite.runGoldenCross()

	rec = suite.do(http.MethodGet, "/journal/summary", "")
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.JSONEq(`[{"strategy":"ma","signals":1,"executed":1,"failed":0}]`, rec.Body.String())

	rec = suite.do(http.MethodGet, "/journal/outcomes?since=2000-01-01T00:00:00Z", "")
	suite.Require().Equal(http.StatusOK, rec.Code)

	var outcomes []types.OrderOutcome
	suite.decode(rec, &outcomes)
	suite.Require().Len(outcomes, 1)
	suite.Equal(types.OrderStatusExecuted, outcomes[0].Status)

	rec = suite.do(http.MethodGet, "/journal/outcomes?since=yesterday", "")
	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *AppTestSuite) TestMetrics() {
	suite.runGoldenCross()

	rec := suite.do(http.MethodGet, "/metrics", "")
	suite.Require().Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), "autotrader_token_issued_total 1")
	suite.Contains(rec.Body.String(), "autotrader_broker_requests_total")
	suite.Contains(rec.Body.String(), "autotrader_orders_total")
}
