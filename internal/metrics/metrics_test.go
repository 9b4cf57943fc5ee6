package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
	recorder *Recorder
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (suite *MetricsTestSuite) SetupTest() {
	suite.recorder = New()
}

func (suite *MetricsTestSuite) TestCounters() {
	suite.recorder.RecordBrokerRequest("FHKST01010100", "ok", 20*time.Millisecond)
	suite.recorder.RecordBrokerRequest("FHKST01010100", "ok", 10*time.Millisecond)
	suite.recorder.RecordTokenIssued()
	suite.recorder.RecordFallback("FHKST01010100")
	suite.recorder.RecordCycle("skipped", 0)
	suite.recorder.RecordSignal("ma", "BUY")
	suite.recorder.RecordOrder("BUY", "EXECUTED")
	suite.recorder.RecordPrice("005930", 71000)

	suite.Equal(2.0, testutil.ToFloat64(suite.recorder.brokerRequests.WithLabelValues("FHKST01010100", "ok")))
	suite.Equal(1.0, testutil.ToFloat64(suite.recorder.tokenIssued))
	suite.Equal(1.0, testutil.ToFloat64(suite.recorder.fallbacks.WithLabelValues("FHKST01010100")))
	suite.Equal(1.0, testutil.ToFloat64(suite.recorder.cycles.WithLabelValues("skipped")))
	suite.Equal(1.0, testutil.ToFloat64(suite.recorder.signals.WithLabelValues("ma", "BUY")))
	suite.Equal(1.0, testutil.ToFloat64(suite.recorder.orders.WithLabelValues("BUY", "EXECUTED")))
	suite.Equal(71000.0, testutil.ToFloat64(suite.recorder.lastPrice.WithLabelValues("005930")))
}

func (suite *MetricsTestSuite) TestHandlerExposesMetrics() {
	suite.recorder.RecordTokenIssued()

	rec := httptest.NewRecorder()
	suite.recorder.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	suite.Equal(200, rec.Code)
	suite.Contains(rec.Body.String(), "autotrader_token_issued_total 1")
}

func (suite *MetricsTestSuite) TestRecordersAreIndependent() {
	other := New()
	other.RecordTokenIssued()

	suite.Equal(0.0, testutil.ToFloat64(suite.recorder.tokenIssued))
}
