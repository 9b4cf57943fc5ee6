package broker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/broker/brokertest"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type ClientTestSuite struct {
	suite.Suite
	server  *brokertest.Server
	manager *SessionManager
	client  *Client
	log     *logger.Logger
	logs    *observer.ObservedLogs
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (suite *ClientTestSuite) SetupTest() {
	suite.server = brokertest.NewServer()

	core, logs := observer.New(zapcore.DebugLevel)
	suite.logs = logs
	log := &logger.Logger{Logger: zap.New(core)}
	suite.log = log

	cfg := Config{
		BaseURL:   suite.server.URL,
		AppKey:    "test-app-key",
		AppSecret: "test-app-secret",
		AccountNo: "12345678-01",
		Timeout:   5 * time.Second,
	}

	suite.manager = NewSessionManager(cfg, nil, log)

	client, err := NewClient(cfg, suite.manager, log)
	suite.Require().NoError(err)
	suite.client = client
}

func (suite *ClientTestSuite) TearDownTest() {
	suite.server.Close()
}

type staticTokens struct {
	mu        sync.Mutex
	token     string
	refreshes int
}

func (s *staticTokens) EnsureToken(context.Context) (string, error) {
	return s.token, nil
}

func (s *staticTokens) RefreshToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++

	return s.token, nil
}

type stubFallback struct {
	calls int
}

func (f *stubFallback) Respond(req Request) (*Envelope, error) {
	f.calls++

	return &Envelope{
		RtCd:   SuccessCode,
		Output: []byte(`{"hts_kor_isnm":"synthetic","stck_prpr":"70000","acml_vol":"1000"}`),
	}, nil
}

type requestRecorder struct {
	outcomes  []string
	fallbacks int
}

func (r *requestRecorder) RecordBrokerRequest(_ string, outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *requestRecorder) RecordFallback(string) {
	r.fallbacks++
}

func (suite *ClientTestSuite) TestNewClientRequiresCredentials() {
	_, err := NewClient(Config{BaseURL: suite.server.URL}, suite.manager, nil)
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeAuthentication, errors.GetCode(err))
}

func (suite *ClientTestSuite) TestNewClientParsesAccount() {
	suite.Equal(Account{CANO: "12345678", ProductCode: "01"}, suite.client.Account())
}

func (suite *ClientTestSuite) TestNewClientWarnsOnLongAccount() {
	suite.Empty(suite.logs.FilterMessageSnippet("longer than 10 digits").All())

	client, err := NewClient(Config{
		BaseURL:   suite.server.URL,
		AppKey:    "test-app-key",
		AppSecret: "test-app-secret",
		AccountNo: "123456780199",
	}, suite.manager, suite.log)
	suite.Require().NoError(err)
	suite.Equal(Account{CANO: "12345678", ProductCode: "01"}, client.Account())

	warnings := suite.logs.FilterMessageSnippet("longer than 10 digits").All()
	suite.Require().Len(warnings, 1)
	suite.Equal(zapcore.WarnLevel, warnings[0].Level)
	suite.Equal(int64(12), warnings[0].ContextMap()["digits"])
}

func (suite *ClientTestSuite) TestRequestHeaders() {
	suite.server.SetQuote("005930", brokertest.Quote{Name: "삼성전자", Price: 71000})

	_, err := suite.client.GetCurrentPrice(context.Background(), "005930")
	suite.Require().NoError(err)

	headers := suite.server.LastHeaders()
	session, ok := suite.manager.Session()
	suite.Require().True(ok)

	suite.Equal("Bearer "+session.AccessToken, headers.Get("Authorization"))
	suite.Equal("test-app-key", headers.Get("appkey"))
	suite.Equal("test-app-secret", headers.Get("appsecret"))
	suite.Equal(TrIDInquirePrice, headers.Get("tr_id"))
	suite.Equal("P", headers.Get("custtype"))
	suite.Equal("text/plain", headers.Get("Accept"))
}

func (suite *ClientTestSuite) TestRefreshesOnceOnUnauthorized() {
	suite.server.SetQuote("005930", brokertest.Quote{Name: "삼성전자", Price: 71000})

	_, err := suite.manager.EnsureToken(context.Background())
	suite.Require().NoError(err)

	suite.server.ExpireTokens()
	suite.manager.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	snapshot, err := suite.client.GetCurrentPrice(context.Background(), "005930")
	suite.Require().NoError(err)
	suite.Equal(71000.0, snapshot.Price)
	suite.Equal(2, suite.server.Issued())
}

func (suite *ClientTestSuite) TestRetriesOnlyOnce() {
	tokens := &staticTokens{token: "never-valid"}
	client, err := NewClient(Config{BaseURL: suite.server.URL, AppKey: "k", AppSecret: "s"}, tokens, nil)
	suite.Require().NoError(err)

	_, err = client.GetCurrentPrice(context.Background(), "005930")
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeAuthentication, errors.GetCode(err))
	suite.Equal(1, tokens.refreshes)
}

func (suite *ClientTestSuite) TestBrokerRejection() {
	suite.server.SetAccount(1_000_000, nil)
	suite.server.RejectTrID(TrIDOrderCash, "APBK0919")

	_, err := suite.client.PlaceOrder(context.Background(), types.OrderRequest{
		Symbol:   "005930",
		Side:     types.SignalActionBuy,
		Quantity: 1,
		Price:    71000,
	})
	suite.Require().Error(err)

	brokerErr, ok := errors.IsBrokerRejected(err)
	suite.Require().True(ok)
	suite.Equal("APBK0919", brokerErr.Code)
	suite.Empty(suite.server.Orders())
}

func (suite *ClientTestSuite) TestFailureLogsAreRedacted() {
	suite.server.RejectTrID(TrIDOrderCash, "APBK0919")

	_, err := suite.client.PlaceOrder(context.Background(), types.OrderRequest{
		Symbol:   "005930",
		Side:     types.SignalActionBuy,
		Quantity: 1,
		Price:    71000,
	})
	suite.Require().Error(err)

	entries := suite.logs.FilterMessage("Brokerage request failed").All()
	suite.Require().Len(entries, 1)

	fields := entries[0].ContextMap()
	suite.Equal(TrIDOrderCash, fields["tr_id"])
	suite.Equal(http.MethodPost, fields["method"])

	body, ok := fields["body"].(map[string]string)
	suite.Require().True(ok)
	suite.Equal("***", body["CANO"])
	suite.Equal("***", body["ACNT_PRDT_CD"])
	suite.Equal("005930", body["PDNO"])
}

func (suite *ClientTestSuite) TestUnknownSymbolIsRejectedNotFallback() {
	fallback := &stubFallback{}
	cfg := suite.client.cfg
	cfg.UseFallback = true

	client, err := NewClient(cfg, suite.manager, nil)
	suite.Require().NoError(err)
	client.SetFallback(fallback)

	_, err = client.GetCurrentPrice(context.Background(), "999999")
	suite.Require().Error(err)

	_, ok := errors.IsBrokerRejected(err)
	suite.True(ok)
	suite.Equal(0, fallback.calls)
}

func (suite *ClientTestSuite) TestFallbackOnConnectivityFailure() {
	url := suite.server.URL
	suite.server.Close()

	fallback := &stubFallback{}
	recorder := &requestRecorder{}

	client, err := NewClient(Config{BaseURL: url, AppKey: "k", AppSecret: "s", UseFallback: true}, &staticTokens{token: "t"}, nil)
	suite.Require().NoError(err)
	client.SetFallback(fallback)
	client.SetRecorder(recorder)

	snapshot, err := client.GetCurrentPrice(context.Background(), "005930")
	suite.Require().NoError(err)
	suite.True(snapshot.Synthetic)
	suite.Equal(70000.0, snapshot.Price)
	suite.Equal(1, fallback.calls)
	suite.Equal(1, recorder.fallbacks)
	suite.Equal([]string{"unreachable"}, recorder.outcomes)
}

func (suite *ClientTestSuite) TestNoFallbackWhenDisabled() {
	url := suite.server.URL
	suite.server.Close()

	fallback := &stubFallback{}

	client, err := NewClient(Config{BaseURL: url, AppKey: "k", AppSecret: "s"}, &staticTokens{token: "t"}, nil)
	suite.Require().NoError(err)
	client.SetFallback(fallback)

	_, err = client.GetCurrentPrice(context.Background(), "005930")
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeConnectivity, errors.GetCode(err))
	suite.Equal(0, fallback.calls)
}

func (suite *ClientTestSuite) TestOrdersNeverFallBack() {
	url := suite.server.URL
	suite.server.Close()

	fallback := &stubFallback{}

	client, err := NewClient(Config{BaseURL: url, AppKey: "k", AppSecret: "s", AccountNo: "1234567801", UseFallback: true}, &staticTokens{token: "t"}, nil)
	suite.Require().NoError(err)
	client.SetFallback(fallback)

	_, err = client.PlaceOrder(context.Background(), types.OrderRequest{
		Symbol:   "005930",
		Side:     types.SignalActionSell,
		Quantity: 1,
		Price:    71000,
	})
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeConnectivity, errors.GetCode(err))
	suite.Equal(0, fallback.calls)
}

func (suite *ClientTestSuite) TestTimeout() {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	client, err := NewClient(Config{BaseURL: slow.URL, AppKey: "k", AppSecret: "s", Timeout: 100 * time.Millisecond}, &staticTokens{token: "t"}, nil)
	suite.Require().NoError(err)

	_, err = client.GetCurrentPrice(context.Background(), "005930")
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeTimeout, errors.GetCode(err))
}

func (suite *ClientTestSuite) TestNoFallbackAfterCancellation() {
	url := suite.server.URL
	suite.server.Close()

	fallback := &stubFallback{}

	client, err := NewClient(Config{BaseURL: url, AppKey: "k", AppSecret: "s", UseFallback: true}, &staticTokens{token: "t"}, nil)
	suite.Require().NoError(err)
	client.SetFallback(fallback)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.GetCurrentPrice(ctx, "005930")
	suite.Require().Error(err)
	suite.Equal(0, fallback.calls)
}
