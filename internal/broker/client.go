// Package broker is the KIS Open API client: session management, the
// authenticated request pipeline and typed quote, order and account calls.
package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// Fallback produces synthetic envelopes shaped like real responses.
type Fallback interface {
	Respond(req Request) (*Envelope, error)
}

// RequestRecorder observes pipeline outcomes.
type RequestRecorder interface {
	RecordBrokerRequest(trID string, outcome string, elapsed time.Duration)
	RecordFallback(trID string)
}

// Client is the authenticated request pipeline plus typed endpoint calls.
type Client struct {
	cfg      Config
	http     *resty.Client
	tokens   TokenSource
	fallback Fallback
	account  Account
	logger   *logger.Logger
	recorder RequestRecorder
}

// NewClient creates a Client. The account number may be empty when only
// quote endpoints are used.
func NewClient(cfg Config, tokens TokenSource, log *logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNop()
	}

	client := &Client{
		cfg:    cfg,
		http:   newHTTPClient(cfg),
		tokens: tokens,
		logger: log,
	}

	if cfg.AccountNo != "" {
		account, err := ParseAccount(cfg.AccountNo, cfg.ProductCode)
		if err != nil {
			return nil, err
		}

		if digits := len(accountDigits(cfg.AccountNo)); digits > 10 {
			log.Warn("Account number longer than 10 digits, using the first 10",
				zap.Int("digits", digits),
				zap.String("cano", account.CANO),
			)
		}

		client.account = account
	}

	return client, nil
}

// SetFallback installs the synthetic data source. It is used only when
// Config.UseFallback is set.
func (c *Client) SetFallback(fallback Fallback) {
	c.fallback = fallback
}

// SetRecorder attaches a pipeline observer.
func (c *Client) SetRecorder(recorder RequestRecorder) {
	c.recorder = recorder
}

// Account returns the parsed account.
func (c *Client) Account() Account {
	return c.account
}

// Do sends req. An HTTP 401 or expired-token envelope triggers one token
// refresh and a single retry. Non-success envelopes are returned as
// *errors.BrokerError; transport failures carry ErrCodeConnectivity or
// ErrCodeTimeout.
func (c *Client) Do(ctx context.Context, req Request) (*Envelope, error) {
	env, err := c.do(ctx, req, true)
	if err == nil {
		return env, nil
	}

	if !req.AllowFallback || !c.cfg.UseFallback || c.fallback == nil || !errors.IsFallbackEligible(err) || ctx.Err() != nil {
		return nil, err
	}

	c.logger.Warn("Brokerage unreachable, substituting synthetic data",
		zap.String("tr_id", req.TrID),
		zap.String("path", req.Path),
		zap.String("error", logger.Redact(err.Error())),
	)

	synthetic, ferr := c.fallback.Respond(req)
	if ferr != nil {
		return nil, errors.Wrap(errors.GetCode(err), "synthetic fallback failed", ferr)
	}

	synthetic.Synthetic = true

	if c.recorder != nil {
		c.recorder.RecordFallback(req.TrID)
	}

	return synthetic, nil
}

//nolint:funcorder // recursive helper for Do
func (c *Client) do(ctx context.Context, req Request, retry bool) (*Envelope, error) {
	start := time.Now()

	r := c.http.R().
		SetContext(ctx).
		SetHeaders(c.headers(req.TrID))

	if req.Auth {
		if c.tokens == nil {
			return nil, errors.New(errors.ErrCodeAuthentication, "no token source configured")
		}

		token, err := c.tokens.EnsureToken(ctx)
		if err != nil {
			return nil, err
		}

		r.SetAuthToken(token)
	}

	if len(req.Params) > 0 {
		r.SetQueryParams(req.Params)
	}

	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		classified := classifyTransportError(err, req.Path)
		c.logFailure(req, 0, classified)
		c.record(req.TrID, outcomeFor(classified), start)

		return nil, classified
	}

	env := parseEnvelopeLenient(resp.Body())

	if resp.StatusCode() == http.StatusUnauthorized || c.tokenExpired(resp.StatusCode(), env) {
		if retry && req.Auth {
			c.logger.Warn("Access token rejected, refreshing and retrying once", zap.String("tr_id", req.TrID))
			c.record(req.TrID, "unauthorized", start)

			if _, err := c.tokens.RefreshToken(ctx); err != nil {
				return nil, err
			}

			return c.do(ctx, req, false)
		}

		authErr := errors.Newf(errors.ErrCodeAuthentication, "brokerage rejected access token (http %d)", resp.StatusCode())
		c.logFailure(req, resp.StatusCode(), authErr)
		c.record(req.TrID, "unauthorized", start)

		return nil, authErr
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		brokerErr := errors.NewBrokerError(resp.StatusCode(), env.MsgCd, env.Msg1)
		c.logFailure(req, resp.StatusCode(), brokerErr)
		c.record(req.TrID, "rejected", start)

		return nil, brokerErr
	}

	var decoded Envelope
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		parseErr := errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to decode response envelope", err)
		c.logFailure(req, resp.StatusCode(), parseErr)
		c.record(req.TrID, "invalid", start)

		return nil, parseErr
	}

	if !decoded.Success() {
		brokerErr := errors.NewBrokerError(resp.StatusCode(), decoded.MsgCd, decoded.Msg1)
		c.logFailure(req, resp.StatusCode(), brokerErr)
		c.record(req.TrID, "rejected", start)

		return nil, brokerErr
	}

	c.record(req.TrID, "ok", start)

	return &decoded, nil
}

//nolint:funcorder // helper for do
func (c *Client) headers(trID string) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "text/plain",
		"charset":      "UTF-8",
		"appkey":       c.cfg.AppKey,
		"appsecret":    c.cfg.AppSecret,
		"custtype":     c.cfg.custType(),
		"tr_cont":      "",
	}

	if trID != "" {
		headers["tr_id"] = trID
	}

	return headers
}

//nolint:funcorder // helper for do
func (c *Client) tokenExpired(status int, env Envelope) bool {
	if status == http.StatusOK && env.RtCd == SuccessCode {
		return false
	}

	_, ok := tokenExpiredCodes[env.MsgCd]

	return ok
}

//nolint:funcorder // helper for do
func (c *Client) logFailure(req Request, status int, err error) {
	fields := []zap.Field{
		zap.String("url", c.cfg.BaseURL+req.Path),
		zap.String("method", req.Method),
		zap.String("tr_id", req.TrID),
		zap.Any("params", logger.RedactParams(req.Params)),
		zap.String("error", logger.Redact(err.Error())),
	}

	if status != 0 {
		fields = append(fields, zap.Int("status", status))
	}

	if body, ok := req.Body.(map[string]string); ok {
		fields = append(fields, zap.Any("body", logger.RedactParams(body)))
	}

	c.logger.Error("Brokerage request failed", fields...)
}

//nolint:funcorder // helper for do
func (c *Client) record(trID string, outcome string, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordBrokerRequest(trID, outcome, time.Since(start))
	}
}

func outcomeFor(err error) string {
	if errors.HasCode(err, errors.ErrCodeTimeout) {
		return "timeout"
	}

	return "unreachable"
}
