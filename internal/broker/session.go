package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/kis-autotrader/internal/broker/tokenstore"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/market"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	tokenPath = "/oauth2/tokenP"
	// rateLimitCode is returned with HTTP 403 when a token was issued less
	// than a minute ago.
	rateLimitCode       = "EGW00133"
	defaultTokenTTL     = 86400
	tokenExpiryLayout   = "2006-01-02 15:04:05"
	issueCooldown       = time.Minute
	singleflightEnsure  = "ensure"
	singleflightRefresh = "refresh"
)

// TokenSource supplies bearer tokens to the request pipeline.
type TokenSource interface {
	EnsureToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
}

// TokenRecorder observes token issuance.
type TokenRecorder interface {
	RecordTokenIssued()
}

// Session is the in-memory access token.
type Session struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Valid reports whether the session can be used at now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.AccessToken != "" && now.Before(s.ExpiresAt)
}

type tokenResponse struct {
	AccessToken        string `json:"access_token"`
	TokenType          string `json:"token_type"`
	ExpiresIn          int64  `json:"expires_in"`
	AccessTokenExpired string `json:"access_token_token_expired"`
}

type tokenErrorResponse struct {
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

// SessionManager owns the brokerage access token. All issuance is
// serialized by issueMu and concurrent callers share one in-flight result.
// mu only guards the session snapshot, so readers never wait on the
// token endpoint.
type SessionManager struct {
	cfg      Config
	http     *resty.Client
	store    tokenstore.Store
	logger   *logger.Logger
	recorder TokenRecorder
	now      func() time.Time

	group     singleflight.Group
	issueMu   sync.Mutex
	mu        sync.RWMutex
	session   *Session
	lastIssue time.Time
}

// NewSessionManager creates a SessionManager. store may be nil, in which
// case tokens live only in memory.
func NewSessionManager(cfg Config, store tokenstore.Store, log *logger.Logger) *SessionManager {
	if log == nil {
		log = logger.NewNop()
	}

	return &SessionManager{
		cfg:    cfg,
		http:   newHTTPClient(cfg),
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

// SetRecorder attaches an issuance observer.
func (m *SessionManager) SetRecorder(recorder TokenRecorder) {
	m.recorder = recorder
}

// IsValid reports whether the in-memory token is unexpired.
func (m *SessionManager) IsValid() bool {
	current, _ := m.snapshot()

	return current.Valid(m.now())
}

// Session returns a copy of the in-memory session, if any.
func (m *SessionManager) Session() (Session, bool) {
	current, _ := m.snapshot()
	if current == nil {
		return Session{}, false
	}

	return *current, true
}

//nolint:funcorder // read side of mu
func (m *SessionManager) snapshot() (*Session, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.session, m.lastIssue
}

// setSession replaces the in-memory session. issued marks a token this
// process obtained from the token endpoint.
//
//nolint:funcorder // write side of mu
func (m *SessionManager) setSession(session *Session, issued bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = session
	if issued {
		m.lastIssue = session.IssuedAt
	}
}

// EnsureToken returns a usable token, preferring in order: the valid
// in-memory token, a valid persisted token for today, an expired in-memory
// token (failure surfaces on the request), and finally a newly issued one.
func (m *SessionManager) EnsureToken(ctx context.Context) (string, error) {
	v, err, _ := m.group.Do(singleflightEnsure, func() (any, error) {
		return m.ensure(ctx, false)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// RefreshToken issues a new token unless one was issued within the last
// minute, in which case the current token is returned.
func (m *SessionManager) RefreshToken(ctx context.Context) (string, error) {
	v, err, _ := m.group.Do(singleflightRefresh, func() (any, error) {
		return m.ensure(ctx, true)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

//nolint:funcorder // helper shared by EnsureToken and RefreshToken
func (m *SessionManager) ensure(ctx context.Context, force bool) (string, error) {
	m.issueMu.Lock()
	defer m.issueMu.Unlock()

	now := m.now()
	current, lastIssue := m.snapshot()

	if !force {
		if current.Valid(now) {
			return current.AccessToken, nil
		}

		if rec, ok := m.loadPersisted(ctx, now); ok && rec.Valid(now) {
			m.setSession(&Session{AccessToken: rec.Token, IssuedAt: rec.IssuedAt, ExpiresAt: rec.ExpiresAt}, false)
			m.logger.Info("Reusing persisted access token", zap.Time("expires_at", rec.ExpiresAt))

			return rec.Token, nil
		}

		if current != nil {
			m.logger.Warn("Access token expired, returning it until the next request refreshes it",
				zap.Time("expired_at", current.ExpiresAt))

			return current.AccessToken, nil
		}
	}

	if current != nil && !lastIssue.IsZero() && now.Sub(lastIssue) < issueCooldown {
		m.logger.Warn("Token issued less than a minute ago, reusing it")

		return current.AccessToken, nil
	}

	return m.issue(ctx, now)
}

//nolint:funcorder // helper for ensure
func (m *SessionManager) loadPersisted(ctx context.Context, now time.Time) (tokenstore.Record, bool) {
	if m.store == nil {
		return tokenstore.Record{}, false
	}

	rec, ok, err := m.store.Load(ctx, tokenstore.DateKey(now.In(market.Seoul)))
	if err != nil {
		m.logger.Warn("Failed to load persisted token", zap.Error(err))

		return tokenstore.Record{}, false
	}

	return rec, ok
}

//nolint:funcorder // helper for ensure
func (m *SessionManager) issue(ctx context.Context, now time.Time) (string, error) {
	if m.cfg.AppKey == "" || m.cfg.AppSecret == "" {
		return "", errors.New(errors.ErrCodeAuthentication, "app key and app secret are required")
	}

	m.logger.Info("Issuing access token")

	resp, err := m.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"grant_type": "client_credentials",
			"appkey":     m.cfg.AppKey,
			"appsecret":  m.cfg.AppSecret,
		}).
		Post(tokenPath)
	if err != nil {
		classified := classifyTransportError(err, tokenPath)
		m.logger.Error("Token request failed", zap.String("error", logger.Redact(classified.Error())))

		return "", classified
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusForbidden:
		return m.handleForbidden(ctx, now, resp.Body())
	case http.StatusUnauthorized:
		return "", errors.New(errors.ErrCodeAuthentication, "brokerage rejected app credentials")
	default:
		env := parseEnvelopeLenient(resp.Body())

		return "", errors.NewBrokerError(resp.StatusCode(), env.MsgCd, env.Msg1)
	}

	var body tokenResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to decode token response", err)
	}

	if body.AccessToken == "" {
		return "", errors.New(errors.ErrCodeAuthentication, "token response has no access token")
	}

	session := &Session{
		AccessToken: body.AccessToken,
		IssuedAt:    now,
		ExpiresAt:   tokenExpiry(body, now),
	}

	m.setSession(session, true)

	if m.recorder != nil {
		m.recorder.RecordTokenIssued()
	}

	if m.store != nil {
		rec := tokenstore.Record{Token: session.AccessToken, ExpiresAt: session.ExpiresAt, IssuedAt: now}
		if err := m.store.Save(ctx, tokenstore.DateKey(now.In(market.Seoul)), rec); err != nil {
			m.logger.Warn("Failed to persist access token", zap.Error(err))
		}
	}

	m.logger.Info("Access token issued", zap.Time("expires_at", session.ExpiresAt))

	return session.AccessToken, nil
}

// handleForbidden distinguishes the issuance rate limit from bad
// credentials. A rate limit falls back to any existing token.
//
//nolint:funcorder // helper for issue
func (m *SessionManager) handleForbidden(ctx context.Context, now time.Time, body []byte) (string, error) {
	var tokenErr tokenErrorResponse
	_ = json.Unmarshal(body, &tokenErr)

	if tokenErr.ErrorCode != rateLimitCode {
		return "", errors.Newf(errors.ErrCodeAuthentication, "brokerage rejected app credentials: %s", tokenErr.ErrorDescription)
	}

	if current, _ := m.snapshot(); current != nil {
		m.logger.Warn("Token issuance rate limited, reusing in-memory token")

		return current.AccessToken, nil
	}

	if rec, ok := m.loadPersisted(ctx, now); ok && rec.Token != "" {
		m.setSession(&Session{AccessToken: rec.Token, IssuedAt: rec.IssuedAt, ExpiresAt: rec.ExpiresAt}, false)
		m.logger.Warn("Token issuance rate limited, reusing persisted token")

		return rec.Token, nil
	}

	return "", errors.New(errors.ErrCodeRateLimited, "token issuance rate limited (1 per minute) and no existing token")
}

func tokenExpiry(body tokenResponse, now time.Time) time.Time {
	if body.AccessTokenExpired != "" {
		if t, err := time.ParseInLocation(tokenExpiryLayout, body.AccessTokenExpired, market.Seoul); err == nil {
			return t
		}
	}

	ttl := body.ExpiresIn
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return now.Add(time.Duration(ttl) * time.Second)
}

func parseEnvelopeLenient(body []byte) Envelope {
	var env Envelope
	_ = json.Unmarshal(body, &env)

	if env.Msg1 == "" {
		env.Msg1 = string(body)
	}

	return env
}
