package broker

import (
	"context"
	"net"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

// tokenExpiredCodes are envelope codes the brokerage uses for an expired or
// invalid access token. They are handled like HTTP 401.
var tokenExpiredCodes = map[string]struct{}{
	"EGW00121": {},
	"EGW00123": {},
}

func newHTTPClient(cfg Config) *resty.Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.timeout())

	return client
}

// classifyTransportError separates timeouts from other connectivity failures.
func classifyTransportError(err error, path string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(errors.ErrCodeTimeout, err, "request to %s timed out", path)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrapf(errors.ErrCodeTimeout, err, "request to %s timed out", path)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return errors.Wrapf(errors.ErrCodeTimeout, err, "request to %s timed out", path)
	}

	return errors.Wrapf(errors.ErrCodeConnectivity, err, "request to %s failed", path)
}
