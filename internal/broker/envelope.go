package broker

import (
	"encoding/json"
	"net/http"

	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

// SuccessCode is the rt_cd value of a successful response.
const SuccessCode = "0"

// Request describes one brokerage call.
type Request struct {
	Method string
	Path   string
	TrID   string
	// Params are sent as the query string
	Params map[string]string
	// Body is sent as JSON
	Body any
	// Auth adds the bearer token header
	Auth bool
	// AllowFallback lets the pipeline substitute a synthetic response on
	// connectivity or timeout failures. Only read-only quote calls set it.
	AllowFallback bool
}

// Get builds an authenticated GET request.
func Get(path, trID string, params map[string]string) Request {
	return Request{Method: http.MethodGet, Path: path, TrID: trID, Params: params, Auth: true}
}

// Post builds an authenticated POST request.
func Post(path, trID string, body any) Request {
	return Request{Method: http.MethodPost, Path: path, TrID: trID, Body: body, Auth: true}
}

// Envelope is the common KIS response wrapper.
type Envelope struct {
	RtCd    string          `json:"rt_cd"`
	MsgCd   string          `json:"msg_cd"`
	Msg1    string          `json:"msg1"`
	Output  json.RawMessage `json:"output,omitempty"`
	Output1 json.RawMessage `json:"output1,omitempty"`
	Output2 json.RawMessage `json:"output2,omitempty"`
	// Synthetic marks envelopes produced by the fallback generator
	Synthetic bool `json:"-"`
}

// Success reports whether the brokerage accepted the request.
func (e *Envelope) Success() bool {
	return e.RtCd == SuccessCode
}

// DecodeOutput decodes the output field into v.
func (e *Envelope) DecodeOutput(v any) error {
	return decodeRaw(e.Output, v, "output")
}

// DecodeOutput1 decodes the output1 field into v.
func (e *Envelope) DecodeOutput1(v any) error {
	return decodeRaw(e.Output1, v, "output1")
}

// DecodeOutput2 decodes the output2 field into v.
func (e *Envelope) DecodeOutput2(v any) error {
	return decodeRaw(e.Output2, v, "output2")
}

func decodeRaw(raw json.RawMessage, v any, field string) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to decode %s", field)
	}

	return nil
}
