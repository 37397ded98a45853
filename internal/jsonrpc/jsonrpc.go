package jsonrpc

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	domaintypes "signclient/internal/domain/types"
)

// Version is the only JSON-RPC version spoken on the wire.
const Version = "2.0"

// Request is an outbound or recorded JSON-RPC request.
type Request struct {
	ID      int64           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response carries either Result or Error, never both.
type Response struct {
	ID      int64                    `json:"id"`
	JSONRPC string                   `json:"jsonrpc"`
	Result  json.RawMessage          `json:"result,omitempty"`
	Error   *domaintypes.ErrorReason `json:"error,omitempty"`
}

// IsError reports whether the response carries an error.
func (r Response) IsError() bool { return r.Error != nil }

// Payload is any decoded JSON-RPC message.
type Payload struct {
	ID      int64                    `json:"id"`
	JSONRPC string                   `json:"jsonrpc"`
	Method  string                   `json:"method,omitempty"`
	Params  json.RawMessage          `json:"params,omitempty"`
	Result  json.RawMessage          `json:"result,omitempty"`
	Error   *domaintypes.ErrorReason `json:"error,omitempty"`
}

// IsRequest reports whether the payload is a request.
func (p Payload) IsRequest() bool { return p.Method != "" }

// IsResponse reports whether the payload is a result or error response.
func (p Payload) IsResponse() bool {
	return p.Method == "" && (p.Result != nil || p.Error != nil)
}

// Request returns the request view of the payload.
func (p Payload) Request() Request {
	return Request{ID: p.ID, JSONRPC: p.JSONRPC, Method: p.Method, Params: p.Params}
}

// Response returns the response view of the payload.
func (p Payload) Response() Response {
	return Response{ID: p.ID, JSONRPC: p.JSONRPC, Result: p.Result, Error: p.Error}
}

// PayloadID returns a millisecond timestamp scaled by 1000 plus three random
// digits, so ids sort by creation time.
func PayloadID() int64 {
	return time.Now().UnixMilli()*1000 + rand.Int64N(1000)
}

// FormatRequest builds a request with a fresh id.
func FormatRequest(method string, params any) (Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, fmt.Errorf("marshal %s params: %w", method, err)
	}
	return Request{ID: PayloadID(), JSONRPC: Version, Method: method, Params: raw}, nil
}

// FormatResult builds a success response for id.
func FormatResult(id int64, result any) (Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{}, fmt.Errorf("marshal result %d: %w", id, err)
	}
	return Response{ID: id, JSONRPC: Version, Result: raw}, nil
}

// FormatError builds an error response for id.
func FormatError(id int64, reason domaintypes.ErrorReason) Response {
	return Response{ID: id, JSONRPC: Version, Error: &reason}
}

// DecodeParams unmarshals request params into out.
func DecodeParams(req Request, out any) error {
	if len(req.Params) == 0 {
		return fmt.Errorf("%s: missing params", req.Method)
	}
	if err := json.Unmarshal(req.Params, out); err != nil {
		return fmt.Errorf("%s: decode params: %w", req.Method, err)
	}
	return nil
}

// DecodeResult unmarshals a success response's result into out.
func DecodeResult(res Response, out any) error {
	if res.IsError() {
		return *res.Error
	}
	if len(res.Result) == 0 {
		return fmt.Errorf("response %d: missing result", res.ID)
	}
	if err := json.Unmarshal(res.Result, out); err != nil {
		return fmt.Errorf("response %d: decode result: %w", res.ID, err)
	}
	return nil
}
