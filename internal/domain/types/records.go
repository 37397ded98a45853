package types

import "encoding/json"

// ExpiryRecord is one expirer entry. Target is "topic:<t>" or "id:<n>".
type ExpiryRecord struct {
	Target string `json:"target"`
	Expiry int64  `json:"expiry"`
}

// RequestArguments is the method/params half of a JSON-RPC request.
type RequestArguments struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// HistoryResponse is the recorded outcome of a request.
type HistoryResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorReason    `json:"error,omitempty"`
}

// HistoryRecord tracks one JSON-RPC request and, once seen, its response.
type HistoryRecord struct {
	ID       int64            `json:"id"`
	Topic    string           `json:"topic"`
	Request  RequestArguments `json:"request"`
	ChainID  string           `json:"chainId,omitempty"`
	Response *HistoryResponse `json:"response,omitempty"`
}
