package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaintypes "signclient/internal/domain/types"
)

func TestPayloadIDIsTimeOrdered(t *testing.T) {
	first := PayloadID()
	second := PayloadID()
	assert.Greater(t, first, int64(1_000_000_000_000_000))
	// Same millisecond may produce a lower random suffix; compare the time part.
	assert.LessOrEqual(t, first/1000, second/1000)
}

func TestClassifyRequestAndResponse(t *testing.T) {
	req, err := FormatRequest(domaintypes.MethodSessionPing, struct{}{})
	require.NoError(t, err)
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var p Payload
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.True(t, p.IsRequest())
	assert.False(t, p.IsResponse())
	assert.Equal(t, req.ID, p.Request().ID)
	assert.JSONEq(t, `{}`, string(p.Request().Params))

	res, err := FormatResult(req.ID, true)
	require.NoError(t, err)
	raw, err = json.Marshal(res)
	require.NoError(t, err)
	p = Payload{}
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.True(t, p.IsResponse())
	assert.False(t, p.Response().IsError())
	assert.Equal(t, "true", string(p.Result))
}

func TestFormatErrorOmitsResult(t *testing.T) {
	res := FormatError(42, domaintypes.ErrorReason{Code: 5000, Message: "User rejected"})
	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":42,"jsonrpc":"2.0","error":{"code":5000,"message":"User rejected"}}`, string(raw))

	var p Payload
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.True(t, p.IsResponse())
	assert.True(t, p.Response().IsError())
}

func TestDecodeParamsRejectsMissing(t *testing.T) {
	var out domaintypes.SessionUpdateParams
	err := DecodeParams(Request{Method: domaintypes.MethodSessionUpdate}, &out)
	require.Error(t, err)
}

func TestDecodeResult(t *testing.T) {
	res, err := FormatResult(7, domaintypes.SessionProposeResult{ResponderPublicKey: "ab"})
	require.NoError(t, err)
	var out domaintypes.SessionProposeResult
	require.NoError(t, DecodeResult(res, &out))
	assert.Equal(t, "ab", out.ResponderPublicKey)

	reason := domaintypes.ErrorReason{Code: 5000, Message: "User rejected."}
	err = DecodeResult(FormatError(7, reason), &out)
	var got domaintypes.ErrorReason
	require.ErrorAs(t, err, &got)
	assert.Equal(t, reason, got)

	require.Error(t, DecodeResult(Response{ID: 7}, &out))
}
