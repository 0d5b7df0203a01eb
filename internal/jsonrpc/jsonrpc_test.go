package jsonrpc_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stormlightlabs.org/cachedrpc/internal/jsonrpc"
)

func TestIDRoundTripString(t *testing.T) {
	var id jsonrpc.ID
	require.NoError(t, json.Unmarshal([]byte(`"x"`), &id))
	assert.True(t, id.IsSet())

	out, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(out))
}

func TestIDRoundTripNumber(t *testing.T) {
	var id jsonrpc.ID
	require.NoError(t, json.Unmarshal([]byte(`1`), &id))

	out, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `1`, string(out))
}

func TestIDEqualRequiresSameKind(t *testing.T) {
	str := jsonrpc.NewStringID("1")
	num := jsonrpc.NewNumberID(1)
	assert.False(t, str.Equal(num))
	assert.True(t, str.Equal(jsonrpc.NewStringID("1")))
	assert.True(t, num.Equal(jsonrpc.NewNumberID(1)))
}

func TestIDAbsentIsUnset(t *testing.T) {
	var id jsonrpc.ID
	assert.False(t, id.IsSet())
}

func TestStandardErrorCodes(t *testing.T) {
	resp := jsonrpc.StandardError(jsonrpc.NewNumberID(1), jsonrpc.CodeMethodNotFound, "method not found")
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32601, resp.Error.Code)
}

func TestInternalErrorWithReasonIncludesReason(t *testing.T) {
	resp := jsonrpc.InternalErrorWithReason(jsonrpc.NewNumberID(1), "upstream timeout")
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.CodeInternalError, resp.Error.Code)
	assert.Contains(t, string(resp.Error.Data), "upstream timeout")
}
