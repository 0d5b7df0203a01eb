package rpchandler_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stormlightlabs.org/cachedrpc/internal/rpchandler"
)

func paramsOf(t *testing.T, jsonArray string) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(jsonArray), &out))
	return out
}

func TestTableHasAllTwentyTwoHandlers(t *testing.T) {
	table := rpchandler.NewTable()
	methods := []string{
		"eth_chainId", "eth_blockNumber", "eth_gasPrice", "eth_maxPriorityFeePerGas",
		"eth_getBalance", "eth_getTransactionCount", "eth_getCode", "eth_getStorageAt",
		"eth_getBlockByNumber", "eth_getBlockByHash", "eth_getBlockReceipts",
		"eth_getTransactionByHash", "eth_getTransactionReceipt",
		"eth_getTransactionByBlockHashAndIndex", "eth_getTransactionByBlockNumberAndIndex",
		"eth_call", "eth_estimateGas", "eth_getLogs",
		"debug_traceCall", "debug_traceBlockByHash", "debug_traceBlockByNumber", "debug_traceTransaction",
	}
	for _, m := range methods {
		_, ok := table.Lookup(m)
		assert.True(t, ok, "missing handler for %s", m)
	}
	assert.Len(t, methods, 22)
}

func TestGetBalanceLatestIsUncacheable(t *testing.T) {
	table := rpchandler.NewTable()
	h, _ := table.Lookup("eth_getBalance")

	params := paramsOf(t, `["0xAAaaAAAAAaAAAAAAaAaAaAAaaAAAAAaAAAaaAAAa","latest"]`)
	_, ok, err := h.ExtractCacheKey(params)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetBalanceFixedBlockIsCacheable(t *testing.T) {
	table := rpchandler.NewTable()
	h, _ := table.Lookup("eth_getBalance")

	params := paramsOf(t, `["0xAAaaAAAAAaAAAAAAaAaAaAAaaAAAAAaAAAaaAAAa","0x10"]`)
	key, ok, err := h.ExtractCacheKey(params)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0x10-0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", key)
}

func TestGetTransactionCountDelegatesToGetBalanceComposition(t *testing.T) {
	table := rpchandler.NewTable()
	balance, _ := table.Lookup("eth_getBalance")
	count, _ := table.Lookup("eth_getTransactionCount")

	params := paramsOf(t, `["0xAAaaAAAAAaAAAAAAaAaAaAAaaAAAAAaAAAaaAAAa","0x10"]`)
	k1, ok1, err1 := balance.ExtractCacheKey(params)
	k2, ok2, err2 := count.ExtractCacheKey(params)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, k1, k2)
}

func TestEstimateGasDelegatesToCallComposition(t *testing.T) {
	table := rpchandler.NewTable()
	call, _ := table.Lookup("eth_call")
	estimate, _ := table.Lookup("eth_estimateGas")

	params := paramsOf(t, `[{"to":"0x1234132400000000000000000000000000000000"},"0x10"]`)
	k1, ok1, err1 := call.ExtractCacheKey(params)
	k2, ok2, err2 := estimate.ExtractCacheKey(params)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, k1, k2)
}

func TestGetLogsFromToRangeKey(t *testing.T) {
	table := rpchandler.NewTable()
	h, _ := table.Lookup("eth_getLogs")

	filter := `[{"fromBlock":"0x429d3b","toBlock":"0x429d3c","address":["0xb59f67a8bff5d8cd03f6ac17265c550ed8f33907"],"topics":[]}]`
	params := paramsOf(t, filter)
	key, ok, err := h.ExtractCacheKey(params)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Regexp(t, `^0x429d3b-0x429d3c-[0-9a-f]{40}$`, key)
}

func TestGetLogsOpenEndedIsUncacheable(t *testing.T) {
	table := rpchandler.NewTable()
	h, _ := table.Lookup("eth_getLogs")

	params := paramsOf(t, `[{"fromBlock":"latest","toBlock":"latest"}]`)
	_, ok, err := h.ExtractCacheKey(params)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetLogsBlockHashTakesPriorityOverRange(t *testing.T) {
	table := rpchandler.NewTable()
	h, _ := table.Lookup("eth_getLogs")

	hash := `0x` + repeatHex("ab", 32)
	params := paramsOf(t, `[{"blockHash":"`+hash+`","fromBlock":"0x1","toBlock":"0x2"}]`)
	key, ok, err := h.ExtractCacheKey(params)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, key, hash)
}

func repeatHex(pair string, n int) string {
	out := make([]byte, 0, len(pair)*n)
	for i := 0; i < n; i++ {
		out = append(out, pair...)
	}
	return string(out)
}

func TestTransactionReceiptUnminedIsNotCacheable(t *testing.T) {
	table := rpchandler.NewTable()
	h, _ := table.Lookup("eth_getTransactionReceipt")

	result := json.RawMessage(`{"blockHash":null,"transactionHash":"0x1"}`)
	assert.False(t, h.ExtractCacheValue(result))
}

func TestTransactionReceiptMinedIsCacheable(t *testing.T) {
	table := rpchandler.NewTable()
	h, _ := table.Lookup("eth_getTransactionReceipt")

	result := json.RawMessage(`{"blockHash":"0xabc","transactionHash":"0x1"}`)
	assert.True(t, h.ExtractCacheValue(result))
}

func TestGetTransactionByHashSharesReceiptCacheabilityRule(t *testing.T) {
	table := rpchandler.NewTable()
	h, _ := table.Lookup("eth_getTransactionByHash")

	unmined := json.RawMessage(`{"blockHash":null}`)
	mined := json.RawMessage(`{"blockHash":"0xabc"}`)
	assert.False(t, h.ExtractCacheValue(unmined))
	assert.True(t, h.ExtractCacheValue(mined))
}

func TestCallWithStateOverrideIncludesSecondHash(t *testing.T) {
	table := rpchandler.NewTable()
	h, _ := table.Lookup("eth_call")

	noOverride := paramsOf(t, `[{"to":"0x1234132400000000000000000000000000000000"},"0x10"]`)
	withOverride := paramsOf(t, `[{"to":"0x1234132400000000000000000000000000000000"},"0x10",{"0xabc":{"balance":"0x1"}}]`)

	k1, ok1, err1 := h.ExtractCacheKey(noOverride)
	k2, ok2, err2 := h.ExtractCacheKey(withOverride)
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.NotEqual(t, k1, k2)
	assert.Contains(t, k1, "0x10-")
	assert.Contains(t, k2, "0x10-")
}

func TestDefaultCacheableRejectsNullResult(t *testing.T) {
	table := rpchandler.NewTable()
	h, _ := table.Lookup("eth_getBalance")
	assert.False(t, h.ExtractCacheValue(json.RawMessage(`null`)))
	assert.True(t, h.ExtractCacheValue(json.RawMessage(`"0x1"`)))
}
