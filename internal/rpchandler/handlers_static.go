package rpchandler

import "encoding/json"

// staticKeyHandler serves methods that take no params and always cache
// under a constant key: eth_chainId (the chain id never changes), and
// eth_blockNumber / eth_gasPrice / eth_maxPriorityFeePerGas, which take a
// short static TTL to cap staleness (spec.md §4.3, §5 of original_source's
// eth_block_number.rs and eth_gas_price.rs).
type staticKeyHandler struct {
	method string
	key    string
	ttl    int64
}

func (h *staticKeyHandler) MethodName() string    { return h.method }
func (h *staticKeyHandler) ParamsSpec() ParamsSpec { return AtLeast(0) }
func (h *staticKeyHandler) TTLSeconds() int64      { return h.ttl }

func (h *staticKeyHandler) ExtractCacheKey(_ []json.RawMessage) (string, bool, error) {
	return h.key, true, nil
}

func (h *staticKeyHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}
