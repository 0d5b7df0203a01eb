package rpchandler

import (
	"encoding/json"
	"fmt"
)

// ethCallHandler serves eth_call.
type ethCallHandler struct{}

func (h *ethCallHandler) MethodName() string    { return "eth_call" }
func (h *ethCallHandler) ParamsSpec() ParamsSpec { return AtLeast(2) }
func (h *ethCallHandler) TTLSeconds() int64      { return 0 }

func (h *ethCallHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	if err := AtLeast(2).Check(params); err != nil {
		return "", false, err
	}
	tag, ok, err := CanonicalBlockTag(params[1])
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	callHash := HashJSON(params[0])
	if len(params) >= 3 {
		overrideHash := HashJSON(params[2])
		return fmt.Sprintf("%s-%s-%s", tag, callHash, overrideHash), true, nil
	}
	return fmt.Sprintf("%s-%s", tag, callHash), true, nil
}

func (h *ethCallHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}

// ethEstimateGasHandler serves eth_estimateGas, delegating key derivation
// to eth_call's composition since both key on (block_tag, call_object[,
// state_override]) identically (spec.md §4.3).
type ethEstimateGasHandler struct {
	delegate *ethCallHandler
}

func (h *ethEstimateGasHandler) MethodName() string    { return "eth_estimateGas" }
func (h *ethEstimateGasHandler) ParamsSpec() ParamsSpec { return AtLeast(2) }
func (h *ethEstimateGasHandler) TTLSeconds() int64      { return 0 }

func (h *ethEstimateGasHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	return h.delegate.ExtractCacheKey(params)
}

func (h *ethEstimateGasHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}
