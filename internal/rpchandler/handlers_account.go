package rpchandler

import (
	"encoding/json"
	"fmt"
)

// addressBlockKey is the shared "{block_tag}-{address}" composition used by
// eth_getBalance, eth_getTransactionCount and eth_getCode (spec.md §4.3).
func addressBlockKey(params []json.RawMessage) (string, bool, error) {
	if err := AtLeast(2).Check(params); err != nil {
		return "", false, err
	}
	addr, err := CanonicalAddress(params[0])
	if err != nil {
		return "", false, err
	}
	tag, ok, err := CanonicalBlockTag(params[1])
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return fmt.Sprintf("%s-%s", tag, addr), true, nil
}

// ethGetBalanceHandler serves eth_getBalance.
type ethGetBalanceHandler struct{}

func (h *ethGetBalanceHandler) MethodName() string    { return "eth_getBalance" }
func (h *ethGetBalanceHandler) ParamsSpec() ParamsSpec { return AtLeast(2) }
func (h *ethGetBalanceHandler) TTLSeconds() int64      { return 0 }

func (h *ethGetBalanceHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	return addressBlockKey(params)
}

func (h *ethGetBalanceHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}

// ethGetTransactionCountHandler serves eth_getTransactionCount, delegating
// key derivation to eth_getBalance's composition since both take
// (address, block_tag) and key on the same pair (spec.md §4.3: "expressed
// by composition, not copy-paste").
type ethGetTransactionCountHandler struct {
	delegate *ethGetBalanceHandler
}

func (h *ethGetTransactionCountHandler) MethodName() string    { return "eth_getTransactionCount" }
func (h *ethGetTransactionCountHandler) ParamsSpec() ParamsSpec { return AtLeast(2) }
func (h *ethGetTransactionCountHandler) TTLSeconds() int64      { return 0 }

func (h *ethGetTransactionCountHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	return h.delegate.ExtractCacheKey(params)
}

func (h *ethGetTransactionCountHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}

// ethGetCodeHandler serves eth_getCode.
type ethGetCodeHandler struct{}

func (h *ethGetCodeHandler) MethodName() string    { return "eth_getCode" }
func (h *ethGetCodeHandler) ParamsSpec() ParamsSpec { return AtLeast(2) }
func (h *ethGetCodeHandler) TTLSeconds() int64      { return 0 }

func (h *ethGetCodeHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	return addressBlockKey(params)
}

// ExtractCacheValue treats the "0x" empty-code sentinel as cacheable; only
// a null/empty result is rejected, matching the registry's
// default predicate, since an empty-code account is a legitimate, stable
// fact about that address at that block.
func (h *ethGetCodeHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}

// ethGetStorageAtHandler serves eth_getStorageAt.
type ethGetStorageAtHandler struct{}

func (h *ethGetStorageAtHandler) MethodName() string    { return "eth_getStorageAt" }
func (h *ethGetStorageAtHandler) ParamsSpec() ParamsSpec { return Exact(3) }
func (h *ethGetStorageAtHandler) TTLSeconds() int64      { return 0 }

func (h *ethGetStorageAtHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	if err := Exact(3).Check(params); err != nil {
		return "", false, err
	}
	addr, err := CanonicalAddress(params[0])
	if err != nil {
		return "", false, err
	}
	slot, err := CanonicalInteger(params[1])
	if err != nil {
		return "", false, err
	}
	tag, ok, err := CanonicalBlockTag(params[2])
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return fmt.Sprintf("%s-%s-%s", tag, addr, slot), true, nil
}

func (h *ethGetStorageAtHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}
