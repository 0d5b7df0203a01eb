package rpchandler

import (
	"encoding/json"
	"fmt"
)

// resultHasNonNullField reports whether result is a JSON object with a
// non-null member named field. Used to detect whether a transaction has
// been mined (its blockHash is populated) before caching.
func resultHasNonNullField(result json.RawMessage, field string) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(result, &obj); err != nil {
		return false
	}
	v, ok := obj[field]
	if !ok {
		return false
	}
	return string(v) != "null"
}

// minedTransactionCacheable implements the shared rule for
// eth_getTransactionByHash and eth_getTransactionReceipt (spec.md §4.3,
// §8 property 7): only cache once the transaction is mined, i.e. its
// blockHash is non-null.
func minedTransactionCacheable(result json.RawMessage) bool {
	if !defaultCacheable(result) {
		return false
	}
	return resultHasNonNullField(result, "blockHash")
}

// ethGetTransactionReceiptHandler serves eth_getTransactionReceipt.
type ethGetTransactionReceiptHandler struct{}

func (h *ethGetTransactionReceiptHandler) MethodName() string    { return "eth_getTransactionReceipt" }
func (h *ethGetTransactionReceiptHandler) ParamsSpec() ParamsSpec { return Exact(1) }
func (h *ethGetTransactionReceiptHandler) TTLSeconds() int64      { return 0 }

func (h *ethGetTransactionReceiptHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	if err := Exact(1).Check(params); err != nil {
		return "", false, err
	}
	hash, err := CanonicalHash(params[0])
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

func (h *ethGetTransactionReceiptHandler) ExtractCacheValue(result json.RawMessage) bool {
	return minedTransactionCacheable(result)
}

// ethGetTransactionByHashHandler serves eth_getTransactionByHash, delegating
// key derivation to eth_getTransactionReceipt's since both key solely on the
// transaction hash (spec.md §4.3).
type ethGetTransactionByHashHandler struct {
	delegate *ethGetTransactionReceiptHandler
}

func (h *ethGetTransactionByHashHandler) MethodName() string    { return "eth_getTransactionByHash" }
func (h *ethGetTransactionByHashHandler) ParamsSpec() ParamsSpec { return Exact(1) }
func (h *ethGetTransactionByHashHandler) TTLSeconds() int64      { return 0 }

func (h *ethGetTransactionByHashHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	return h.delegate.ExtractCacheKey(params)
}

func (h *ethGetTransactionByHashHandler) ExtractCacheValue(result json.RawMessage) bool {
	return minedTransactionCacheable(result)
}

// ethGetTransactionByBlockHashAndIndexHandler serves
// eth_getTransactionByBlockHashAndIndex.
type ethGetTransactionByBlockHashAndIndexHandler struct{}

func (h *ethGetTransactionByBlockHashAndIndexHandler) MethodName() string {
	return "eth_getTransactionByBlockHashAndIndex"
}
func (h *ethGetTransactionByBlockHashAndIndexHandler) ParamsSpec() ParamsSpec { return Exact(2) }
func (h *ethGetTransactionByBlockHashAndIndexHandler) TTLSeconds() int64      { return 0 }

func (h *ethGetTransactionByBlockHashAndIndexHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	if err := Exact(2).Check(params); err != nil {
		return "", false, err
	}
	hash, err := CanonicalHash(params[0])
	if err != nil {
		return "", false, err
	}
	idx, err := CanonicalInteger(params[1])
	if err != nil {
		return "", false, err
	}
	return fmt.Sprintf("%s-%s", hash, idx), true, nil
}

func (h *ethGetTransactionByBlockHashAndIndexHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}

// ethGetTransactionByBlockNumberAndIndexHandler serves
// eth_getTransactionByBlockNumberAndIndex.
type ethGetTransactionByBlockNumberAndIndexHandler struct{}

func (h *ethGetTransactionByBlockNumberAndIndexHandler) MethodName() string {
	return "eth_getTransactionByBlockNumberAndIndex"
}
func (h *ethGetTransactionByBlockNumberAndIndexHandler) ParamsSpec() ParamsSpec { return Exact(2) }
func (h *ethGetTransactionByBlockNumberAndIndexHandler) TTLSeconds() int64      { return 0 }

func (h *ethGetTransactionByBlockNumberAndIndexHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	if err := Exact(2).Check(params); err != nil {
		return "", false, err
	}
	tag, ok, err := CanonicalBlockTag(params[0])
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	idx, err := CanonicalInteger(params[1])
	if err != nil {
		return "", false, err
	}
	return fmt.Sprintf("%s-%s", tag, idx), true, nil
}

func (h *ethGetTransactionByBlockNumberAndIndexHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}
