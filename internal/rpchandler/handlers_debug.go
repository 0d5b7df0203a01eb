package rpchandler

import (
	"encoding/json"
	"fmt"
)

// debugTraceCallHandler serves debug_traceCall.
type debugTraceCallHandler struct{}

func (h *debugTraceCallHandler) MethodName() string    { return "debug_traceCall" }
func (h *debugTraceCallHandler) ParamsSpec() ParamsSpec { return AtLeast(2) }
func (h *debugTraceCallHandler) TTLSeconds() int64      { return 0 }

func (h *debugTraceCallHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
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
		return fmt.Sprintf("%s-%s-%s", tag, callHash, HashJSON(params[2])), true, nil
	}
	return fmt.Sprintf("%s-%s", tag, callHash), true, nil
}

func (h *debugTraceCallHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}

// debugTraceBlockByHashHandler serves debug_traceBlockByHash. A block hash
// always identifies one immutable block, so it is always cacheable.
type debugTraceBlockByHashHandler struct{}

func (h *debugTraceBlockByHashHandler) MethodName() string    { return "debug_traceBlockByHash" }
func (h *debugTraceBlockByHashHandler) ParamsSpec() ParamsSpec { return AtLeast(1) }
func (h *debugTraceBlockByHashHandler) TTLSeconds() int64      { return 0 }

func (h *debugTraceBlockByHashHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	if err := AtLeast(1).Check(params); err != nil {
		return "", false, err
	}
	hash, err := CanonicalHash(params[0])
	if err != nil {
		return "", false, err
	}
	if len(params) >= 2 {
		return fmt.Sprintf("%s-%s", hash, HashJSON(params[1])), true, nil
	}
	return hash, true, nil
}

func (h *debugTraceBlockByHashHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}

// debugTraceBlockByNumberHandler serves debug_traceBlockByNumber.
type debugTraceBlockByNumberHandler struct{}

func (h *debugTraceBlockByNumberHandler) MethodName() string    { return "debug_traceBlockByNumber" }
func (h *debugTraceBlockByNumberHandler) ParamsSpec() ParamsSpec { return AtLeast(1) }
func (h *debugTraceBlockByNumberHandler) TTLSeconds() int64      { return 0 }

func (h *debugTraceBlockByNumberHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	if err := AtLeast(1).Check(params); err != nil {
		return "", false, err
	}
	tag, ok, err := CanonicalBlockTag(params[0])
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	if len(params) >= 2 {
		return fmt.Sprintf("%s-%s", tag, HashJSON(params[1])), true, nil
	}
	return tag, true, nil
}

func (h *debugTraceBlockByNumberHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}

// debugTraceTransactionHandler serves debug_traceTransaction.
type debugTraceTransactionHandler struct{}

func (h *debugTraceTransactionHandler) MethodName() string    { return "debug_traceTransaction" }
func (h *debugTraceTransactionHandler) ParamsSpec() ParamsSpec { return AtLeast(1) }
func (h *debugTraceTransactionHandler) TTLSeconds() int64      { return 0 }

func (h *debugTraceTransactionHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	if err := AtLeast(1).Check(params); err != nil {
		return "", false, err
	}
	hash, err := CanonicalHash(params[0])
	if err != nil {
		return "", false, err
	}
	if len(params) >= 2 {
		return fmt.Sprintf("%s-%s", hash, HashJSON(params[1])), true, nil
	}
	return hash, true, nil
}

func (h *debugTraceTransactionHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}
