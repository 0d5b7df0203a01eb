package rpchandler

import (
	"encoding/json"
	"fmt"
)

// ethGetBlockByNumberHandler serves eth_getBlockByNumber.
type ethGetBlockByNumberHandler struct{}

func (h *ethGetBlockByNumberHandler) MethodName() string    { return "eth_getBlockByNumber" }
func (h *ethGetBlockByNumberHandler) ParamsSpec() ParamsSpec { return AtLeast(1) }
func (h *ethGetBlockByNumberHandler) TTLSeconds() int64      { return 0 }

func (h *ethGetBlockByNumberHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
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
	includeTxs, present, err := OptionalBool(params, 1)
	if err != nil {
		return "", false, err
	}
	if !present {
		return tag, true, nil
	}
	return fmt.Sprintf("%s-%t", tag, includeTxs), true, nil
}

func (h *ethGetBlockByNumberHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}

// ethGetBlockByHashHandler serves eth_getBlockByHash. Unlike
// eth_getBlockByNumber, a hash always identifies one immutable block, so it
// is always cacheable regardless of reorg risk at the tip.
type ethGetBlockByHashHandler struct{}

func (h *ethGetBlockByHashHandler) MethodName() string    { return "eth_getBlockByHash" }
func (h *ethGetBlockByHashHandler) ParamsSpec() ParamsSpec { return AtLeast(1) }
func (h *ethGetBlockByHashHandler) TTLSeconds() int64      { return 0 }

func (h *ethGetBlockByHashHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	if err := AtLeast(1).Check(params); err != nil {
		return "", false, err
	}
	hash, err := CanonicalHash(params[0])
	if err != nil {
		return "", false, err
	}
	includeTxs, present, err := OptionalBool(params, 1)
	if err != nil {
		return "", false, err
	}
	if !present {
		return hash, true, nil
	}
	return fmt.Sprintf("%s-%t", hash, includeTxs), true, nil
}

func (h *ethGetBlockByHashHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}

// ethGetBlockReceiptsHandler serves eth_getBlockReceipts.
type ethGetBlockReceiptsHandler struct{}

func (h *ethGetBlockReceiptsHandler) MethodName() string    { return "eth_getBlockReceipts" }
func (h *ethGetBlockReceiptsHandler) ParamsSpec() ParamsSpec { return Exact(1) }
func (h *ethGetBlockReceiptsHandler) TTLSeconds() int64      { return 0 }

func (h *ethGetBlockReceiptsHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	if err := Exact(1).Check(params); err != nil {
		return "", false, err
	}
	tag, ok, err := CanonicalBlockTag(params[0])
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return tag, true, nil
}

func (h *ethGetBlockReceiptsHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}
