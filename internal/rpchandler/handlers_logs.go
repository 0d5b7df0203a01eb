package rpchandler

import (
	"encoding/json"
	"fmt"

	"stormlightlabs.org/cachedrpc/internal/jsonrpc"
)

// ethGetLogsHandler serves eth_getLogs.
type ethGetLogsHandler struct{}

func (h *ethGetLogsHandler) MethodName() string    { return "eth_getLogs" }
func (h *ethGetLogsHandler) ParamsSpec() ParamsSpec { return Exact(1) }
func (h *ethGetLogsHandler) TTLSeconds() int64      { return 0 }

// ExtractCacheKey requires the filter to pin either blockHash or both
// fromBlock and toBlock to a fixed value; an open-ended ("latest") range is
// never cacheable (spec.md §4.3).
func (h *ethGetLogsHandler) ExtractCacheKey(params []json.RawMessage) (string, bool, error) {
	if err := Exact(1).Check(params); err != nil {
		return "", false, err
	}

	var filter map[string]json.RawMessage
	if err := json.Unmarshal(params[0], &filter); err != nil {
		return "", false, fmt.Errorf("%w: getLogs filter is not an object", jsonrpc.ErrInvalidParams)
	}

	prefix, ok, err := logsRangePrefix(filter)
	if err != nil || !ok {
		return "", ok, err
	}

	filterHash := HashJSON(params[0])
	return fmt.Sprintf("%s-%s", prefix, filterHash), true, nil
}

func logsRangePrefix(filter map[string]json.RawMessage) (string, bool, error) {
	if raw, present := filter["blockHash"]; present && string(raw) != "null" {
		hash, err := CanonicalHash(raw)
		if err != nil {
			return "", false, err
		}
		return hash, true, nil
	}

	fromRaw, hasFrom := filter["fromBlock"]
	toRaw, hasTo := filter["toBlock"]
	if !hasFrom || !hasTo {
		return "", false, nil
	}

	from, ok, err := CanonicalBlockTag(fromRaw)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	to, ok, err := CanonicalBlockTag(toRaw)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return fmt.Sprintf("%s-%s", from, to), true, nil
}

func (h *ethGetLogsHandler) ExtractCacheValue(result json.RawMessage) bool {
	return defaultCacheable(result)
}
