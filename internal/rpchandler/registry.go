package rpchandler

import (
	"encoding/json"
)

// Handler is the per-method contract of the handler registry (spec.md
// §4.3). The handler set is closed and known at startup; Table below
// builds a fixed map keyed by method name.
type Handler interface {
	// MethodName returns the JSON-RPC method string this handler serves.
	MethodName() string

	// ParamsSpec declares the arity this handler requires.
	ParamsSpec() ParamsSpec

	// ExtractCacheKey derives a canonical, stable string from the request
	// parameters. ok=false means "this call is intentionally not
	// cacheable" (e.g. a symbolic block tag); a non-nil error means the
	// parameters were malformed.
	ExtractCacheKey(params []json.RawMessage) (key string, ok bool, err error)

	// ExtractCacheValue decides whether this particular response should be
	// cached. Default behavior (defaultCacheable) is "cache any non-null
	// result"; handlers override this when the method has a narrower rule
	// (e.g. only cache mined transactions).
	ExtractCacheValue(result json.RawMessage) bool

	// TTLSeconds is the static TTL for the method; zero means unbounded by
	// TTL (only reorg_ttl governs).
	TTLSeconds() int64
}

// defaultCacheable implements the registry-wide default value predicate:
// cache any result that is not JSON null.
func defaultCacheable(result json.RawMessage) bool {
	trimmed := string(result)
	return trimmed != "" && trimmed != "null"
}

// Table is the process-wide, read-only map from method name to Handler.
type Table struct {
	handlers map[string]Handler
}

// NewTable builds a Table from the fixed set of handlers returned by
// Factories.
func NewTable() *Table {
	t := &Table{handlers: make(map[string]Handler)}
	for _, h := range Factories() {
		t.handlers[h.MethodName()] = h
	}
	return t
}

// Lookup returns the handler registered for method, if any.
func (t *Table) Lookup(method string) (Handler, bool) {
	h, ok := t.handlers[method]
	return h, ok
}

// Factories returns one instance of every supported method's handler. The
// set mirrors the 22 handlers of the reference implementation this proxy's
// semantics are drawn from.
func Factories() []Handler {
	callHandler := &ethCallHandler{}
	balanceHandler := &ethGetBalanceHandler{}
	receiptHandler := &ethGetTransactionReceiptHandler{}

	return []Handler{
		&staticKeyHandler{method: "eth_chainId", key: "static"},
		&staticKeyHandler{method: "eth_blockNumber", key: "static", ttl: 2},
		&staticKeyHandler{method: "eth_gasPrice", key: "static", ttl: 10},
		&staticKeyHandler{method: "eth_maxPriorityFeePerGas", key: "static", ttl: 10},

		balanceHandler,
		&ethGetTransactionCountHandler{delegate: balanceHandler},
		&ethGetCodeHandler{},
		&ethGetStorageAtHandler{},

		&ethGetBlockByNumberHandler{},
		&ethGetBlockByHashHandler{},
		&ethGetBlockReceiptsHandler{},

		&ethGetTransactionByHashHandler{delegate: receiptHandler},
		receiptHandler,
		&ethGetTransactionByBlockHashAndIndexHandler{},
		&ethGetTransactionByBlockNumberAndIndexHandler{},

		callHandler,
		&ethEstimateGasHandler{delegate: callHandler},

		&ethGetLogsHandler{},

		&debugTraceCallHandler{},
		&debugTraceBlockByHashHandler{},
		&debugTraceBlockByNumberHandler{},
		&debugTraceTransactionHandler{},
	}
}
