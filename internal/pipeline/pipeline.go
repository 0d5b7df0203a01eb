// Package pipeline implements the request pipeline (C4): splitting an
// incoming JSON-RPC batch into cached and uncached members, dispatching the
// uncached remainder upstream, reconciling the upstream batch response by
// id with positional fallback, and writing fresh results back through the
// cache, all while preserving the client's original ordering.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"stormlightlabs.org/cachedrpc/internal/cachevalue"
	"stormlightlabs.org/cachedrpc/internal/chainregistry"
	"stormlightlabs.org/cachedrpc/internal/jsonrpc"
	"stormlightlabs.org/cachedrpc/internal/metrics"
	"stormlightlabs.org/cachedrpc/internal/rpchandler"
)

// Pipeline is the HTTP handler implementing POST /{chain} (spec.md §4.4).
type Pipeline struct {
	Registry *chainregistry.Registry
	Metrics  *metrics.Metrics
	Logger   *log.Logger
	Client   *http.Client
}

// rawSubRequest is the loosely-typed shape used to detect malformed
// elements before committing to strict decoding.
type rawSubRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  json.RawMessage `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// subRequest tracks one element of the batch through the pipeline.
type subRequest struct {
	slotIndex     int
	id            jsonrpc.ID
	method        string
	rawParams     json.RawMessage
	handler       rpchandler.Handler
	hasHandler    bool
	cacheKey      string
	hasCacheKey   bool
	priorEnvelope *cachevalue.Envelope
	notification  bool
}

// upstreamElement is one element of the upstream's JSON-RPC batch response.
type upstreamElement struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *jsonrpc.Error  `json:"error"`
}

// upstreamRequest is the shape sent to the upstream provider for each
// uncached element.
type upstreamRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      jsonrpc.ID      `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (p *Pipeline) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}

// ServeHTTP implements the full per-batch state machine of spec.md §4.4.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	chainSegment := r.PathValue("chain")
	chain, ok := p.Registry.Lookup(chainSegment)
	if !ok {
		http.Error(w, "unknown chain", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	raws, isSingle, shapeErr := normalizeBody(body)
	if shapeErr != nil {
		writeJSON(w, jsonrpc.StandardError(jsonrpc.ID{}, jsonrpc.CodeInvalidRequest, "invalid request"))
		return
	}

	slots := make([]*jsonrpc.Response, len(raws))
	omit := make([]bool, len(raws)) // true for notifications: their response is dropped regardless of outcome
	var uncached []*subRequest
	idIndex := make(map[string]int) // id.String() -> index into uncached

	ctx := r.Context()

	for i, raw := range raws {
		var rr rawSubRequest
		if err := json.Unmarshal(raw, &rr); err != nil {
			slots[i] = jsonrpc.StandardError(jsonrpc.ID{}, jsonrpc.CodeInvalidRequest, "malformed request element")
			continue
		}

		var id jsonrpc.ID
		notification := len(rr.ID) == 0
		omit[i] = notification
		if !notification {
			if err := json.Unmarshal(rr.ID, &id); err != nil {
				slots[i] = jsonrpc.StandardError(jsonrpc.ID{}, jsonrpc.CodeInvalidRequest, "malformed id")
				continue
			}
		}

		var method string
		if err := json.Unmarshal(rr.Method, &method); err != nil || method == "" {
			slots[i] = jsonrpc.StandardError(id, jsonrpc.CodeMethodNotFound, "method not found")
			continue
		}

		if !chain.IsMethodAllowed(method) {
			slots[i] = jsonrpc.StandardError(id, jsonrpc.CodeMethodNotFound, "method not found")
			continue
		}

		sub := &subRequest{slotIndex: i, id: id, method: method, rawParams: rr.Params, notification: notification}

		handler, found := chain.Handlers.Lookup(method)
		if !found {
			uncached = append(uncached, sub)
			if !notification {
				idIndex[id.String()] = len(uncached) - 1
			}
			continue
		}
		sub.handler = handler
		sub.hasHandler = true

		params, paramsErr := rpchandler.DecodeParams(rr.Params)
		if paramsErr != nil {
			p.logger().With("method", method, "chain", chain.Name).Infof("cache key params decode failed: %v", paramsErr)
			uncached = append(uncached, sub)
			if !notification {
				idIndex[id.String()] = len(uncached) - 1
			}
			continue
		}

		key, keyOK, keyErr := handler.ExtractCacheKey(params)
		if keyErr != nil {
			p.logger().With("method", method, "chain", chain.Name).Infof("cache key extraction failed: %v", keyErr)
			uncached = append(uncached, sub)
			if !notification {
				idIndex[id.String()] = len(uncached) - 1
			}
			continue
		}
		if !keyOK {
			p.Metrics.RecordCall(chain.Name, method, metrics.OutcomeUncacheable)
			uncached = append(uncached, sub)
			if !notification {
				idIndex[id.String()] = len(uncached) - 1
			}
			continue
		}

		sub.cacheKey = key
		sub.hasCacheKey = true

		result, readErr := chain.Backend.Read(ctx, method, key)
		if readErr != nil {
			p.logger().With("method", method, "chain", chain.Name).Infof("cache read failed: %v", readErr)
			p.Metrics.RecordCall(chain.Name, method, metrics.OutcomeError)
			uncached = append(uncached, sub)
			if !notification {
				idIndex[id.String()] = len(uncached) - 1
			}
			continue
		}

		if result.Hit && result.Envelope.IsFresh(time.Now()) {
			p.Metrics.RecordCall(chain.Name, method, metrics.OutcomeHit)
			slots[i] = jsonrpc.NewResultResponse(id, result.Envelope.Data)
			continue
		}

		if result.Hit {
			sub.priorEnvelope = result.Envelope
			p.Metrics.RecordCall(chain.Name, method, metrics.OutcomeExpired)
		} else {
			p.Metrics.RecordCall(chain.Name, method, metrics.OutcomeMiss)
		}
		uncached = append(uncached, sub)
		if !notification {
			idIndex[id.String()] = len(uncached) - 1
		}
	}

	if len(uncached) == 0 {
		p.respond(w, slots, omit, isSingle)
		return
	}

	providerURL, ok := chain.Providers.NextProvider()
	if !ok {
		p.fillInternalError(slots, uncached, "no active upstream provider")
		p.respond(w, slots, omit, isSingle)
		return
	}

	batch := make([]upstreamRequest, len(uncached))
	for i, sub := range uncached {
		batch[i] = upstreamRequest{JSONRPC: "2.0", ID: sub.id, Method: sub.method, Params: sub.rawParams}
	}

	upstreamResp, err := p.dispatch(ctx, providerURL, chain.RetryTimeout, batch)
	if err != nil {
		chain.Providers.SetInactive(providerURL)
		p.fillInternalError(slots, uncached, err.Error())
		p.respond(w, slots, omit, isSingle)
		return
	}
	chain.Providers.SetActive(providerURL)

	p.reconcile(ctx, chain, slots, uncached, idIndex, upstreamResp)
	p.respond(w, slots, omit, isSingle)
}

// normalizeBody parses the request body into a slice of raw JSON-RPC
// request elements, and reports whether the original shape was a single
// object (spec.md §4.4 step 2).
func normalizeBody(body []byte) (raws []json.RawMessage, isSingle bool, err error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty body")
	}
	switch trimmed[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, false, err
		}
		return arr, false, nil
	case '{':
		return []json.RawMessage{json.RawMessage(trimmed)}, true, nil
	default:
		return nil, false, fmt.Errorf("invalid request shape")
	}
}

// fillInternalError fills every still-empty slot belonging to the uncached
// set with an InternalError response carrying reason (spec.md §4.4 step 6).
func (p *Pipeline) fillInternalError(slots []*jsonrpc.Response, uncached []*subRequest, reason string) {
	for _, sub := range uncached {
		if slots[sub.slotIndex] == nil {
			slots[sub.slotIndex] = jsonrpc.InternalErrorWithReason(sub.id, reason)
		}
	}
}

// dispatch POSTs the uncached batch to the upstream provider and decodes
// its JSON array response.
func (p *Pipeline) dispatch(ctx context.Context, url string, timeout time.Duration, batch []upstreamRequest) ([]upstreamElement, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upstream batch: %w", err)
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(dispatchCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream transport failure: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	var elements []upstreamElement
	if err := json.Unmarshal(respBody, &elements); err != nil {
		return nil, fmt.Errorf("upstream response is not a JSON array: %w", err)
	}
	return elements, nil
}

// reconcile matches each upstream element back to its originating
// sub-request by id, falling back to positional pairing, fills the result
// slot, and writes cacheable results back through the backend (spec.md
// §4.4 step 9).
func (p *Pipeline) reconcile(ctx context.Context, chain *chainregistry.Chain, slots []*jsonrpc.Response, uncached []*subRequest, idIndex map[string]int, elements []upstreamElement) {
	for pos, elem := range elements {
		sub := matchSubRequest(elem, pos, uncached, idIndex)
		if sub == nil {
			p.logger().With("chain", chain.Name).Infof("dropping unmatched upstream response at position %d", pos)
			continue
		}

		if elem.Error != nil {
			slots[sub.slotIndex] = jsonrpc.NewErrorResponse(sub.id, elem.Error)
			continue
		}

		slots[sub.slotIndex] = jsonrpc.NewResultResponse(sub.id, elem.Result)

		if !sub.hasHandler || !sub.hasCacheKey {
			continue
		}
		if !sub.handler.ExtractCacheValue(elem.Result) {
			continue
		}

		newEnvelope := cachevalue.New(elem.Result, chain.Backend.GetReorgTTL(), sub.handler.TTLSeconds())
		if err := chain.Backend.Write(ctx, sub.method, sub.cacheKey, newEnvelope, sub.priorEnvelope); err != nil {
			p.logger().With("method", sub.method, "chain", chain.Name).Infof("cache write failed: %v", err)
		}
	}

	for _, sub := range uncached {
		if slots[sub.slotIndex] == nil {
			slots[sub.slotIndex] = jsonrpc.InternalErrorWithReason(sub.id, "no response received from upstream for this request")
		}
	}
}

func matchSubRequest(elem upstreamElement, pos int, uncached []*subRequest, idIndex map[string]int) *subRequest {
	if len(elem.ID) > 0 {
		var id jsonrpc.ID
		if err := json.Unmarshal(elem.ID, &id); err == nil && id.IsSet() {
			if idx, ok := idIndex[id.String()]; ok {
				return uncached[idx]
			}
		}
	}
	if pos < len(uncached) {
		return uncached[pos]
	}
	return nil
}

// respond writes the collected slots to w, dropping notification slots
// (those flagged in omit) and empty slots, while keeping null-id error
// responses, and preserving is_single shape per spec.md §4.4 step 10.
func (p *Pipeline) respond(w http.ResponseWriter, slots []*jsonrpc.Response, omit []bool, isSingle bool) {
	filtered := make([]*jsonrpc.Response, 0, len(slots))
	for i, s := range slots {
		if s == nil || omit[i] {
			continue
		}
		filtered = append(filtered, s)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	if isSingle {
		if len(filtered) == 0 {
			return
		}
		_ = enc.Encode(filtered[0])
		return
	}
	_ = enc.Encode(filtered)
}

func writeJSON(w http.ResponseWriter, resp *jsonrpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
