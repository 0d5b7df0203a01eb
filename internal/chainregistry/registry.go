// Package chainregistry builds the process-wide, read-only chain
// registration table (spec.md §3): one entry per configured chain, mapping
// its uppercased name to its provider group, cache backend, allowed method
// prefixes, and per-method handler table. Built at startup, immutable
// thereafter.
package chainregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"stormlightlabs.org/cachedrpc/internal/cache"
	"stormlightlabs.org/cachedrpc/internal/provider"
	"stormlightlabs.org/cachedrpc/internal/rpchandler"
)

// Chain is one entry of the registry.
type Chain struct {
	Name                  string
	PathPrefix            string
	Providers             *provider.Group
	Backend               cache.Backend
	AllowedMethodPrefixes []string
	Handlers              *rpchandler.Table
	RetryTimeout          time.Duration
}

// IsMethodAllowed reports whether method matches one of the chain's
// configured allowed prefixes.
func (c *Chain) IsMethodAllowed(method string) bool {
	for _, prefix := range c.AllowedMethodPrefixes {
		if strings.HasPrefix(method, prefix) {
			return true
		}
	}
	return false
}

// Registry is the immutable, process-wide chain table.
type Registry struct {
	chains map[string]*Chain
}

// NewRegistry builds a Registry from already-constructed chains, keyed by
// the uppercased chain name per spec.md §3.
func NewRegistry(chains []*Chain) *Registry {
	r := &Registry{chains: make(map[string]*Chain, len(chains))}
	for _, c := range chains {
		r.chains[strings.ToUpper(c.Name)] = c
	}
	return r
}

// Lookup resolves a chain by its path segment, uppercasing it first.
func (r *Registry) Lookup(pathSegment string) (*Chain, bool) {
	c, ok := r.chains[strings.ToUpper(pathSegment)]
	return c, ok
}

// Close releases every chain's cache backend.
func (r *Registry) Close() error {
	var firstErr error
	for _, c := range r.chains {
		if err := c.Backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type chainIDProbeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type chainIDProbeResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// DiscoverChainID probes every URL in the group with eth_chainId and
// requires unanimous agreement, per spec.md §3/§4.5. A disagreement or
// unreachable provider is a startup failure (spec.md §6 exit codes).
func DiscoverChainID(ctx context.Context, client *http.Client, urls []string, timeout time.Duration) (string, error) {
	if len(urls) == 0 {
		return "", fmt.Errorf("chainregistry: no providers configured")
	}

	var agreed string
	for i, url := range urls {
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		id, err := probeChainID(probeCtx, client, url)
		cancel()
		if err != nil {
			return "", fmt.Errorf("chainregistry: probing %s: %w", url, err)
		}
		if i == 0 {
			agreed = id
			continue
		}
		if id != agreed {
			return "", fmt.Errorf("chainregistry: chain id disagreement between providers: %q vs %q", agreed, id)
		}
	}
	return agreed, nil
}

func probeChainID(ctx context.Context, client *http.Client, url string) (string, error) {
	body, err := json.Marshal(chainIDProbeRequest{JSONRPC: "2.0", ID: 1, Method: "eth_chainId", Params: []any{}})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed chainIDProbeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("upstream error: %s", parsed.Error.Message)
	}
	if parsed.Result == "" {
		return "", fmt.Errorf("empty eth_chainId result")
	}
	return parsed.Result, nil
}
