// Package provider implements the upstream provider group (C5): a
// round-robin selector over a fixed ordered set of RPC URLs, each with a
// per-URL inactive-since timestamp and a shared retry cooldown.
package provider

import (
	"sync"
	"time"
)

type backendState struct {
	url           string
	inactiveSince time.Time
	isInactive    bool
}

// Group is an ordered set of upstream URLs with per-URL liveness state,
// guarded by a single lock per spec.md §4.5/§5.
type Group struct {
	mu           sync.Mutex
	backends     []*backendState
	next         int
	retryTimeout time.Duration
	chainID      string
}

// NewGroup constructs a Group from an ordered list of upstream URLs and the
// cooldown duration after which an inactive backend is retried.
func NewGroup(urls []string, retryTimeout time.Duration) *Group {
	g := &Group{retryTimeout: retryTimeout}
	for _, u := range urls {
		g.backends = append(g.backends, &backendState{url: u})
	}
	return g
}

// ChainID returns the chain identifier discovered at startup (spec.md §4.5).
func (g *Group) ChainID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.chainID
}

// SetChainID records the chain identifier agreed upon by all providers at
// startup probing.
func (g *Group) SetChainID(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chainID = id
}

// URLs returns the configured URLs in order, for the startup banner.
func (g *Group) URLs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	urls := make([]string, len(g.backends))
	for i, b := range g.backends {
		urls[i] = b.url
	}
	return urls
}

// isActive reports whether a backend is live: either never marked inactive,
// or its retry cooldown has elapsed. Caller must hold g.mu.
func (g *Group) isActive(b *backendState, now time.Time) bool {
	if !b.isInactive {
		return true
	}
	return now.Sub(b.inactiveSince) >= g.retryTimeout
}

// NextProvider advances the rotating index and returns the next live
// upstream URL, skipping backends whose retry cooldown has not yet
// elapsed. Returns ("", false) if every backend is inactive.
func (g *Group) NextProvider() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := len(g.backends)
	if n == 0 {
		return "", false
	}

	now := time.Now()
	for i := 0; i < n; i++ {
		idx := (g.next + i) % n
		b := g.backends[idx]
		if g.isActive(b, now) {
			g.next = (idx + 1) % n
			return b.url, true
		}
	}
	return "", false
}

// SetInactive stamps the named backend as inactive as of now.
func (g *Group) SetInactive(url string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, b := range g.backends {
		if b.url == url {
			b.isInactive = true
			b.inactiveSince = time.Now()
			return
		}
	}
}

// SetActive clears the inactive marker for the named backend.
func (g *Group) SetActive(url string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, b := range g.backends {
		if b.url == url {
			b.isInactive = false
			b.inactiveSince = time.Time{}
			return
		}
	}
}
