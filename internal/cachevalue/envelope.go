// Package cachevalue implements the reorg-aware cache envelope and its
// write-back policy (spec.md §4.1): a timestamped wrapper around a cached
// JSON result whose reorg-sensitive TTL grows exponentially when the
// underlying value is observed stable across an expiry.
package cachevalue

import (
	"encoding/json"
	"time"
)

// Envelope is the (data, reorg_ttl, ttl, last_modified) tuple persisted per
// cache key, per spec.md §3.
type Envelope struct {
	Data         json.RawMessage `json:"data"`
	ReorgTTL     int64           `json:"reorg_ttl"`
	TTL          int64           `json:"ttl"`
	LastModified int64           `json:"last_modified"`
}

// nowFunc is overridable in tests.
var nowFunc = func() time.Time { return time.Now() }

// New constructs an Envelope, stamping last_modified to now and clamping
// reorg_ttl to at least one second so that exponential growth is meaningful.
func New(data json.RawMessage, reorgTTL, ttl int64) *Envelope {
	if reorgTTL < 1 {
		reorgTTL = 1
	}
	return &Envelope{
		Data:         data,
		ReorgTTL:     reorgTTL,
		TTL:          ttl,
		LastModified: nowFunc().Unix(),
	}
}

// EffectiveTTL returns min(reorg_ttl, ttl) when both are positive; if one is
// zero the other wins; if both are zero the entry is permanently expired.
func (e *Envelope) EffectiveTTL() int64 {
	switch {
	case e.ReorgTTL > 0 && e.TTL > 0:
		if e.ReorgTTL < e.TTL {
			return e.ReorgTTL
		}
		return e.TTL
	case e.ReorgTTL > 0:
		return e.ReorgTTL
	case e.TTL > 0:
		return e.TTL
	default:
		return 0
	}
}

// IsFresh reports whether the envelope is still within its effective TTL.
// A permanently-expired entry (both TTLs zero) is never fresh; clock skew
// (a last_modified in the future) also forces expiration.
func (e *Envelope) IsFresh(now time.Time) bool {
	effective := e.EffectiveTTL()
	if effective <= 0 {
		return false
	}
	nowUnix := now.Unix()
	if e.LastModified > nowUnix {
		return false
	}
	return nowUnix-e.LastModified <= effective
}

// ApplyWriteBackPolicy mutates fresh in place to apply spec.md §4.1's
// write-back policy, given the backend's configured baseline reorg_ttl and
// an optional previously-expired envelope for the same key.
//
//   - No prior value (true miss): reorg_ttl resets to baseline, last_modified
//     is stamped to now.
//   - Prior value present and data differs: chain state moved, reorg_ttl
//     resets to baseline.
//   - Prior value present and data is identical: the value was stable across
//     an expiry. If the elapsed time since the prior's last_modified exceeds
//     the prior's reorg_ttl, double it; otherwise reset to baseline.
func ApplyWriteBackPolicy(fresh *Envelope, baselineReorgTTL int64, prior *Envelope) {
	if baselineReorgTTL < 1 {
		baselineReorgTTL = 1
	}
	now := nowFunc()
	fresh.LastModified = now.Unix()

	if prior == nil {
		fresh.ReorgTTL = baselineReorgTTL
		return
	}

	if !dataEqual(fresh.Data, prior.Data) {
		fresh.ReorgTTL = baselineReorgTTL
		return
	}

	elapsed := now.Unix() - prior.LastModified
	if elapsed > prior.ReorgTTL {
		fresh.ReorgTTL = prior.ReorgTTL * 2
	} else {
		fresh.ReorgTTL = baselineReorgTTL
	}
}

// dataEqual compares two raw JSON payloads byte-for-byte. The upstream
// result is stored verbatim with no normalization (spec.md §3), so a
// straight byte comparison is the correct equality test here.
func dataEqual(a, b json.RawMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
