// Package rpchandler implements the method handler registry (C3): a fixed,
// process-wide table of per-method cache-key derivation and cacheability
// rules, plus the canonicalization helpers shared by every handler.
package rpchandler

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"stormlightlabs.org/cachedrpc/internal/jsonrpc"
)

// ParamsSpec declares the arity a handler requires from its params array.
type ParamsSpec struct {
	min      int
	exact    bool
	required int
}

// Exact requires the params array to have exactly n elements.
func Exact(n int) ParamsSpec { return ParamsSpec{required: n, exact: true} }

// AtLeast requires the params array to have at least n elements.
func AtLeast(n int) ParamsSpec { return ParamsSpec{min: n} }

// Check validates params against the spec, returning jsonrpc.ErrInvalidParams
// wrapped with detail on violation.
func (s ParamsSpec) Check(params []json.RawMessage) error {
	if s.exact && len(params) != s.required {
		return fmt.Errorf("%w: expected exactly %d params, got %d", jsonrpc.ErrInvalidParams, s.required, len(params))
	}
	if !s.exact && len(params) < s.min {
		return fmt.Errorf("%w: expected at least %d params, got %d", jsonrpc.ErrInvalidParams, s.min, len(params))
	}
	return nil
}

// DecodeParams unmarshals a JSON-RPC params value (always a JSON array for
// the methods this proxy supports) into a slice of raw elements.
func DecodeParams(params json.RawMessage) ([]json.RawMessage, error) {
	if len(params) == 0 {
		return nil, nil
	}
	var out []json.RawMessage
	if err := json.Unmarshal(params, &out); err != nil {
		return nil, fmt.Errorf("%w: params is not an array: %v", jsonrpc.ErrInvalidParams, err)
	}
	return out, nil
}

var symbolicBlockTags = map[string]bool{
	"earliest":  true,
	"latest":    true,
	"pending":   true,
	"safe":      true,
	"finalized": true,
}

// rawString unwraps a JSON string element, stripping quotes.
func rawString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %v", jsonrpc.ErrInvalidParams, err)
	}
	return s, nil
}

// CanonicalBlockTag canonicalizes a block tag element per spec.md §4.3:
//
//   - a symbolic tag (earliest|latest|pending|safe|finalized) is never
//     cacheable: ok is false, err is nil.
//   - a 0x-prefixed hex number is normalized to "0x{lowercase-hex}" with no
//     leading zeros.
//   - a 66-character hex block hash is normalized to "0x{lowercase-hex}".
func CanonicalBlockTag(raw json.RawMessage) (tag string, ok bool, err error) {
	s, err := rawString(raw)
	if err != nil {
		return "", false, err
	}
	return canonicalBlockTagString(s)
}

func canonicalBlockTagString(s string) (string, bool, error) {
	lower := strings.ToLower(s)
	if symbolicBlockTags[lower] {
		return "", false, nil
	}
	if !strings.HasPrefix(lower, "0x") {
		return "", false, fmt.Errorf("%w: malformed block tag %q", jsonrpc.ErrInvalidParams, s)
	}
	if len(lower) == 66 {
		// 0x + 64 hex chars: a block hash.
		b, err := hex.DecodeString(lower[2:])
		if err != nil || len(b) != 32 {
			return "", false, fmt.Errorf("%w: malformed block hash %q", jsonrpc.ErrInvalidParams, s)
		}
		return "0x" + hex.EncodeToString(b), true, nil
	}
	n, err := strconv.ParseUint(lower[2:], 16, 64)
	if err != nil {
		return "", false, fmt.Errorf("%w: malformed block number %q", jsonrpc.ErrInvalidParams, s)
	}
	return fmt.Sprintf("0x%x", n), true, nil
}

// CanonicalHash normalizes a 66-character 0x-prefixed hash (transaction
// hash, block hash) to "0x{lowercase-hex}".
func CanonicalHash(raw json.RawMessage) (string, error) {
	s, err := rawString(raw)
	if err != nil {
		return "", err
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "0x") || len(lower) != 66 {
		return "", fmt.Errorf("%w: malformed hash %q", jsonrpc.ErrInvalidParams, s)
	}
	b, err := hex.DecodeString(lower[2:])
	if err != nil || len(b) != 32 {
		return "", fmt.Errorf("%w: malformed hash %q", jsonrpc.ErrInvalidParams, s)
	}
	return "0x" + hex.EncodeToString(b), nil
}

// CanonicalAddress normalizes a 20-byte address to "0x{lowercase-hex}",
// discarding EIP-55 checksum casing so that case variants collapse to one
// cache key.
func CanonicalAddress(raw json.RawMessage) (string, error) {
	s, err := rawString(raw)
	if err != nil {
		return "", err
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "0x") || len(lower) != 42 {
		return "", fmt.Errorf("%w: malformed address %q", jsonrpc.ErrInvalidParams, s)
	}
	b, err := hex.DecodeString(lower[2:])
	if err != nil || len(b) != 20 {
		return "", fmt.Errorf("%w: malformed address %q", jsonrpc.ErrInvalidParams, s)
	}
	return "0x" + hex.EncodeToString(b), nil
}

// CanonicalInteger accepts either a JSON number or a 0x-prefixed hex string
// and normalizes it to a decimal string, for count/index positions.
func CanonicalInteger(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) == 0 {
		return "", fmt.Errorf("%w: empty integer", jsonrpc.ErrInvalidParams)
	}
	if trimmed[0] == '"' {
		s, err := rawString(raw)
		if err != nil {
			return "", err
		}
		lower := strings.ToLower(s)
		if strings.HasPrefix(lower, "0x") {
			n, err := strconv.ParseUint(lower[2:], 16, 64)
			if err != nil {
				return "", fmt.Errorf("%w: malformed hex integer %q", jsonrpc.ErrInvalidParams, s)
			}
			return strconv.FormatUint(n, 10), nil
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: malformed integer %q", jsonrpc.ErrInvalidParams, s)
		}
		return strconv.FormatUint(n, 10), nil
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%w: malformed integer %s", jsonrpc.ErrInvalidParams, trimmed)
	}
	return strconv.FormatUint(n, 10), nil
}

// HashJSON serializes an opaque JSON value (filter objects, call objects,
// tracer configs, state overrides) as received and SHA-1 hashes it,
// emitting 40 lowercase hex characters. Hashing avoids pathological key
// length; collisions on SHA-1 are acceptable given the domain (spec.md
// §4.3).
func HashJSON(raw json.RawMessage) string {
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:])
}

// OptionalBool unmarshals a params element as a bool, returning false and
// present=false if the element is absent.
func OptionalBool(params []json.RawMessage, idx int) (value bool, present bool, err error) {
	if idx >= len(params) {
		return false, false, nil
	}
	if err := json.Unmarshal(params[idx], &value); err != nil {
		return false, false, fmt.Errorf("%w: param %d is not a bool", jsonrpc.ErrInvalidParams, idx)
	}
	return value, true, nil
}
