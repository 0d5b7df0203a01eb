// Package jsonrpc implements the wire types for JSON-RPC 2.0 requests and
// responses, including the string-or-uint64 request id union used by
// Ethereum-family nodes.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes per the JSON-RPC 2.0 spec, as used throughout the proxy.
const (
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// ID is a JSON-RPC request identifier: either a JSON string or an unsigned
// 64-bit number. The zero value is "absent" (IsSet returns false), matching
// JSON-RPC notifications.
type ID struct {
	str   string
	num   uint64
	isStr bool
	isNum bool
}

// NewStringID builds a string-valued id.
func NewStringID(s string) ID { return ID{str: s, isStr: true} }

// NewNumberID builds a numeric id.
func NewNumberID(n uint64) ID { return ID{num: n, isNum: true} }

// IsSet reports whether the id carries a value (string or number).
func (id ID) IsSet() bool { return id.isStr || id.isNum }

// Equal compares ids by both kind and value, per spec.md §3.
func (id ID) Equal(other ID) bool {
	if id.isStr != other.isStr || id.isNum != other.isNum {
		return false
	}
	if id.isStr {
		return id.str == other.str
	}
	if id.isNum {
		return id.num == other.num
	}
	return true
}

func (id ID) String() string {
	if id.isStr {
		return id.str
	}
	if id.isNum {
		return fmt.Sprintf("%d", id.num)
	}
	return "<absent>"
}

// MarshalJSON round-trips the id in its original representation.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isStr {
		return json.Marshal(id.str)
	}
	if id.isNum {
		return json.Marshal(id.num)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || len(trimmed) == 0 {
		*id = ID{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = ID{str: s, isStr: true}
		return nil
	}
	var n uint64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("jsonrpc: id neither string nor unsigned integer: %w", err)
	}
	*id = ID{num: n, isNum: true}
	return nil
}

// Request is a single JSON-RPC 2.0 request object.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewError builds an *Error with the standard message for the given code.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorWithData builds an *Error carrying a structured data payload.
func NewErrorWithData(code int, message string, data any) *Error {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = nil
	}
	return &Error{Code: code, Message: message, Data: raw}
}

var (
	// ErrInvalidRequest is the sentinel for malformed batch/request shape.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrMethodNotFound is the sentinel for a method outside the allowed prefixes.
	ErrMethodNotFound = errors.New("method not found")
	// ErrInvalidParams is the sentinel for a handler arity/shape violation.
	ErrInvalidParams = errors.New("invalid params")
)

// Response is a single JSON-RPC 2.0 response object. Result and Error are
// mutually exclusive; exactly one is set on a constructed Response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewResultResponse builds a success response carrying the raw result.
func NewResultResponse(id ID, result json.RawMessage) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id ID, err *Error) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: err}
}

// StandardError builds a Response carrying one of the well-known JSON-RPC
// error codes, per spec.md §7.
func StandardError(id ID, code int, message string) *Response {
	return NewErrorResponse(id, NewError(code, message))
}

// InternalErrorWithReason builds an InternalError response with a
// structured data payload of {"error": "internal_error", "reason": reason},
// per spec.md §7.
func InternalErrorWithReason(id ID, reason string) *Response {
	return NewErrorResponse(id, NewErrorWithData(CodeInternalError, "internal error", map[string]string{
		"error":  "internal_error",
		"reason": reason,
	}))
}
