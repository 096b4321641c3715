// Package rpcerrors defines the JSON-RPC error codes and the structured
// "successful result, failed payload" shape used by provider-absent and
// provider-failure responses. Modeled on the teacher's pkg/aierrors
// catalog of predefined error values, adapted from bridgev2.RespError to a
// bare JSON-RPC error shape since this bridge has no Matrix state store.
package rpcerrors

import (
	"encoding/json"
	"strconv"
)

// JSON-RPC 2.0 reserved/application error codes (spec.md §4.J "Failure
// semantics" and §6 "Assistant wire format").
const (
	CodeParseError     = -32700
	CodeUnknownMethod  = -32601
	CodeInvalidParams  = -32602
	CodeApplicationErr = -32000
)

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

func ParseError(detail string) *Error {
	return &Error{Code: CodeParseError, Message: "Parse error: " + detail}
}

func UnknownMethod(method string) *Error {
	return &Error{Code: CodeUnknownMethod, Message: "Unknown method: " + method}
}

func InvalidParams(missingField string) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid params: missing field " + missingField}
}

func Routing(reason string) *Error {
	return &Error{Code: CodeApplicationErr, Message: reason}
}

// Timeout builds a deadline-exceeded error. label is the full human
// subject of the message, e.g. "Operation get_tree" for a browser forward
// or "Extension capture_screen" for an extension forward — the two forms
// spec.md uses in its routing (§4.E) and timeout (§8) examples.
func Timeout(label string, deadlineMs int64) *Error {
	return &Error{Code: CodeApplicationErr, Message: label + " timed out after " + strconv.FormatInt(deadlineMs, 10) + "ms"}
}

// StructuredFailure is the "successful JSON-RPC result whose payload
// indicates failure" shape from spec.md §4.I/§7: used for provider-absent
// and provider-failure outcomes so the assistant sees actionable text
// instead of an RPC error.
type StructuredFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewStructuredFailure(errCode, message string) StructuredFailure {
	return StructuredFailure{Success: false, Error: errCode, Message: message}
}
