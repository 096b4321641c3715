package controlplane

import (
	"encoding/json"

	"github.com/codebridgehq/codebridge/internal/rpcerrors"
)

// contentPart is the tagged variant for one piece of a tools/call result
// (spec.md §9 "Polymorphic tool payloads" redesign note: a small tagged
// variant instead of an untyped {content:[{type,text}]} object, with the
// wire shape preserved).
type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// toolCallResult is the wire shape spec.md §6 requires for every
// tools/call response.
type toolCallResult struct {
	Content []contentPart `json:"content"`
}

// textResult wraps a JSON-encodable payload as the single text content
// part every tool response carries (spec.md §6: "text:<stringified-JSON>").
func textResult(payload any) (json.RawMessage, error) {
	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(toolCallResult{Content: []contentPart{{Type: "text", Text: string(text)}}})
}

// rawTextResult wraps an already-marshaled JSON payload (e.g. a peer's
// forwarded reply) without re-decoding it.
func rawTextResult(payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return json.Marshal(toolCallResult{Content: []contentPart{{Type: "text", Text: string(payload)}}})
}

// textOK and rawOK adapt textResult/rawTextResult's (result, error) shape
// to the LocalHandler return shape (result, *rpcerrors.Error); a local
// handler's own marshal failure is a bridge bug, reported as an
// application error rather than swallowed.
func textOK(payload any) (json.RawMessage, *rpcerrors.Error) {
	data, err := textResult(payload)
	if err != nil {
		return nil, rpcerrors.Routing("failed to marshal tool result: " + err.Error())
	}
	return data, nil
}

func rawOK(payload json.RawMessage) (json.RawMessage, *rpcerrors.Error) {
	data, err := rawTextResult(payload)
	if err != nil {
		return nil, rpcerrors.Routing("failed to marshal tool result: " + err.Error())
	}
	return data, nil
}
