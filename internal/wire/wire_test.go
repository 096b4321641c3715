package wire

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeDiscriminatesForwardReplyFromTypedFrame(t *testing.T) {
	reply := []byte(`{"id":"abc","result":{"ok":true}}`)
	var env Envelope
	if err := json.Unmarshal(reply, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != "" || len(env.ID) == 0 {
		t.Fatalf("expected a reply frame to have no type and a present id, got %+v", env)
	}

	typed := []byte(`{"type":"ping"}`)
	var typedEnv Envelope
	if err := json.Unmarshal(typed, &typedEnv); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if typedEnv.Type != TypePing || len(typedEnv.ID) != 0 {
		t.Fatalf("expected a typed frame to carry type and no id, got %+v", typedEnv)
	}
}

func TestForwardRoundTripsIDMethodParams(t *testing.T) {
	idRaw, _ := json.Marshal("correlation-1")
	f := Forward{ID: idRaw, Method: "get_tree", Params: json.RawMessage(`{"tab_id":"tab-1"}`)}
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Forward
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var id string
	if err := json.Unmarshal(got.ID, &id); err != nil || id != "correlation-1" {
		t.Fatalf("expected id to round-trip, got %s (err=%v)", got.ID, err)
	}
	if got.Method != "get_tree" {
		t.Fatalf("expected method to round-trip, got %s", got.Method)
	}
}

func TestReplyErrorOmittedOnSuccess(t *testing.T) {
	r := Reply{ID: json.RawMessage(`"abc"`), Result: json.RawMessage(`{"ok":true}`)}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := m["error"]; present {
		t.Fatalf("expected error field to be omitted on a successful reply, got %v", m)
	}
}
