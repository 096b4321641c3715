// Package wire defines the JSON frame shapes exchanged with browser and
// extension peers (spec.md §6 "Peer wire format"). Frames are typed by a
// top-level "type" discriminator; RPC-shaped replies to bridge-issued
// forwards additionally carry "id"/"result"/"error" and are decoded
// separately by the dispatcher (they have no "type" field).
package wire

import "encoding/json"

// Envelope is the minimal shape every inbound peer frame is first decoded
// into, to read the discriminator before dispatching to a typed payload.
type Envelope struct {
	Type   string          `json:"type,omitempty"`
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
}

// Inbound frame type discriminators (spec.md §6).
const (
	TypeHandshake         = "handshake"
	TypePing              = "ping"
	TypeResponse          = "response"
	TypeManualCapture     = "manual_capture"
	TypeTaskSubmit        = "task.submit"
	TypeTaskAcknowledge   = "task.acknowledge"
	TypeTBMessage         = "tb_message"
	TypeGetCCCapabilities = "get_cc_capabilities"
	TypeCCActionRequest   = "cc_action_request"
	TypeOpenFile          = "open_file"
	TypeGmailRequest      = "gmail_request"
	TypeExtensionRequest  = "extension_request"
)

// Outbound / broadcast frame type discriminators.
const (
	TypeHandshakeAck          = "handshake_ack"
	TypePong                  = "pong"
	TypeTaskSubmitted         = "task.submitted"
	TypeTaskQueued            = "task_queued"
	TypeTaskClaimed           = "task_claimed"
	TypeTaskProgress          = "task_progress"
	TypeTaskCompleted         = "task_completed"
	TypePeerDisconnected      = "peer_disconnected"
	TypeExtensionDisconnected = "extension_disconnected"
)

// Handshake is the first frame an extension must send (spec.md §6).
type Handshake struct {
	Type         string                 `json:"type"`
	ClientType   string                 `json:"clientType"`
	ClientID     string                 `json:"clientId"`
	PairingToken string                 `json:"pairingToken"`
	Capabilities []CapabilityDescriptor `json:"capabilities"`
}

// CapabilityDescriptor as declared by an extension during handshake.
type CapabilityDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// BrowserHandshake is the connection query string for a browser tab
// (spec.md §6 "Connection URL"): token and tabId arrive as query
// parameters, not as a frame, so there is no dedicated struct for the
// frame itself — browsers go straight to authenticated state once the URL
// validates.
type BrowserHandshake struct {
	TabID string
}

// HandshakeAck is sent back to an extension once its handshake succeeds.
type HandshakeAck struct {
	Type string `json:"type"`
	OK   bool   `json:"ok"`
}

// Ping/Pong are the low-level keep-alive frames (spec.md §4.D).
type Ping struct {
	Type string `json:"type"`
}

type Pong struct {
	Type string `json:"type"`
}

// PeerDisconnected is broadcast to connected browsers when the heartbeat
// sweep reaps a stale peer (spec.md §8 scenario 6).
type PeerDisconnected struct {
	Type     string `json:"type"`
	TabID    string `json:"tabId,omitempty"`
	ClientID string `json:"clientId,omitempty"`
	Reason   string `json:"reason"`
}

// Forward is the shape of a request the bridge sends to a chosen peer for
// execution (spec.md §8 scenario 1): it reuses the bridge's own internal
// correlation id as "id" so the peer's reply can be matched back.
type Forward struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Reply is a peer's JSON-RPC-shaped response to a Forward.
type Reply struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ReplyError     `json:"error,omitempty"`
}

type ReplyError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
