package controlplane

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/codebridgehq/codebridge/internal/ids"
	"github.com/codebridgehq/codebridge/internal/peerconn"
	"github.com/codebridgehq/codebridge/internal/registry"
	"github.com/codebridgehq/codebridge/internal/taskqueue"
	"github.com/codebridgehq/codebridge/internal/wire"
)

func firstOrEmpty(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// handlePeerConnection accepts one browser or extension peer connection
// (spec.md §6 "Connection URL"): token and origin are validated before the
// websocket upgrade, then the connection is handed to a typed read loop
// keyed by whether the first frame is an extension handshake or the
// connection is a bare browser tab.
func (b *Bridge) handlePeerConnection(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("token") != b.cfg.Token {
		b.rejectUpgrade(w, r, peerconn.CloseRejectedCredential, "invalid token")
		return
	}
	if !b.originAllowed(r.Header.Get("Origin")) {
		b.rejectUpgrade(w, r, peerconn.CloseRejectedOrigin, "rejected origin")
		return
	}

	addr := sourceAddr(r)
	if !b.limiter.Allow(addr) {
		b.rejectUpgrade(w, r, peerconn.CloseRateLimited, "rate limited")
		return
	}

	// Origin is already validated above; coder/websocket's own same-origin
	// check is bypassed since it has no notion of the extension/loopback
	// allow-list this bridge applies.
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		b.log.Warn().Err(err).Str("addr", addr).Msg("peer: websocket upgrade failed")
		return
	}
	conn := peerconn.New(ws)

	if rawTabID, hasTabID := r.URL.Query()["tabId"]; hasTabID {
		tabID := ids.NormalizeTabID(firstOrEmpty(rawTabID))
		b.runBrowser(r, conn, tabID)
		return
	}
	b.runExtension(r, conn)
}

// originAllowed implements spec.md §6's origin allow-list: exact match
// against cfg.AllowedOrigins, a localhost loopback policy, and a fixed
// extension-origin scheme; a missing Origin header is allowed only in
// debug mode.
func (b *Bridge) originAllowed(origin string) bool {
	if origin == "" {
		return b.cfg.Debug
	}
	if strings.HasPrefix(origin, "chrome-extension://") || strings.HasPrefix(origin, "moz-extension://") {
		return true
	}
	for _, allowed := range b.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	host := strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	host = strings.SplitN(host, "/", 2)[0]
	hostOnly, _, splitErr := net.SplitHostPort(host)
	if splitErr != nil {
		hostOnly = host
	}
	return hostOnly == "localhost" || hostOnly == "127.0.0.1" || hostOnly == "::1"
}

func (b *Bridge) rejectUpgrade(w http.ResponseWriter, r *http.Request, code peerconn.CloseCode, reason string) {
	b.log.Warn().Str("addr", sourceAddr(r)).Str("reason", reason).Msg("peer: rejected")
	// The upgrade is completed only so the rejection can carry its
	// application close code; coder/websocket's same-origin check is bypassed
	// so that a peer rejected for its origin still receives that code.
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		http.Error(w, reason, http.StatusForbidden)
		return
	}
	_ = ws.Close(websocket.StatusCode(code), reason)
}

func sourceAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// runBrowser registers a browser session for tabID and drives its read
// loop until it disconnects (spec.md §6 typed-frame table).
func (b *Bridge) runBrowser(r *http.Request, conn *peerconn.Conn, tabID string) {
	sess := b.registry.RegisterBrowser(tabID, conn)
	b.log.Info().Str("tabId", tabID).Msg("peer: browser connected")

	defer func() {
		b.registry.RemoveBrowser(tabID, sess)
		b.disp.DisconnectTarget(tabID)
		b.log.Info().Str("tabId", tabID).Msg("peer: browser disconnected")
	}()

	for {
		raw, err := readRawFrame(conn)
		if err != nil {
			return
		}
		b.handlePeerFrame(sess, raw)
	}
}

// runExtension requires a handshake as the first frame before the session
// is installed in the registry (spec.md §3 invariant: unauthenticated
// peers may only send a handshake frame).
func (b *Bridge) runExtension(r *http.Request, conn *peerconn.Conn) {
	var hs wire.Handshake
	if err := conn.ReadJSON(&hs); err != nil || hs.Type != wire.TypeHandshake || hs.ClientID == "" {
		_ = conn.Close(peerconn.CloseHandshakeRequired, "handshake required")
		return
	}
	if r.URL.Query().Get("token") != "" && hs.PairingToken != r.URL.Query().Get("token") && hs.PairingToken != b.cfg.Token {
		_ = conn.Close(peerconn.CloseRejectedCredential, "invalid pairing token")
		return
	}

	caps := make([]string, 0, len(hs.Capabilities))
	for _, c := range hs.Capabilities {
		caps = append(caps, c.Name)
	}
	sess := b.registry.RegisterExtension(hs.ClientID, caps, conn)
	sess.SetState(registry.StateAuthenticated)
	_ = conn.WriteJSON(wire.HandshakeAck{Type: wire.TypeHandshakeAck, OK: true})
	b.log.Info().Str("clientId", hs.ClientID).Strs("capabilities", caps).Msg("peer: extension connected")

	defer func() {
		b.registry.RemoveExtension(hs.ClientID, sess)
		b.disp.DisconnectTarget(hs.ClientID)
		b.log.Info().Str("clientId", hs.ClientID).Msg("peer: extension disconnected")
	}()

	for {
		raw, err := readRawFrame(conn)
		if err != nil {
			return
		}
		b.handlePeerFrame(sess, raw)
	}
}

func readRawFrame(conn *peerconn.Conn) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// handlePeerFrame classifies an inbound peer frame by its envelope: a
// "type"-less frame is a reply to a bridge-issued forward; otherwise the
// discriminator selects a typed handler (spec.md §6).
func (b *Bridge) handlePeerFrame(sess *registry.Session, raw json.RawMessage) {
	var env wire.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		b.log.Warn().Err(err).Msg("peer: dropped unparsable frame")
		return
	}

	if env.Type == "" && len(env.ID) > 0 {
		b.handleForwardReply(raw)
		return
	}

	switch env.Type {
	case wire.TypePing:
		b.hb.OnKeepAlive(sess)
		_ = sess.Conn().WriteJSON(wire.Pong{Type: wire.TypePong})
	case wire.TypePong:
		b.hb.OnKeepAlive(sess)
	case wire.TypeTaskSubmit:
		b.handleTaskSubmit(sess, raw)
	case wire.TypeTaskAcknowledge:
		b.handleTaskAcknowledge(raw)
	case wire.TypeTBMessage:
		b.handleTBMessage(raw)
	case wire.TypeGetCCCapabilities:
		b.handleGetCCCapabilities(sess)
	case wire.TypeCCActionRequest:
		b.handleCCActionRequestFrame(sess, raw)
	case wire.TypeOpenFile:
		b.handleOpenFileFrame(sess, raw)
	default:
		b.log.Debug().Str("type", env.Type).Msg("peer: unhandled frame type")
	}
}

func (b *Bridge) handleForwardReply(raw json.RawMessage) {
	var reply wire.Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		b.log.Warn().Err(err).Msg("peer: dropped unparsable reply")
		return
	}
	var id string
	_ = json.Unmarshal(reply.ID, &id)
	if !b.disp.DeliverReply(id, reply.Result, reply.Error) {
		b.log.Debug().Str("id", id).Msg("peer: orphan reply")
	}
}

type taskSubmitFrame struct {
	Type                  string   `json:"type"`
	AgentID               string   `json:"agentId"`
	Prompt                string   `json:"prompt"`
	RequestedCapabilities []string `json:"requestedCapabilities"`
}

func (b *Bridge) handleTaskSubmit(sess *registry.Session, raw json.RawMessage) {
	var frame taskSubmitFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}
	t, position := b.tasks.Submit(sess.TabID, frame.AgentID, frame.Prompt, frame.RequestedCapabilities)
	_ = sess.Conn().WriteJSON(map[string]any{
		"type":     wire.TypeTaskSubmitted,
		"taskId":   t.ID,
		"position": position,
	})
}

type taskAcknowledgeFrame struct {
	TaskID      string `json:"taskId"`
	Action      string `json:"action"`
	SelectedOps []int  `json:"selectedOps"`
}

func (b *Bridge) handleTaskAcknowledge(raw json.RawMessage) {
	var frame taskAcknowledgeFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}
	b.tasks.Acknowledge(frame.TaskID, taskqueue.AckAction(frame.Action), frame.SelectedOps)
}

type tbMessageFrame struct {
	Payload string `json:"payload"`
	Context any    `json:"context"`
}

func (b *Bridge) handleTBMessage(raw json.RawMessage) {
	var frame tbMessageFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}
	b.dm.Receive(frame.Payload, frame.Context)
}

func (b *Bridge) handleGetCCCapabilities(sess *registry.Session) {
	families := b.caps.WithAvailability(context.Background())
	_ = sess.Conn().WriteJSON(map[string]any{
		"type":     wire.TypeGetCCCapabilities,
		"families": families,
	})
}

type ccActionRequestFrame struct {
	Action string         `json:"action"`
	Args   map[string]any `json:"args"`
}

func (b *Bridge) handleCCActionRequestFrame(sess *registry.Session, raw json.RawMessage) {
	var frame ccActionRequestFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}
	_, action, ok := b.caps.ActionByName(frame.Action)
	if !ok {
		_ = sess.Conn().WriteJSON(map[string]any{"type": wire.TypeCCActionRequest, "ok": false, "error": "unknown action"})
		return
	}
	t, position := b.tasks.Submit(sess.TabID, "assistant", action.Description, nil)
	_ = sess.Conn().WriteJSON(map[string]any{
		"type":     wire.TypeCCActionRequest,
		"ok":       true,
		"taskId":   t.ID,
		"position": position,
	})
}

type openFileFrame struct {
	Path string `json:"path"`
}

func (b *Bridge) handleOpenFileFrame(sess *registry.Session, raw json.RawMessage) {
	var frame openFileFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}
	err := b.openerProvider.Open(context.Background(), frame.Path)
	resp := map[string]any{"type": wire.TypeOpenFile, "ok": err == nil}
	if err != nil {
		resp["error"] = err.Error()
	}
	_ = sess.Conn().WriteJSON(resp)
}
