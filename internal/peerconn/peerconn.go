// Package peerconn wraps a single bidirectional framed message channel to a
// browser tab or extension, grounded on the teacher's unexercised direct
// dependency github.com/coder/websocket and on the read/write-loop shape of
// pkg/codexrpc.Client (one reader goroutine, one writer goroutine, a
// cancellation signal that wakes both).
package peerconn

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/coder/websocket"
)

// CloseCode carries the application meaning assigned in spec.md §4.A/§6.
type CloseCode int

const (
	CloseRejectedOrigin     CloseCode = 4001
	CloseRejectedCredential CloseCode = 4002
	CloseHandshakeRequired  CloseCode = 4003
	CloseRateLimited        CloseCode = 4004
	CloseNormal             CloseCode = 1000
	CloseShutdown           CloseCode = 1001
)

// ErrClosed is returned by Read/Write after Close has been called.
var ErrClosed = errors.New("peerconn: connection closed")

// Conn is a single accepted peer connection. It owns exactly one
// *websocket.Conn; all blocking reads and writes are paired with ctx
// cancellation so that Close wakes any in-flight operation.
type Conn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	ctx    context.Context
}

// New wraps an already-accepted websocket connection.
func New(ws *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{ws: ws, ctx: ctx, cancel: cancel}
}

// ReadJSON blocks for the next frame and decodes it as a JSON object.
func (c *Conn) ReadJSON(out any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	ctx := c.ctx
	c.mu.Unlock()

	_, data, err := c.ws.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// WriteJSON marshals v and sends it as one text frame. Safe to call
// concurrently with ReadJSON; the underlying *websocket.Conn serializes
// concurrent writers internally. registry.Session exposes this Conn directly
// and adds no per-peer writer of its own.
func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	ctx := c.ctx
	c.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// Close terminates the connection with the given application close code and
// wakes any blocked Read/Write. Idempotent.
func (c *Conn) Close(code CloseCode, reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancel()
	c.mu.Unlock()
	return c.ws.Close(websocket.StatusCode(code), reason)
}
