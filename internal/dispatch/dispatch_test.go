package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codebridgehq/codebridge/internal/correlate"
	"github.com/codebridgehq/codebridge/internal/peerconn"
	"github.com/codebridgehq/codebridge/internal/registry"
	"github.com/codebridgehq/codebridge/internal/rpcerrors"
	"github.com/codebridgehq/codebridge/internal/toolcatalog"
	"github.com/codebridgehq/codebridge/internal/wire"
)

// newLoopbackConn pairs a real *peerconn.Conn (server side) with the raw
// client-side *websocket.Conn a test can read forwarded frames from and
// write replies back over.
func newLoopbackConn(t *testing.T) (*peerconn.Conn, *websocket.Conn, func()) {
	t.Helper()
	serverCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		serverCh <- ws
		<-r.Context().Done()
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clientWS, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	var serverWS *websocket.Conn
	select {
	case serverWS = <-serverCh:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for accept")
	}

	cleanup := func() {
		_ = clientWS.Close(websocket.StatusNormalClosure, "")
		srv.Close()
	}
	return peerconn.New(serverWS), clientWS, cleanup
}

func readForward(t *testing.T, client *websocket.Conn) wire.Forward {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := client.Read(ctx)
	if err != nil {
		t.Fatalf("read forward frame: %v", err)
	}
	var frame wire.Forward
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal forward frame: %v", err)
	}
	return frame
}

func browserCatalog(deadline time.Duration) *toolcatalog.Catalog {
	return toolcatalog.New([]toolcatalog.Definition{
		{Tool: mcp.Tool{Name: "get_tree"}, RoutingClass: toolcatalog.RoutingForwardBrowser, Deadline: deadline},
		{Tool: mcp.Tool{Name: "ext_capture_screen"}, RoutingClass: toolcatalog.RoutingForwardExt, Deadline: deadline},
	})
}

func TestCallForwardsToBrowserAndDeliversReply(t *testing.T) {
	reg := registry.New()
	conn, client, cleanup := newLoopbackConn(t)
	defer cleanup()
	reg.RegisterBrowser("tab-1", conn)

	d := New(browserCatalog(0), reg, correlate.New())

	type out struct {
		result json.RawMessage
		err    *rpcerrors.Error
	}
	resCh := make(chan out, 1)
	go func() {
		r, e := d.Call(context.Background(), "get_tree", json.RawMessage(`{"tab_id":"tab-1"}`))
		resCh <- out{r, e}
	}()

	frame := readForward(t, client)
	if frame.Method != "get_tree" {
		t.Fatalf("expected forwarded method get_tree, got %s", frame.Method)
	}
	var id string
	if err := json.Unmarshal(frame.ID, &id); err != nil {
		t.Fatalf("unmarshal forward id: %v", err)
	}

	if !d.DeliverReply(id, json.RawMessage(`{"ok":true}`), nil) {
		t.Fatalf("expected DeliverReply to find the pending forward")
	}

	select {
	case got := <-resCh:
		if got.err != nil {
			t.Fatalf("unexpected error: %v", got.err)
		}
		if string(got.result) != `{"ok":true}` {
			t.Fatalf("unexpected result: %s", got.result)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Call did not return after DeliverReply")
	}
}

func TestCallTimesOutWhenNoReplyArrives(t *testing.T) {
	reg := registry.New()
	conn, _, cleanup := newLoopbackConn(t)
	defer cleanup()
	reg.RegisterBrowser("tab-1", conn)

	d := New(browserCatalog(20*time.Millisecond), reg, correlate.New())

	_, err := d.Call(context.Background(), "get_tree", json.RawMessage(`{}`))
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
	if !strings.Contains(err.Message, "timed out after 20ms") {
		t.Fatalf("unexpected error message: %s", err.Message)
	}
}

func TestCallReturnsRoutingErrorWhenNoBrowserConnected(t *testing.T) {
	reg := registry.New()
	d := New(browserCatalog(0), reg, correlate.New())

	_, err := d.Call(context.Background(), "get_tree", json.RawMessage(`{}`))
	if err == nil || err.Message != "No browser connected" {
		t.Fatalf("expected 'No browser connected' routing error, got %v", err)
	}
}

func TestDisconnectTargetCancelsPendingForwardsWithPeerDisconnectedError(t *testing.T) {
	reg := registry.New()
	conn, _, cleanup := newLoopbackConn(t)
	defer cleanup()
	reg.RegisterBrowser("tab-1", conn)

	d := New(browserCatalog(2*time.Second), reg, correlate.New())

	type out struct {
		result json.RawMessage
		err    *rpcerrors.Error
	}
	resCh := make(chan out, 1)
	go func() {
		r, e := d.Call(context.Background(), "get_tree", json.RawMessage(`{"tab_id":"tab-1"}`))
		resCh <- out{r, e}
	}()

	// Give Call a moment to register the pending forward before disconnecting.
	time.Sleep(50 * time.Millisecond)
	d.DisconnectTarget("tab-1")

	select {
	case got := <-resCh:
		if got.err == nil || got.err.Message != "Peer disconnected" {
			t.Fatalf("expected Peer disconnected error, got %v", got.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Call did not return after DisconnectTarget")
	}
}

func TestCallAppliesScreenCaptureLimitOnExtensionForward(t *testing.T) {
	reg := registry.New()
	conn, client, cleanup := newLoopbackConn(t)
	defer cleanup()
	reg.RegisterExtension("ext-1", []string{"capture_screen"}, conn)

	d := New(browserCatalog(0), reg, correlate.New())

	resCh := make(chan json.RawMessage, 1)
	go func() {
		r, _ := d.Call(context.Background(), "ext_capture_screen", json.RawMessage(`{}`))
		resCh <- r
	}()

	frame := readForward(t, client)
	var id string
	_ = json.Unmarshal(frame.ID, &id)

	oversized := strings.Repeat("A", 20*1024)
	reply, _ := json.Marshal(map[string]string{"image": oversized, "mimeType": "image/png"})
	d.DeliverReply(id, reply, nil)

	select {
	case result := <-resCh:
		var descriptor map[string]any
		if err := json.Unmarshal(result, &descriptor); err != nil {
			t.Fatalf("unmarshal result: %v", err)
		}
		if descriptor["_compressed"] != true {
			t.Fatalf("expected the oversized capture to be rewritten, got %s", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Call did not return")
	}
}
