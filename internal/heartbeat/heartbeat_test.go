package heartbeat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/codebridgehq/codebridge/internal/peerconn"
	"github.com/codebridgehq/codebridge/internal/registry"
	"github.com/codebridgehq/codebridge/internal/wire"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...any) {}
func (nopLogger) Info(msg string, fields ...any)  {}
func (nopLogger) Warn(msg string, fields ...any)  {}
func (nopLogger) Error(msg string, fields ...any) {}

// newLoopbackConn returns a live *peerconn.Conn paired with a client-side
// connection the test can read from, so the supervisor's real
// Conn.WriteJSON/Close calls land on a genuine websocket.
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

func TestSweepClosesStaleBrowserAndBroadcastsDisconnect(t *testing.T) {
	reg := registry.New()

	staleConn, staleClient, cleanupStale := newLoopbackConn(t)
	defer cleanupStale()
	liveConn, liveClient, cleanupLive := newLoopbackConn(t)
	defer cleanupLive()

	staleSess := reg.RegisterBrowser("stale-tab", staleConn)
	reg.RegisterBrowser("live-tab", liveConn)

	sup := New(reg, Config{Cadence: time.Hour, StaleBudget: 10 * time.Millisecond}, nopLogger{})
	sup.now = func() time.Time { return time.Now() }

	staleSess.Touch(time.Now().Add(-time.Minute))

	sup.sweep()

	if _, ok := reg.Browser("stale-tab"); ok {
		t.Fatalf("expected the stale browser session to be reaped")
	}
	if _, ok := reg.Browser("live-tab"); !ok {
		t.Fatalf("expected the live browser session to remain registered")
	}

	// The stale client's connection should have been closed by the sweep.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, _, err := staleClient.Read(ctx); err == nil {
		t.Fatalf("expected the stale client's connection to be closed by the sweep")
	}

	// The live peer should instead receive a ping frame and the
	// peer_disconnected broadcast, not a close. The two arrive in either
	// order, since the sweep visits sessions in map order.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	sawPing, sawDisconnect := false, false
	for i := 0; i < 2; i++ {
		_, data, err := liveClient.Read(ctx2)
		if err != nil {
			t.Fatalf("expected the live peer to receive a ping and a disconnect broadcast, got error: %v", err)
		}
		switch {
		case strings.Contains(string(data), wire.TypePeerDisconnected):
			sawDisconnect = true
		case strings.Contains(string(data), wire.TypePing):
			sawPing = true
		}
	}
	if !sawPing {
		t.Fatalf("expected the live peer to receive a ping frame")
	}
	if !sawDisconnect {
		t.Fatalf("expected the live peer to receive a peer_disconnected broadcast")
	}
}

func TestOnKeepAliveRefreshesLastHeartbeat(t *testing.T) {
	reg := registry.New()
	conn, _, cleanup := newLoopbackConn(t)
	defer cleanup()
	sess := reg.RegisterBrowser("tab-1", conn)
	sess.Touch(time.Now().Add(-time.Hour))

	sup := New(reg, Config{}, nopLogger{})
	before := sess.LastHeartbeat()
	sup.OnKeepAlive(sess)
	if !sess.LastHeartbeat().After(before) {
		t.Fatalf("expected OnKeepAlive to refresh lastHeartbeat")
	}
}

func TestConfigWithDefaultsAppliesSpecDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.Cadence != 10*time.Second {
		t.Errorf("expected default cadence of 10s, got %s", cfg.Cadence)
	}
	if cfg.StaleBudget != 30*time.Second {
		t.Errorf("expected default stale budget of 30s, got %s", cfg.StaleBudget)
	}
}
