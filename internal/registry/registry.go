// Package registry is the connection registry (spec.md §2 component C,
// §3 "Peer session", §4.C): two independently-locked maps, browsers keyed
// by tabId and extensions keyed by clientId, each tracking the session's
// liveness and owning its framed channel.
package registry

import (
	"sync"
	"time"

	"github.com/codebridgehq/codebridge/internal/ids"
	"github.com/codebridgehq/codebridge/internal/peerconn"
)

// Kind distinguishes the two peer classes the bridge multiplexes.
type Kind string

const (
	KindBrowser   Kind = "browser"
	KindExtension Kind = "extension"
)

// State is the peer session's connection lifecycle state.
type State string

const (
	StateHandshaking   State = "handshaking"
	StateAuthenticated State = "authenticated"
	StateClosing       State = "closing"
)

// Session is one live peer connection (spec.md §3 "Peer session").
type Session struct {
	ID           string
	Kind         Kind
	TabID        string   // browsers only, defaults to "default"
	ClientID     string   // extensions only
	Capabilities []string // extensions only: declared action names

	mu            sync.Mutex
	state         State
	lastHeartbeat time.Time
	conn          *peerconn.Conn
}

func newSession(kind Kind, conn *peerconn.Conn) *Session {
	return &Session{
		ID:            ids.NewSessionID(),
		Kind:          kind,
		state:         StateHandshaking,
		lastHeartbeat: time.Now(),
		conn:          conn,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SetState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) LastHeartbeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeartbeat
}

func (s *Session) Touch(at time.Time) {
	s.mu.Lock()
	s.lastHeartbeat = at
	s.mu.Unlock()
}

func (s *Session) Conn() *peerconn.Conn { return s.conn }

// HasCapability reports whether the extension declared the given action.
func (s *Session) HasCapability(action string) bool {
	for _, a := range s.Capabilities {
		if a == action {
			return true
		}
	}
	return false
}

// Registry owns the two session indexes under independent locks, per
// spec.md §3's ownership rule ("the connection registry owns session
// descriptors by unique key").
type Registry struct {
	browserMu sync.RWMutex
	browsers  map[string]*Session // by tabId

	extMu sync.RWMutex
	exts  map[string]*Session // by clientId
}

func New() *Registry {
	return &Registry{
		browsers: make(map[string]*Session),
		exts:     make(map[string]*Session),
	}
}

// RegisterBrowser installs a new browser session for tabID. If a live
// session already occupies tabID it is closed with code 4003 before the
// new session replaces it (spec.md §4.C).
func (r *Registry) RegisterBrowser(tabID string, conn *peerconn.Conn) *Session {
	sess := newSession(KindBrowser, conn)
	sess.TabID = tabID

	r.browserMu.Lock()
	prior, had := r.browsers[tabID]
	r.browsers[tabID] = sess
	r.browserMu.Unlock()

	if had && prior != nil {
		_ = prior.Conn().Close(peerconn.CloseHandshakeRequired, "replaced by new session for this tab")
	}
	return sess
}

// RegisterExtension installs a new extension session for clientID, closing
// any prior live session for the same id first.
func (r *Registry) RegisterExtension(clientID string, capabilities []string, conn *peerconn.Conn) *Session {
	sess := newSession(KindExtension, conn)
	sess.ClientID = clientID
	sess.Capabilities = append([]string(nil), capabilities...)

	r.extMu.Lock()
	prior, had := r.exts[clientID]
	r.exts[clientID] = sess
	r.extMu.Unlock()

	if had && prior != nil {
		_ = prior.Conn().Close(peerconn.CloseHandshakeRequired, "replaced by new session for this client")
	}
	return sess
}

// RemoveBrowser deletes the tab's session if it is still the one given
// (idempotent under duplicate close events, per spec.md §4.C).
func (r *Registry) RemoveBrowser(tabID string, sess *Session) {
	r.browserMu.Lock()
	if cur, ok := r.browsers[tabID]; ok && cur == sess {
		delete(r.browsers, tabID)
	}
	r.browserMu.Unlock()
}

// RemoveExtension deletes the client's session if it is still the one given.
func (r *Registry) RemoveExtension(clientID string, sess *Session) {
	r.extMu.Lock()
	if cur, ok := r.exts[clientID]; ok && cur == sess {
		delete(r.exts, clientID)
	}
	r.extMu.Unlock()
}

// Browser looks up the session for an exact tab id.
func (r *Registry) Browser(tabID string) (*Session, bool) {
	r.browserMu.RLock()
	defer r.browserMu.RUnlock()
	s, ok := r.browsers[tabID]
	return s, ok
}

// AnyBrowser picks a deterministic browser session when no tabId is
// specified (spec.md §4.E "Tie-break rules"): the session with the lexically
// smallest tabId, so the same set of live browsers always yields the same
// pick.
func (r *Registry) AnyBrowser() (*Session, bool) {
	r.browserMu.RLock()
	defer r.browserMu.RUnlock()
	var pick *Session
	for tabID, s := range r.browsers {
		if pick == nil || tabID < pick.TabID {
			pick = s
		}
	}
	return pick, pick != nil
}

// BrowsersSnapshot returns a copy of live browser sessions for broadcast,
// so callers never hold the registry lock across I/O (spec.md §5).
func (r *Registry) BrowsersSnapshot() []*Session {
	r.browserMu.RLock()
	defer r.browserMu.RUnlock()
	out := make([]*Session, 0, len(r.browsers))
	for _, s := range r.browsers {
		out = append(out, s)
	}
	return out
}

// ExtensionsSnapshot returns a copy of live extension sessions.
func (r *Registry) ExtensionsSnapshot() []*Session {
	r.extMu.RLock()
	defer r.extMu.RUnlock()
	out := make([]*Session, 0, len(r.exts))
	for _, s := range r.exts {
		out = append(out, s)
	}
	return out
}

// ExtensionWithCapability picks the first live extension whose declared
// capability list contains action (spec.md §4.E tie-break rule).
func (r *Registry) ExtensionWithCapability(action string) (*Session, bool) {
	r.extMu.RLock()
	defer r.extMu.RUnlock()
	for _, s := range r.exts {
		if s.HasCapability(action) {
			return s, true
		}
	}
	return nil, false
}

// CountBrowsers and CountExtensions back internal/metrics's snapshot.
func (r *Registry) CountBrowsers() int {
	r.browserMu.RLock()
	defer r.browserMu.RUnlock()
	return len(r.browsers)
}

func (r *Registry) CountExtensions() int {
	r.extMu.RLock()
	defer r.extMu.RUnlock()
	return len(r.exts)
}
