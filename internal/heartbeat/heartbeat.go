// Package heartbeat is the heartbeat supervisor (spec.md §2 component D,
// §4.D): a periodic sweep that pings live peers and terminates those
// exceeding a staleness budget. The fixed-cadence tick itself is scheduled
// with github.com/robfig/cron/v3 rather than a hand-rolled time.Ticker
// loop, generalizing the teacher's pkg/cron.CronService (which arms a
// single timer for its next wake-up) to a recurring "@every" schedule; its
// Logger seam is adopted unchanged from pkg/cron.Logger.
package heartbeat

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/codebridgehq/codebridge/internal/peerconn"
	"github.com/codebridgehq/codebridge/internal/registry"
	"github.com/codebridgehq/codebridge/internal/wire"
)

// Logger matches pkg/cron.Logger's shape so internal/bridgelog.Adapter can
// serve both components with the same adapter type.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// Config tunes the supervisor's cadence and staleness budget (spec.md §4.D
// defaults: 10s cadence, 30s staleness).
type Config struct {
	Cadence      time.Duration
	StaleBudget  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Cadence <= 0 {
		c.Cadence = 10 * time.Second
	}
	if c.StaleBudget <= 0 {
		c.StaleBudget = 30 * time.Second
	}
	return c
}

// Supervisor runs the periodic sweep over a Registry.
type Supervisor struct {
	cfg Config
	reg *registry.Registry
	log Logger

	cron *cron.Cron
	now  func() time.Time
}

func New(reg *registry.Registry, cfg Config, log Logger) *Supervisor {
	return &Supervisor{
		cfg: cfg.withDefaults(),
		reg: reg,
		log: log,
		now: time.Now,
	}
}

// Start begins the periodic sweep. Stop must be called to release the
// cron goroutine.
func (s *Supervisor) Start() error {
	s.cron = cron.New()
	spec := "@every " + s.cfg.Cadence.String()
	_, err := s.cron.AddFunc(spec, s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("heartbeat: started", map[string]any{"cadence": s.cfg.Cadence.String(), "staleBudgetMs": s.cfg.StaleBudget.Milliseconds()})
	return nil
}

// Stop cancels the scheduled sweep. Idempotent.
func (s *Supervisor) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

// OnKeepAlive refreshes a session's liveness timestamp. It is called when a
// pong/keep-alive reply is received from the peer (spec.md §8 "Ping/pong"
// round-trip law).
func (s *Supervisor) OnKeepAlive(sess *registry.Session) {
	sess.Touch(s.now())
}

func (s *Supervisor) sweep() {
	browsers := s.reg.BrowsersSnapshot()
	exts := s.reg.ExtensionsSnapshot()
	total := len(browsers) + len(exts)

	now := s.now()
	for _, sess := range browsers {
		s.sweepOne(sess, now, func(reason string) {
			s.reg.RemoveBrowser(sess.TabID, sess)
			s.broadcastDisconnect(browsers, wire.PeerDisconnected{Type: wire.TypePeerDisconnected, TabID: sess.TabID, Reason: reason})
		})
	}
	for _, sess := range exts {
		s.sweepOne(sess, now, func(reason string) {
			s.reg.RemoveExtension(sess.ClientID, sess)
			s.broadcastDisconnect(browsers, wire.PeerDisconnected{Type: wire.TypeExtensionDisconnected, ClientID: sess.ClientID, Reason: reason})
		})
	}

	if total > 0 {
		s.log.Info("heartbeat: sweep complete", map[string]any{"peers": total})
	}
}

func (s *Supervisor) sweepOne(sess *registry.Session, now time.Time, onStale func(reason string)) {
	if now.Sub(sess.LastHeartbeat()) > s.cfg.StaleBudget {
		sess.SetState(registry.StateClosing)
		_ = sess.Conn().Close(peerconn.CloseNormal, "stale")
		onStale("stale")
		return
	}
	if err := sess.Conn().WriteJSON(wire.Ping{Type: wire.TypePing}); err != nil {
		s.log.Warn("heartbeat: keep-alive write failed", map[string]any{"error": err.Error()})
	}
}

// broadcastDisconnect fans a disconnect notification out to every live
// browser without holding the registry lock across the sends (spec.md §5).
func (s *Supervisor) broadcastDisconnect(browsers []*registry.Session, msg wire.PeerDisconnected) {
	for _, b := range browsers {
		_ = b.Conn().WriteJSON(msg)
	}
}
