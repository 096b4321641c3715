// Package controlplane is the control plane (spec.md §2 component J, §4.J):
// tool-list publication, the initialization handshake, the startup banner,
// and graceful shutdown. It owns construction and wiring of every other
// component and is the only package that imports all of them, mirroring
// how pkg/connector.AIConnector is the single wiring point for the
// teacher's bridgev2 network connector.
package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/codebridgehq/codebridge/internal/bridgelog"
	"github.com/codebridgehq/codebridge/internal/capabilities"
	"github.com/codebridgehq/codebridge/internal/config"
	"github.com/codebridgehq/codebridge/internal/correlate"
	"github.com/codebridgehq/codebridge/internal/directmsg"
	"github.com/codebridgehq/codebridge/internal/dispatch"
	"github.com/codebridgehq/codebridge/internal/heartbeat"
	"github.com/codebridgehq/codebridge/internal/metrics"
	"github.com/codebridgehq/codebridge/internal/peerconn"
	"github.com/codebridgehq/codebridge/internal/providers/mail"
	"github.com/codebridgehq/codebridge/internal/providers/monitor"
	"github.com/codebridgehq/codebridge/internal/providers/opener"
	"github.com/codebridgehq/codebridge/internal/providers/repocli"
	"github.com/codebridgehq/codebridge/internal/ratelimit"
	"github.com/codebridgehq/codebridge/internal/registry"
	"github.com/codebridgehq/codebridge/internal/rpcio"
	"github.com/codebridgehq/codebridge/internal/taskqueue"
	"github.com/codebridgehq/codebridge/internal/toolcatalog"
)

const protocolVersion = "2024-11-05"
const serverVersion = "0.1.0"

// Bridge owns every bridge subsystem and wires them into the dispatcher,
// the assistant's JSON-RPC server, and the peer HTTP endpoint.
type Bridge struct {
	cfg config.Config
	log zerolog.Logger

	registry *registry.Registry
	corr     *correlate.Table
	tasks    *taskqueue.Queue
	dm       *directmsg.Channel
	caps     *capabilities.Registry
	catalog  *toolcatalog.Catalog
	disp     *dispatch.Dispatcher
	hb       *heartbeat.Supervisor
	limiter  *ratelimit.Limiter

	mailProvider    mail.Provider
	repoProvider    repocli.Provider
	openerProvider  opener.Provider
	monitorProvider monitor.Provider

	rpc *rpcio.Server

	mu          sync.Mutex
	initialized bool
}

// New constructs a Bridge and wires every local tool handler into the
// dispatcher. The assistant's stdin/stdout endpoint (spec.md §4.A) is
// attached later by Run.
func New(cfg config.Config, log zerolog.Logger) *Bridge {
	b := &Bridge{
		cfg:      cfg,
		log:      log,
		registry: registry.New(),
		corr:     correlate.New(),
		catalog:  toolcatalog.Default(),
		limiter:  ratelimit.New(ratelimit.Config{Rate: cfg.RateLimit, Window: cfg.RateWindow}),
	}

	b.tasks = taskqueue.New(taskqueue.Config{}, b)
	b.dm = directmsg.New(b)

	if cfg.GmailToken != "" {
		b.mailProvider = mail.NewHTTP(mail.HTTPConfig{BaseURL: cfg.GmailBaseURL, Token: cfg.GmailToken})
	} else {
		b.mailProvider = mail.Absent()
	}
	if cfg.GhBinaryPath != "" {
		b.repoProvider = repocli.New(repocli.Config{BinaryPath: cfg.GhBinaryPath})
	} else {
		b.repoProvider = repocli.New(repocli.Config{})
	}
	b.openerProvider = opener.New()
	if cfg.MonitorEnabled {
		b.monitorProvider = monitor.New()
	} else {
		b.monitorProvider = monitor.Absent()
	}

	b.caps = capabilities.New(capabilities.Default(
		func(ctx context.Context) bool { return b.mailProvider.Available(ctx) },
		func(ctx context.Context) bool { return b.repoProvider.Available(ctx) },
	))

	b.disp = dispatch.New(b.catalog, b.registry, b.corr)
	b.registerLocalHandlers()

	hbLog := bridgelog.Adapter{Log: log.With().Str("component", "heartbeat").Logger()}
	b.hb = heartbeat.New(b.registry, heartbeat.Config{Cadence: cfg.SweepEvery, StaleBudget: cfg.StaleBudget}, hbLog)

	return b
}

// Run starts the heartbeat supervisor and drives the assistant's JSON-RPC
// server over stdin/stdout until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if err := b.hb.Start(); err != nil {
		return err
	}
	defer b.hb.Stop()

	b.rpc = rpcio.New(stdin, stdout, b.log.With().Str("component", "rpcio").Logger())
	b.registerRPCHandlers()

	b.printStartupBanner()

	err := b.rpc.Run(ctx)
	b.shutdownDiagnostics()
	return err
}

// HTTPHandler returns the net/http handler that accepts browser and
// extension peer connections (spec.md §6 "Connection URL").
func (b *Bridge) HTTPHandler() http.Handler {
	return http.HandlerFunc(b.handlePeerConnection)
}

// printStartupBanner writes the bare JSON object spec.md §6 requires on
// stderr — not through the console logger, so a consumer parsing stderr for
// `{"type":"bridge_ready",...}` (the only way to learn an ephemeral
// BRIDGE_PORT=0 port or a generated token) gets exactly one JSON object per
// line, with no human-readable prefix to strip.
func (b *Bridge) printStartupBanner() {
	banner := struct {
		Type    string `json:"type"`
		Port    int    `json:"port"`
		Token   string `json:"token"`
		Version string `json:"version"`
	}{Type: "bridge_ready", Port: b.cfg.Port, Token: b.cfg.Token, Version: serverVersion}
	data, err := json.Marshal(banner)
	if err != nil {
		b.log.Error().Err(err).Msg("failed to marshal startup banner")
		return
	}
	fmt.Fprintln(os.Stderr, string(data))
	b.log.Debug().Msg("bridge ready")
}

func (b *Bridge) shutdownDiagnostics() {
	browsers := b.registry.CountBrowsers()
	exts := b.registry.CountExtensions()
	inFlight := b.corr.Len()
	for _, sess := range b.registry.BrowsersSnapshot() {
		_ = sess.Conn().Close(peerconn.CloseShutdown, "shutdown")
		b.registry.RemoveBrowser(sess.TabID, sess)
		b.disp.DisconnectTarget(sess.TabID)
	}
	for _, sess := range b.registry.ExtensionsSnapshot() {
		_ = sess.Conn().Close(peerconn.CloseShutdown, "shutdown")
		b.registry.RemoveExtension(sess.ClientID, sess)
		b.disp.DisconnectTarget(sess.ClientID)
	}
	b.log.Info().
		Int("browsers_closed", browsers).
		Int("extensions_closed", exts).
		Int("tasks_in_flight", b.tasks.ClaimedLen()).
		Int("requests_cancelled", inFlight).
		Msg("shutdown complete")
}

// Snapshot reports the bridge's current counters (spec.md §9 "expose
// metrics via an accessor rather than module-level mutable state").
func (b *Bridge) Snapshot() metrics.Snapshot {
	return metrics.Snapshot{
		BrowsersConnected:   b.registry.CountBrowsers(),
		ExtensionsConnected: b.registry.CountExtensions(),
		ForwardsInFlight:    b.corr.Len(),
		TasksPending:        b.tasks.PendingLen(),
		TasksClaimed:        b.tasks.ClaimedLen(),
		TasksCompleted:      b.tasks.HistoryLen(),
	}
}
