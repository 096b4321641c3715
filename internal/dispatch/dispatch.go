// Package dispatch is the tool dispatcher (spec.md §2 component E, §4.E):
// it classifies an incoming tools/call by name against an explicit routing
// table and routes to a local handler, a browser forward, or an extension
// forward, attaching a timeout. The routing table is a literal slice of
// (predicate, handler) pairs per the REDESIGN FLAG on "dynamic handler
// tables by name prefix" (spec.md §9) — never string-prefix dispatch
// sprinkled across the code.
package dispatch

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/codebridgehq/codebridge/internal/correlate"
	"github.com/codebridgehq/codebridge/internal/ids"
	"github.com/codebridgehq/codebridge/internal/registry"
	"github.com/codebridgehq/codebridge/internal/rpcerrors"
	"github.com/codebridgehq/codebridge/internal/toolcatalog"
	"github.com/codebridgehq/codebridge/internal/wire"
)

// LocalHandler services a tool call entirely within the bridge process. It
// receives the tool name because several tool names can share one routing
// class (e.g. every tasks_* name is RoutingLocalQueue) — the handler
// switches on name internally.
type LocalHandler func(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, *rpcerrors.Error)

// route is one entry in the dispatcher's routing table.
type route struct {
	match   func(name string) bool
	class   toolcatalog.RoutingClass
	handler LocalHandler // only set for local routes
}

// Dispatcher classifies and executes tool calls.
type Dispatcher struct {
	catalog *toolcatalog.Catalog
	reg     *registry.Registry
	corr    *correlate.Table

	routes []route
	now    func() time.Time
}

func New(catalog *toolcatalog.Catalog, reg *registry.Registry, corr *correlate.Table) *Dispatcher {
	return &Dispatcher{catalog: catalog, reg: reg, corr: corr, now: time.Now}
}

// RegisterLocal installs the handler for every tool whose RoutingClass in
// the catalog matches class. Called once at construction for each of the
// local routing classes (queue, opener, mail, repo, monitor, direct
// message + capability registry).
func (d *Dispatcher) RegisterLocal(class toolcatalog.RoutingClass, handler LocalHandler) {
	d.routes = append(d.routes, route{
		match: func(name string) bool {
			def, ok := d.catalog.Lookup(name)
			return ok && def.RoutingClass == class
		},
		class:   class,
		handler: handler,
	})
}

// Call classifies name and executes it. The classification table is scanned
// in registration order, mirroring §4.E's "classify by name prefix" table.
func (d *Dispatcher) Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, *rpcerrors.Error) {
	def, ok := d.catalog.Lookup(name)
	if !ok {
		return nil, rpcerrors.UnknownMethod(name)
	}

	for _, r := range d.routes {
		if r.match(name) {
			return r.handler(ctx, name, args)
		}
	}

	switch def.RoutingClass {
	case toolcatalog.RoutingForwardExt:
		return d.forwardExtension(ctx, def, args)
	case toolcatalog.RoutingForwardBrowser:
		return d.forwardBrowser(ctx, def, args)
	default:
		return nil, rpcerrors.Routing("no handler registered for " + name)
	}
}

// forwardTabArg extracts an optional "tab_id" field from a tool call's
// arguments, used by forwardBrowser's tie-break rule.
func forwardTabArg(args json.RawMessage) string {
	var probe struct {
		TabID string `json:"tab_id"`
	}
	_ = json.Unmarshal(args, &probe)
	return probe.TabID
}

func (d *Dispatcher) forwardBrowser(ctx context.Context, def toolcatalog.Definition, args json.RawMessage) (json.RawMessage, *rpcerrors.Error) {
	var sess *registry.Session
	var ok bool
	if tabID := forwardTabArg(args); tabID != "" {
		sess, ok = d.reg.Browser(tabID)
	}
	if !ok {
		sess, ok = d.reg.AnyBrowser()
	}
	if !ok {
		return nil, rpcerrors.Routing("No browser connected")
	}
	return d.forward(ctx, def, args, sess, sess.TabID, "Operation "+def.Name)
}

func (d *Dispatcher) forwardExtension(ctx context.Context, def toolcatalog.Definition, args json.RawMessage) (json.RawMessage, *rpcerrors.Error) {
	action := strings.TrimPrefix(def.Name, "ext_")
	sess, ok := d.reg.ExtensionWithCapability(action)
	if !ok {
		return nil, rpcerrors.Routing("No extension connected with capability " + action)
	}
	return d.forward(ctx, def, args, sess, sess.ClientID, "Extension "+action)
}

// forward is the shared correlation/timeout/reply machinery for both
// browser and extension forwards (spec.md §4.E.2).
func (d *Dispatcher) forward(ctx context.Context, def toolcatalog.Definition, args json.RawMessage, sess *registry.Session, target, timeoutLabel string) (json.RawMessage, *rpcerrors.Error) {
	deadline := def.EffectiveDeadline()
	internalID := ids.NewCorrelationID()

	type outcome struct {
		result json.RawMessage
		err    *rpcerrors.Error
	}
	ch := make(chan outcome, 1)

	sink := correlate.ReplySinkFunc(func(result []byte, replyErr error) {
		if replyErr != nil {
			ch <- outcome{err: rpcerrors.Routing(replyErr.Error())}
			return
		}
		ch <- outcome{result: result}
	})

	pending := &correlate.Pending{
		ID:       internalID,
		ToolName: def.Name,
		Target:   target,
		Deadline: d.now().Add(deadline),
		Sink:     sink,
	}
	d.corr.Insert(pending, func(p *correlate.Pending) {
		ch <- outcome{err: rpcerrors.Timeout(timeoutLabel, deadline.Milliseconds())}
	})

	idRaw, _ := json.Marshal(internalID)
	frame := wire.Forward{ID: idRaw, Method: def.Name, Params: args}
	if err := sess.Conn().WriteJSON(frame); err != nil {
		d.corr.Cancel(internalID)
		return nil, rpcerrors.Routing("failed to deliver forward: " + err.Error())
	}

	select {
	case out := <-ch:
		if out.err != nil {
			return nil, out.err
		}
		if def.RoutingClass == toolcatalog.RoutingForwardExt && strings.TrimPrefix(def.Name, "ext_") == "capture_screen" {
			return applyScreenCaptureLimit(out.result), nil
		}
		return out.result, nil
	case <-ctx.Done():
		d.corr.Cancel(internalID)
		return nil, rpcerrors.Routing("request cancelled")
	}
}

// DeliverReply satisfies a pending forward with a peer's reply (spec.md
// §4.B). Unknown ids (orphan replies, including late replies after a
// timeout already removed the entry) are logged by the caller and dropped.
func (d *Dispatcher) DeliverReply(id string, result json.RawMessage, replyErr *wire.ReplyError) bool {
	pending, ok := d.corr.Satisfy(id)
	if !ok {
		return false
	}
	if replyErr != nil {
		pending.Sink.Reply(nil, errString(replyErr.Message))
		return true
	}
	pending.Sink.Reply(result, nil)
	return true
}

// DisconnectTarget cancels every pending forward addressed to target with a
// "Peer disconnected" error (spec.md §5 cancellation rule).
func (d *Dispatcher) DisconnectTarget(target string) {
	d.corr.CancelTarget(target, func(p *correlate.Pending) {
		p.Sink.Reply(nil, errString("Peer disconnected"))
	})
}

type errString string

func (e errString) Error() string { return string(e) }
