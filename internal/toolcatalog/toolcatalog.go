// Package toolcatalog is the bridge's static tool definition table
// (spec.md §3 "Tool definition", §4.J "tools/list"). Tools are modeled as
// the teacher's pkg/agents/tools.Tool does: an embedded mcp.Tool (name,
// description, JSON schema) plus local routing metadata, generalized here
// from "execution type + policy group" to "routing class + deadline".
package toolcatalog

import (
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RoutingClass is the dispatcher's classification of a tool call (spec.md
// §4.E routing table).
type RoutingClass string

const (
	RoutingLocalQueue     RoutingClass = "local_queue"
	RoutingLocalOpener    RoutingClass = "local_opener"
	RoutingLocalMail      RoutingClass = "local_mail"
	RoutingLocalRepo      RoutingClass = "local_repo"
	RoutingLocalMonitor   RoutingClass = "local_monitor"
	RoutingLocalDirectMsg RoutingClass = "local_direct_message"
	RoutingForwardExt     RoutingClass = "forward_extension"
	RoutingForwardBrowser RoutingClass = "forward_browser"
)

// DefaultForwardDeadline is the default forward timeout (spec.md §4.E.2).
const DefaultForwardDeadline = 15 * time.Second

// Definition is one static tool entry.
type Definition struct {
	mcp.Tool
	RoutingClass RoutingClass
	Deadline     time.Duration
}

// EffectiveDeadline returns Deadline, defaulting to DefaultForwardDeadline.
func (d Definition) EffectiveDeadline() time.Duration {
	if d.Deadline <= 0 {
		return DefaultForwardDeadline
	}
	return d.Deadline
}

// Catalog is the immutable, once-built set of advertised tools (spec.md
// §3 invariant: "Tools are advertised once during initialization").
type Catalog struct {
	defs   []Definition
	byName map[string]Definition
}

// New builds a Catalog from the given definitions, indexing them by name.
func New(defs []Definition) *Catalog {
	c := &Catalog{defs: defs, byName: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		c.byName[d.Name] = d
	}
	return c
}

// List returns every advertised tool, for tools/list.
func (c *Catalog) List() []Definition {
	return append([]Definition(nil), c.defs...)
}

// Lookup finds a tool definition by name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// MCPTools projects the catalog to the bare mcp.Tool values tools/list
// serializes on the wire.
func (c *Catalog) MCPTools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d.Tool)
	}
	return out
}
