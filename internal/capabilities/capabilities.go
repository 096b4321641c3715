// Package capabilities is the capability registry (spec.md §2 component H,
// §3 "Capability descriptor", §4.H): a static table of capability families
// with runtime availability probes. The grouping shape (family name ->
// human description, category, action list) is adapted from the teacher's
// pkg/agents/toolpolicy.ToolGroups, replacing its tool-name lists with
// richer Action descriptors and a runtime Available predicate.
package capabilities

import "context"

// Action is one named thing a capability family can do.
type Action struct {
	Name          string
	Description   string
	ForwardedTool string // optional: the dispatcher tool name this action maps to
}

// Descriptor is a static capability family (spec.md §3).
type Descriptor struct {
	Name        string
	Category    string
	Description string
	Actions     []Action

	// Available is evaluated on demand, never cached across calls, and
	// must be pure with respect to the bridge's own reachable state: it
	// may not block on a remote call for longer than a short bounded
	// probe (spec.md §3 invariant).
	Available func(ctx context.Context) bool
}

// Registry holds the static capability families.
type Registry struct {
	families []Descriptor
}

func New(families []Descriptor) *Registry {
	return &Registry{families: families}
}

// List returns every declared family, in declaration order.
func (r *Registry) List() []Descriptor {
	return append([]Descriptor(nil), r.families...)
}

// WithAvailability evaluates each family's Available predicate with the
// caller's ctx (no timeout is added here) and returns a snapshot suitable for
// serializing to the assistant or a browser's get_cc_capabilities request.
func (r *Registry) WithAvailability(ctx context.Context) []FamilyStatus {
	out := make([]FamilyStatus, 0, len(r.families))
	for _, f := range r.families {
		available := true
		if f.Available != nil {
			available = f.Available(ctx)
		}
		out = append(out, FamilyStatus{Descriptor: f, Available: available})
	}
	return out
}

// FamilyStatus pairs a Descriptor with its current availability.
type FamilyStatus struct {
	Descriptor
	Available bool
}

// ActionByName finds the family and action for a declared action name,
// used to validate a browser's cc_action_request before enqueuing it as a
// task (spec.md §4.H).
func (r *Registry) ActionByName(name string) (Descriptor, Action, bool) {
	for _, f := range r.families {
		for _, a := range f.Actions {
			if a.Name == name {
				return f, a, true
			}
		}
	}
	return Descriptor{}, Action{}, false
}

// Standard capability family names, mirroring the teacher's ToolGroups
// constants (pkg/agents/toolpolicy.GroupFS, GroupWeb, GroupMedia, ...)
// generalized from "tool group for policy" to "capability family for
// discovery".
const (
	FamilyEmail       = "email"
	FamilyDevelopment = "development"
	FamilyBrowser     = "browser"
	FamilyFilesystem  = "filesystem"
	FamilyTree        = "tree"
)

// Default returns the bridge's built-in capability families (spec.md §4.H
// examples: email, development, browser, filesystem, tree). Availability
// predicates are injected by the caller since they depend on which
// provider adapters were constructed at startup.
func Default(mailAvailable, repoAvailable func(context.Context) bool) []Descriptor {
	return []Descriptor{
		{
			Name:        FamilyEmail,
			Category:    "productivity",
			Description: "Read and mutate the connected mail account",
			Actions: []Action{
				{Name: "archive", Description: "Archive a message", ForwardedTool: "gmail_archive"},
				{Name: "search", Description: "Search messages", ForwardedTool: "gmail_search"},
			},
			Available: mailAvailable,
		},
		{
			Name:        FamilyDevelopment,
			Category:    "engineering",
			Description: "Query the connected repository host",
			Actions: []Action{
				{Name: "list_prs", Description: "List open pull requests", ForwardedTool: "github_list_prs"},
				{Name: "get_issue", Description: "Fetch an issue", ForwardedTool: "github_get_issue"},
			},
			Available: repoAvailable,
		},
		{
			Name:        FamilyBrowser,
			Category:    "ui",
			Description: "Inspect and manipulate the connected browser tab's document tree",
			Actions: []Action{
				{Name: "get_node", Description: "Fetch a node by id"},
				{Name: "get_tree", Description: "Fetch the full document tree"},
			},
			Available: func(context.Context) bool { return true },
		},
		{
			Name:        FamilyFilesystem,
			Category:    "system",
			Description: "Open a local file with the OS default application",
			Actions: []Action{
				{Name: "open_local_file", Description: "Open a path with the OS default handler", ForwardedTool: "open_local_file"},
			},
			Available: func(context.Context) bool { return true },
		},
		{
			Name:        FamilyTree,
			Category:    "ui",
			Description: "Structured edits to the browser tab's document tree",
			Actions: []Action{
				{Name: "apply_tree_op", Description: "Apply a structured tree operation"},
			},
			Available: func(context.Context) bool { return true },
		},
	}
}
