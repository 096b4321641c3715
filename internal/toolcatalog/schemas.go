package toolcatalog

// Tool name constants, grouped the way the teacher's pkg/shared/toolspec
// groups its own constant/schema pairs. Names double as the dispatcher's
// routing-table predicates (spec.md §4.E table).
const (
	NameTasksClaimNext  = "tasks_claimNext"
	NameTasksProgress   = "tasks_progress"
	NameTasksComplete   = "tasks_complete"
	NameTasksGetQueue   = "tasks_getQueue"

	NameOpenLocalFile = "open_local_file"

	NameGmailArchive = "gmail_archive"
	NameGmailSearch  = "gmail_search"

	NameGithubListPRs  = "github_list_prs"
	NameGithubGetIssue = "github_get_issue"

	NameTriageStatus = "triage_status"

	NameCCSend            = "cc_send"
	NameCCGet             = "cc_get"
	NameCCStatus          = "cc_status"
	NameCCCapabilities    = "cc_capabilities"
	NameCCActionRequest   = "cc_action_request"

	NameExtCaptureScreen = "ext_capture_screen"

	NameGetNode = "get_node"
	NameGetTree = "get_tree"
)

func objectSchema(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func TasksClaimNextSchema() map[string]any {
	return objectSchema(map[string]any{
		"capabilities": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Capabilities the claiming agent currently provides",
		},
	})
}

func TasksProgressSchema() map[string]any {
	return objectSchema(map[string]any{
		"task_id": stringProp("The claimed task's id"),
		"message": stringProp("Human-readable progress message"),
		"percent": map[string]any{"type": "integer", "description": "Completion percentage, 0-100"},
	}, "task_id", "message")
}

func TasksCompleteSchema() map[string]any {
	return objectSchema(map[string]any{
		"task_id": stringProp("The claimed task's id"),
		"proposed_ops": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "object"},
			"description": "Proposed operations the browser may apply",
		},
		"summary":   stringProp("Textual summary of the result"),
		"citations": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	}, "task_id")
}

func TasksGetQueueSchema() map[string]any {
	return objectSchema(nil)
}

func OpenLocalFileSchema() map[string]any {
	return objectSchema(map[string]any{
		"path": stringProp("Absolute path to open"),
	}, "path")
}

func GmailArchiveSchema() map[string]any {
	return objectSchema(map[string]any{
		"message_id": stringProp("The message to archive"),
	}, "message_id")
}

func GmailSearchSchema() map[string]any {
	return objectSchema(map[string]any{
		"query": stringProp("Search query"),
	}, "query")
}

func GithubListPRsSchema() map[string]any {
	return objectSchema(map[string]any{
		"repo":  stringProp("owner/repo"),
		"state": stringProp("Not applied: only open pull requests are listed"),
	}, "repo")
}

func GithubGetIssueSchema() map[string]any {
	return objectSchema(map[string]any{
		"repo":   stringProp("owner/repo"),
		"number": map[string]any{"type": "integer", "description": "Issue number"},
	}, "repo", "number")
}

func TriageStatusSchema() map[string]any {
	return objectSchema(nil)
}

func CCSendSchema() map[string]any {
	return objectSchema(map[string]any{
		"message": stringProp("Message payload to deliver to connected browsers"),
	}, "message")
}

func CCGetSchema() map[string]any {
	return objectSchema(map[string]any{
		"destructive": map[string]any{"type": "boolean", "description": "Drain the queue on read (default true)"},
	})
}

func CCStatusSchema() map[string]any {
	return objectSchema(nil)
}

func CCCapabilitiesSchema() map[string]any {
	return objectSchema(nil)
}

func CCActionRequestSchema() map[string]any {
	return objectSchema(map[string]any{
		"action": stringProp("Declared capability action name"),
		"args":   map[string]any{"type": "object", "description": "Action arguments"},
	}, "action")
}

func ExtCaptureScreenSchema() map[string]any {
	return objectSchema(map[string]any{
		"tab_id": stringProp("Optional browser tab to capture context for"),
	})
}

func GetNodeSchema() map[string]any {
	return objectSchema(map[string]any{
		"node_id": stringProp("Node id to fetch"),
		"tab_id":  stringProp("Optional target tab id"),
	}, "node_id")
}

func GetTreeSchema() map[string]any {
	return objectSchema(map[string]any{
		"tab_id": stringProp("Optional target tab id"),
	})
}
