package toolcatalog

import (
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func def(name, title, description string, schema map[string]any, class RoutingClass, deadline time.Duration) Definition {
	return Definition{
		Tool: mcp.Tool{
			Name:        name,
			Description: description,
			Annotations: &mcp.ToolAnnotations{Title: title},
			InputSchema: schema,
		},
		RoutingClass: class,
		Deadline:     deadline,
	}
}

// Default returns the bridge's static tool catalog (spec.md §4.E table).
// Every tool is advertised regardless of whether its backing provider is
// currently available — unavailable providers fail at call time with a
// structured error (spec.md §4.I), not by omission from tools/list.
func Default() *Catalog {
	return New([]Definition{
		def(NameTasksClaimNext, "Claim Next Task", "Claim the first pending task whose requested capabilities are a subset of the ones provided.", TasksClaimNextSchema(), RoutingLocalQueue, 0),
		def(NameTasksProgress, "Report Task Progress", "Report progress on a claimed task.", TasksProgressSchema(), RoutingLocalQueue, 0),
		def(NameTasksComplete, "Complete Task", "Complete a claimed task with a result.", TasksCompleteSchema(), RoutingLocalQueue, 0),
		def(NameTasksGetQueue, "Get Task Queue", "Inspect the pending task FIFO.", TasksGetQueueSchema(), RoutingLocalQueue, 0),

		def(NameOpenLocalFile, "Open Local File", "Open a local path with the OS default application.", OpenLocalFileSchema(), RoutingLocalOpener, 0),

		def(NameGmailArchive, "Archive Email", "Archive a message in the connected mail account.", GmailArchiveSchema(), RoutingLocalMail, 0),
		def(NameGmailSearch, "Search Email", "Search the connected mail account.", GmailSearchSchema(), RoutingLocalMail, 0),

		def(NameGithubListPRs, "List Pull Requests", "List open pull requests for a repository.", GithubListPRsSchema(), RoutingLocalRepo, 0),
		def(NameGithubGetIssue, "Get Issue", "Fetch a single issue.", GithubGetIssueSchema(), RoutingLocalRepo, 0),

		def(NameTriageStatus, "Monitor Status", "Report the autonomous monitor's current status.", TriageStatusSchema(), RoutingLocalMonitor, 0),

		def(NameCCSend, "Send Direct Message", "Send a message to connected browsers over the direct message channel.", CCSendSchema(), RoutingLocalDirectMsg, 0),
		def(NameCCGet, "Receive Direct Messages", "Pull pending browser->assistant direct messages.", CCGetSchema(), RoutingLocalDirectMsg, 0),
		def(NameCCStatus, "Direct Message Status", "Pending counts and browser connectivity summary.", CCStatusSchema(), RoutingLocalDirectMsg, 0),
		def(NameCCCapabilities, "List Capabilities", "List capability families and their current availability.", CCCapabilitiesSchema(), RoutingLocalDirectMsg, 0),
		def(NameCCActionRequest, "Request Capability Action", "Enqueue a capability action request as a task for the assistant to claim.", CCActionRequestSchema(), RoutingLocalDirectMsg, 0),

		def(NameExtCaptureScreen, "Capture Screen", "Ask a connected extension with the capture_screen capability to capture the screen.", ExtCaptureScreenSchema(), RoutingForwardExt, 15*time.Second),

		def(NameGetNode, "Get Node", "Fetch a single document node from a connected browser tab.", GetNodeSchema(), RoutingForwardBrowser, 15*time.Second),
		def(NameGetTree, "Get Tree", "Fetch the full document tree from a connected browser tab.", GetTreeSchema(), RoutingForwardBrowser, 15*time.Second),
	})
}
