package controlplane

import (
	"context"
	"encoding/json"

	"github.com/codebridgehq/codebridge/internal/providers/mail"
	"github.com/codebridgehq/codebridge/internal/providers/monitor"
	"github.com/codebridgehq/codebridge/internal/providers/opener"
	"github.com/codebridgehq/codebridge/internal/providers/repocli"
	"github.com/codebridgehq/codebridge/internal/rpcerrors"
	"github.com/codebridgehq/codebridge/internal/taskqueue"
	"github.com/codebridgehq/codebridge/internal/toolcatalog"
)

// registerLocalHandlers installs one LocalHandler per routing class the
// dispatcher never forwards to a peer (spec.md §4.E table's "local_*"
// rows). Each handler switches on name because several tool names share a
// routing class.
func (b *Bridge) registerLocalHandlers() {
	b.disp.RegisterLocal(toolcatalog.RoutingLocalQueue, b.handleQueueTool)
	b.disp.RegisterLocal(toolcatalog.RoutingLocalOpener, b.handleOpenerTool)
	b.disp.RegisterLocal(toolcatalog.RoutingLocalMail, b.handleMailTool)
	b.disp.RegisterLocal(toolcatalog.RoutingLocalRepo, b.handleRepoTool)
	b.disp.RegisterLocal(toolcatalog.RoutingLocalMonitor, b.handleMonitorTool)
	b.disp.RegisterLocal(toolcatalog.RoutingLocalDirectMsg, b.handleDirectMsgTool)
}

func (b *Bridge) handleQueueTool(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, *rpcerrors.Error) {
	switch name {
	case toolcatalog.NameTasksClaimNext:
		var params struct {
			Capabilities []string `json:"capabilities"`
		}
		_ = json.Unmarshal(args, &params)
		t := b.tasks.ClaimNext(params.Capabilities)
		if t == nil {
			return textOK(map[string]any{"claimed": false})
		}
		return textOK(map[string]any{
			"claimed":   true,
			"taskId":    t.ID,
			"agentId":   t.AgentID,
			"prompt":    t.Prompt,
			"claimedAt": t.ClaimedAt,
		})

	case toolcatalog.NameTasksProgress:
		var params struct {
			TaskID  string `json:"task_id"`
			Message string `json:"message"`
			Percent int    `json:"percent"`
		}
		if err := json.Unmarshal(args, &params); err != nil || params.TaskID == "" || params.Message == "" {
			return nil, rpcerrors.InvalidParams("task_id")
		}
		ok := b.tasks.Progress(params.TaskID, params.Message, params.Percent)
		return textOK(map[string]any{"ok": ok})

	case toolcatalog.NameTasksComplete:
		var params struct {
			TaskID      string                 `json:"task_id"`
			ProposedOps []taskqueue.ProposedOp `json:"proposed_ops"`
			Summary     string                 `json:"summary"`
			Citations   []string               `json:"citations"`
		}
		if err := json.Unmarshal(args, &params); err != nil || params.TaskID == "" {
			return nil, rpcerrors.InvalidParams("task_id")
		}
		ok := b.tasks.Complete(params.TaskID, taskqueue.Result{
			ProposedOps: params.ProposedOps,
			Summary:     params.Summary,
			Citations:   params.Citations,
		})
		return textOK(map[string]any{"ok": ok})

	case toolcatalog.NameTasksGetQueue:
		pending := b.tasks.PendingSnapshot()
		out := make([]map[string]any, 0, len(pending))
		for _, t := range pending {
			out = append(out, map[string]any{
				"taskId":       t.ID,
				"agentId":      t.AgentID,
				"state":        t.State,
				"capabilities": t.RequestedCapabilities,
				"createdAt":    t.CreatedAt,
			})
		}
		return textOK(map[string]any{"pending": out})

	default:
		return nil, rpcerrors.UnknownMethod(name)
	}
}

func (b *Bridge) handleOpenerTool(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, *rpcerrors.Error) {
	var params struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(args, &params); err != nil || params.Path == "" {
		return nil, rpcerrors.InvalidParams("path")
	}
	if !b.openerProvider.Available(ctx) {
		return textOK(rpcerrors.NewStructuredFailure("opener_not_available",
			"No OS opener is available on this platform."))
	}
	if err := b.openerProvider.Open(ctx, params.Path); err != nil {
		return textOK(rpcerrors.NewStructuredFailure("opener_failed", err.Error()))
	}
	return textOK(map[string]any{"success": true})
}

func (b *Bridge) handleMailTool(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, *rpcerrors.Error) {
	if !b.mailProvider.Available(ctx) {
		return textOK(mail.StructuredUnavailable())
	}
	switch name {
	case toolcatalog.NameGmailSearch:
		var params struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(args, &params); err != nil || params.Query == "" {
			return nil, rpcerrors.InvalidParams("query")
		}
		messages, err := b.mailProvider.Search(ctx, params.Query, 20)
		if err != nil {
			return textOK(rpcerrors.NewStructuredFailure("gmail_search_failed", err.Error()))
		}
		return textOK(map[string]any{"success": true, "messages": messages})

	case toolcatalog.NameGmailArchive:
		var params struct {
			MessageID string `json:"message_id"`
		}
		if err := json.Unmarshal(args, &params); err != nil || params.MessageID == "" {
			return nil, rpcerrors.InvalidParams("message_id")
		}
		if err := b.mailProvider.Archive(ctx, params.MessageID); err != nil {
			return textOK(rpcerrors.NewStructuredFailure("gmail_archive_failed", err.Error()))
		}
		return textOK(map[string]any{"success": true})

	default:
		return nil, rpcerrors.UnknownMethod(name)
	}
}

func (b *Bridge) handleRepoTool(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, *rpcerrors.Error) {
	if !b.repoProvider.Available(ctx) {
		return textOK(repocli.StructuredUnavailable())
	}
	switch name {
	case toolcatalog.NameGithubListPRs:
		var params struct {
			Repo string `json:"repo"`
		}
		if err := json.Unmarshal(args, &params); err != nil || params.Repo == "" {
			return nil, rpcerrors.InvalidParams("repo")
		}
		result, kind, err := b.repoProvider.ListPRs(ctx, params.Repo)
		if err != nil {
			return textOK(repoFailure(kind, err))
		}
		return rawOK(result)

	case toolcatalog.NameGithubGetIssue:
		var params struct {
			Repo   string `json:"repo"`
			Number int    `json:"number"`
		}
		if err := json.Unmarshal(args, &params); err != nil || params.Repo == "" || params.Number == 0 {
			return nil, rpcerrors.InvalidParams("repo")
		}
		result, kind, err := b.repoProvider.GetIssue(ctx, params.Repo, params.Number)
		if err != nil {
			return textOK(repoFailure(kind, err))
		}
		return rawOK(result)

	default:
		return nil, rpcerrors.UnknownMethod(name)
	}
}

func repoFailure(kind *repocli.FailureKind, err error) rpcerrors.StructuredFailure {
	code := "github_command_failed"
	if kind != nil {
		code = "github_" + string(*kind)
	}
	return rpcerrors.NewStructuredFailure(code, err.Error())
}

func (b *Bridge) handleMonitorTool(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, *rpcerrors.Error) {
	if !b.monitorProvider.Available(ctx) {
		return textOK(monitor.StructuredUnavailable())
	}
	status, err := b.monitorProvider.Status(ctx)
	if err != nil {
		return textOK(rpcerrors.NewStructuredFailure("triage_status_failed", err.Error()))
	}
	return textOK(status)
}

func (b *Bridge) handleDirectMsgTool(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, *rpcerrors.Error) {
	switch name {
	case toolcatalog.NameCCSend:
		var params struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(args, &params); err != nil || params.Message == "" {
			return nil, rpcerrors.InvalidParams("message")
		}
		msg := b.dm.Send(params.Message, nil)
		return textOK(map[string]any{"messageId": msg.ID})

	case toolcatalog.NameCCGet:
		params := struct {
			Destructive *bool `json:"destructive"`
		}{}
		_ = json.Unmarshal(args, &params)
		destructive := true
		if params.Destructive != nil {
			destructive = *params.Destructive
		}
		messages := b.dm.PickupAssistant(destructive)
		return textOK(map[string]any{"messages": messages})

	case toolcatalog.NameCCStatus:
		status := b.dm.Status(b.registry.CountBrowsers())
		return textOK(status)

	case toolcatalog.NameCCCapabilities:
		families := b.caps.WithAvailability(ctx)
		return textOK(map[string]any{"families": families})

	case toolcatalog.NameCCActionRequest:
		var params struct {
			Action string         `json:"action"`
			Args   map[string]any `json:"args"`
		}
		if err := json.Unmarshal(args, &params); err != nil || params.Action == "" {
			return nil, rpcerrors.InvalidParams("action")
		}
		_, action, ok := b.caps.ActionByName(params.Action)
		if !ok {
			return textOK(rpcerrors.NewStructuredFailure("unknown_action", "No capability declares action "+params.Action))
		}
		t, position := b.tasks.Submit("", "assistant", action.Description, nil)
		return textOK(map[string]any{"taskId": t.ID, "position": position})

	default:
		return nil, rpcerrors.UnknownMethod(name)
	}
}
