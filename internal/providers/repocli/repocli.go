// Package repocli wraps a user-installed gh-compatible CLI binary
// (spec.md §4.I): invocations carry a timeout and the adapter normalizes
// exit conditions into a parsed object or a structured error. Child
// process handling (stdout/stderr buffers, context-bound timeout) follows
// pkg/codexrpc.StartProcess's supervision pattern, simplified to a single
// request/response exec.CommandContext call rather than a long-lived
// stdio session.
package repocli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/codebridgehq/codebridge/internal/rpcerrors"
)

// FailureKind enumerates the exit-condition taxonomy spec.md §4.I names.
type FailureKind string

const (
	FailureNotInstalled     FailureKind = "not_installed"
	FailureNotAuthenticated FailureKind = "not_authenticated"
	FailureTimedOut         FailureKind = "command_timed_out"
	FailureCommandFailed    FailureKind = "command_failed"
)

// Provider is the repo CLI adapter boundary.
type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	ListPRs(ctx context.Context, repo string) (json.RawMessage, *FailureKind, error)
	GetIssue(ctx context.Context, repo string, number int) (json.RawMessage, *FailureKind, error)
}

type absent struct{}

func Absent() Provider { return absent{} }

func (absent) Name() string                       { return "github" }
func (absent) Available(ctx context.Context) bool { return false }
func (absent) ListPRs(ctx context.Context, repo string) (json.RawMessage, *FailureKind, error) {
	return nil, nil, errNotAvailable
}
func (absent) GetIssue(ctx context.Context, repo string, number int) (json.RawMessage, *FailureKind, error) {
	return nil, nil, errNotAvailable
}

var errNotAvailable = errors.New("repo CLI provider not configured")

func StructuredUnavailable() rpcerrors.StructuredFailure {
	return rpcerrors.NewStructuredFailure("github_not_available",
		"Repo CLI provider is not configured. Install gh and set BRIDGE_GH_PATH to enable github_* tools.")
}

// Config selects the CLI binary path and per-call timeout.
type Config struct {
	BinaryPath string
	Timeout    time.Duration
}

func withDefaults(cfg Config) Config {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "gh"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return cfg
}

type cliProvider struct {
	cfg Config
}

func New(cfg Config) Provider {
	return &cliProvider{cfg: withDefaults(cfg)}
}

func (p *cliProvider) Name() string { return "github" }

func (p *cliProvider) Available(ctx context.Context) bool {
	path, err := exec.LookPath(p.cfg.BinaryPath)
	return err == nil && path != ""
}

func (p *cliProvider) ListPRs(ctx context.Context, repo string) (json.RawMessage, *FailureKind, error) {
	return p.run(ctx, "pr", "list", "--repo", repo, "--json", "number,title,url,author")
}

func (p *cliProvider) GetIssue(ctx context.Context, repo string, number int) (json.RawMessage, *FailureKind, error) {
	return p.run(ctx, "issue", "view", strconv.Itoa(number), "--repo", repo, "--json", "number,title,body,state")
}

func (p *cliProvider) run(ctx context.Context, args ...string) (json.RawMessage, *FailureKind, error) {
	if !p.Available(ctx) {
		kind := FailureNotInstalled
		return nil, &kind, errNotAvailable
	}

	runCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.cfg.BinaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		kind := FailureTimedOut
		return nil, &kind, runCtx.Err()
	}
	if err != nil {
		kind := classifyFailure(stderr.String())
		return nil, &kind, errors.New(strings.TrimSpace(stderr.String()))
	}

	return json.RawMessage(bytes.TrimSpace(stdout.Bytes())), nil, nil
}

func classifyFailure(stderr string) FailureKind {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "not logged in") || strings.Contains(lower, "authentication"):
		return FailureNotAuthenticated
	default:
		return FailureCommandFailed
	}
}

