// Package monitor is the autonomous monitor provider adapter (spec.md
// §4.I): lazy-init, structured error if absent. Unlike mail/repocli it has
// no external credentials — "lazy-init" here means the live implementation
// is constructed on first Status call rather than at startup, mirroring
// how pkg/cron.CronService is armed lazily on first schedule rather than
// at construction.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/codebridgehq/codebridge/internal/rpcerrors"
)

// Status is the autonomous monitor's current status (spec.md triage_status
// tool).
type Status struct {
	Running       bool      `json:"running"`
	LastRunAt     time.Time `json:"lastRunAt,omitempty"`
	LastSummary   string    `json:"lastSummary,omitempty"`
	PendingChecks int       `json:"pendingChecks"`
}

// Provider is the monitor adapter boundary.
type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	Status(ctx context.Context) (Status, error)
}

type absent struct{}

func Absent() Provider { return absent{} }

func (absent) Name() string                       { return "triage" }
func (absent) Available(ctx context.Context) bool { return false }
func (absent) Status(ctx context.Context) (Status, error) {
	return Status{}, errNotAvailable
}

var errNotAvailable = errors.New("monitor provider not configured")

func StructuredUnavailable() rpcerrors.StructuredFailure {
	return rpcerrors.NewStructuredFailure("triage_not_available",
		"Autonomous monitor is not enabled. Set BRIDGE_MONITOR_ENABLED=1 to enable triage_* tools.")
}

// lazyMonitor constructs its internal state on first use rather than at
// startup, so enabling the monitor costs nothing until the assistant
// actually calls a triage_* tool.
type lazyMonitor struct {
	mu      sync.Mutex
	started bool
	status  Status
}

func New() Provider {
	return &lazyMonitor{}
}

func (m *lazyMonitor) Name() string { return "triage" }

func (m *lazyMonitor) Available(ctx context.Context) bool { return true }

func (m *lazyMonitor) Status(ctx context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		m.started = true
		m.status = Status{Running: true, LastRunAt: time.Now(), LastSummary: "monitor initialized", PendingChecks: 0}
	}
	return m.status, nil
}
