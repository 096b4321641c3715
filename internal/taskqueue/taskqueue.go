// Package taskqueue is the cooperative task queue (spec.md §2 component F,
// §3 "Task", §4.F): an in-memory FIFO of work submitted by browsers,
// claimed by the assistant, with progress/result broadcast back and a
// bounded, hard-capped completed-task history.
package taskqueue

import (
	"sync"
	"time"

	"go.mau.fi/util/jsontime"
	"go.mau.fi/util/ptr"

	"github.com/codebridgehq/codebridge/internal/ids"
)

// State is a Task's lifecycle state. Transitions are monotonic:
// pending -> claimed -> completed -> acknowledged (spec.md §8 invariant).
type State string

const (
	StatePending      State = "pending"
	StateClaimed      State = "claimed"
	StateCompleted    State = "completed"
	StateAcknowledged State = "acknowledged"
)

// Progress is the task's most recent progress report.
type Progress struct {
	Message   string
	Percent   int
	Timestamp time.Time
}

// ProposedOp is one proposed operation in a task's result.
type ProposedOp struct {
	Type   string         `json:"type"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Result is a completed task's output.
type Result struct {
	ProposedOps []ProposedOp
	Summary     string
	Citations   []string
}

// AckAction is the submitter's disposition of a completed task's result.
type AckAction string

const (
	AckApproved AckAction = "approved"
	AckRejected AckAction = "rejected"
	AckPartial  AckAction = "partial"
)

// Task is a unit of asynchronous work submitted by a browser (spec.md §3).
type Task struct {
	ID                    string
	SubmitterTabID        string
	AgentID               string
	Prompt                string
	RequestedCapabilities []string

	State State

	CreatedAt   jsontime.Unix  `json:"created_at"`
	ClaimedAt   *jsontime.Unix `json:"claimed_at,omitempty"`
	CompletedAt *jsontime.Unix `json:"completed_at,omitempty"`

	Progress *Progress
	Result   *Result

	AckAction      AckAction
	AckSelectedOps []int
}

// Broadcaster is implemented by whatever fans task events out to connected
// browsers (a Bridge's own broadcast helper); kept as a narrow interface so
// the queue has no dependency on the peer registry.
type Broadcaster interface {
	BroadcastTaskEvent(eventType string, payload map[string]any)
}

// NopBroadcaster discards events; useful in tests.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastTaskEvent(string, map[string]any) {}

// Config tunes the bounded completed-task history (spec.md §3 default 50).
type Config struct {
	HistoryCap int
}

func (c Config) withDefaults() Config {
	if c.HistoryCap <= 0 {
		c.HistoryCap = 50
	}
	return c
}

// Queue holds pending/claimed tasks and a bounded completed-task history.
// A single mutex guards all fields; spec.md §5 calls the task queue out
// explicitly as one of the two writer-sensitive structures (with the
// correlation table), accessed under a short critical section.
type Queue struct {
	mu  sync.Mutex
	cfg Config

	pending []*Task         // FIFO order of submission
	claimed map[string]*Task
	history []*Task         // completed/acknowledged, ordered by CompletedAt
	byID    map[string]*Task

	broadcaster Broadcaster
	now         func() time.Time
}

func New(cfg Config, broadcaster Broadcaster) *Queue {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &Queue{
		cfg:         cfg.withDefaults(),
		claimed:     make(map[string]*Task),
		byID:        make(map[string]*Task),
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// Submit appends a new task to the pending FIFO and broadcasts task_queued.
// Returns the task and its 1-based position among pending tasks.
func (q *Queue) Submit(submitterTabID, agentID, prompt string, requestedCapabilities []string) (*Task, int) {
	t := &Task{
		ID:                    ids.NewTaskID(),
		SubmitterTabID:        submitterTabID,
		AgentID:               agentID,
		Prompt:                prompt,
		RequestedCapabilities: append([]string(nil), requestedCapabilities...),
		State:                 StatePending,
		CreatedAt:             jsontime.U(q.now()),
	}

	q.mu.Lock()
	q.pending = append(q.pending, t)
	q.byID[t.ID] = t
	position := len(q.pending)
	q.enforceHistoryCapLocked()
	q.mu.Unlock()

	q.broadcaster.BroadcastTaskEvent("task_queued", map[string]any{
		"taskId":   t.ID,
		"agentId":  agentID,
		"position": position,
	})
	return t, position
}

// ClaimNext scans the pending FIFO for the first task whose
// RequestedCapabilities is a subset of provided (spec.md §4.F: an empty
// required set matches any claimer). Returns nil if nothing matches.
func (q *Queue) ClaimNext(provided []string) *Task {
	have := make(map[string]struct{}, len(provided))
	for _, c := range provided {
		have[c] = struct{}{}
	}

	q.mu.Lock()
	idx := -1
	for i, t := range q.pending {
		if subsetOf(t.RequestedCapabilities, have) {
			idx = i
			break
		}
	}
	if idx == -1 {
		q.mu.Unlock()
		return nil
	}
	t := q.pending[idx]
	q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
	t.State = StateClaimed
	t.ClaimedAt = ptr.Ptr(jsontime.U(q.now()))
	q.claimed[t.ID] = t
	q.enforceHistoryCapLocked()
	q.mu.Unlock()

	q.broadcaster.BroadcastTaskEvent("task_claimed", map[string]any{
		"taskId":  t.ID,
		"agentId": t.AgentID,
	})
	return t
}

func subsetOf(required []string, have map[string]struct{}) bool {
	for _, r := range required {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}

// Progress updates a claimed task's progress record and broadcasts
// task_progress. Returns false if taskID is not currently claimed.
func (q *Queue) Progress(taskID, message string, percent int) bool {
	q.mu.Lock()
	t, ok := q.claimed[taskID]
	if !ok {
		q.mu.Unlock()
		return false
	}
	t.Progress = &Progress{Message: message, Percent: percent, Timestamp: q.now()}
	q.mu.Unlock()

	q.broadcaster.BroadcastTaskEvent("task_progress", map[string]any{
		"taskId":  taskID,
		"message": message,
		"percent": percent,
	})
	return true
}

// Complete transitions a claimed task to completed, stores its result and
// retains it in the bounded history (spec.md §4.F, §9 open-question
// decision: the hard cap is evaluated in Submit, ClaimNext and Complete,
// every call that can grow the queue's resident state, not only on
// acknowledgement). Returns false if taskID is not currently claimed.
func (q *Queue) Complete(taskID string, result Result) bool {
	q.mu.Lock()
	t, ok := q.claimed[taskID]
	if !ok {
		q.mu.Unlock()
		return false
	}
	delete(q.claimed, taskID)
	t.State = StateCompleted
	t.CompletedAt = ptr.Ptr(jsontime.U(q.now()))
	t.Result = &result
	q.history = append(q.history, t)
	evicted := q.enforceHistoryCapLocked()
	q.mu.Unlock()

	q.broadcaster.BroadcastTaskEvent("task_completed", map[string]any{
		"taskId":   taskID,
		"opsCount": len(result.ProposedOps),
		"summary":  result.Summary,
	})
	_ = evicted
	return true
}

// Acknowledge records the submitter's disposition of a completed task.
// Repeated acknowledgement is idempotent (spec.md §8 round-trip law): later
// calls simply overwrite the recorded action.
func (q *Queue) Acknowledge(taskID string, action AckAction, selectedOps []int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.byID[taskID]
	if !ok || t.State != StateCompleted && t.State != StateAcknowledged {
		return false
	}
	t.State = StateAcknowledged
	t.AckAction = action
	t.AckSelectedOps = append([]int(nil), selectedOps...)
	return true
}

// Get returns a task by id regardless of its state.
func (q *Queue) Get(taskID string) (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.byID[taskID]
	return t, ok
}

// PendingSnapshot returns the current pending FIFO in order, for
// tasks_getQueue-style introspection tools.
func (q *Queue) PendingSnapshot() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Task(nil), q.pending...)
}

// enforceHistoryCapLocked evicts the oldest completed/acknowledged entries
// by completion time once history exceeds its cap. Callers must hold q.mu.
func (q *Queue) enforceHistoryCapLocked() int {
	evicted := 0
	for len(q.history) > q.cfg.HistoryCap {
		oldest := q.history[0]
		q.history = q.history[1:]
		delete(q.byID, oldest.ID)
		evicted++
	}
	return evicted
}

// HistoryLen reports the size of the bounded completed-task history, for
// internal/metrics.
func (q *Queue) HistoryLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.history)
}

// PendingLen reports the size of the pending FIFO, for internal/metrics.
func (q *Queue) PendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// ClaimedLen reports the number of currently claimed tasks.
func (q *Queue) ClaimedLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.claimed)
}
