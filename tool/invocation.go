package tool

import (
	"time"

	"github.com/medisync/medisync/core"
)

// Status is the lifecycle state of a tool invocation. Transitions are
// monotonic: Pending -> Executing -> Completed or Failed, and the terminal
// states are final.
type Status string

const (
	// StatusPending: the record exists but the tool has not been resolved yet.
	StatusPending Status = "pending"
	// StatusExecuting: the handler is running.
	StatusExecuting Status = "executing"
	// StatusCompleted: the handler returned normally.
	StatusCompleted Status = "completed"
	// StatusFailed: lookup, validation or the handler itself failed.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Invocation records one execution attempt of a tool. A record is appended
// to the registry history before the tool is even resolved, so failed
// lookups are auditable too.
type Invocation struct {
	ToolName   string         `json:"tool_name"`
	ID         string         `json:"invocation_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Parameters map[string]any `json:"parameters"`
	Result     map[string]any `json:"result"`
	Error      string         `json:"error,omitempty"`
	Status     Status         `json:"status"`
	DurationMS float64        `json:"duration_ms"`
}

func newInvocation(toolName string, params map[string]any) Invocation {
	return Invocation{
		ToolName:   toolName,
		ID:         core.NewID(),
		Timestamp:  time.Now().UTC(),
		Parameters: params,
		Status:     StatusPending,
	}
}
