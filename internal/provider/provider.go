// Package provider defines the boundary to the remote LLM assistant API:
// assistant identities, conversation threads, messages and runs. The rest
// of the codebase depends only on the Client interface so the run engine
// and avatar logic can be exercised against a scripted fake.
package provider

import (
	"context"
	"encoding/json"
	"time"
)

// RunStatus is the remote run lifecycle status.
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCancelling     RunStatus = "cancelling"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
	RunCancelled      RunStatus = "cancelled"
	RunExpired        RunStatus = "expired"
)

// Terminal reports whether the status is one the provider will never leave.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunExpired:
		return true
	}
	return false
}

// AssistantSpec describes a remote assistant identity to provision.
type AssistantSpec struct {
	Name         string
	Description  string
	Instructions string
	Model        string
}

// Assistant is a provisioned remote assistant identity.
type Assistant struct {
	ID    string
	Name  string
	Model string
}

// Thread is the provider's persistent conversation context.
type Thread struct {
	ID string
}

// MessageDraft is an outgoing message in the provider's shape.
type MessageDraft struct {
	Role     string
	Content  string
	Metadata map[string]string
}

// Message is a message retrieved from a thread.
type Message struct {
	ID          string
	ThreadID    string
	RunID       string
	AssistantID string
	Role        string
	Content     string
	CreatedAt   time.Time
}

// ToolCall is one tool-function invocation requested by a run.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Run is one execution attempt of an assistant against a thread.
type Run struct {
	ID          string
	ThreadID    string
	AssistantID string
	Status      RunStatus
	ToolCalls   []ToolCall // populated when Status == RunRequiresAction
}

// ToolOutput is one tool call's serialized result, submitted back to the run.
type ToolOutput struct {
	ToolCallID string
	Output     string
}

// Client is the remote assistant API surface consumed by the core.
type Client interface {
	CreateAssistant(ctx context.Context, spec AssistantSpec) (Assistant, error)
	RetrieveAssistant(ctx context.Context, assistantID string) (Assistant, error)

	CreateThread(ctx context.Context) (Thread, error)

	CreateMessage(ctx context.Context, threadID string, draft MessageDraft) (Message, error)
	UpdateMessageMetadata(ctx context.Context, threadID, messageID string, metadata map[string]string) (Message, error)
	ListRunMessages(ctx context.Context, threadID, runID string) ([]Message, error)

	CreateRun(ctx context.Context, threadID, assistantID string) (Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error)
}
