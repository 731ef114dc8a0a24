package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient implements Client on the OpenAI Assistants API using the
// official SDK.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI-backed provider client.
// Model is the default assistant model from config — do NOT hardcode model IDs.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// CreateAssistant provisions a remote assistant identity.
func (c *OpenAIClient) CreateAssistant(ctx context.Context, spec AssistantSpec) (Assistant, error) {
	model := spec.Model
	if model == "" {
		model = c.model
	}
	asst, err := c.client.Beta.Assistants.New(ctx, openai.BetaAssistantNewParams{
		Model:        shared.ChatModel(model),
		Name:         openai.String(spec.Name),
		Description:  openai.String(spec.Description),
		Instructions: openai.String(spec.Instructions),
	})
	if err != nil {
		return Assistant{}, fmt.Errorf("create assistant: %w", err)
	}
	return Assistant{ID: asst.ID, Name: asst.Name, Model: asst.Model}, nil
}

// RetrieveAssistant fetches an existing assistant identity.
func (c *OpenAIClient) RetrieveAssistant(ctx context.Context, assistantID string) (Assistant, error) {
	asst, err := c.client.Beta.Assistants.Get(ctx, assistantID)
	if err != nil {
		return Assistant{}, fmt.Errorf("retrieve assistant %s: %w", assistantID, err)
	}
	return Assistant{ID: asst.ID, Name: asst.Name, Model: asst.Model}, nil
}

// CreateThread creates a new conversation thread.
func (c *OpenAIClient) CreateThread(ctx context.Context) (Thread, error) {
	thread, err := c.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return Thread{}, fmt.Errorf("create thread: %w", err)
	}
	return Thread{ID: thread.ID}, nil
}

// CreateMessage appends a message to a thread.
func (c *OpenAIClient) CreateMessage(ctx context.Context, threadID string, draft MessageDraft) (Message, error) {
	role := openai.BetaThreadMessageNewParamsRoleUser
	if draft.Role == "assistant" {
		role = openai.BetaThreadMessageNewParamsRoleAssistant
	}
	params := openai.BetaThreadMessageNewParams{
		Role: role,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(draft.Content),
		},
	}
	if len(draft.Metadata) > 0 {
		md := shared.Metadata{}
		for k, v := range draft.Metadata {
			md[k] = v
		}
		params.Metadata = md
	}
	msg, err := c.client.Beta.Threads.Messages.New(ctx, threadID, params)
	if err != nil {
		return Message{}, fmt.Errorf("create message: %w", err)
	}
	return fromOpenAIMessage(msg), nil
}

// UpdateMessageMetadata patches an existing message's metadata. The
// Assistants API only allows metadata updates on existing messages.
func (c *OpenAIClient) UpdateMessageMetadata(ctx context.Context, threadID, messageID string, metadata map[string]string) (Message, error) {
	md := shared.Metadata{}
	for k, v := range metadata {
		md[k] = v
	}
	msg, err := c.client.Beta.Threads.Messages.Update(ctx, threadID, messageID, openai.BetaThreadMessageUpdateParams{
		Metadata: md,
	})
	if err != nil {
		return Message{}, fmt.Errorf("update message %s: %w", messageID, err)
	}
	return fromOpenAIMessage(msg), nil
}

// ListRunMessages returns the messages a run produced, oldest first.
func (c *OpenAIClient) ListRunMessages(ctx context.Context, threadID, runID string) ([]Message, error) {
	page, err := c.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		RunID: openai.String(runID),
		Order: openai.BetaThreadMessageListParamsOrderAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("list run messages: %w", err)
	}
	out := make([]Message, 0, len(page.Data))
	for i := range page.Data {
		out = append(out, fromOpenAIMessage(&page.Data[i]))
	}
	return out, nil
}

// CreateRun starts a run of the assistant against the thread.
func (c *OpenAIClient) CreateRun(ctx context.Context, threadID, assistantID string) (Run, error) {
	run, err := c.client.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
	})
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	return fromOpenAIRun(run), nil
}

// RetrieveRun polls the current state of a run.
func (c *OpenAIClient) RetrieveRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := c.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return Run{}, fmt.Errorf("retrieve run %s: %w", runID, err)
	}
	return fromOpenAIRun(run), nil
}

// SubmitToolOutputs submits the batch of tool outputs for a run awaiting action.
func (c *OpenAIClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error) {
	params := openai.BetaThreadRunSubmitToolOutputsParams{}
	for _, o := range outputs {
		params.ToolOutputs = append(params.ToolOutputs, openai.BetaThreadRunSubmitToolOutputsParamsToolOutput{
			ToolCallID: openai.String(o.ToolCallID),
			Output:     openai.String(o.Output),
		})
	}
	run, err := c.client.Beta.Threads.Runs.SubmitToolOutputs(ctx, threadID, runID, params)
	if err != nil {
		return Run{}, fmt.Errorf("submit tool outputs for run %s: %w", runID, err)
	}
	return fromOpenAIRun(run), nil
}

func fromOpenAIMessage(msg *openai.Message) Message {
	var content string
	for _, block := range msg.Content {
		if block.Text.Value != "" {
			content += block.Text.Value
		}
	}
	return Message{
		ID:          msg.ID,
		ThreadID:    msg.ThreadID,
		RunID:       msg.RunID,
		AssistantID: msg.AssistantID,
		Role:        string(msg.Role),
		Content:     content,
		CreatedAt:   time.Unix(msg.CreatedAt, 0),
	}
}

func fromOpenAIRun(run *openai.Run) Run {
	out := Run{
		ID:          run.ID,
		ThreadID:    run.ThreadID,
		AssistantID: run.AssistantID,
		Status:      RunStatus(run.Status),
	}
	for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out
}
