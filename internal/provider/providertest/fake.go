// Package providertest provides a scripted in-memory provider.Client for
// exercising the run engine, registry and sequencer without the network.
package providertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/memoirhq/memoir/internal/provider"
)

// RunScript describes how one created run behaves: the sequence of
// statuses successive polls observe, tool calls attached while the run
// requires action, and the assistant reply produced on completion.
type RunScript struct {
	Statuses  []provider.RunStatus
	ToolCalls []provider.ToolCall
	Reply     string
}

type runState struct {
	run       provider.Run
	pending   []provider.RunStatus
	toolCalls []provider.ToolCall
	reply     string
	terminal  bool
}

// Fake is a scripted provider.Client. Zero value is not usable; call New.
type Fake struct {
	mu         sync.Mutex
	assistants map[string]provider.Assistant
	threads    map[string]bool
	messages   map[string][]provider.Message
	scripts    []RunScript
	runs       map[string]*runState

	seq int

	// Recorded interactions, for assertions.
	SubmittedOutputs    [][]provider.ToolOutput
	Polls               map[string]int
	PollsAfterTerminal  int
	CreatedAssistants   []provider.AssistantSpec
	CreatedRuns         []string
	MetadataUpdates     []MetadataUpdate
}

// MetadataUpdate records one UpdateMessageMetadata call.
type MetadataUpdate struct {
	ThreadID  string
	MessageID string
	Metadata  map[string]string
}

// New creates an empty fake with no scripted runs. Runs created without a
// script complete immediately with the given default reply.
func New() *Fake {
	return &Fake{
		assistants: make(map[string]provider.Assistant),
		threads:    make(map[string]bool),
		messages:   make(map[string][]provider.Message),
		runs:       make(map[string]*runState),
		Polls:      make(map[string]int),
	}
}

// Script queues a run script; scripts are consumed in order by CreateRun.
func (f *Fake) Script(s RunScript) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, s)
}

func (f *Fake) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%04d", prefix, f.seq)
}

func (f *Fake) CreateAssistant(_ context.Context, spec provider.AssistantSpec) (provider.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreatedAssistants = append(f.CreatedAssistants, spec)
	a := provider.Assistant{ID: f.nextID("asst"), Name: spec.Name, Model: spec.Model}
	f.assistants[a.ID] = a
	return a, nil
}

func (f *Fake) RetrieveAssistant(_ context.Context, assistantID string) (provider.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assistants[assistantID]
	if !ok {
		return provider.Assistant{}, fmt.Errorf("no such assistant %s", assistantID)
	}
	return a, nil
}

func (f *Fake) CreateThread(_ context.Context) (provider.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("thread")
	f.threads[id] = true
	return provider.Thread{ID: id}, nil
}

func (f *Fake) CreateMessage(_ context.Context, threadID string, draft provider.MessageDraft) (provider.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := provider.Message{
		ID:        f.nextID("msg"),
		ThreadID:  threadID,
		Role:      draft.Role,
		Content:   draft.Content,
		CreatedAt: time.Now(),
	}
	f.messages[threadID] = append(f.messages[threadID], msg)
	return msg, nil
}

func (f *Fake) UpdateMessageMetadata(_ context.Context, threadID, messageID string, metadata map[string]string) (provider.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages[threadID] {
		if m.ID == messageID {
			f.MetadataUpdates = append(f.MetadataUpdates, MetadataUpdate{
				ThreadID:  threadID,
				MessageID: messageID,
				Metadata:  metadata,
			})
			return m, nil
		}
	}
	return provider.Message{}, fmt.Errorf("no such message %s", messageID)
}

func (f *Fake) ListRunMessages(_ context.Context, threadID, runID string) ([]provider.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []provider.Message
	for _, m := range f.messages[threadID] {
		if m.RunID == runID {
			out = append(out, m)
		}
	}
	return out, nil
}

// Messages returns all messages on a thread, oldest first.
func (f *Fake) Messages(threadID string) []provider.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.Message(nil), f.messages[threadID]...)
}

func (f *Fake) CreateRun(_ context.Context, threadID, assistantID string) (provider.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	script := RunScript{Statuses: []provider.RunStatus{provider.RunCompleted}, Reply: "Hello."}
	if len(f.scripts) > 0 {
		script = f.scripts[0]
		f.scripts = f.scripts[1:]
	}
	if len(script.Statuses) == 0 {
		script.Statuses = []provider.RunStatus{provider.RunCompleted}
	}

	st := &runState{
		run: provider.Run{
			ID:          f.nextID("run"),
			ThreadID:    threadID,
			AssistantID: assistantID,
		},
		pending:   script.Statuses,
		toolCalls: script.ToolCalls,
		reply:     script.Reply,
	}
	f.runs[st.run.ID] = st
	f.CreatedRuns = append(f.CreatedRuns, st.run.ID)
	f.advanceLocked(st)
	return st.run, nil
}

func (f *Fake) RetrieveRun(_ context.Context, _, runID string) (provider.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.runs[runID]
	if !ok {
		return provider.Run{}, fmt.Errorf("no such run %s", runID)
	}
	f.Polls[runID]++
	if st.terminal {
		f.PollsAfterTerminal++
	}
	f.advanceLocked(st)
	return st.run, nil
}

func (f *Fake) SubmitToolOutputs(_ context.Context, _, runID string, outputs []provider.ToolOutput) (provider.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.runs[runID]
	if !ok {
		return provider.Run{}, fmt.Errorf("no such run %s", runID)
	}
	if st.run.Status != provider.RunRequiresAction {
		return provider.Run{}, fmt.Errorf("run %s does not require action", runID)
	}
	f.SubmittedOutputs = append(f.SubmittedOutputs, outputs)
	f.advanceLocked(st)
	return st.run, nil
}

// advanceLocked moves the run to the next scripted status.
func (f *Fake) advanceLocked(st *runState) {
	if len(st.pending) == 0 {
		return
	}
	status := st.pending[0]
	st.pending = st.pending[1:]
	st.run.Status = status
	st.run.ToolCalls = nil
	if status == provider.RunRequiresAction {
		st.run.ToolCalls = st.toolCalls
	}
	if status.Terminal() {
		st.terminal = true
		if status == provider.RunCompleted && st.reply != "" {
			msg := provider.Message{
				ID:          f.nextID("msg"),
				ThreadID:    st.run.ThreadID,
				RunID:       st.run.ID,
				AssistantID: st.run.AssistantID,
				Role:        "assistant",
				Content:     st.reply,
				CreatedAt:   time.Now(),
			}
			f.messages[st.run.ThreadID] = append(f.messages[st.run.ThreadID], msg)
		}
	}
}
