package run

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/memoirhq/memoir/internal/provider"
	"github.com/memoirhq/memoir/internal/provider/providertest"
)

func testEngine(fake *providertest.Fake) *Engine {
	return NewEngine(fake, time.Millisecond, 250*time.Millisecond)
}

func okTool(_ context.Context, _ json.RawMessage) ToolResult {
	return ToolResult{Success: true, Action: "carry on"}
}

func TestExecuteCompletes(t *testing.T) {
	fake := providertest.New()
	fake.Script(providertest.RunScript{
		Statuses: []provider.RunStatus{provider.RunQueued, provider.RunInProgress, provider.RunCompleted},
		Reply:    "done",
	})
	engine := testEngine(fake)

	outcome, err := engine.Execute(context.Background(), "asst1", "thread1", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !outcome.Completed() {
		t.Fatalf("state = %s, want completed", outcome.State)
	}
	if outcome.Run.Status != provider.RunCompleted {
		t.Errorf("run status = %s", outcome.Run.Status)
	}
	if fake.PollsAfterTerminal != 0 {
		t.Errorf("engine polled %d times after the run was terminal", fake.PollsAfterTerminal)
	}
}

func TestExecuteDispatchesToolsInOneBatch(t *testing.T) {
	fake := providertest.New()
	fake.Script(providertest.RunScript{
		Statuses: []provider.RunStatus{provider.RunRequiresAction, provider.RunCompleted},
		ToolCalls: []provider.ToolCall{
			{ID: "call_1", Name: "alpha", Arguments: json.RawMessage(`{}`)},
			{ID: "call_2", Name: "beta", Arguments: json.RawMessage(`{}`)},
		},
		Reply: "done",
	})
	engine := testEngine(fake)

	d := NewDispatcher()
	d.Register("alpha", okTool)
	d.Register("beta", okTool)

	outcome, err := engine.Execute(context.Background(), "asst1", "thread1", d)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !outcome.Completed() {
		t.Fatalf("state = %s", outcome.State)
	}
	if len(fake.SubmittedOutputs) != 1 {
		t.Fatalf("got %d submissions, want 1 atomic batch", len(fake.SubmittedOutputs))
	}
	batch := fake.SubmittedOutputs[0]
	if len(batch) != 2 {
		t.Fatalf("batch has %d outputs, want 2", len(batch))
	}
	if batch[0].ToolCallID != "call_1" || batch[1].ToolCallID != "call_2" {
		t.Errorf("outputs out of order: %+v", batch)
	}
}

func TestExecuteTimesOut(t *testing.T) {
	fake := providertest.New()
	// A single non-terminal status leaves the run in_progress forever.
	fake.Script(providertest.RunScript{
		Statuses: []provider.RunStatus{provider.RunInProgress},
	})
	engine := NewEngine(fake, time.Millisecond, 20*time.Millisecond)

	outcome, err := engine.Execute(context.Background(), "asst1", "thread1", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.State != StateTimedOut {
		t.Fatalf("state = %s, want timed_out", outcome.State)
	}
	if outcome.Run.Status != provider.RunInProgress {
		t.Errorf("timed-out outcome lost the last-seen run: %+v", outcome.Run)
	}
}

func TestExecuteFailedRunIsSoftFailure(t *testing.T) {
	fake := providertest.New()
	fake.Script(providertest.RunScript{
		Statuses: []provider.RunStatus{provider.RunFailed},
	})
	engine := testEngine(fake)

	outcome, err := engine.Execute(context.Background(), "asst1", "thread1", nil)
	if err != nil {
		t.Fatalf("failed run must not be an error: %v", err)
	}
	if outcome.State != StateFailed || outcome.Completed() {
		t.Errorf("state = %s", outcome.State)
	}
}

func TestExecuteUnknownToolAbortsBatch(t *testing.T) {
	fake := providertest.New()
	fake.Script(providertest.RunScript{
		Statuses: []provider.RunStatus{provider.RunRequiresAction, provider.RunCompleted},
		ToolCalls: []provider.ToolCall{
			{ID: "call_1", Name: "alpha", Arguments: json.RawMessage(`{}`)},
			{ID: "call_2", Name: "never-registered", Arguments: json.RawMessage(`{}`)},
		},
	})
	engine := testEngine(fake)

	d := NewDispatcher()
	d.Register("alpha", okTool)

	_, err := engine.Execute(context.Background(), "asst1", "thread1", d)
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownToolError", err)
	}
	if len(fake.SubmittedOutputs) != 0 {
		t.Errorf("partial batch was submitted: %+v", fake.SubmittedOutputs)
	}
}

func TestExecuteRequiresActionWithoutDispatcher(t *testing.T) {
	fake := providertest.New()
	fake.Script(providertest.RunScript{
		Statuses: []provider.RunStatus{provider.RunRequiresAction, provider.RunCompleted},
		ToolCalls: []provider.ToolCall{
			{ID: "call_1", Name: "alpha", Arguments: json.RawMessage(`{}`)},
		},
	})
	engine := testEngine(fake)

	if _, err := engine.Execute(context.Background(), "asst1", "thread1", nil); err == nil {
		t.Fatal("expected an error when tools are requested with no dispatcher")
	}
}

func TestExecuteValidatesIdentifiers(t *testing.T) {
	engine := testEngine(providertest.New())
	if _, err := engine.Execute(context.Background(), "", "thread1", nil); err == nil {
		t.Error("empty assistant id accepted")
	}
	if _, err := engine.Execute(context.Background(), "asst1", "", nil); err == nil {
		t.Error("empty thread id accepted")
	}
}

func TestExecuteSerializesPerThread(t *testing.T) {
	fake := providertest.New()
	fake.Script(providertest.RunScript{
		Statuses: []provider.RunStatus{provider.RunInProgress, provider.RunCompleted},
		Reply:    "first",
	})
	fake.Script(providertest.RunScript{
		Statuses: []provider.RunStatus{provider.RunCompleted},
		Reply:    "second",
	})
	engine := testEngine(fake)

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := engine.Execute(context.Background(), "asst1", "thread1", nil)
			done <- err
		}()
	}
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if len(fake.CreatedRuns) != 2 {
		t.Fatalf("got %d runs, want 2", len(fake.CreatedRuns))
	}
}
