// Package run drives one execution attempt of a bot against a thread
// through the remote run lifecycle: create, poll to a terminal status, and
// dispatch any mid-run tool-function calls the provider requests.
package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/memoirhq/memoir/internal/logging"
	"github.com/memoirhq/memoir/internal/provider"
)

// State is the engine's terminal outcome classification. Failed, Cancelled,
// Expired and TimedOut are soft failures callers handle, not errors.
type State string

const (
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
	StateExpired   State = "expired"
	// StateTimedOut is synthetic: the poll budget elapsed before the
	// provider reported a terminal status. The outcome still carries the
	// last-seen run state.
	StateTimedOut State = "timed_out"
)

// Outcome is the single terminal result of executing a run.
type Outcome struct {
	State State
	Run   provider.Run
}

// Completed reports whether the run finished normally.
func (o *Outcome) Completed() bool {
	return o.State == StateCompleted
}

const (
	defaultPollInterval = 890 * time.Millisecond
	defaultTimeout      = 55 * time.Second
)

// Engine executes runs. One engine is shared process-wide; it serializes
// runs per thread so a run never starts while a prior run on the same
// thread is still live.
type Engine struct {
	client       provider.Client
	pollInterval time.Duration
	timeout      time.Duration

	mu          sync.Mutex
	threadLocks map[string]*sync.Mutex
}

// NewEngine creates an engine. Zero durations select the defaults
// (890ms poll, 55s overall timeout).
func NewEngine(client provider.Client, pollInterval, timeout time.Duration) *Engine {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Engine{
		client:       client,
		pollInterval: pollInterval,
		timeout:      timeout,
		threadLocks:  make(map[string]*sync.Mutex),
	}
}

func (e *Engine) threadLock(threadID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.threadLocks[threadID]
	if !ok {
		l = &sync.Mutex{}
		e.threadLocks[threadID] = l
	}
	return l
}

// Execute runs the assistant against the thread and blocks until the run
// reaches a terminal state or the poll budget elapses. Provider-transient
// failures come back as a non-completed Outcome; errors are reserved for
// contract violations and transport failures.
func (e *Engine) Execute(ctx context.Context, assistantID, threadID string, d *Dispatcher) (*Outcome, error) {
	if assistantID == "" || threadID == "" {
		return nil, errors.New("run: assistant and thread are required")
	}

	// Per-thread serialization: the provider rejects overlapping runs on
	// one thread, so queue behind any live run here.
	lock := e.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	run, err := e.client.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		return nil, fmt.Errorf("start run on thread %s: %w", threadID, err)
	}
	logging.Debugf("[run] started run %s (assistant=%s thread=%s)", run.ID, assistantID, threadID)

	deadline := time.Now().Add(e.timeout)
	for {
		if run.Status.Terminal() {
			return terminalOutcome(run), nil
		}

		if run.Status == provider.RunRequiresAction {
			outputs, derr := e.dispatchAll(ctx, d, run.ToolCalls)
			if derr != nil {
				return nil, fmt.Errorf("run %s: %w", run.ID, derr)
			}
			run, err = e.client.SubmitToolOutputs(ctx, threadID, run.ID, outputs)
			if err != nil {
				return nil, fmt.Errorf("submit tool outputs for run %s: %w", run.ID, err)
			}
			continue
		}

		if time.Now().After(deadline) {
			logging.Warnf("[run] run %s timed out after %s (last status %s)", run.ID, e.timeout, run.Status)
			return &Outcome{State: StateTimedOut, Run: run}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.pollInterval):
		}

		run, err = e.client.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			return nil, fmt.Errorf("poll run: %w", err)
		}
	}
}

func terminalOutcome(run provider.Run) *Outcome {
	switch run.Status {
	case provider.RunCompleted:
		return &Outcome{State: StateCompleted, Run: run}
	case provider.RunCancelled:
		return &Outcome{State: StateCancelled, Run: run}
	case provider.RunExpired:
		return &Outcome{State: StateExpired, Run: run}
	default:
		return &Outcome{State: StateFailed, Run: run}
	}
}

// dispatchAll fans the requested tool calls out concurrently and joins
// before returning. The provider requires all outstanding outputs for a
// run submitted atomically, so results are buffered until every dispatched
// call settles; any dispatch error aborts the whole batch.
func (e *Engine) dispatchAll(ctx context.Context, d *Dispatcher, calls []provider.ToolCall) ([]provider.ToolOutput, error) {
	if d == nil {
		return nil, errors.New("run requires tool action but no dispatcher was supplied")
	}
	if len(calls) == 0 {
		return nil, errors.New("requires_action with no tool calls")
	}

	outputs := make([]provider.ToolOutput, len(calls))
	errs := make([]error, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call provider.ToolCall) {
			defer wg.Done()
			result, err := d.Dispatch(ctx, call)
			if err != nil {
				errs[i] = err
				return
			}
			payload, err := json.Marshal(result)
			if err != nil {
				errs[i] = fmt.Errorf("marshal output of %s: %w", call.Name, err)
				return
			}
			outputs[i] = provider.ToolOutput{ToolCallID: call.ID, Output: string(payload)}
		}(i, call)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return outputs, nil
}
