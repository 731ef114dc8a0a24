package run

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/memoirhq/memoir/internal/logging"
	"github.com/memoirhq/memoir/internal/provider"
)

// ToolResult is what every tool function returns to the run: whether it
// succeeded, and a natural-language instruction appended to guide the
// assistant's next turn (not a UI string).
type ToolResult struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
}

// ToolFunc executes one named tool function with its structured arguments.
type ToolFunc func(ctx context.Context, args json.RawMessage) ToolResult

// UnknownToolError marks a run-fatal contract violation: the provider
// requested a tool function this process never registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool function %q", e.Name)
}

// Dispatcher is a registry of named tool functions.
type Dispatcher struct {
	mu    sync.RWMutex
	funcs map[string]ToolFunc
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{funcs: make(map[string]ToolFunc)}
}

// Register adds a tool function under the given name, replacing any prior
// registration.
func (d *Dispatcher) Register(name string, fn ToolFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.funcs[name]; ok {
		logging.Warnf("[tools] tool %q already registered, overwritten", name)
	}
	d.funcs[name] = fn
}

// Names returns the registered tool function names.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.funcs))
	for name := range d.funcs {
		names = append(names, name)
	}
	return names
}

// Dispatch invokes the named tool function. An unknown name is an
// UnknownToolError — the run cannot be completed.
func (d *Dispatcher) Dispatch(ctx context.Context, call provider.ToolCall) (ToolResult, error) {
	d.mu.RLock()
	fn, ok := d.funcs[call.Name]
	d.mu.RUnlock()
	if !ok {
		return ToolResult{}, &UnknownToolError{Name: call.Name}
	}
	logging.Debugf("[tools] dispatching %s", call.Name)
	return fn(ctx, call.Arguments), nil
}
