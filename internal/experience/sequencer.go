package experience

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/memoirhq/memoir/internal/logging"
	"github.com/memoirhq/memoir/internal/types"
)

// ErrDesynchronized means the member's recorded location no longer matches
// the experience definition (stale client state, edited script). Fatal for
// the request; the client must restart the experience.
var ErrDesynchronized = errors.New("experience desynchronized")

// noDialogFallback is the last resort when a script event carries no
// usable content at all.
const noDialogFallback = "No dialog developed"

// DialogFunc generates dialog by running the given assistant against the
// script-dialog thread with a fully built prompt. Implemented by the
// avatar layer on top of the run engine.
type DialogFunc func(ctx context.Context, assistantID, threadID, prompt string) (string, error)

// Batch is the ordered result of one advance call.
type Batch struct {
	Events []types.ResolvedEvent
	// Breakpoint is set when the walk stopped at an input event.
	Breakpoint bool
	// SceneComplete is set when the scene's events are exhausted.
	SceneComplete bool
}

// Sequencer resolves experience events into front-end batches.
type Sequencer struct {
	dialog   DialogFunc
	fallback string
}

// NewSequencer creates a sequencer. fallback is the configured dialog text
// substituted when prompt-driven generation fails or returns nothing.
func NewSequencer(dialog DialogFunc, fallback string) *Sequencer {
	if fallback == "" {
		fallback = noDialogFallback
	}
	return &Sequencer{dialog: dialog, fallback: fallback}
}

// Advance walks forward through the current scene's events starting at the
// member's recorded location, resolving each event, until it emits a
// breakpoint or exhausts the scene. living.Location is updated after every
// resolved event; the caller persists living.
func (s *Sequencer) Advance(ctx context.Context, exp *Experience, living *Living, cast Cast, memberInput string) (*Batch, error) {
	scene := exp.Scene(living.Location.SceneID)
	if scene == nil {
		return nil, fmt.Errorf("%w: scene %s not in experience %s", ErrDesynchronized, living.Location.SceneID, exp.ID)
	}
	idx := scene.EventIndex(living.Location.EventID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: event %s not in scene %s", ErrDesynchronized, living.Location.EventID, scene.ID)
	}

	vars := s.mergedVariables(exp, living, memberInput)

	batch := &Batch{}
	for ; idx < len(scene.Events); idx++ {
		event := &scene.Events[idx]
		resolved, err := s.resolve(ctx, exp, scene, event, living, cast, vars)
		if err != nil {
			return nil, err
		}

		living.Location.EventID = event.ID
		living.AwaitingInput = resolved.Breakpoint
		batch.Events = append(batch.Events, *resolved)

		if resolved.Breakpoint {
			batch.Breakpoint = true
			return batch, nil
		}
	}

	batch.SceneComplete = true
	return batch, nil
}

// resolve copies the immutable event template into a resolved event with
// computed dialog/input fields.
func (s *Sequencer) resolve(ctx context.Context, exp *Experience, scene *Scene, event *Event, living *Living, cast Cast, vars map[string]string) (*types.ResolvedEvent, error) {
	resolved := &types.ResolvedEvent{
		ID:        event.ID,
		SceneID:   scene.ID,
		Action:    event.Action,
		ActorRole: event.Actor,
	}
	if bot, ok := cast[event.Actor]; ok {
		resolved.ActorBotID = bot.BotID
	}

	switch event.Action {
	case ActionAppear:
		// Stage directive only; no dialog, no LLM involvement.
		return resolved, nil

	case ActionDialog:
		resolved.Dialog = s.resolveDialog(ctx, event, living, cast, vars)
		return resolved, nil

	case ActionInput:
		resolved.Dialog = s.resolveDialog(ctx, event, living, cast, vars)
		resolved.Input = resolveInput(event, living.CurrentIteration)
		// Member response is required before the walk may proceed.
		resolved.Breakpoint = true
		return resolved, nil
	}
	return nil, fmt.Errorf("experience %s: unknown event action %q", exp.ID, event.Action)
}

func (s *Sequencer) resolveDialog(ctx context.Context, event *Event, living *Living, cast Cast, vars map[string]string) string {
	if event.Type == TypePrompt {
		return s.generateDialog(ctx, event, living, cast, vars)
	}
	return scriptDialog(event, living.CurrentIteration)
}

// scriptDialog pulls the literal script line for the iteration, with the
// dialog → text → prompt → content fallback chain.
func scriptDialog(event *Event, iteration int) string {
	if line := event.Script.Dialog.At(iteration); line != "" {
		return line
	}
	if line := event.Script.Text.At(iteration); line != "" {
		return line
	}
	if event.Script.Prompt != "" {
		return event.Script.Prompt
	}
	if event.Script.Content != "" {
		return event.Script.Content
	}
	return noDialogFallback
}

// generateDialog builds the LLM prompt from the event template and runs it
// on the actor's script-dialog conversation. Failures degrade to the
// configured fallback text rather than aborting the event batch.
func (s *Sequencer) generateDialog(ctx context.Context, event *Event, living *Living, cast Cast, vars map[string]string) string {
	bot, ok := cast[event.Actor]
	if !ok {
		logging.Errorf("[experience] no cast bot for role %q", event.Actor)
		return s.fallback
	}

	prompt := SubstituteVariables(event.Script.Prompt, vars)
	if event.Script.Example != "" {
		prompt = "Example of the expected style:\n" + event.Script.Example + "\n\n" + prompt
	}
	if prompt == "" {
		return scriptDialog(event, living.CurrentIteration)
	}

	text, err := s.dialog(ctx, bot.AssistantID, living.ScriptDialogThreadID, prompt)
	if err != nil {
		logging.Errorf("[experience] dialog generation for %s failed: %v", event.ID, err)
		return s.fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return s.fallback
	}
	return text
}

func resolveInput(event *Event, iteration int) *types.ResolvedInput {
	if event.Input == nil {
		return &types.ResolvedInput{Variable: "memberInput", Question: noDialogFallback}
	}
	question := event.Input.Question.At(iteration)
	if question == "" {
		question = noDialogFallback
	}
	variable := event.Input.Variable
	if variable == "" {
		variable = "memberInput"
	}
	return &types.ResolvedInput{
		Variable: variable,
		Question: question,
		Options:  event.Input.Options,
	}
}

func (s *Sequencer) mergedVariables(exp *Experience, living *Living, memberInput string) map[string]string {
	vars := make(map[string]string, len(exp.Variables)+len(living.Variables)+1)
	for k, v := range exp.Variables {
		vars[k] = v
	}
	for k, v := range living.Variables {
		vars[k] = v
	}
	if memberInput != "" {
		vars["memberInput"] = memberInput
	}
	return vars
}

var variableTokenRe = regexp.MustCompile(`@@([A-Za-z][A-Za-z0-9_]*)`)

// SubstituteVariables replaces @@name tokens with their values. Unknown
// tokens are left in place so missing variables surface in review.
func SubstituteVariables(template string, vars map[string]string) string {
	return variableTokenRe.ReplaceAllStringFunc(template, func(token string) string {
		name := token[2:]
		if v, ok := vars[name]; ok {
			return v
		}
		return token
	})
}
