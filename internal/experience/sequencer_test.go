package experience

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func threeEventExperience() *Experience {
	return &Experience{
		ID:    "exp1",
		Title: "Test",
		Scenes: []Scene{{
			ID: "scene1",
			Events: []Event{
				{ID: "e1", Action: ActionDialog, Actor: "narrator", Type: TypeScript,
					Script: Script{Dialog: StringList{"Hello there."}}},
				{ID: "e2", Action: ActionInput, Actor: "narrator", Type: TypeScript,
					Script: Script{Dialog: StringList{"A question now."}},
					Input:  &Input{Variable: "answer", Question: StringList{"What say you?"}}},
				{ID: "e3", Action: ActionDialog, Actor: "narrator", Type: TypeScript,
					Script: Script{Dialog: StringList{"And we continue."}}},
			},
		}},
	}
}

func livingAt(exp *Experience) *Living {
	return &Living{
		ExperienceID: exp.ID,
		MemberID:     "m1",
		Location:     Location{SceneID: exp.Scenes[0].ID, EventID: exp.Scenes[0].Events[0].ID},
		Variables:    map[string]string{},
	}
}

func noDialog(_ context.Context, _, _, _ string) (string, error) {
	return "", errors.New("dialog must not be called")
}

func TestAdvanceStopsAtInputBreakpoint(t *testing.T) {
	exp := threeEventExperience()
	living := livingAt(exp)
	s := NewSequencer(noDialog, "")

	batch, err := s.Advance(context.Background(), exp, living, Cast{}, "")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if len(batch.Events) != 2 {
		t.Fatalf("got %d events, want 2 (dialog then input)", len(batch.Events))
	}
	if !batch.Breakpoint || batch.SceneComplete {
		t.Errorf("batch = %+v, want breakpoint without scene completion", batch)
	}
	if batch.Events[0].ID != "e1" || batch.Events[1].ID != "e2" {
		t.Errorf("event order: %s, %s", batch.Events[0].ID, batch.Events[1].ID)
	}
	if !batch.Events[1].Breakpoint || batch.Events[1].Input == nil {
		t.Errorf("input event not resolved: %+v", batch.Events[1])
	}
	if batch.Events[1].Input.Variable != "answer" {
		t.Errorf("input variable = %q", batch.Events[1].Input.Variable)
	}
	if living.Location.EventID != "e2" || !living.AwaitingInput {
		t.Errorf("living = %+v", living)
	}
}

func TestAdvanceCompletesScene(t *testing.T) {
	exp := threeEventExperience()
	living := livingAt(exp)
	living.Location.EventID = "e3"
	s := NewSequencer(noDialog, "")

	batch, err := s.Advance(context.Background(), exp, living, Cast{}, "")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !batch.SceneComplete || batch.Breakpoint {
		t.Errorf("batch = %+v, want scene completion", batch)
	}
	if len(batch.Events) != 1 || batch.Events[0].ID != "e3" {
		t.Errorf("events = %+v", batch.Events)
	}
}

func TestAdvanceDesynchronizedLocation(t *testing.T) {
	exp := threeEventExperience()
	living := livingAt(exp)
	living.Location.EventID = "gone"
	s := NewSequencer(noDialog, "")

	_, err := s.Advance(context.Background(), exp, living, Cast{}, "")
	if !errors.Is(err, ErrDesynchronized) {
		t.Fatalf("err = %v, want ErrDesynchronized", err)
	}

	living = livingAt(exp)
	living.Location.SceneID = "gone"
	if _, err := s.Advance(context.Background(), exp, living, Cast{}, ""); !errors.Is(err, ErrDesynchronized) {
		t.Fatalf("err = %v, want ErrDesynchronized", err)
	}
}

func TestGenerateDialogSubstitutesVariables(t *testing.T) {
	exp := &Experience{
		ID:        "exp1",
		Variables: map[string]string{"serviceName": "Memoir"},
		Scenes: []Scene{{
			ID: "scene1",
			Events: []Event{
				{ID: "e1", Action: ActionDialog, Actor: "narrator", Type: TypePrompt,
					Script: Script{Prompt: "Welcome @@preferredName to @@serviceName."}},
			},
		}},
	}
	living := livingAt(exp)
	living.Variables["preferredName"] = "June"
	living.ScriptDialogThreadID = "thread_dialog"

	var gotPrompt, gotThread string
	dialog := func(_ context.Context, _, threadID, prompt string) (string, error) {
		gotPrompt, gotThread = prompt, threadID
		return "Welcome, June.", nil
	}
	s := NewSequencer(dialog, "")
	cast := Cast{"narrator": {Role: "narrator", BotID: "b1", AssistantID: "a1"}}

	batch, err := s.Advance(context.Background(), exp, living, cast, "")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if gotPrompt != "Welcome June to Memoir." {
		t.Errorf("prompt = %q", gotPrompt)
	}
	if gotThread != "thread_dialog" {
		t.Errorf("thread = %q", gotThread)
	}
	if batch.Events[0].Dialog != "Welcome, June." {
		t.Errorf("dialog = %q", batch.Events[0].Dialog)
	}
}

func TestGenerateDialogFallsBackOnError(t *testing.T) {
	exp := &Experience{
		ID: "exp1",
		Scenes: []Scene{{
			ID: "scene1",
			Events: []Event{
				{ID: "e1", Action: ActionDialog, Actor: "narrator", Type: TypePrompt,
					Script: Script{Prompt: "Say something."}},
			},
		}},
	}
	living := livingAt(exp)
	dialog := func(_ context.Context, _, _, _ string) (string, error) {
		return "", fmt.Errorf("provider down")
	}
	s := NewSequencer(dialog, "One moment, please.")
	cast := Cast{"narrator": {Role: "narrator", BotID: "b1", AssistantID: "a1"}}

	batch, err := s.Advance(context.Background(), exp, living, cast, "")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if batch.Events[0].Dialog != "One moment, please." {
		t.Errorf("dialog = %q, want configured fallback", batch.Events[0].Dialog)
	}
}

func TestScriptDialogFallbackChain(t *testing.T) {
	cases := []struct {
		name   string
		script Script
		want   string
	}{
		{"dialog wins", Script{Dialog: StringList{"d"}, Text: StringList{"t"}, Prompt: "p", Content: "c"}, "d"},
		{"then text", Script{Text: StringList{"t"}, Prompt: "p", Content: "c"}, "t"},
		{"then prompt", Script{Prompt: "p", Content: "c"}, "p"},
		{"then content", Script{Content: "c"}, "c"},
		{"last resort", Script{}, "No dialog developed"},
	}
	for _, c := range cases {
		event := &Event{Script: c.script}
		if got := scriptDialog(event, 0); got != c.want {
			t.Errorf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestStringListAtClamps(t *testing.T) {
	s := StringList{"first", "second"}
	if s.At(0) != "first" || s.At(1) != "second" {
		t.Error("direct indexing broken")
	}
	if s.At(5) != "second" {
		t.Errorf("At(5) = %q, want clamp to last", s.At(5))
	}
	if s.At(-1) != "first" {
		t.Errorf("At(-1) = %q", s.At(-1))
	}
	var empty StringList
	if empty.At(0) != "" {
		t.Error("empty list must yield empty string")
	}
}

func TestSubstituteVariables(t *testing.T) {
	vars := map[string]string{"name": "June", "city": "Lisbon"}
	got := SubstituteVariables("Hi @@name, welcome to @@city. @@unknown stays.", vars)
	want := "Hi June, welcome to Lisbon. @@unknown stays."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
