// Package experience walks a member through a scripted, multi-scene
// interactive narrative: scenes of events whose dialog comes either from
// static script lines or from prompt-driven assistant runs, pausing at
// input breakpoints for member answers.
package experience

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Event actions.
const (
	ActionAppear = "appear"
	ActionDialog = "dialog"
	ActionInput  = "input"
)

// Event resolution types.
const (
	TypeScript = "script"
	TypePrompt = "prompt"
)

// Cast member bot types.
const (
	CastPersona = "persona"
	CastActor   = "actor"
	CastSystem  = "system"
)

// StringList unmarshals a YAML scalar or sequence into a list, so script
// dialog can be a single line or an iteration-indexed array.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = StringList{v}
		return nil
	case yaml.SequenceNode:
		var v []string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = StringList(v)
		return nil
	}
	return fmt.Errorf("dialog value must be a string or list")
}

// At returns the entry for the given iteration, clamping to the last.
func (s StringList) At(iteration int) string {
	if len(s) == 0 {
		return ""
	}
	if iteration < 0 {
		iteration = 0
	}
	if iteration >= len(s) {
		iteration = len(s) - 1
	}
	return s[iteration]
}

// Script is an event's static content and prompt material. Dialog
// resolution falls through dialog → text → prompt → content.
type Script struct {
	Dialog  StringList `yaml:"dialog"`
	Text    StringList `yaml:"text"`
	Prompt  string     `yaml:"prompt"`
	Content string     `yaml:"content"`
	Example string     `yaml:"example"`
}

// Input is the member-input specification attached to an input event.
type Input struct {
	Variable string     `yaml:"variable"`
	Question StringList `yaml:"question"`
	Options  []string   `yaml:"options"`
}

// Event is one immutable template step of a scene. Processing never
// mutates the template; resolution copies into a ResolvedEvent.
type Event struct {
	ID     string `yaml:"id"`
	Action string `yaml:"action"`
	Actor  string `yaml:"actor"`
	Type   string `yaml:"type"`
	Script Script `yaml:"script"`
	Input  *Input `yaml:"input"`
}

// Scene is an ordered list of events.
type Scene struct {
	ID     string  `yaml:"id"`
	Title  string  `yaml:"title"`
	Events []Event `yaml:"events"`
}

// EventIndex returns the index of the event with the given id, or -1.
func (s *Scene) EventIndex(eventID string) int {
	for i := range s.Events {
		if s.Events[i].ID == eventID {
			return i
		}
	}
	return -1
}

// CastMember maps a narrative role to a bot type and its persona material.
type CastMember struct {
	Role         string `yaml:"role"`
	Type         string `yaml:"type"`
	Name         string `yaml:"name"`
	Instructions string `yaml:"instructions"`
}

// Experience is a complete scripted narrative definition.
type Experience struct {
	ID        string            `yaml:"id"`
	Title     string            `yaml:"title"`
	Skippable bool              `yaml:"skippable"`
	Cast      []CastMember      `yaml:"cast"`
	Variables map[string]string `yaml:"variables"`
	Scenes    []Scene           `yaml:"scenes"`
}

// Scene returns the scene with the given id, or nil.
func (e *Experience) Scene(sceneID string) *Scene {
	for i := range e.Scenes {
		if e.Scenes[i].ID == sceneID {
			return &e.Scenes[i]
		}
	}
	return nil
}

// SceneIndex returns the index of the scene with the given id, or -1.
func (e *Experience) SceneIndex(sceneID string) int {
	for i := range e.Scenes {
		if e.Scenes[i].ID == sceneID {
			return i
		}
	}
	return -1
}

// CastBot is a cast role resolved to a concrete bot.
type CastBot struct {
	Role        string `json:"role"`
	BotID       string `json:"botId"`
	AssistantID string `json:"assistantId"`
}

// Cast maps role names to resolved bots.
type Cast map[string]CastBot

// Location is the member's current position inside an experience.
type Location struct {
	SceneID string `json:"sceneId"`
	EventID string `json:"eventId"`
}

// Living is the mutable progress record for one member's traversal of one
// experience. Persisted after every processed event so a member can resume.
type Living struct {
	ExperienceID         string            `json:"experienceId"`
	MemberID             string            `json:"memberId"`
	Location             Location          `json:"location"`
	ConversationThreadID string            `json:"conversationThreadId"`
	ScriptDialogThreadID string            `json:"scriptDialogThreadId"`
	CurrentIteration     int               `json:"currentIteration"`
	Variables            map[string]string `json:"variables"`
	AwaitingInput        bool              `json:"awaitingInput"`
	StartedAt            time.Time         `json:"startedAt"`
	Archived             bool              `json:"archived"`
}
