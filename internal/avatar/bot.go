// Package avatar owns the member-facing orchestration: bots (persona,
// actor, system), their conversations, chat turns through the run engine,
// and the member's traversal of scripted experiences.
package avatar

import (
	"time"
)

// Bot types. A member has exactly one persona bot; actor and system bots
// are provisioned per need (experience casts, utility generation).
const (
	TypePersona = "personal-avatar"
	TypeActor   = "actor"
	TypeSystem  = "system"
)

// Conversation types.
const (
	ConvChat       = "chat"
	ConvExperience = "experience"
	ConvDialog     = "dialog"
	ConvSystem     = "system"
)

// Bot binds a local identity to a remote assistant and its default thread.
// AssistantID and ThreadID are write-once: set on provisioning, never
// rebound afterwards.
type Bot struct {
	ID           string            `json:"id"`
	MemberID     string            `json:"memberId"`
	Type         string            `json:"type"`
	AssistantID  string            `json:"assistantId"`
	ThreadID     string            `json:"threadId"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Greeting     string            `json:"greeting,omitempty"`
	Model        string            `json:"model,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// StoredMessage is one archived exchange line in a conversation.
type StoredMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is the local record of one provider thread: who it belongs
// to, which bot speaks on it, and the archived history.
type Conversation struct {
	ThreadID  string          `json:"threadId"`
	MemberID  string          `json:"memberId"`
	BotID     string          `json:"botId"`
	Type      string          `json:"type"`
	Messages  []StoredMessage `json:"messages"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Member is the stored member profile. Sections accumulate biography
// content per category and drive contribution assessment.
type Member struct {
	ID                    string            `json:"id"`
	FullName              string            `json:"fullName,omitempty"`
	Birthdate             string            `json:"birthdate,omitempty"`
	Interests             string            `json:"interests,omitempty"`
	RegistrationConfirmed bool              `json:"registrationConfirmed"`
	Sections              map[string]string `json:"sections"`
	CreatedAt             time.Time         `json:"createdAt"`
}

// defaultSections seeds a new member's biography outline so category
// assessment has material to rank from the first session.
var defaultSections = []string{
	"childhood",
	"family",
	"education",
	"career",
	"relationships",
	"places",
	"turning_points",
}
