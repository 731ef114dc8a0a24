package run

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/memoirhq/memoir/internal/db"
	"github.com/memoirhq/memoir/internal/logging"
)

// Collection names used by the builtin tool functions.
const (
	membersCollection = "members"
	storiesCollection = "stories"
)

// NewMemberDispatcher builds the dispatcher wired for one member's runs,
// with the builtin tool functions the assistant instructions reference.
func NewMemberDispatcher(store *db.Store, memberID string) *Dispatcher {
	d := NewDispatcher()
	d.Register("confirm-registration", confirmRegistration(store, memberID))
	d.Register("set-account-basics", setAccountBasics(store, memberID))
	d.Register("summarize-entry", summarizeEntry(store, memberID))
	d.Register("summarize-story", summarizeStory(store, memberID))
	d.Register("flag-hijack-attempt", flagHijackAttempt(store, memberID))
	return d
}

func confirmRegistration(store *db.Store, memberID string) ToolFunc {
	return func(ctx context.Context, _ json.RawMessage) ToolResult {
		err := store.Patch(ctx, membersCollection, memberID, map[string]any{
			"registrationConfirmed": true,
		})
		if err != nil {
			logging.Errorf("[tools] confirm-registration for %s: %v", memberID, err)
			return ToolResult{Action: "Apologize briefly; the registration could not be confirmed right now."}
		}
		return ToolResult{
			Success: true,
			Action:  "Registration is confirmed. Welcome the member and ask what part of their life story they would like to start with.",
		}
	}
}

type accountBasicsArgs struct {
	FullName  string `json:"fullName"`
	Birthdate string `json:"birthdate"`
	Interests string `json:"interests"`
}

func setAccountBasics(store *db.Store, memberID string) ToolFunc {
	return func(ctx context.Context, args json.RawMessage) ToolResult {
		var a accountBasicsArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return ToolResult{Action: "The account details could not be read. Ask the member to repeat their birthdate and full name."}
		}
		fields := map[string]any{}
		if a.FullName != "" {
			fields["fullName"] = a.FullName
		}
		if a.Birthdate != "" {
			fields["birthdate"] = a.Birthdate
		}
		if a.Interests != "" {
			fields["interests"] = a.Interests
		}
		if len(fields) == 0 {
			return ToolResult{Action: "No account details were provided. Ask the member for their birthdate and full name."}
		}
		if err := store.Patch(ctx, membersCollection, memberID, fields); err != nil {
			logging.Errorf("[tools] set-account-basics for %s: %v", memberID, err)
			return ToolResult{Action: "Saving the account details failed. Let the member know and move on."}
		}
		return ToolResult{
			Success: true,
			Action:  "Account basics are saved. Acknowledge them naturally and continue the conversation.",
		}
	}
}

type summarizeEntryArgs struct {
	Category string `json:"category"`
	Summary  string `json:"summary"`
}

// summarizeEntry folds a summary into the member's biography section for
// the category, creating the section when absent.
func summarizeEntry(store *db.Store, memberID string) ToolFunc {
	return func(ctx context.Context, args json.RawMessage) ToolResult {
		var a summarizeEntryArgs
		if err := json.Unmarshal(args, &a); err != nil || strings.TrimSpace(a.Summary) == "" {
			return ToolResult{Action: "The entry summary was empty. Continue without saving."}
		}

		var member struct {
			Sections map[string]string `json:"sections"`
		}
		if err := store.Get(ctx, membersCollection, memberID, &member); err != nil {
			logging.Errorf("[tools] summarize-entry read %s: %v", memberID, err)
			return ToolResult{Action: "The entry could not be saved. Continue the conversation."}
		}
		if member.Sections == nil {
			member.Sections = make(map[string]string)
		}
		category := a.Category
		if category == "" {
			category = "general"
		}
		existing := member.Sections[category]
		if existing != "" {
			existing += "\n"
		}
		member.Sections[category] = existing + strings.TrimSpace(a.Summary)

		if err := store.Patch(ctx, membersCollection, memberID, map[string]any{"sections": member.Sections}); err != nil {
			logging.Errorf("[tools] summarize-entry write %s: %v", memberID, err)
			return ToolResult{Action: "The entry could not be saved. Continue the conversation."}
		}
		return ToolResult{
			Success: true,
			Action:  fmt.Sprintf("The %s entry is saved. Ask one follow-up question that deepens it.", category),
		}
	}
}

type summarizeStoryArgs struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func summarizeStory(store *db.Store, memberID string) ToolFunc {
	return func(ctx context.Context, args json.RawMessage) ToolResult {
		var a summarizeStoryArgs
		if err := json.Unmarshal(args, &a); err != nil || strings.TrimSpace(a.Summary) == "" {
			return ToolResult{Action: "The story summary was empty. Continue without saving."}
		}
		id := storyID(memberID, a.Title)
		doc := map[string]any{
			"memberId": memberID,
			"title":    a.Title,
			"summary":  a.Summary,
		}
		if err := store.Put(ctx, storiesCollection, id, memberID, doc); err != nil {
			logging.Errorf("[tools] summarize-story for %s: %v", memberID, err)
			return ToolResult{Action: "The story could not be saved. Continue the conversation."}
		}
		return ToolResult{
			Success: true,
			Action:  "The story is captured. Tell the member it has been added to their memoir and invite the next one.",
		}
	}
}

type hijackArgs struct {
	Reason string `json:"reason"`
}

func flagHijackAttempt(store *db.Store, memberID string) ToolFunc {
	return func(ctx context.Context, args json.RawMessage) ToolResult {
		var a hijackArgs
		_ = json.Unmarshal(args, &a)
		logging.Warnf("[tools] hijack attempt flagged for member %s: %s", memberID, a.Reason)
		if err := store.Patch(ctx, membersCollection, memberID, map[string]any{"hijackFlagged": true}); err != nil {
			logging.Errorf("[tools] flag-hijack-attempt for %s: %v", memberID, err)
		}
		return ToolResult{
			Success: true,
			Action:  "Decline the off-mission request politely and steer back to the member's biography.",
		}
	}
}

func storyID(memberID, title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.ReplaceAll(slug, " ", "-")
	if slug == "" {
		slug = "untitled"
	}
	if len(slug) > 48 {
		slug = slug[:48]
	}
	return memberID + ":" + slug
}
