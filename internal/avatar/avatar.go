package avatar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memoirhq/memoir/internal/db"
	"github.com/memoirhq/memoir/internal/experience"
	"github.com/memoirhq/memoir/internal/logging"
	"github.com/memoirhq/memoir/internal/message"
	"github.com/memoirhq/memoir/internal/provider"
	"github.com/memoirhq/memoir/internal/run"
	"github.com/memoirhq/memoir/internal/types"
)

const (
	membersCollection = "members"
	livingCollection  = "living"
)

// apologyText is returned as the chat reply when a run does not complete.
const apologyText = "I'm sorry, I lost my train of thought there. Could you say that again?"

// ErrNoLiving is returned when an experience operation arrives with no
// active experience for the member.
var ErrNoLiving = errors.New("no active experience")

// ErrNotSkippable is returned when ending an experience its definition
// does not allow skipping.
var ErrNotSkippable = errors.New("experience cannot be skipped")

// ErrExperienceActive is returned when a start arrives while the member
// already has an unarchived experience. The active one must finish or be
// ended first.
var ErrExperienceActive = errors.New("an experience is already active")

// ErrInputRequired is returned when an advance arrives while the
// experience is paused at an input event and no answer was supplied.
var ErrInputRequired = errors.New("experience is awaiting member input")

// Avatar orchestrates one member's chat and experience sessions.
type Avatar struct {
	memberID  string
	store     *db.Store
	client    provider.Client
	engine    *run.Engine
	registry  *Registry
	factory   *experience.Factory
	sequencer *experience.Sequencer
}

// newAvatar builds the orchestrator for one member. fallback is the
// configured dialog fallback line.
func newAvatar(memberID string, store *db.Store, client provider.Client, engine *run.Engine, registry *Registry, factory *experience.Factory, fallback string) *Avatar {
	a := &Avatar{
		memberID: memberID,
		store:    store,
		client:   client,
		engine:   engine,
		registry: registry,
		factory:  factory,
	}
	a.sequencer = experience.NewSequencer(a.runDialog, fallback)
	return a
}

// MemberID returns the member this avatar serves.
func (a *Avatar) MemberID() string {
	return a.memberID
}

// Chat runs one member message through the active bot and returns the
// structured responses the run produced. Run failures degrade to a single
// apology response rather than an error.
func (a *Avatar) Chat(ctx context.Context, req types.ChatRequest) ([]types.ChatResponse, error) {
	content := strings.TrimSpace(req.Message)
	if content == "" {
		return nil, errors.New("chat message is empty")
	}

	bot, err := a.registry.ResolveBot(ctx, a.memberID, req.BotID)
	if err != nil {
		return nil, err
	}
	threadID := bot.ThreadID
	if req.ThreadID != "" {
		threadID = req.ThreadID
	}
	if _, err := a.registry.Conversation(ctx, a.memberID, bot.ID, threadID, ConvChat); err != nil {
		return nil, err
	}

	draft, supersede := message.ToProviderMessage(content, req.PriorMessageID)
	if supersede {
		// Provider messages are append-only, so an edit posts a
		// replacement and tags the original as superseded.
		if _, err := a.client.UpdateMessageMetadata(ctx, threadID, req.PriorMessageID, map[string]string{
			"superseded": "true",
		}); err != nil {
			logging.Warnf("[avatar] supersede message %s: %v", req.PriorMessageID, err)
		}
	}
	if _, err := a.client.CreateMessage(ctx, threadID, draft); err != nil {
		return nil, fmt.Errorf("post chat message: %w", err)
	}

	started := time.Now()
	dispatcher := run.NewMemberDispatcher(a.store, a.memberID)
	botCtx := message.BotContext{BotID: bot.ID, AssistantID: bot.AssistantID, ThreadID: threadID}

	outcome, err := a.engine.Execute(ctx, bot.AssistantID, threadID, dispatcher)
	if err != nil {
		return nil, err
	}
	if !outcome.Completed() {
		logging.Warnf("[avatar] run for member %s ended %s", a.memberID, outcome.State)
		return []types.ChatResponse{apology(botCtx, started)}, nil
	}

	msgs, err := a.client.ListRunMessages(ctx, threadID, outcome.Run.ID)
	if err != nil {
		return nil, fmt.Errorf("read run messages: %w", err)
	}
	responses := message.FromProviderMessages(msgs, outcome.Run.ID, botCtx, started)
	if len(responses) == 0 {
		return []types.ChatResponse{apology(botCtx, started)}, nil
	}

	a.archiveChat(ctx, threadID, content, responses)
	return responses, nil
}

func apology(bot message.BotContext, started time.Time) types.ChatResponse {
	return types.ChatResponse{
		ActiveBotID:          bot.BotID,
		ActiveBotAssistantID: bot.AssistantID,
		Message:              apologyText,
		ResponseTimeMS:       time.Since(started).Milliseconds(),
		ThreadID:             bot.ThreadID,
		Type:                 "chat",
	}
}

func (a *Avatar) archiveChat(ctx context.Context, threadID, memberContent string, responses []types.ChatResponse) {
	now := time.Now()
	history := []StoredMessage{{Role: "member", Content: memberContent, CreatedAt: now}}
	for _, r := range responses {
		history = append(history, StoredMessage{
			Role: "assistant", Content: r.Message, Category: r.Category, CreatedAt: now,
		})
	}
	if err := a.registry.AppendHistory(ctx, threadID, history...); err != nil {
		logging.Errorf("[avatar] archive chat for %s: %v", a.memberID, err)
	}
}

// Sections returns the member's biography sections. Implements the
// contribution package's SectionReader.
func (a *Avatar) Sections(ctx context.Context) (map[string]string, error) {
	var member Member
	if err := a.store.Get(ctx, membersCollection, a.memberID, &member); err != nil {
		return nil, err
	}
	if member.Sections == nil {
		member.Sections = make(map[string]string)
	}
	return member.Sections, nil
}

// Generate produces free-form text from a prompt using the member's
// system bot on a fresh thread, recorded as a system conversation.
func (a *Avatar) Generate(ctx context.Context, prompt string) (string, error) {
	bot, err := a.registry.SystemBot(ctx, a.memberID)
	if err != nil {
		return "", err
	}
	conv, err := a.registry.NewConversation(ctx, a.memberID, bot.ID, ConvSystem)
	if err != nil {
		return "", err
	}
	return a.runDialog(ctx, bot.AssistantID, conv.ThreadID, prompt)
}

// runDialog posts a prompt to a thread, executes a run without tools, and
// returns the assistant's reply text. Backs both the experience sequencer
// and Generate.
func (a *Avatar) runDialog(ctx context.Context, assistantID, threadID, prompt string) (string, error) {
	draft, _ := message.ToProviderMessage(prompt, "")
	if _, err := a.client.CreateMessage(ctx, threadID, draft); err != nil {
		return "", fmt.Errorf("post dialog prompt: %w", err)
	}
	outcome, err := a.engine.Execute(ctx, assistantID, threadID, nil)
	if err != nil {
		return "", err
	}
	if !outcome.Completed() {
		return "", fmt.Errorf("dialog run ended %s", outcome.State)
	}
	msgs, err := a.client.ListRunMessages(ctx, threadID, outcome.Run.ID)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, m := range msgs {
		if m.RunID == outcome.Run.ID && m.Role == "assistant" && m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// ExperienceBatch is one advance result plus the traversal bookkeeping the
// front end needs.
type ExperienceBatch struct {
	ExperienceID  string                `json:"experienceId"`
	SceneID       string                `json:"sceneId"`
	Events        []types.ResolvedEvent `json:"events"`
	AwaitingInput bool                  `json:"awaitingInput"`
	SceneComplete bool                  `json:"sceneComplete"`
	Finished      bool                  `json:"finished"`
}

// StartExperience begins the experience for this member and returns the
// first event batch. Starting mid-experience is rejected: sceneID, when
// given, must name the first scene.
func (a *Avatar) StartExperience(ctx context.Context, experienceID, sceneID string) (*ExperienceBatch, error) {
	exp, ok := a.factory.Get(experienceID)
	if !ok {
		return nil, fmt.Errorf("experience %s not found", experienceID)
	}
	first := exp.Scenes[0]
	if sceneID != "" && sceneID != first.ID {
		return nil, fmt.Errorf("experience %s must start at scene %s", experienceID, first.ID)
	}

	var current experience.Living
	err := a.store.Get(ctx, livingCollection, a.memberID, &current)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	if err == nil && !current.Archived {
		return nil, fmt.Errorf("experience %s: %w", current.ExperienceID, ErrExperienceActive)
	}

	cast, err := a.resolveCast(ctx, exp)
	if err != nil {
		return nil, err
	}
	conv, err := a.registry.NewConversation(ctx, a.memberID, "", ConvExperience)
	if err != nil {
		return nil, err
	}
	dialogConv, err := a.registry.NewConversation(ctx, a.memberID, "", ConvDialog)
	if err != nil {
		return nil, err
	}

	living := &experience.Living{
		ExperienceID:         exp.ID,
		MemberID:             a.memberID,
		Location:             experience.Location{SceneID: first.ID, EventID: first.Events[0].ID},
		ConversationThreadID: conv.ThreadID,
		ScriptDialogThreadID: dialogConv.ThreadID,
		Variables:            map[string]string{},
		StartedAt:            time.Now(),
	}
	logging.Infof("[avatar] member %s starting experience %s", a.memberID, exp.ID)
	return a.advance(ctx, exp, living, cast, "")
}

// AdvanceExperience continues the member's active experience. memberInput
// answers a pending input event; it is required while the experience is
// paused at one.
func (a *Avatar) AdvanceExperience(ctx context.Context, experienceID, memberInput string) (*ExperienceBatch, error) {
	exp, living, err := a.activeExperience(ctx, experienceID)
	if err != nil {
		return nil, err
	}
	cast, err := a.resolveCast(ctx, exp)
	if err != nil {
		return nil, err
	}

	if living.AwaitingInput {
		if strings.TrimSpace(memberInput) == "" {
			return nil, ErrInputRequired
		}
		if err := a.consumeInput(exp, living, memberInput); err != nil {
			return nil, err
		}
	}
	return a.advance(ctx, exp, living, cast, memberInput)
}

// SubmitExperienceInput answers the pending input event and resumes the
// walk past its breakpoint.
func (a *Avatar) SubmitExperienceInput(ctx context.Context, experienceID, memberInput string) (*ExperienceBatch, error) {
	if strings.TrimSpace(memberInput) == "" {
		return nil, errors.New("member input is empty")
	}
	exp, living, err := a.activeExperience(ctx, experienceID)
	if err != nil {
		return nil, err
	}
	if !living.AwaitingInput {
		return nil, errors.New("experience is not awaiting input")
	}
	cast, err := a.resolveCast(ctx, exp)
	if err != nil {
		return nil, err
	}
	if err := a.consumeInput(exp, living, memberInput); err != nil {
		return nil, err
	}
	return a.advance(ctx, exp, living, cast, memberInput)
}

// EndExperience archives the member's active experience. Only experiences
// marked skippable may be ended early.
func (a *Avatar) EndExperience(ctx context.Context, experienceID string) error {
	exp, living, err := a.activeExperience(ctx, experienceID)
	if err != nil {
		return err
	}
	if !exp.Skippable {
		return ErrNotSkippable
	}
	living.Archived = true
	logging.Infof("[avatar] member %s ended experience %s early", a.memberID, exp.ID)
	return a.saveLiving(ctx, living)
}

// consumeInput records the answer to the paused input event into the
// living variables and moves the location past the event.
func (a *Avatar) consumeInput(exp *experience.Experience, living *experience.Living, memberInput string) error {
	scene := exp.Scene(living.Location.SceneID)
	if scene == nil {
		return fmt.Errorf("%w: scene %s", experience.ErrDesynchronized, living.Location.SceneID)
	}
	idx := scene.EventIndex(living.Location.EventID)
	if idx < 0 {
		return fmt.Errorf("%w: event %s", experience.ErrDesynchronized, living.Location.EventID)
	}

	variable := "memberInput"
	if input := scene.Events[idx].Input; input != nil && input.Variable != "" {
		variable = input.Variable
	}
	if living.Variables == nil {
		living.Variables = map[string]string{}
	}
	living.Variables[variable] = memberInput
	living.AwaitingInput = false

	if idx+1 < len(scene.Events) {
		living.Location.EventID = scene.Events[idx+1].ID
		return nil
	}
	return a.nextScene(exp, living)
}

// advance runs the sequencer from the current location, handles scene
// rollover and experience completion, and persists the living record.
func (a *Avatar) advance(ctx context.Context, exp *experience.Experience, living *experience.Living, cast experience.Cast, memberInput string) (*ExperienceBatch, error) {
	if living.Archived {
		return &ExperienceBatch{ExperienceID: exp.ID, Finished: true}, a.saveLiving(ctx, living)
	}

	sceneID := living.Location.SceneID
	batch, err := a.sequencer.Advance(ctx, exp, living, cast, memberInput)
	if err != nil {
		return nil, err
	}

	out := &ExperienceBatch{
		ExperienceID:  exp.ID,
		SceneID:       sceneID,
		Events:        batch.Events,
		AwaitingInput: batch.Breakpoint,
		SceneComplete: batch.SceneComplete,
	}
	if batch.SceneComplete {
		if err := a.nextScene(exp, living); err != nil {
			return nil, err
		}
		out.Finished = living.Archived
	}
	if err := a.saveLiving(ctx, living); err != nil {
		return nil, err
	}
	return out, nil
}

// nextScene moves the location to the following scene's first event, or
// archives the experience when the last scene just finished.
func (a *Avatar) nextScene(exp *experience.Experience, living *experience.Living) error {
	idx := exp.SceneIndex(living.Location.SceneID)
	if idx < 0 {
		return fmt.Errorf("%w: scene %s", experience.ErrDesynchronized, living.Location.SceneID)
	}
	if idx+1 >= len(exp.Scenes) {
		living.Archived = true
		logging.Infof("[avatar] member %s finished experience %s", a.memberID, exp.ID)
		return nil
	}
	next := exp.Scenes[idx+1]
	living.Location = experience.Location{SceneID: next.ID, EventID: next.Events[0].ID}
	return nil
}

// activeExperience loads the member's living record and checks it matches
// the requested experience.
func (a *Avatar) activeExperience(ctx context.Context, experienceID string) (*experience.Experience, *experience.Living, error) {
	var living experience.Living
	err := a.store.Get(ctx, livingCollection, a.memberID, &living)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil, ErrNoLiving
	}
	if err != nil {
		return nil, nil, err
	}
	if living.Archived || living.ExperienceID != experienceID {
		return nil, nil, ErrNoLiving
	}
	exp, ok := a.factory.Get(experienceID)
	if !ok {
		return nil, nil, fmt.Errorf("experience %s not found", experienceID)
	}
	return exp, &living, nil
}

func (a *Avatar) saveLiving(ctx context.Context, living *experience.Living) error {
	return a.store.Put(ctx, livingCollection, a.memberID, a.memberID, living)
}

// resolveCast maps the experience's cast roles onto concrete bots:
// persona roles bind to the member's persona bot, actor and system roles
// to per-experience bots provisioned from the cast material.
func (a *Avatar) resolveCast(ctx context.Context, exp *experience.Experience) (experience.Cast, error) {
	cast := make(experience.Cast, len(exp.Cast))
	for _, member := range exp.Cast {
		var bot *Bot
		var err error
		switch member.Type {
		case experience.CastPersona:
			bot, err = a.registry.PersonaBot(ctx, a.memberID)
		case experience.CastSystem:
			bot, err = a.registry.SystemBot(ctx, a.memberID)
		default:
			bot, err = a.registry.EnsureBot(ctx, &Bot{
				ID:           a.memberID + ":" + exp.ID + ":" + member.Role,
				MemberID:     a.memberID,
				Type:         TypeActor,
				Name:         member.Name,
				Instructions: member.Instructions,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("resolve cast role %s: %w", member.Role, err)
		}
		cast[member.Role] = experience.CastBot{
			Role:        member.Role,
			BotID:       bot.ID,
			AssistantID: bot.AssistantID,
		}
	}
	return cast, nil
}
