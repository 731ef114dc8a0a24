package types

// ChatRequest is an inbound member chat message. PriorMessageID is set
// when the member edited and re-sent an earlier message; the prior
// provider message is marked superseded before the new one is posted.
type ChatRequest struct {
	Message        string `json:"message"`
	BotID          string `json:"botId,omitempty"`
	ThreadID       string `json:"threadId,omitempty"`
	PriorMessageID string `json:"priorMessageId,omitempty"`
}

// ChatResponse is one structured front-end chat event produced from a run.
type ChatResponse struct {
	ActiveBotID          string `json:"activeBotId"`
	ActiveBotAssistantID string `json:"activeBotAssistantId"`
	Category             string `json:"category"`
	Message              string `json:"message"`
	ResponseTimeMS       int64  `json:"responseTimeMs"`
	ThreadID             string `json:"threadId"`
	Type                 string `json:"type"`
}

// ExperienceStartRequest starts a scripted experience.
type ExperienceStartRequest struct {
	ExperienceID string `path:"experienceId" json:"-"`
	SceneID      string `json:"sceneId,omitempty"`
}

// ExperienceAdvanceRequest advances the current experience.
type ExperienceAdvanceRequest struct {
	ExperienceID string `path:"experienceId" json:"-"`
	MemberInput  string `json:"memberInput,omitempty"`
}

// ExperienceInputRequest resumes a paused input event with the member's answer.
type ExperienceInputRequest struct {
	ExperienceID string `path:"experienceId" json:"-"`
	MemberInput  string `json:"memberInput"`
}

// ExperienceEndResponse reports whether the experience was ended.
type ExperienceEndResponse struct {
	Ended bool `json:"ended"`
}

// ExperienceSummary describes an available experience.
type ExperienceSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Skippable bool   `json:"skippable"`
	Scenes    int    `json:"scenes"`
}

// ResolvedEvent is one processed experience event for front-end rendering.
type ResolvedEvent struct {
	ID         string         `json:"id"`
	SceneID    string         `json:"sceneId"`
	Action     string         `json:"action"`
	ActorRole  string         `json:"actorRole,omitempty"`
	ActorBotID string         `json:"actorBotId,omitempty"`
	Dialog     string         `json:"dialog,omitempty"`
	Input      *ResolvedInput `json:"input,omitempty"`
	Breakpoint bool           `json:"breakpoint,omitempty"`
}

// ResolvedInput is the input specification attached to an input event.
type ResolvedInput struct {
	Variable string   `json:"variable"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// ExperienceListResponse lists the available experiences.
type ExperienceListResponse struct {
	Experiences []ExperienceSummary `json:"experiences"`
}

// ContributionCategoriesRequest asks for the next categories to elicit.
type ContributionCategoriesRequest struct {
	Count int `form:"count" json:"-"`
}

// ContributionCategoriesResponse carries the assessed categories.
type ContributionCategoriesResponse struct {
	Categories []string `json:"categories"`
}

// ContributionRequestRequest builds a contribution request for a category.
type ContributionRequestRequest struct {
	Category string `path:"category" json:"-"`
}

// ContributionUpdateRequest records a response or status change.
type ContributionUpdateRequest struct {
	ID       string `path:"id" json:"-"`
	Status   string `json:"status,omitempty"`
	Response string `json:"response,omitempty"`
}
