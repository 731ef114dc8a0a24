package message

import (
	"time"

	"github.com/memoirhq/memoir/internal/markdown"
	"github.com/memoirhq/memoir/internal/provider"
	"github.com/memoirhq/memoir/internal/types"
)

// BotContext identifies the bot a run executed as, for response tagging.
type BotContext struct {
	BotID       string
	AssistantID string
	ThreadID    string
}

// ToProviderMessage wraps member content as a user-role draft. A non-empty
// priorID selects update semantics: the caller marks the prior message
// superseded before posting the replacement. No id is always an insert.
func ToProviderMessage(content, priorID string) (provider.MessageDraft, bool) {
	draft := provider.MessageDraft{
		Role:    "user",
		Content: content,
	}
	return draft, priorID != ""
}

// FromProviderMessages converts the raw messages a run produced into
// structured chat responses: filters to the given run, decodes the
// category marker, and renders the body line by line.
func FromProviderMessages(msgs []provider.Message, runID string, bot BotContext, started time.Time) []types.ChatResponse {
	elapsed := time.Since(started).Milliseconds()

	var out []types.ChatResponse
	for _, m := range msgs {
		if m.RunID != runID || m.Role != "assistant" {
			continue
		}
		category, content := DecodeCategory(m.Content)
		out = append(out, types.ChatResponse{
			ActiveBotID:          bot.BotID,
			ActiveBotAssistantID: bot.AssistantID,
			Category:             category,
			Message:              markdown.RenderLines(content),
			ResponseTimeMS:       elapsed,
			ThreadID:             bot.ThreadID,
			Type:                 "chat",
		})
	}
	return out
}
