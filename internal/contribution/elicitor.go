// Package contribution solicits biographical data from a member: it picks
// the thinnest-populated categories, builds question requests (canned or
// LLM-generated), and tracks each request/response pair through a status
// lifecycle.
package contribution

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memoirhq/memoir/internal/db"
	"github.com/memoirhq/memoir/internal/logging"
)

// Status is a contribution's lifecycle state.
type Status string

const (
	StatusNew       Status = "new"
	StatusPending   Status = "pending"
	StatusRequested Status = "requested"
	StatusSubmitted Status = "submitted"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether the status locks the record from automatic
// transition.
func (s Status) Terminal() bool {
	return s == StatusSubmitted || s == StatusAccepted || s == StatusRejected
}

// Request is the contextual ask attached to a contribution.
type Request struct {
	Category      string `json:"category"`
	Content       string `json:"content"`
	Impersonation string `json:"impersonation,omitempty"`
}

// Response is one recorded exchange on a contribution. The first response
// is always the question itself.
type Response struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Contribution is one tracked elicitation for one category.
type Contribution struct {
	ID        string     `json:"id"`
	MemberID  string     `json:"memberId"`
	Category  string     `json:"category"`
	Status    Status     `json:"status"`
	Request   Request    `json:"request"`
	Responses []Response `json:"responses"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

const contributionsCollection = "contributions"

// maxAssessedCategories caps how many categories one assessment returns.
const maxAssessedCategories = 6

// ErrLocked is returned when an update would change a terminal record.
var ErrLocked = errors.New("contribution is in a terminal state")

// GenerateFunc produces LLM text for a question-generation prompt.
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

// SectionReader exposes the member's biography sections
// (category → accumulated content). Implemented by the avatar layer.
type SectionReader interface {
	Sections(ctx context.Context) (map[string]string, error)
}

// Elicitor runs contribution elicitation for one member.
type Elicitor struct {
	store        *db.Store
	memberID     string
	sections     SectionReader
	generate     GenerateFunc
	llmQuestions bool
}

// NewElicitor creates an elicitor scoped to one member. generate may be
// nil when LLM question generation is disabled.
func NewElicitor(store *db.Store, memberID string, sections SectionReader, generate GenerateFunc, llmQuestions bool) *Elicitor {
	return &Elicitor{
		store:        store,
		memberID:     memberID,
		sections:     sections,
		generate:     generate,
		llmQuestions: llmQuestions,
	}
}

// AssessCategories returns up to n (capped at 6, default 3) category
// names to elicit next: categories with no content first, then categories
// with content sorted ascending by content length, so the thinnest
// sections are revisited before richer ones.
func (e *Elicitor) AssessCategories(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		n = 3
	}
	if n > maxAssessedCategories {
		n = maxAssessedCategories
	}

	sections, err := e.sections.Sections(ctx)
	if err != nil {
		return nil, fmt.Errorf("assess categories: %w", err)
	}

	var empty, populated []string
	for category, content := range sections {
		if strings.TrimSpace(content) == "" {
			empty = append(empty, category)
		} else {
			populated = append(populated, category)
		}
	}
	sort.Strings(empty)
	sort.Slice(populated, func(i, j int) bool {
		li, lj := len(sections[populated[i]]), len(sections[populated[j]])
		if li != lj {
			return li < lj
		}
		return populated[i] < populated[j]
	})

	out := append(empty, populated...)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Request builds a contribution for the category and records the opening
// question as the first response, moving the record to pending.
func (e *Elicitor) Request(ctx context.Context, category string) (*Contribution, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, errors.New("contribution category is required")
	}

	sections, err := e.sections.Sections(ctx)
	if err != nil {
		return nil, fmt.Errorf("request contribution: %w", err)
	}
	existing := strings.TrimSpace(sections[category])

	question := e.pickQuestion(ctx, category, existing)

	now := time.Now()
	c := &Contribution{
		ID:       uuid.New().String(),
		MemberID: e.memberID,
		Category: category,
		Status:   StatusNew,
		Request: Request{
			Category:      category,
			Content:       question,
			Impersonation: e.memberID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.recordResponse(Response{Role: "assistant", Content: question, Timestamp: now})

	if err := e.store.Put(ctx, contributionsCollection, c.ID, e.memberID, c); err != nil {
		return nil, fmt.Errorf("save contribution: %w", err)
	}
	return c, nil
}

// pickQuestion chooses the opening question: canned questions when the
// category has no content, otherwise LLM-generated improvement questions
// when enabled, falling back to canned on any failure.
func (e *Elicitor) pickQuestion(ctx context.Context, category, existing string) string {
	if existing != "" && e.llmQuestions && e.generate != nil {
		prompt := fmt.Sprintf(
			"The member's %s section currently reads:\n\n%s\n\nWrite a short bulleted list (3 bullets) of open questions that would most improve this section. Questions only, one per bullet.",
			category, existing)
		raw, err := e.generate(ctx, prompt)
		if err != nil {
			logging.Errorf("[contribution] question generation for %s failed: %v", category, err)
		} else if qs := ParseBullets(raw); len(qs) > 0 {
			return qs[0]
		}
	}
	return e.cannedQuestion(ctx, category)
}

// questionsDoc is the stored canned question set for one category.
type questionsDoc struct {
	Questions []string `json:"questions"`
}

func (e *Elicitor) cannedQuestion(ctx context.Context, category string) string {
	var doc questionsDoc
	err := e.store.Get(ctx, "questions", category, &doc)
	if err == nil && len(doc.Questions) > 0 {
		return doc.Questions[0]
	}
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		logging.Errorf("[contribution] load canned questions for %s: %v", category, err)
	}
	return fmt.Sprintf("Tell me about your %s — what stands out most when you look back?", strings.ReplaceAll(category, "_", " "))
}

// Update applies a member response and/or an explicit status change.
type Update struct {
	Response string
	Status   Status
}

// Get loads a contribution by id.
func (e *Elicitor) Get(ctx context.Context, id string) (*Contribution, error) {
	var c Contribution
	if err := e.store.Get(ctx, contributionsCollection, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Update records a response and applies any explicit status change.
// Terminal records never auto-transition: a submitted contribution keeps
// its status no matter how many updates arrive, and only the external
// submitted → accepted|rejected decision may move it.
func (e *Elicitor) Update(ctx context.Context, id string, upd Update) (*Contribution, error) {
	c, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Response != "" {
		resp := Response{Role: "member", Content: upd.Response, Timestamp: time.Now()}
		if c.Status.Terminal() {
			// Locked: keep the record immutable past submission.
			return c, nil
		}
		c.recordResponse(resp)
	}

	if upd.Status != "" && upd.Status != c.Status {
		if err := c.applyStatus(upd.Status); err != nil {
			return nil, err
		}
	}

	c.UpdatedAt = time.Now()
	if err := e.store.Put(ctx, contributionsCollection, c.ID, e.memberID, c); err != nil {
		return nil, fmt.Errorf("save contribution: %w", err)
	}
	return c, nil
}

// recordResponse appends a response and runs the automatic status
// transitions: first response → pending, subsequent → requested.
func (c *Contribution) recordResponse(r Response) {
	c.Responses = append(c.Responses, r)
	switch {
	case c.Status.Terminal():
		// unreachable from Update; kept for direct callers
	case len(c.Responses) == 1:
		c.Status = StatusPending
	default:
		c.Status = StatusRequested
	}
}

// applyStatus validates an externally-driven status change.
func (c *Contribution) applyStatus(next Status) error {
	switch next {
	case StatusSubmitted:
		if c.Status.Terminal() {
			return ErrLocked
		}
		c.Status = StatusSubmitted
	case StatusAccepted, StatusRejected:
		if c.Status != StatusSubmitted {
			return fmt.Errorf("contribution must be submitted before %s", next)
		}
		c.Status = next
	default:
		return fmt.Errorf("status %q cannot be set externally", next)
	}
	return nil
}

// ParseBullets extracts bullet lines ("-", "*" or "•" prefixed) from
// generated text.
func ParseBullets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"- ", "* ", "• "} {
			if strings.HasPrefix(line, prefix) {
				if q := strings.TrimSpace(line[len(prefix):]); q != "" {
					out = append(out, q)
				}
				break
			}
		}
	}
	return out
}

// RevertStale moves requested contributions older than ttl back to
// pending so the maintenance job can re-surface them.
func RevertStale(ctx context.Context, store *db.Store, ttl time.Duration) (int, error) {
	ids, err := store.StaleIDs(ctx, contributionsCollection, time.Now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	reverted := 0
	for _, id := range ids {
		var c Contribution
		if err := store.Get(ctx, contributionsCollection, id, &c); err != nil {
			continue
		}
		if c.Status != StatusRequested {
			continue
		}
		c.Status = StatusPending
		c.UpdatedAt = time.Now()
		if err := store.Put(ctx, contributionsCollection, c.ID, c.MemberID, &c); err != nil {
			logging.Errorf("[contribution] revert %s: %v", id, err)
			continue
		}
		reverted++
	}
	return reverted, nil
}
