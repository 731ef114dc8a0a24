package contribution

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/memoirhq/memoir/internal/db"
)

type staticSections map[string]string

func (s staticSections) Sections(_ context.Context) (map[string]string, error) {
	return s, nil
}

func testStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAssessCategoriesEmptyFirstThenByLength(t *testing.T) {
	sections := staticSections{"a": "", "b": "x", "c": "xx", "d": ""}
	e := NewElicitor(testStore(t), "m1", sections, nil, false)

	got, err := e.AssessCategories(context.Background(), 3)
	if err != nil {
		t.Fatalf("AssessCategories: %v", err)
	}
	want := []string{"a", "d", "b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestAssessCategoriesDefaultsAndCap(t *testing.T) {
	sections := staticSections{
		"a": "", "b": "", "c": "", "d": "", "e": "", "f": "", "g": "", "h": "",
	}
	e := NewElicitor(testStore(t), "m1", sections, nil, false)
	ctx := context.Background()

	got, err := e.AssessCategories(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("default count = %d, want 3", len(got))
	}

	got, err = e.AssessCategories(ctx, 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 6 {
		t.Errorf("capped count = %d, want 6", len(got))
	}
}

func TestRequestRecordsQuestionAsPending(t *testing.T) {
	sections := staticSections{"childhood": ""}
	e := NewElicitor(testStore(t), "m1", sections, nil, false)

	c, err := e.Request(context.Background(), "childhood")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if c.Status != StatusPending {
		t.Errorf("status = %s, want pending", c.Status)
	}
	if len(c.Responses) != 1 || c.Responses[0].Role != "assistant" {
		t.Errorf("responses = %+v, want the opening question", c.Responses)
	}
	if c.Request.Content == "" || c.Request.Category != "childhood" {
		t.Errorf("request = %+v", c.Request)
	}
}

func TestRequestUsesLLMQuestionsForPopulatedSections(t *testing.T) {
	sections := staticSections{"career": "I fixed radios for a decade."}
	generate := func(_ context.Context, prompt string) (string, error) {
		if prompt == "" {
			t.Error("generation prompt is empty")
		}
		return "- What made you stop?\n- Who taught you?", nil
	}
	e := NewElicitor(testStore(t), "m1", sections, generate, true)

	c, err := e.Request(context.Background(), "career")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if c.Request.Content != "What made you stop?" {
		t.Errorf("question = %q, want the first generated bullet", c.Request.Content)
	}
}

func TestRequestFallsBackWhenGenerationFails(t *testing.T) {
	sections := staticSections{"career": "Some content."}
	generate := func(_ context.Context, _ string) (string, error) {
		return "", errors.New("provider down")
	}
	e := NewElicitor(testStore(t), "m1", sections, generate, true)

	c, err := e.Request(context.Background(), "career")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if c.Request.Content == "" {
		t.Error("no fallback question produced")
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	sections := staticSections{"family": ""}
	e := NewElicitor(testStore(t), "m1", sections, nil, false)
	ctx := context.Background()

	c, err := e.Request(ctx, "family")
	if err != nil {
		t.Fatal(err)
	}

	c, err = e.Update(ctx, c.ID, Update{Response: "My sister raised me."})
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != StatusRequested {
		t.Errorf("after second response: status = %s, want requested", c.Status)
	}

	c, err = e.Update(ctx, c.ID, Update{Status: StatusSubmitted})
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != StatusSubmitted {
		t.Errorf("status = %s, want submitted", c.Status)
	}

	// Terminal: further responses no longer move the record.
	c, err = e.Update(ctx, c.ID, Update{Response: "One more thing."})
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != StatusSubmitted || len(c.Responses) != 2 {
		t.Errorf("submitted record mutated: status=%s responses=%d", c.Status, len(c.Responses))
	}

	c, err = e.Update(ctx, c.ID, Update{Status: StatusAccepted})
	if err != nil {
		t.Fatalf("submitted → accepted: %v", err)
	}
	if c.Status != StatusAccepted {
		t.Errorf("status = %s, want accepted", c.Status)
	}
}

func TestUpdateRejectsInvalidTransitions(t *testing.T) {
	sections := staticSections{"family": ""}
	e := NewElicitor(testStore(t), "m1", sections, nil, false)
	ctx := context.Background()

	c, err := e.Request(ctx, "family")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Update(ctx, c.ID, Update{Status: StatusAccepted}); err == nil {
		t.Error("pending → accepted allowed")
	}
	if _, err := e.Update(ctx, c.ID, Update{Status: StatusNew}); err == nil {
		t.Error("external reset to new allowed")
	}
	if _, err := e.Update(ctx, "no-such-id", Update{Response: "hi"}); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestParseBullets(t *testing.T) {
	text := "Here are some:\n- First question?\n* Second question?\n• Third?\nnot a bullet\n-   \n"
	got := ParseBullets(text)
	want := []string{"First question?", "Second question?", "Third?"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bullet %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusSubmitted, StatusAccepted, StatusRejected} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusNew, StatusPending, StatusRequested} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
