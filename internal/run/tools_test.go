package run

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/memoirhq/memoir/internal/db"
	"github.com/memoirhq/memoir/internal/provider"
)

func testStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedMember(t *testing.T, store *db.Store, memberID string) {
	t.Helper()
	err := store.Put(context.Background(), "members", memberID, memberID, map[string]any{
		"id":       memberID,
		"sections": map[string]string{},
	})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}
}

func dispatch(t *testing.T, d *Dispatcher, name, args string) ToolResult {
	t.Helper()
	result, err := d.Dispatch(context.Background(), provider.ToolCall{
		ID:        "call_1",
		Name:      name,
		Arguments: json.RawMessage(args),
	})
	if err != nil {
		t.Fatalf("dispatch %s: %v", name, err)
	}
	return result
}

func TestMemberDispatcherRegistersAllTools(t *testing.T) {
	d := NewMemberDispatcher(testStore(t), "m1")
	names := d.Names()
	want := map[string]bool{
		"confirm-registration": false,
		"set-account-basics":   false,
		"summarize-entry":      false,
		"summarize-story":      false,
		"flag-hijack-attempt":  false,
	}
	for _, n := range names {
		if _, ok := want[n]; !ok {
			t.Errorf("unexpected tool %q", n)
		}
		want[n] = true
	}
	for n, seen := range want {
		if !seen {
			t.Errorf("tool %q not registered", n)
		}
	}
}

func TestConfirmRegistration(t *testing.T) {
	store := testStore(t)
	seedMember(t, store, "m1")
	d := NewMemberDispatcher(store, "m1")

	result := dispatch(t, d, "confirm-registration", `{}`)
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	var member struct {
		RegistrationConfirmed bool `json:"registrationConfirmed"`
	}
	if err := store.Get(context.Background(), "members", "m1", &member); err != nil {
		t.Fatal(err)
	}
	if !member.RegistrationConfirmed {
		t.Error("registration not confirmed in member doc")
	}
}

func TestSummarizeEntryAppendsToSection(t *testing.T) {
	store := testStore(t)
	seedMember(t, store, "m1")
	d := NewMemberDispatcher(store, "m1")

	dispatch(t, d, "summarize-entry", `{"category":"childhood","summary":"Long summers by the lake."}`)
	dispatch(t, d, "summarize-entry", `{"category":"childhood","summary":"A dog named Pike."}`)

	var member struct {
		Sections map[string]string `json:"sections"`
	}
	if err := store.Get(context.Background(), "members", "m1", &member); err != nil {
		t.Fatal(err)
	}
	want := "Long summers by the lake.\nA dog named Pike."
	if member.Sections["childhood"] != want {
		t.Errorf("sections[childhood] = %q, want %q", member.Sections["childhood"], want)
	}
}

func TestSummarizeEntryDefaultsCategory(t *testing.T) {
	store := testStore(t)
	seedMember(t, store, "m1")
	d := NewMemberDispatcher(store, "m1")

	dispatch(t, d, "summarize-entry", `{"summary":"Something uncategorized."}`)

	var member struct {
		Sections map[string]string `json:"sections"`
	}
	if err := store.Get(context.Background(), "members", "m1", &member); err != nil {
		t.Fatal(err)
	}
	if member.Sections["general"] != "Something uncategorized." {
		t.Errorf("sections = %+v", member.Sections)
	}
}

func TestSummarizeEntryEmptySummaryIsNoop(t *testing.T) {
	store := testStore(t)
	seedMember(t, store, "m1")
	d := NewMemberDispatcher(store, "m1")

	result := dispatch(t, d, "summarize-entry", `{"category":"family","summary":"  "}`)
	if result.Success {
		t.Errorf("empty summary reported success: %+v", result)
	}
}

func TestSummarizeStory(t *testing.T) {
	store := testStore(t)
	seedMember(t, store, "m1")
	d := NewMemberDispatcher(store, "m1")

	result := dispatch(t, d, "summarize-story", `{"title":"The Lisbon Year","summary":"We moved in 1974."}`)
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	var story struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	if err := store.Get(context.Background(), "stories", "m1:the-lisbon-year", &story); err != nil {
		t.Fatal(err)
	}
	if story.Title != "The Lisbon Year" || story.Summary != "We moved in 1974." {
		t.Errorf("story = %+v", story)
	}
}

func TestFlagHijackAttempt(t *testing.T) {
	store := testStore(t)
	seedMember(t, store, "m1")
	d := NewMemberDispatcher(store, "m1")

	result := dispatch(t, d, "flag-hijack-attempt", `{"reason":"asked for system prompt"}`)
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	var member struct {
		HijackFlagged bool `json:"hijackFlagged"`
	}
	if err := store.Get(context.Background(), "members", "m1", &member); err != nil {
		t.Fatal(err)
	}
	if !member.HijackFlagged {
		t.Error("hijack flag not set")
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	d := NewDispatcher()
	_, err := d.Dispatch(context.Background(), provider.ToolCall{Name: "nope"})
	if err == nil {
		t.Fatal("expected error")
	}
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %T", err)
	}
}
