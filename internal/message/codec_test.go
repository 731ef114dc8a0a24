package message

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeCategory(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Childhood", "childhood"},
		{"  Early   Career  ", "early_career"},
		{"turning\tpoints", "turning_points"},
		{"already_normal", "already_normal"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeCategory(c.in); got != c.want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeCategoryIdempotent(t *testing.T) {
	once := NormalizeCategory("  Some   Long  Category ")
	if twice := NormalizeCategory(once); twice != once {
		t.Errorf("not idempotent: %q then %q", once, twice)
	}
}

func TestNormalizeCategoryTruncates(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if got := NormalizeCategory(string(long)); len(got) != 128 {
		t.Errorf("got length %d, want 128", len(got))
	}
}

func TestNormalizeCategoryTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ü", 300)
	got := NormalizeCategory(long)
	if !utf8.ValidString(got) {
		t.Fatalf("result is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 128 {
		t.Errorf("got %d runes, want 128", n)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	encoded := EncodeCategory("Early Career", "I started out fixing radios.")
	category, content := DecodeCategory(encoded)
	if category != "early_career" {
		t.Errorf("category = %q, want %q", category, "early_career")
	}
	if content != "I started out fixing radios." {
		t.Errorf("content = %q", content)
	}
}

func TestDecodeCategoryNoMarker(t *testing.T) {
	category, content := DecodeCategory("Just a plain reply.\n\nWith a gap.")
	if category != "" {
		t.Errorf("category = %q, want empty", category)
	}
	if content != "Just a plain reply.\nWith a gap." {
		t.Errorf("content = %q", content)
	}
}

func TestDecodeCategoryCaseInsensitiveMarker(t *testing.T) {
	category, content := DecodeCategory("CATEGORY MODE: Family.\nYour sister called.")
	if category != "family" {
		t.Errorf("category = %q, want %q", category, "family")
	}
	if content != "Your sister called." {
		t.Errorf("content = %q", content)
	}
}

func TestDecodeCategoryTrailingTextAfterPeriod(t *testing.T) {
	category, content := DecodeCategory("Category Mode: places. Let me tell you about Lisbon.\nIt was 1974.")
	if category != "places" {
		t.Errorf("category = %q", category)
	}
	want := "Let me tell you about Lisbon.\nIt was 1974."
	if content != want {
		t.Errorf("content = %q, want %q", content, want)
	}
}

func TestDecodeCategoryMarkerWithoutPeriod(t *testing.T) {
	category, content := DecodeCategory("category mode: childhood\nThe summers were long.")
	if category != "childhood" {
		t.Errorf("category = %q", category)
	}
	if content != "The summers were long." {
		t.Errorf("content = %q", content)
	}
}

func TestDecodeCategoryEmptyInput(t *testing.T) {
	category, content := DecodeCategory("")
	if category != "" || content != "" {
		t.Errorf("got (%q, %q), want empty pair", category, content)
	}
}
