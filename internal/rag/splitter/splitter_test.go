package splitter

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestSplit_InvalidSizes(t *testing.T) {
	s := NewMarkdownSplitter(RuneLength)
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Split("text", tt.size, tt.overlap); !errors.Is(err, ErrInvalidSize) {
				t.Errorf("Split() error = %v, want ErrInvalidSize", err)
			}
		})
	}
}

func TestSplit_ShortTextIsOnePiece(t *testing.T) {
	s := NewMarkdownSplitter(RuneLength)
	got, err := s.Split("  Blood pressure normal.  ", 100, 10)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(got) != 1 || got[0] != "Blood pressure normal." {
		t.Errorf("Split() = %q", got)
	}
}

func TestSplit_PrefersHeadings(t *testing.T) {
	text := "# Title\nintro text here\n## Section A\nalpha beta\n## Section B\ngamma delta"
	s := NewMarkdownSplitter(RuneLength)

	got, err := s.Split(text, 30, 0)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	want := []string{
		"# Title\nintro text here",
		"## Section A\nalpha beta",
		"## Section B\ngamma delta",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split() = %q, want %q", got, want)
	}
}

func TestSplit_OverlapCarriesTrailingWords(t *testing.T) {
	s := NewMarkdownSplitter(RuneLength)
	got, err := s.Split("aaaa bbbb cccc dddd eeee", 10, 5)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	want := []string{"aaaa bbbb", "bbbb cccc", "cccc dddd", "dddd eeee"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split() = %q, want %q", got, want)
	}
}

func TestSplit_CharacterFallback(t *testing.T) {
	s := NewMarkdownSplitter(RuneLength)
	text := strings.Repeat("x", 25)
	got, err := s.Split(text, 10, 0)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if strings.Join(got, "") != text {
		t.Errorf("pieces do not rebuild the input: %q", got)
	}
	for _, p := range got {
		if RuneLength(p) > 10 {
			t.Errorf("piece %q longer than 10", p)
		}
	}
}

func TestSplit_PiecesAreOrderedSubstrings(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "## Visit %d\n", i)
		for j := 0; j < 6; j++ {
			fmt.Fprintf(&b, "Observation %d-%d recorded by nursing staff.\n", i, j)
		}
		b.WriteString("\n")
	}
	text := b.String()

	s := NewMarkdownSplitter(RuneLength)
	got, err := s.Split(text, 200, 40)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(got) < 2 {
		t.Fatalf("expected several pieces, got %d", len(got))
	}

	last := -1
	for i, p := range got {
		if RuneLength(p) > 200 {
			t.Errorf("piece %d has length %d", i, RuneLength(p))
		}
		at := strings.Index(text, p)
		if at < 0 {
			t.Fatalf("piece %d is not a substring of the input: %q", i, p)
		}
		if at < last {
			t.Errorf("piece %d starts before piece %d", i, i-1)
		}
		last = at
	}

	for _, word := range strings.Fields(text) {
		found := false
		for _, p := range got {
			if strings.Contains(p, word) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("word %q was lost", word)
		}
	}
}

func TestSplit_CustomLength(t *testing.T) {
	words := func(s string) int { return len(strings.Fields(s)) }
	s := NewMarkdownSplitter(words)
	text := strings.TrimSpace(strings.Repeat("word ", 25))

	got, err := s.Split(text, 10, 0)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	for _, p := range got {
		if words(p) > 10 {
			t.Errorf("piece has %d words", words(p))
		}
	}
	again, _ := s.Split(text, 10, 0)
	if !reflect.DeepEqual(got, again) {
		t.Error("Split() is not deterministic")
	}
}
