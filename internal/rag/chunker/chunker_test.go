package chunker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/rag/tokenizer"
)

var fixedTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

// one token per whitespace-separated word
var wordTokenizer = tokenizer.Func(func(s string) (int, error) {
	return len(strings.Fields(s)), nil
})

type stubSplitter struct {
	pieces []string
	err    error
}

func (s stubSplitter) Split(string, int, int) ([]string, error) { return s.pieces, s.err }

func newTestBuilder(t *testing.T, size, overlap int, opts ...Option) *Builder {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	b, err := NewBuilder(wordTokenizer, Options{ChunkSize: size, ChunkOverlap: overlap}, opts...)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return b
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func loadFixture(t *testing.T) []commonModels.SourceDocument {
	t.Helper()
	data, err := os.ReadFile("testdata/patient_6789.json")
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	var docs []commonModels.SourceDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return docs
}

func TestNewBuilder_InvalidOptions(t *testing.T) {
	tests := []Options{
		{ChunkSize: 0, ChunkOverlap: 0},
		{ChunkSize: 10, ChunkOverlap: 10},
		{ChunkSize: 10, ChunkOverlap: -1},
	}
	for _, opts := range tests {
		if _, err := NewBuilder(wordTokenizer, opts); !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("NewBuilder(%+v) error = %v, want ErrInvalidOptions", opts, err)
		}
	}
}

func TestBuild_SingleChunkAtThreshold(t *testing.T) {
	b := newTestBuilder(t, 10, 2)
	doc := commonModels.SourceDocument{Name: "/in/patient_6789_intake.md", Text: "  " + words(10) + "\n"}

	chunks, err := b.Build(doc)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}

	want := commonModels.DocumentChunk{
		PatientID:          "6789",
		DocID:              "6789_PATIENT_INFORMATION_0",
		Type:               "patient_information",
		Text:               words(10),
		ChunkIndex:         0,
		TotalChunks:        1,
		TokenCount:         10,
		Timestamp:          fixedTime,
		SourceFile:         "patient_6789_intake.md",
		IsCompleteDocument: true,
	}
	if !reflect.DeepEqual(chunks[0], want) {
		t.Errorf("chunk = %+v\nwant    %+v", chunks[0], want)
	}
}

func TestBuild_SplitsAboveThreshold(t *testing.T) {
	b := newTestBuilder(t, 10, 2)
	text := words(11)

	chunks, err := b.Build(commonModels.SourceDocument{Name: "6789_lab.md", Text: text})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want a split", len(chunks))
	}
	for i, c := range chunks {
		if c.IsCompleteDocument {
			t.Errorf("chunk %d marked complete", i)
		}
		if c.ChunkIndex != i || c.TotalChunks != len(chunks) {
			t.Errorf("chunk %d index/total = %d/%d", i, c.ChunkIndex, c.TotalChunks)
		}
		if c.DocID != MakeDocID("6789", "lab_results", i) {
			t.Errorf("chunk %d doc id = %q", i, c.DocID)
		}
		if n, _ := wordTokenizer.CountTokens(c.Text); c.TokenCount != n {
			t.Errorf("chunk %d token count = %d, text has %d", i, c.TokenCount, n)
		}
		if c.TokenCount > 10 {
			t.Errorf("chunk %d has %d tokens, budget is 10", i, c.TokenCount)
		}
	}
}

func TestBuild_LongDocumentKeepsContentInOrder(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "## Visit %d\n", i)
		fmt.Fprintf(&sb, "Patient seen for follow up number %d. Medication adherence reviewed and vitals stable.\n\n", i)
	}
	text := sb.String()
	b := newTestBuilder(t, 40, 5)

	chunks, err := b.Build(commonModels.SourceDocument{Name: "6789_history.md", Text: text})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	last := -1
	seen := make(map[string]bool)
	for i, c := range chunks {
		at := strings.Index(text, c.Text)
		if at < 0 {
			t.Fatalf("chunk %d text is not taken from the document", i)
		}
		if at < last {
			t.Errorf("chunk %d is out of order", i)
		}
		last = at
		if seen[c.DocID] {
			t.Errorf("duplicate doc id %q", c.DocID)
		}
		seen[c.DocID] = true
	}
	for _, w := range strings.Fields(text) {
		covered := false
		for _, c := range chunks {
			if strings.Contains(c.Text, w) {
				covered = true
				break
			}
		}
		if !covered {
			t.Fatalf("word %q missing from every chunk", w)
		}
	}
}

func TestBuild_RecountsEachChunk(t *testing.T) {
	b := newTestBuilder(t, 3, 0, WithSplitter(stubSplitter{pieces: []string{" one two ", "", "three four five six"}}))

	chunks, err := b.Build(commonModels.SourceDocument{Name: "notes.md", Text: words(8)})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("empty piece not dropped: %d chunks", len(chunks))
	}
	if chunks[0].Text != "one two" || chunks[0].TokenCount != 2 {
		t.Errorf("chunk 0 = %q/%d", chunks[0].Text, chunks[0].TokenCount)
	}
	if chunks[1].TokenCount != 4 || chunks[1].TotalChunks != 2 {
		t.Errorf("chunk 1 = %d tokens, total %d", chunks[1].TokenCount, chunks[1].TotalChunks)
	}
}

func TestBuild_UnknownPatientAndGenericType(t *testing.T) {
	b := newTestBuilder(t, 100, 10)
	chunks, err := b.Build(commonModels.SourceDocument{Name: "summary.md", Text: "Discharge summary."})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	c := chunks[0]
	if c.PatientID != "unknown" || c.Type != "medical_document" || c.DocID != "unknown_MEDICAL_DOCUMENT_0" {
		t.Errorf("chunk identity = %s/%s/%s", c.PatientID, c.Type, c.DocID)
	}
}

func TestBuild_ExplicitIdentityOverridesFileName(t *testing.T) {
	b := newTestBuilder(t, 100, 10)
	chunks, err := b.Build(commonModels.SourceDocument{
		Name:      "1111_lab.md",
		Text:      "BP 145/92",
		PatientID: "6789",
		DocType:   "Vital Signs",
		Title:     "Vitals",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	c := chunks[0]
	if c.PatientID != "6789" || c.Type != "Vital Signs" || c.DocID != "6789_VITAL_SIGNS_0" || c.Title != "Vitals" {
		t.Errorf("chunk = %+v", c)
	}
}

func TestBuild_Errors(t *testing.T) {
	boom := errors.New("tokenizer down")
	failing := tokenizer.Func(func(string) (int, error) { return 0, boom })

	t.Run("empty text", func(t *testing.T) {
		b := newTestBuilder(t, 10, 0)
		chunks, err := b.Build(commonModels.SourceDocument{Name: "a.md", Text: " \n\t "})
		if !errors.Is(err, ErrEmptyDocument) || chunks != nil {
			t.Errorf("Build() = %v, %v", chunks, err)
		}
	})

	t.Run("tokenizer failure", func(t *testing.T) {
		b, err := NewBuilder(failing, Options{ChunkSize: 10, ChunkOverlap: 0})
		if err != nil {
			t.Fatalf("NewBuilder() error = %v", err)
		}
		chunks, err := b.Build(commonModels.SourceDocument{Name: "a.md", Text: "text"})
		if !errors.Is(err, boom) || chunks != nil {
			t.Errorf("Build() = %v, %v", chunks, err)
		}
	})

	t.Run("tokenizer fails on a chunk", func(t *testing.T) {
		calls := 0
		flaky := tokenizer.Func(func(s string) (int, error) {
			calls++
			if calls > 1 {
				return 0, boom
			}
			return 100, nil
		})
		b, err := NewBuilder(flaky, Options{ChunkSize: 10, ChunkOverlap: 0},
			WithSplitter(stubSplitter{pieces: []string{"a", "b"}}))
		if err != nil {
			t.Fatalf("NewBuilder() error = %v", err)
		}
		chunks, err := b.Build(commonModels.SourceDocument{Name: "a.md", Text: "text"})
		if !errors.Is(err, boom) || chunks != nil {
			t.Errorf("partial result returned: %v, %v", chunks, err)
		}
	})

	t.Run("splitter failure", func(t *testing.T) {
		b := newTestBuilder(t, 2, 0, WithSplitter(stubSplitter{err: boom}))
		if _, err := b.Build(commonModels.SourceDocument{Name: "a.md", Text: words(5)}); !errors.Is(err, boom) {
			t.Errorf("Build() error = %v", err)
		}
	})
}

func TestBuild_FixtureRecordsAreWholeDocuments(t *testing.T) {
	b := newTestBuilder(t, 3000, 200)
	wantIDs := []string{
		"6789_PATIENT_INFORMATION_0",
		"6789_VITAL_SIGNS_0",
		"6789_PAST_MEDICAL_HISTORY_0",
		"6789_LAB_RESULTS_0",
		"6789_DIAGNOSTIC_IMAGING_0",
	}

	for i, doc := range loadFixture(t) {
		chunks, err := b.Build(doc)
		if err != nil {
			t.Fatalf("record %d: Build() error = %v", i, err)
		}
		if len(chunks) != 1 || !chunks[0].IsCompleteDocument {
			t.Fatalf("record %d: got %d chunks", i, len(chunks))
		}
		want, _ := wordTokenizer.CountTokens(doc.Text)
		if chunks[0].TokenCount != want {
			t.Errorf("record %d: token count %d, want %d", i, chunks[0].TokenCount, want)
		}
		if chunks[0].DocID != wantIDs[i] {
			t.Errorf("record %d: doc id %q, want %q", i, chunks[0].DocID, wantIDs[i])
		}
	}
}

func cl100k(t *testing.T) *tokenizer.BPETokenizer {
	t.Helper()
	tok, err := tokenizer.NewBPETokenizer("cl100k_base")
	if err != nil {
		t.Fatalf("NewBPETokenizer() error = %v", err)
	}
	return tok
}

func TestBuild_FixtureTokenCountsWithCl100k(t *testing.T) {
	tok := cl100k(t)
	b, err := NewBuilder(tok, Options{ChunkSize: 3000, ChunkOverlap: 200}, WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	for i, doc := range loadFixture(t) {
		chunks, err := b.Build(doc)
		if err != nil {
			t.Fatalf("record %d: Build() error = %v", i, err)
		}
		want, _ := tok.CountTokens(doc.Text)
		if len(chunks) != 1 || chunks[0].TokenCount != want {
			t.Errorf("record %d: got %d chunks, token count %d, want 1 chunk of %d", i, len(chunks), chunks[0].TokenCount, want)
		}
	}
}

func TestBuild_SplitChunksStayWithinBudget(t *testing.T) {
	tok := cl100k(t)
	var parts []string
	for _, doc := range loadFixture(t) {
		parts = append(parts, doc.Text)
	}
	source := strings.Join(parts, "\n\n")

	tests := []struct {
		size, overlap int
	}{
		{100, 20},
		{50, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.size, tt.overlap), func(t *testing.T) {
			b, err := NewBuilder(tok, Options{ChunkSize: tt.size, ChunkOverlap: tt.overlap}, WithClock(fixedClock))
			if err != nil {
				t.Fatal(err)
			}
			chunks, err := b.Build(commonModels.SourceDocument{Name: "6789_history.md", Text: source})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if len(chunks) < 2 {
				t.Fatalf("got %d chunks, want a split", len(chunks))
			}
			for _, c := range chunks {
				direct, _ := tok.CountTokens(c.Text)
				if c.TokenCount != direct {
					t.Errorf("chunk %d: token count %d, direct count %d", c.ChunkIndex, c.TokenCount, direct)
				}
				if c.TokenCount > tt.size {
					t.Errorf("chunk %d: %d tokens over budget %d", c.ChunkIndex, c.TokenCount, tt.size)
				}
				if !strings.Contains(source, c.Text) {
					t.Errorf("chunk %d is not a slice of the source", c.ChunkIndex)
				}
			}
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := newTestBuilder(t, 20, 4)
	doc := commonModels.SourceDocument{Name: "6789_transcript.md", Text: words(75)}

	first, err := b.Build(doc)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	second, _ := b.Build(doc)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("two builds differ")
	}
	a, _ := json.Marshal(first)
	c, _ := json.Marshal(second)
	if string(a) != string(c) {
		t.Error("serialised builds differ")
	}
}

func TestBuildAll(t *testing.T) {
	b := newTestBuilder(t, 100, 10)
	docs := []commonModels.SourceDocument{
		{Name: "6789_vitals.md", Text: "BP 120/80"},
		{Name: "6789_lab.md", Text: "   "},
		{Name: "copy/6789_vitals.md", Text: "BP 130/85"},
		{Text: "Free text note", PatientID: "42"},
	}

	result := b.BuildAll(docs)

	if len(result.Documents) != 2 {
		t.Fatalf("built %d documents, want 2", len(result.Documents))
	}
	if result.Documents[0].Source != "6789_vitals.md" || result.Documents[1].Source != "document[3]" {
		t.Errorf("sources = %q, %q", result.Documents[0].Source, result.Documents[1].Source)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("failures = %+v", result.Failed)
	}
	if !errors.Is(result.Failed[0].Err, ErrEmptyDocument) {
		t.Errorf("first failure = %v", result.Failed[0].Err)
	}
	if !errors.Is(result.Failed[1].Err, ErrDuplicateDocID) || result.Failed[1].Source != "copy/6789_vitals.md" {
		t.Errorf("second failure = %+v", result.Failed[1])
	}

	all := result.Chunks()
	if len(all) != 2 || all[0].DocID != "6789_VITAL_SIGNS_0" || all[1].DocID != "42_MEDICAL_DOCUMENT_0" {
		t.Errorf("chunks = %+v", all)
	}
}
