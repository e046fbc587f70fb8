package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/MedIngest/internal/domain/commonModels"
)

const previewRunes = 300

// FileName is the review file name for a run at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("processed_documents_%s.md", t.Format("20060102_150405"))
}

// WriteProcessedDocuments renders the markdown review of a run: a per-file
// summary followed by every chunk in full.
func WriteProcessedDocuments(w io.Writer, chunks []commonModels.DocumentChunk, generatedAt time.Time) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# PROCESSED DOCUMENTS SUMMARY\n\n")
	fmt.Fprintf(bw, "Total chunks: %d\n", len(chunks))
	fmt.Fprintf(bw, "Generated on: %s\n\n", generatedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(bw, "## FILES SUMMARY\n\n")
	for _, f := range summarizeFiles(chunks) {
		fmt.Fprintf(bw, "### %s\n", f.name)
		fmt.Fprintf(bw, "- Chunks: %d\n", f.chunks)
		fmt.Fprintf(bw, "- Total tokens: %d\n", f.tokens)
		if f.chunks == 1 && f.complete {
			fmt.Fprintf(bw, "- Single complete document\n\n")
		} else {
			fmt.Fprintf(bw, "- Split into %d chunks\n\n", f.chunks)
		}
	}

	fmt.Fprintf(bw, "## DETAILED DOCUMENT CHUNKS\n\n")
	for i, c := range chunks {
		fmt.Fprintf(bw, "### Chunk %d: %s\n\n", i+1, c.DocID)
		fmt.Fprintf(bw, "- **Patient ID:** %s\n", c.PatientID)
		fmt.Fprintf(bw, "- **Type:** %s\n", c.Type)
		fmt.Fprintf(bw, "- **Source File:** %s\n", c.SourceFile)
		if c.Title != "" {
			fmt.Fprintf(bw, "- **Title:** %s\n", c.Title)
		}
		fmt.Fprintf(bw, "- **Token Count:** %d\n", c.TokenCount)
		fmt.Fprintf(bw, "- **Chunk Index:** %d of %d\n", c.ChunkIndex+1, c.TotalChunks)
		fmt.Fprintf(bw, "- **Complete Document:** %t\n", c.IsCompleteDocument)
		fmt.Fprintf(bw, "- **Timestamp:** %s\n\n", c.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(bw, "**Preview:**\n\n%s\n\n", preview(c.Text))
		fence := codeFence(c.Text)
		fmt.Fprintf(bw, "**Full Text:**\n\n%s\n%s\n%s\n\n---\n\n", fence, c.Text, fence)
	}
	return bw.Flush()
}

// WriteToDir writes the review into dir and returns its path.
func WriteToDir(dir string, chunks []commonModels.DocumentChunk, generatedAt time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	path := filepath.Join(dir, FileName(generatedAt))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report: %w", err)
	}
	if err := WriteProcessedDocuments(f, chunks, generatedAt); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

// WriteTokenAnalysis prints one line per file and a total.
func WriteTokenAnalysis(w io.Writer, counts []commonModels.FileTokenCount, chunkSize int) error {
	bw := bufio.NewWriter(w)
	total := 0
	for _, c := range counts {
		marker := ""
		if c.Tokens > chunkSize {
			marker = " (will be split)"
		}
		fmt.Fprintf(bw, "%s: %d tokens%s\n", c.Name, c.Tokens, marker)
		total += c.Tokens
	}
	fmt.Fprintf(bw, "\nFiles: %d\nTotal tokens: %d\n", len(counts), total)
	return bw.Flush()
}

type fileSummary struct {
	name     string
	chunks   int
	tokens   int
	complete bool
}

// in first-appearance order
func summarizeFiles(chunks []commonModels.DocumentChunk) []fileSummary {
	var files []fileSummary
	index := make(map[string]int)
	for _, c := range chunks {
		name := c.SourceFile
		if name == "" {
			name = c.DocID
		}
		at, ok := index[name]
		if !ok {
			at = len(files)
			index[name] = at
			files = append(files, fileSummary{name: name, complete: true})
		}
		files[at].chunks++
		files[at].tokens += c.TokenCount
		files[at].complete = files[at].complete && c.IsCompleteDocument
	}
	return files
}

// codeFence is a backtick fence longer than any backtick run in text.
func codeFence(text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
