package ingest

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

var (
	pageExtractTimeout = 10 * time.Second
	errPageTimeout     = errors.New("page extraction timed out")
)

// extractPDF joins the plain text of every readable page with blank lines.
// Pages that fail are skipped; a page that times out ends extraction with
// the pages read so far.
func extractPDF(path string) (string, error) {
	logger.Debug("extractPDF", "attempting extraction", path)
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat pdf: %w", err)
	}
	f, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []string
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if errors.Is(err, errPageTimeout) {
			// the stuck page keeps reading until the deferred Close fails it
			logger.Error("Page extraction timed out, skipping remaining pages", "page", i)
			break
		}
		if err != nil {
			logger.Error("Error parsing page content", "page", i, "error", err)
			continue
		}
		pages = append(pages, strings.TrimSpace(content))
	}
	return strings.Join(pages, "\n\n"), nil
}

// extractDocument reads .docx, .odt and .rtf files.
func extractDocument(path string) (string, error) {
	text, err := cat.File(path)
	if err != nil {
		return "", fmt.Errorf("failed to extract document: %w", err)
	}
	return text, nil
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("page extraction panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageExtractTimeout):
		return "", errPageTimeout
	}
}
