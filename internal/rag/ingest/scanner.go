package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/rag/tokenizer"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var ErrUnsupportedType = errors.New("unsupported file type")

type ScanFailure struct {
	Path string
	Err  error
}

// ScanFolder reads every regular file in folder (not recursive) whose
// extension is in extensions, sorted by name. Unreadable files are reported
// as failures; only a missing or unreadable folder is an error.
func ScanFolder(ctx context.Context, folder string, extensions []string) ([]commonModels.SourceDocument, []ScanFailure, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, nil, fmt.Errorf("reading folder %s: %w", folder, err)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}

	var docs []commonModels.SourceDocument
	var failures []ScanFailure
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if !allowed[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		path := filepath.Join(folder, entry.Name())
		doc, err := ReadDocument(path)
		if err != nil {
			logger.Error("Error reading file", "path", path, "error", err)
			failures = append(failures, ScanFailure{Path: path, Err: err})
			continue
		}
		docs = append(docs, doc)
	}
	logger.Info("Folder scanned", "folder", folder, "documents", len(docs), "failures", len(failures))
	return docs, failures, nil
}

// ReadDocument loads one file as a SourceDocument named by its path.
func ReadDocument(path string) (commonModels.SourceDocument, error) {
	contentType := getContentType(path)
	content, err := extractText(path, contentType)
	if err != nil {
		return commonModels.SourceDocument{}, err
	}

	doc := commonModels.SourceDocument{
		Name:        path,
		Text:        content,
		ContentType: contentType,
	}
	if contentType == commonModels.MARKDOWN {
		doc.Title = markdownTitle([]byte(content))
	}
	return doc, nil
}

// IsSupported reports whether ReadDocument can extract text from name.
func IsSupported(name string) bool {
	return getContentType(name) != commonModels.ERR
}

func getContentType(path string) commonModels.ContentType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return commonModels.MARKDOWN
	case ".txt":
		return commonModels.TXT
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".odt", ".rtf":
		return commonModels.DOCX
	default:
		return commonModels.ERR
	}
}

func extractText(path string, contentType commonModels.ContentType) (string, error) {
	switch contentType {
	case commonModels.MARKDOWN, commonModels.TXT:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s is not valid UTF-8", path)
		}
		return string(data), nil
	case commonModels.PDF:
		return extractPDF(path)
	case commonModels.DOCX:
		return extractDocument(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}
}

// markdownTitle returns the text of the first heading, or "".
func markdownTitle(source []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		title = strings.TrimSpace(inlineText(heading, source))
		return ast.WalkStop, nil
	})
	return title
}

func inlineText(node ast.Node, source []byte) string {
	var buf strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			buf.Write(textNode.Segment.Value(source))
			if textNode.SoftLineBreak() {
				buf.WriteByte(' ')
			}
			continue
		}
		buf.WriteString(inlineText(child, source))
	}
	return buf.String()
}

// CountTokensInFolder reports the token count of every matching file
// without chunking or upserting anything.
func CountTokensInFolder(ctx context.Context, folder string, extensions []string, tok tokenizer.Tokenizer) ([]commonModels.FileTokenCount, []ScanFailure, error) {
	docs, failures, err := ScanFolder(ctx, folder, extensions)
	if err != nil {
		return nil, nil, err
	}

	counts := make([]commonModels.FileTokenCount, 0, len(docs))
	for _, doc := range docs {
		n, err := tok.CountTokens(doc.Text)
		if err != nil {
			failures = append(failures, ScanFailure{Path: doc.Name, Err: fmt.Errorf("counting tokens: %w", err)})
			continue
		}
		counts = append(counts, commonModels.FileTokenCount{Name: filepath.Base(doc.Name), Tokens: n})
	}
	return counts, failures, nil
}
