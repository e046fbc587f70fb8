package chunker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/MedIngest/internal/config"
	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/rag/splitter"
	"github.com/akolanti/MedIngest/internal/rag/tokenizer"
	"github.com/akolanti/MedIngest/pkg/logger_i"
)

var (
	ErrEmptyDocument  = errors.New("document has no text")
	ErrInvalidOptions = errors.New("chunk size must be positive and overlap in [0, chunk size)")
	ErrDuplicateDocID = errors.New("doc id already produced by another document")
)

type Options struct {
	ChunkSize    int
	ChunkOverlap int
}

func DefaultOptions() Options {
	return Options{ChunkSize: config.DefaultChunkSize, ChunkOverlap: config.DefaultChunkOverlap}
}

func (o Options) Validate() error {
	if o.ChunkSize <= 0 || o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		return fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidOptions, o.ChunkSize, o.ChunkOverlap)
	}
	return nil
}

// Builder turns source documents into DocumentChunks. A document whose
// token count does not exceed ChunkSize becomes exactly one chunk; larger
// ones go through the splitter.
type Builder struct {
	tokenizer tokenizer.Tokenizer
	splitter  splitter.Splitter
	options   Options
	clock     func() time.Time
	logger    *logger_i.Logger
}

type Option func(*Builder)

func WithSplitter(s splitter.Splitter) Option {
	return func(b *Builder) { b.splitter = s }
}

// WithClock fixes the timestamp source; two builds with the same clock
// produce identical chunks.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) { b.clock = clock }
}

func NewBuilder(tok tokenizer.Tokenizer, opts Options, options ...Option) (*Builder, error) {
	if tok == nil {
		return nil, errors.New("nil tokenizer")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	b := &Builder{
		tokenizer: tok,
		options:   opts,
		clock:     func() time.Time { return time.Now().UTC() },
		logger:    logger_i.NewLogger("Chunk Builder"),
	}
	for _, o := range options {
		o(b)
	}
	if b.splitter == nil {
		b.splitter = splitter.NewMarkdownSplitter(tokenLength(tok))
	}
	return b, nil
}

func (b *Builder) Options() Options {
	return b.options
}

// Build returns every chunk of doc or an error, never a partial list.
func (b *Builder) Build(doc commonModels.SourceDocument) ([]commonModels.DocumentChunk, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, ErrEmptyDocument
	}

	total, err := b.tokenizer.CountTokens(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("counting tokens: %w", err)
	}

	sourceFile := baseName(doc.Name)
	patientID := doc.PatientID
	if patientID == "" {
		patientID = InferPatientID(sourceFile)
	}
	docType := doc.DocType
	if docType == "" {
		docType = InferDocType(sourceFile)
	}
	now := b.clock()

	newChunk := func(text string, index, count, tokens int, complete bool) commonModels.DocumentChunk {
		return commonModels.DocumentChunk{
			PatientID:          patientID,
			DocID:              MakeDocID(patientID, docType, index),
			Type:               docType,
			Text:               text,
			ChunkIndex:         index,
			TotalChunks:        count,
			TokenCount:         tokens,
			Timestamp:          now,
			SourceFile:         sourceFile,
			IsCompleteDocument: complete,
			Title:              doc.Title,
		}
	}

	if total <= b.options.ChunkSize {
		b.logger.Debug("Document fits in one chunk", "source", sourceFile, "tokens", total)
		return []commonModels.DocumentChunk{newChunk(strings.TrimSpace(doc.Text), 0, 1, total, true)}, nil
	}

	pieces, err := b.splitter.Split(doc.Text, b.options.ChunkSize, b.options.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("splitting: %w", err)
	}
	texts := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if t := strings.TrimSpace(p); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return nil, ErrEmptyDocument
	}

	chunks := make([]commonModels.DocumentChunk, 0, len(texts))
	for i, text := range texts {
		n, err := b.tokenizer.CountTokens(text)
		if err != nil {
			return nil, fmt.Errorf("counting tokens of chunk %d: %w", i, err)
		}
		chunks = append(chunks, newChunk(text, i, len(texts), n, false))
	}
	b.logger.Debug("Document split", "source", sourceFile, "tokens", total, "chunks", len(chunks))
	return chunks, nil
}

// tokenLength feeds the splitter; a tokenizer failure falls back to rune
// length there because the per-chunk recount reports the real error.
func tokenLength(tok tokenizer.Tokenizer) splitter.LengthFunc {
	return func(text string) int {
		n, err := tok.CountTokens(text)
		if err != nil {
			return splitter.RuneLength(text)
		}
		return n
	}
}
