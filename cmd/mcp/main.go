// Command mcp serves the chunk builder as an MCP tool over stdio. It never
// embeds or upserts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/MedIngest/internal/config"
	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/rag/chunker"
	"github.com/akolanti/MedIngest/internal/rag/tokenizer"
	"github.com/akolanti/MedIngest/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const toolName = "chunk_document"

type chunkDocumentInput struct {
	Text         string `json:"text" jsonschema:"full document text"`
	FileName     string `json:"file_name,omitempty" jsonschema:"source file name, used to infer patient id and document type"`
	PatientID    string `json:"patient_id,omitempty" jsonschema:"patient id, overrides the one inferred from file_name"`
	DocType      string `json:"doc_type,omitempty" jsonschema:"document type, overrides the one inferred from file_name"`
	ChunkSize    int    `json:"chunk_size,omitempty" jsonschema:"maximum tokens per chunk, default 3000"`
	ChunkOverlap *int   `json:"chunk_overlap,omitempty" jsonschema:"token overlap between chunks, default 200"`
}

type chunkDocumentOutput struct {
	Chunks []commonModels.DocumentChunk `json:"chunks"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger_i.NewLogger("mcp").Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	// stdout carries the protocol
	logger_i.InitWithWriter(os.Stderr, cfg.SlogLevel(), cfg.IsProd())
	logger := logger_i.NewLogger("mcp")

	tok, err := tokenizer.NewBPETokenizer(config.TokenEncoding)
	if err != nil {
		logger.Error("Error loading tokenizer", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := newServer(tok, chunker.Options{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap})
	logger.Info("Serving MCP over stdio", "tool", toolName)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("MCP server stopped", "error", err)
		os.Exit(1)
	}
}

func newServer(tok tokenizer.Tokenizer, defaults chunker.Options) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "med-ingest", Version: "1.0.0"}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        toolName,
		Description: "Split a medical document into token-bounded chunk records with patient and type metadata.",
	}, chunkDocument(tok, defaults))
	return server
}

// chunkDocument returns the tool handler. Out is left untyped so the
// chunks travel as one JSON text block.
func chunkDocument(tok tokenizer.Tokenizer, defaults chunker.Options) mcp.ToolHandlerFor[chunkDocumentInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in chunkDocumentInput) (*mcp.CallToolResult, any, error) {
		opts := resolveOptions(in, defaults)
		builder, err := chunker.NewBuilder(tok, opts)
		if err != nil {
			return nil, nil, err
		}
		chunks, err := builder.Build(commonModels.SourceDocument{
			Name:      in.FileName,
			Text:      in.Text,
			PatientID: in.PatientID,
			DocType:   in.DocType,
		})
		if err != nil {
			return nil, nil, err
		}

		data, err := json.Marshal(chunkDocumentOutput{Chunks: chunks})
		if err != nil {
			return nil, nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil, nil
	}
}

// resolveOptions fills unset sizes from defaults. An omitted overlap that
// would not fit a smaller requested size drops to zero.
func resolveOptions(in chunkDocumentInput, defaults chunker.Options) chunker.Options {
	opts := defaults
	if in.ChunkSize > 0 {
		opts.ChunkSize = in.ChunkSize
	}
	if in.ChunkOverlap != nil {
		opts.ChunkOverlap = *in.ChunkOverlap
	} else if opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 0
	}
	return opts
}
