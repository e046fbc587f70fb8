// Command ingest chunks a folder of patient documents and upserts them into
// the configured vector index.
//
//	ingest -folder ./records/6789 [-dry-run] [-analyze] [-report-dir ./reports]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/akolanti/MedIngest/internal/config"
	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/rag"
	"github.com/akolanti/MedIngest/internal/rag/chunker"
	"github.com/akolanti/MedIngest/internal/rag/embedding"
	"github.com/akolanti/MedIngest/internal/rag/ingest"
	"github.com/akolanti/MedIngest/internal/rag/tokenizer"
	"github.com/akolanti/MedIngest/internal/rag/vectorDB"
	"github.com/akolanti/MedIngest/internal/report"
	"github.com/akolanti/MedIngest/pkg/logger_i"
)

const (
	exitOK       = 0
	exitFailures = 1
	exitUsage    = 2
)

type options struct {
	folder       string
	patientID    string
	docType      string
	chunkSize    int
	chunkOverlap int
	index        string
	extensions   string
	workers      int
	analyze      bool
	dryRun       bool
	reportDir    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	logger_i.InitWithWriter(stderr, cfg.SlogLevel(), cfg.IsProd())
	logger := logger_i.NewLogger("ingest")

	opts, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return exitUsage
	}
	extensions := strings.Split(opts.extensions, ",")

	if opts.analyze {
		return analyze(ctx, opts, extensions, stdout, logger)
	}

	docs, scanFailures, err := ingest.ScanFolder(ctx, opts.folder, extensions)
	if err != nil {
		logger.Error("Error scanning folder", "folder", opts.folder, "error", err)
		return exitFailures
	}
	applyOverrides(docs, opts.patientID, opts.docType)

	pipeline, err := newPipeline(ctx, cfg, opts)
	if err != nil {
		logger.Error("Error building pipeline", "error", err)
		return exitFailures
	}

	result, err := pipeline.Run(ctx, docs)
	if err != nil {
		logger.Error("Ingestion aborted", "error", err)
		return exitFailures
	}

	if opts.reportDir != "" && len(result.Chunks) > 0 {
		path, err := report.WriteToDir(opts.reportDir, result.Chunks, time.Now())
		if err != nil {
			logger.Error("Error writing review report", "error", err)
		} else {
			fmt.Fprintf(stdout, "Report: %s\n", path)
		}
	}

	fmt.Fprintf(stdout, "Documents: %d\nChunks: %d\nUpserted: %d\n", len(docs), len(result.Chunks), len(result.Upserted))
	for _, f := range scanFailures {
		fmt.Fprintf(stdout, "FAILED %s (read): %v\n", f.Path, f.Err)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(stdout, "FAILED %s\n", f.String())
	}
	if len(scanFailures) > 0 || result.HasFailures() {
		return exitFailures
	}
	return exitOK
}

func parseFlags(args []string, cfg config.Config, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.folder, "folder", "", "folder of documents to ingest (required)")
	fs.StringVar(&opts.patientID, "patient-id", "", "patient id for every document, instead of inferring it from file names")
	fs.StringVar(&opts.docType, "doc-type", "", "document type for every document, instead of inferring it from file names")
	fs.IntVar(&opts.chunkSize, "chunk-size", cfg.ChunkSize, "maximum tokens per chunk")
	fs.IntVar(&opts.chunkOverlap, "chunk-overlap", cfg.ChunkOverlap, "token overlap between consecutive chunks")
	fs.StringVar(&opts.index, "index", cfg.IndexName, "vector index name")
	fs.StringVar(&opts.extensions, "ext", strings.Join(cfg.ScanExtensions, ","), "comma separated file extensions to scan")
	fs.IntVar(&opts.workers, "workers", cfg.IngestWorkers, "documents embedded and upserted in parallel")
	fs.BoolVar(&opts.analyze, "analyze", false, "only print token counts per file")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "build chunks without embedding or upserting")
	fs.StringVar(&opts.reportDir, "report-dir", "", "write a markdown review of the chunks into this folder")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.folder == "" {
		fmt.Fprintln(stderr, "-folder is required")
		fs.Usage()
		return opts, errors.New("missing folder")
	}
	if err := (chunker.Options{ChunkSize: opts.chunkSize, ChunkOverlap: opts.chunkOverlap}).Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return opts, err
	}
	return opts, nil
}

func analyze(ctx context.Context, opts options, extensions []string, stdout io.Writer, logger *logger_i.Logger) int {
	tok, err := tokenizer.NewBPETokenizer(config.TokenEncoding)
	if err != nil {
		logger.Error("Error loading tokenizer", "error", err)
		return exitFailures
	}
	counts, failures, err := ingest.CountTokensInFolder(ctx, opts.folder, extensions, tok)
	if err != nil {
		logger.Error("Error scanning folder", "folder", opts.folder, "error", err)
		return exitFailures
	}
	if err := report.WriteTokenAnalysis(stdout, counts, opts.chunkSize); err != nil {
		logger.Error("Error writing analysis", "error", err)
		return exitFailures
	}
	for _, f := range failures {
		fmt.Fprintf(stdout, "FAILED %s: %v\n", f.Path, f.Err)
	}
	return exitOK
}

func newPipeline(ctx context.Context, cfg config.Config, opts options) (*ingest.Pipeline, error) {
	builder, err := rag.NewBuilder(chunker.Options{ChunkSize: opts.chunkSize, ChunkOverlap: opts.chunkOverlap})
	if err != nil {
		return nil, err
	}

	var embedder embedding.Embedder
	var store vectorDB.DataProcessor
	if !opts.dryRun {
		if embedder, err = rag.NewEmbedder(ctx, cfg); err != nil {
			return nil, err
		}
		if store, err = rag.NewVectorStore(ctx, cfg); err != nil {
			return nil, err
		}
	}

	return ingest.NewPipeline(builder, embedder, store, ingest.Settings{
		IndexName: opts.index,
		Dimension: cfg.EmbeddingDimension,
		BatchSize: cfg.EmbedBatchSize,
		Workers:   opts.workers,
		DryRun:    opts.dryRun,
	})
}

func applyOverrides(docs []commonModels.SourceDocument, patientID, docType string) {
	for i := range docs {
		if patientID != "" {
			docs[i].PatientID = patientID
		}
		if docType != "" {
			docs[i].DocType = docType
		}
	}
}
