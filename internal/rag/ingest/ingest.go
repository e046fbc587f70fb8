package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/metrics"
	"github.com/akolanti/MedIngest/internal/rag/chunker"
	"github.com/akolanti/MedIngest/internal/rag/embedding"
	"github.com/akolanti/MedIngest/internal/rag/vectorDB"
	"github.com/akolanti/MedIngest/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

var logger = logger_i.NewLogger("Document Ingestion")

const (
	StageBuild  = "build"
	StageUpsert = "upsert"
)

type Settings struct {
	IndexName string
	Dimension int
	BatchSize int
	Workers   int
	// DryRun builds chunks without touching the embedder or the index.
	DryRun bool
}

type DocumentFailure struct {
	Source string
	Stage  string
	Err    error
}

func (f DocumentFailure) String() string {
	return fmt.Sprintf("%s (%s): %v", f.Source, f.Stage, f.Err)
}

type Report struct {
	Chunks   []commonModels.DocumentChunk
	Upserted []string
	Failures []DocumentFailure
}

func (r Report) HasFailures() bool {
	return len(r.Failures) > 0
}

// Pipeline runs build, embed and upsert over a set of documents.
type Pipeline struct {
	builder  *chunker.Builder
	embedder embedding.Embedder
	store    vectorDB.DataProcessor
	settings Settings
}

func NewPipeline(builder *chunker.Builder, embedder embedding.Embedder, store vectorDB.DataProcessor, settings Settings) (*Pipeline, error) {
	if builder == nil {
		return nil, errors.New("nil chunk builder")
	}
	if !settings.DryRun && (embedder == nil || store == nil) {
		return nil, errors.New("embedder and vector store are required unless dry-run")
	}
	if settings.Workers <= 0 {
		settings.Workers = 1
	}
	if settings.Dimension <= 0 && embedder != nil {
		settings.Dimension = embedder.Dimension()
	}
	return &Pipeline{builder: builder, embedder: embedder, store: store, settings: settings}, nil
}

func (p *Pipeline) Settings() Settings {
	return p.settings
}

// Run ensures the index, builds every document, then embeds and upserts
// documents concurrently. Per-document failures land in the report; only
// an index failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, docs []commonModels.SourceDocument) (Report, error) {
	log := logger.WithTrace(ctx)
	log.Info("Starting ingestion", "documents", len(docs), "index", p.settings.IndexName, "dry_run", p.settings.DryRun)

	if !p.settings.DryRun {
		start := time.Now()
		err := p.store.EnsureIndex(ctx, p.settings.IndexName, p.settings.Dimension)
		metrics.CaptureExecutionMetrics("ensure_index", time.Since(start))
		if err != nil {
			log.Error("Error ensuring index", "index", p.settings.IndexName, "error", err)
			return Report{}, fmt.Errorf("ensuring index %s: %w", p.settings.IndexName, err)
		}
	}

	batch := p.builder.BuildAll(docs)
	report := Report{Chunks: batch.Chunks()}
	for _, f := range batch.Failed {
		metrics.RecordDocument("failed_build")
		report.Failures = append(report.Failures, DocumentFailure{Source: f.Source, Stage: StageBuild, Err: f.Err})
	}
	for _, d := range batch.Documents {
		metrics.RecordDocument("built")
		metrics.RecordChunks(len(d.Chunks), len(d.Chunks) > 1 || !d.Chunks[0].IsCompleteDocument)
	}
	log.Info("Chunks built", "chunks", len(report.Chunks), "documents", len(batch.Documents), "failed", len(batch.Failed))

	if p.settings.DryRun {
		return report, nil
	}

	upserted := make([][]string, len(batch.Documents))
	errs := make([]error, len(batch.Documents))
	var g errgroup.Group
	g.SetLimit(p.settings.Workers)
	for i, d := range batch.Documents {
		g.Go(func() error {
			upserted[i], errs[i] = BatchIngest(ctx, d.Chunks, p.settings.IndexName, p.settings.BatchSize, p.store, p.embedder)
			return nil
		})
	}
	_ = g.Wait()

	for i, d := range batch.Documents {
		report.Upserted = append(report.Upserted, upserted[i]...)
		if errs[i] != nil {
			log.Error("Error ingesting document", "source", d.Source, "error", errs[i])
			metrics.RecordDocument("failed_upsert")
			report.Failures = append(report.Failures, DocumentFailure{Source: d.Source, Stage: StageUpsert, Err: errs[i]})
			continue
		}
		metrics.RecordDocument("upserted")
	}
	log.Info("Ingestion finished", "upserted", len(report.Upserted), "failures", len(report.Failures))
	return report, nil
}
