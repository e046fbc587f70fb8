package chromemDB

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/akolanti/MedIngest/internal/config"
	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/rag/vectorDB"
	"github.com/akolanti/MedIngest/pkg/logger_i"
	"github.com/philippgille/chromem-go"
)

var logger = logger_i.NewLogger("Chromem")

const dimensionKey = "dimension"

var errNoEmbedding = errors.New("chromem store only accepts precomputed embeddings")

// Store is an embedded vector index for local runs without a Qdrant server.
type Store struct {
	db         *chromem.DB
	mu         sync.Mutex
	dimensions map[string]int
}

// NewChromemStore persists to path; an empty path keeps everything in memory.
func NewChromemStore(path string) (*Store, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db at %s: %w", path, err)
		}
	}
	logger.Info("Chromem store ready", "path", path)
	return &Store{db: db, dimensions: make(map[string]int)}, nil
}

// vectors always arrive precomputed; the collection must never call out
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errNoEmbedding
}

func (s *Store) EnsureIndex(ctx context.Context, indexName string, dimension int) error {
	if indexName == "" {
		return errors.New("empty collection name")
	}
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.dimensions[indexName]; ok {
		if existing != dimension {
			return fmt.Errorf("%w: collection %s has %d, want %d", vectorDB.ErrDimensionMismatch, indexName, existing, dimension)
		}
		return nil
	}

	metadata := map[string]string{dimensionKey: strconv.Itoa(dimension)}
	if _, err := s.db.GetOrCreateCollection(indexName, metadata, noEmbedding); err != nil {
		return fmt.Errorf("creating collection %s: %w", indexName, err)
	}
	s.dimensions[indexName] = dimension
	logger.WithTrace(ctx).Debug("Collection ready", "collection", indexName, "dimension", dimension)
	return nil
}

func (s *Store) Upsert(ctx context.Context, indexName, namespace string, chunks []commonModels.DocumentChunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	dimension, ok := s.dimensions[indexName]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", vectorDB.ErrIndexNotFound, indexName)
	}
	if err := vectorDB.CheckBatch(chunks, vectors, dimension); err != nil {
		return err
	}

	collection := s.db.GetCollection(indexName, noEmbedding)
	if collection == nil {
		return fmt.Errorf("%w: %s", vectorDB.ErrIndexNotFound, indexName)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		// copy so chromem's in-place normalisation leaves the caller's slice alone
		embedding := append([]float32(nil), vectors[i]...)
		docs[i] = chromem.Document{
			ID:        vectorDB.PointID(namespace, chunk.DocID),
			Metadata:  stringMetadata(namespace, chunk),
			Embedding: embedding,
			Content:   chunk.Text,
		}
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem upsert failed: %w", err)
	}
	return nil
}

// chromem metadata is string-only
func stringMetadata(namespace string, chunk commonModels.DocumentChunk) map[string]string {
	m := make(map[string]string)
	for k, v := range chunk.Metadata() {
		m[k] = fmt.Sprint(v)
	}
	m[config.NamespacePayloadKey] = namespace
	return m
}
