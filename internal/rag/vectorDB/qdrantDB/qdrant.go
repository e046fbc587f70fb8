package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/MedIngest/internal/config"
	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/metrics"
	"github.com/akolanti/MedIngest/internal/rag/guard"
	"github.com/akolanti/MedIngest/internal/rag/vectorDB"
	"github.com/akolanti/MedIngest/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

var logger = logger_i.NewLogger("Qdrant")

// qdrantAPI is the part of *qdrant.Client the store calls.
type qdrantAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, request *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
}

type ClientHolder struct {
	QObj  qdrantAPI
	guard *guard.Guard
}

type Settings struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// NewQdrantClient dials Qdrant over gRPC. The connection is closed when ctx
// is done.
func NewQdrantClient(ctx context.Context, s Settings, g *guard.Guard) (*ClientHolder, error) {
	if s.Port == 0 {
		s.Port = config.QdrantGrpcPort
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     s.Host,
		Port:     s.Port,
		APIKey:   s.APIKey,
		UseTLS:   s.UseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate qdrant client: %w", err)
	}
	logger.Info("Qdrant client created", "host", s.Host, "port", s.Port)
	go closeQdrant(ctx, client)
	return &ClientHolder{QObj: client, guard: g}, nil
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	err := qi.Close()
	if err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
	logger.Info("Closed Qdrant")
}

func (db *ClientHolder) EnsureIndex(ctx context.Context, indexName string, dimension int) error {
	if indexName == "" {
		return errors.New("empty collection name")
	}
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	log := logger.WithTrace(ctx)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("qdrant_ensure", time.Since(start)) }()

	var exists bool
	err := db.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		exists, err = db.QObj.CollectionExists(ctx, indexName)
		return err
	})
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", indexName, err)
	}

	if exists {
		var info *qdrant.CollectionInfo
		err := db.guard.Do(ctx, func(ctx context.Context) error {
			var err error
			info, err = db.QObj.GetCollectionInfo(ctx, indexName)
			return err
		})
		if err != nil {
			return fmt.Errorf("reading collection %s: %w", indexName, err)
		}
		if size := collectionSize(info); size != 0 && size != uint64(dimension) {
			return fmt.Errorf("%w: collection %s has %d, want %d", vectorDB.ErrDimensionMismatch, indexName, size, dimension)
		}
		log.Debug("Collection already exists", "collection", indexName)
		return nil
	}

	log.Info("Creating collection", "collection", indexName, "dimension", dimension)
	err = db.guard.Do(ctx, func(ctx context.Context) error {
		return db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: indexName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", indexName, err)
	}

	// namespace filtering stays cheap with a keyword index on the payload
	err = db.guard.Do(ctx, func(ctx context.Context) error {
		_, err := db.QObj.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: indexName,
			FieldName:      config.NamespacePayloadKey,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("indexing namespace on %s: %w", indexName, err)
	}
	return nil
}

func collectionSize(info *qdrant.CollectionInfo) uint64 {
	return info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
}

func (db *ClientHolder) Upsert(ctx context.Context, indexName, namespace string, chunks []commonModels.DocumentChunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := vectorDB.CheckBatch(chunks, vectors, 0); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(vectorDB.PointID(namespace, chunk.DocID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(pointPayload(namespace, chunk)),
		}
	}

	start := time.Now()
	err := db.guard.Do(ctx, func(ctx context.Context) error {
		_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: indexName,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	})
	metrics.CaptureExecutionMetrics("qdrant_upsert", time.Since(start))
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func pointPayload(namespace string, chunk commonModels.DocumentChunk) map[string]any {
	payload := chunk.Metadata()
	payload[config.NamespacePayloadKey] = namespace
	return payload
}
