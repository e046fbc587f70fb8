package config

import (
	"time"
)

const (
	TRACE_ID_KEY                = "traceId"
	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//chunking
	DefaultChunkSize    = 3000
	DefaultChunkOverlap = 200
	TokenEncoding       = "cl100k_base"

	//upsert target
	DefaultIndexName              = "client-documents"
	EmbeddingOutputDimensionality = 1536
	EmbedBatchSize                = 100

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//a single ingest job may embed many documents
	JobTimeout = 10 * time.Minute

	//serverTimeouts
	ReadTimeout            = 15 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//multipart uploads
	MaxUploadSize  = 32 << 20
	UploadDirName  = "temporary_data"
	ReportsDirName = "reports"

	//vectorDB
	QdrantConnectionTimeout = 30 * time.Second
	QdrantGrpcPort          = 6334
	QdrantPoolSize          = 1 //2-5 is preferred for prod according to documentation
	NamespacePayloadKey     = "namespace"

	//embeddings
	OpenAIEmbeddingModel = "text-embedding-3-small"
	GoogleEmbeddingModel = "gemini-embedding-001"

	//circuit breaker
	BreakerFailureThreshold = 5
	BreakerOpenTimeout      = 30 * time.Second

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis has 16 DB we can use
	RedisJobStore      = 0
	RedisManifestStore = 1

	//redis timeouts
	RedisJobStoreTTL      = 24 * time.Hour
	RedisManifestStoreTTL = 7 * 24 * time.Hour
)
