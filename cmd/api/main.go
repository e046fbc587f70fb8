// @title           Medical Document Ingest API
// @version         1.0
// @description     Chunks patient documents, embeds them and upserts them into a vector index.

// @contact.name    API Support
// @contact.email   ank.github@gmail.com

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/akolanti/MedIngest/internal/config"
	"github.com/akolanti/MedIngest/internal/data/redisStore"
	"github.com/akolanti/MedIngest/internal/data/store"
	jobmodel "github.com/akolanti/MedIngest/internal/domain/jobModel"
	"github.com/akolanti/MedIngest/internal/handlers"
	"github.com/akolanti/MedIngest/internal/job"
	"github.com/akolanti/MedIngest/internal/middleware"
	"github.com/akolanti/MedIngest/internal/rag"
	"github.com/akolanti/MedIngest/internal/rag/chunker"
	"github.com/akolanti/MedIngest/internal/rag/ingest"
	"github.com/akolanti/MedIngest/internal/server"
	"github.com/akolanti/MedIngest/internal/worker"
	"github.com/akolanti/MedIngest/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger_i.NewLogger("main").Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger_i.Init(cfg.SlogLevel(), cfg.IsProd())
	var logger = logger_i.NewLogger("main")

	flag.StringVar(&listenAddr, "listen-addr", cfg.ListenAddr, "server listen address")
	flag.Parse()

	middleware.Configure(cfg.AuthToken, cfg.NoAuthBypass)
	if cfg.NoAuthBypass {
		logger.Warn("Authentication is disabled")
	}

	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	root, err := os.Getwd()
	if err != nil {
		logger.Error("Could not resolve working directory", "error", err)
		return
	}

	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		UploadDir:         filepath.Join(root, config.UploadDirName),
	}
	redisOpts := redisStore.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	jobStore, jobErr := store.GetRedisJobStore(serviceContext, redisOpts)
	manifestStore, manifestErr := store.GetRedisManifestStore(serviceContext, redisOpts)
	if jobErr != nil || manifestErr != nil {
		logger.Error("Redis stores are offline, using in-memory stores", "jobStore", jobErr, "manifestStore", manifestErr)
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.ManifestStore = store.InitInMemoryManifestStore()
	} else {
		serviceConfig.JobStore = jobStore
		serviceConfig.ManifestStore = manifestStore
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	ragService, err := newRagService(serviceContext, cfg, filepath.Join(root, config.ReportsDirName))
	if err != nil {
		logger.Error("External services failed to initialize. Shutting down.", "error", err)
		return
	}

	handlers.InitJobHandler(service)

	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

func newRagService(ctx context.Context, cfg config.Config, reportDir string) (rag.Service, error) {
	builder, err := rag.NewBuilder(chunker.Options{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap})
	if err != nil {
		return nil, err
	}
	embedder, err := rag.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	vectorStore, err := rag.NewVectorStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pipeline, err := ingest.NewPipeline(builder, embedder, vectorStore, ingest.Settings{
		IndexName: cfg.IndexName,
		Dimension: cfg.EmbeddingDimension,
		BatchSize: cfg.EmbedBatchSize,
		Workers:   cfg.IngestWorkers,
	})
	if err != nil {
		return nil, err
	}
	return rag.NewService(pipeline, reportDir), nil
}
