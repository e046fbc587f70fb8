package job

import (
	"github.com/akolanti/MedIngest/internal/domain/jobModel"
)

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	ManifestStore     jobModel.ManifestStore
	// UploadDir is where multipart uploads wait for their job.
	UploadDir string
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	ManifestStore     jobModel.ManifestStore
	UploadDir         string
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		ManifestStore:     cfg.ManifestStore,
		UploadDir:         cfg.UploadDir,
	}
}
