package store

import (
	"context"

	"github.com/akolanti/MedIngest/internal/config"
	"github.com/akolanti/MedIngest/internal/data/redisStore"
	"github.com/akolanti/MedIngest/pkg/logger_i"
)

// RedisManifestStore keeps each job's upserted doc ids as a Redis list.
type RedisManifestStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisManifestStore(ctx context.Context, opts redisStore.Options) (*RedisManifestStore, error) {
	s, err := redisStore.GetRedisStore(ctx, opts, config.RedisManifestStore)
	if err != nil {
		return nil, err
	}
	return NewRedisManifestStore(s), nil
}

func NewRedisManifestStore(s *redisStore.Store) *RedisManifestStore {
	return &RedisManifestStore{
		store:  s,
		logger: logger_i.NewLogger("ManifestStore"),
	}
}

func manifestKey(jobId string) string {
	return "manifest:" + jobId
}

func (s *RedisManifestStore) AppendDocIDs(ctx context.Context, jobId string, docIDs []string) error {
	values := make([]interface{}, len(docIDs))
	for i, id := range docIDs {
		values[i] = id
	}
	err := s.store.ListPushWithTTL(ctx, manifestKey(jobId), config.RedisManifestStoreTTL, values...)
	if err != nil {
		s.logger.WithTrace(ctx).Error("Error saving manifest", "jobId", jobId, "error", err)
	}
	return err
}

func (s *RedisManifestStore) GetDocIDs(ctx context.Context, jobId string) ([]string, error) {
	return s.store.ListGetAll(ctx, manifestKey(jobId))
}
