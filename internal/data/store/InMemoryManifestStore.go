package store

import (
	"context"
	"sync"
)

type InMemoryManifestStore struct {
	lock      *sync.RWMutex
	manifests map[string][]string
}

func InitInMemoryManifestStore() *InMemoryManifestStore {
	return &InMemoryManifestStore{
		lock:      new(sync.RWMutex),
		manifests: make(map[string][]string),
	}
}

func (store *InMemoryManifestStore) AppendDocIDs(ctx context.Context, jobId string, docIDs []string) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	store.manifests[jobId] = append(store.manifests[jobId], docIDs...)
	return nil
}

func (store *InMemoryManifestStore) GetDocIDs(ctx context.Context, jobId string) ([]string, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()
	ids := store.manifests[jobId]
	return append([]string(nil), ids...), nil
}
