package storage

import (
	"github.com/maz279/getit-project-v2-sub015/pkg/storage"
)

// InitStore picks a backend from connection strings: postgres when a DB
// connection string is set, redis when a redis URL is set, otherwise
// the in-memory store.
func InitStore(dbConnStr, redisURL string) (storage.Store, error) {
	if dbConnStr != "" {
		return NewPostgresStore(dbConnStr)
	}
	if redisURL != "" {
		return NewRedisStoreFromURL(redisURL)
	}
	return storage.NewMemoryStore(), nil
}
