// Package factory wires a storage.Kind command-line value to a concrete
// storage.Store, failing loudly for backends that are accepted but not
// implemented.
package factory

import (
	"fmt"

	"github.com/hatchway/clustersched/internal/storage"
	"github.com/hatchway/clustersched/internal/storage/memory"
	"github.com/hatchway/clustersched/internal/storage/postgres"
	"github.com/hatchway/clustersched/internal/storage/redisstore"
)

// New constructs the storage backend named by kind. dsn is ignored for the
// memory backend and parsed as a connection string for the others.
func New(kind storage.Kind, dsn string) (storage.Store, error) {
	switch kind {
	case storage.KindMemory:
		return memory.New(), nil
	case storage.KindPostgreSQL:
		return postgres.New(dsn)
	case storage.KindRedis:
		return redisstore.New(dsn)
	default:
		return nil, fmt.Errorf("unexpected storage type %q", kind)
	}
}
